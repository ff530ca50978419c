package index

import (
	"testing"

	"github.com/paulmach/orb"
)

func box(x, y, size float64) orb.Bound {
	return orb.Bound{Min: orb.Point{x, y}, Max: orb.Point{x + size, y + size}}
}

func TestSearch(t *testing.T) {
	ix := New[string]()
	ix.Insert(box(0, 0, 10), "a")
	ix.Insert(box(100, 100, 10), "b")
	ix.Insert(box(5, 5, 10), "c")
	ix.Insert(orb.Bound{Min: orb.Point{50, 50}, Max: orb.Point{50, 50}}, "point")

	if ix.Len() != 4 {
		t.Fatalf("Len = %d, want 4", ix.Len())
	}

	tests := []struct {
		name  string
		query orb.Bound
		want  []string
	}{
		{"overlapping two", box(4, 4, 2), []string{"a", "c"}},
		{"single", box(95, 95, 10), []string{"b"}},
		{"point", box(49, 49, 2), []string{"point"}},
		{"everything", box(-1, -1, 200), []string{"a", "b", "c", "point"}},
		{"nothing", box(500, 500, 1), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ix.Search(tt.query)
			if len(got) != len(tt.want) {
				t.Fatalf("Search = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Search = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestSearchDegrees(t *testing.T) {
	ix := New[int]()
	ix.Insert(DegreesBound(13.40, 52.50, 13.41, 52.51), 1)
	ix.Insert(DegreesBound(2.35, 48.85, 2.36, 48.86), 2)

	got := ix.SearchDegrees(13.0, 52.0, 14.0, 53.0)
	if len(got) != 1 || got[0] != 1 {
		t.Errorf("SearchDegrees = %v, want [1]", got)
	}
}

func TestDegreesBound(t *testing.T) {
	b := DegreesBound(-1, -1, 1, 1)
	if b.Min[0] >= 0 || b.Min[1] >= 0 || b.Max[0] <= 0 || b.Max[1] <= 0 {
		t.Errorf("DegreesBound = %v", b)
	}
	if b.Min[0] != -b.Max[0] {
		t.Errorf("expected symmetric bound, got %v", b)
	}
}
