package pipeline

import (
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestProgressLoggerSteps(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	p := NewProgressLogger("Parsing", 25, zap.New(core))

	for pos := int64(0); pos <= 100; pos += 5 {
		p.Update(pos, 100)
	}
	// 25, 50, 75, 100
	if n := logs.FilterMessage("Parsing").Len(); n != 4 {
		t.Errorf("progress lines = %d, want 4", n)
	}
	if p.Updates() != 21 {
		t.Errorf("updates = %d", p.Updates())
	}

	p.Close()
	p.Close()
	p.Update(100, 100)
	if !p.Closed() || logs.FilterMessage("Parsing finished").Len() != 1 {
		t.Error("expected exactly one final line")
	}
	if p.Updates() != 21 {
		t.Error("updates after Close must be ignored")
	}
}

func TestProgressLoggerJump(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	p := NewProgressLogger("Parsing", 0, zap.New(core))
	p.Update(95, 100)
	p.Update(96, 100)
	if logs.Len() != 1 {
		t.Errorf("lines = %d, want 1", logs.Len())
	}
	if p.Last().Percentage != 96 {
		t.Errorf("percentage = %f", p.Last().Percentage)
	}
}

func TestProgressLoggerUnknownSize(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	p := NewProgressLogger("Parsing", 10, zap.New(core))

	p.Update(1<<20, 0)
	p.Update(unknownSizeStep, 0)
	p.Update(unknownSizeStep+1<<20, 0)
	p.Update(2*unknownSizeStep+1<<20, 0)
	if logs.Len() != 2 {
		t.Errorf("lines = %d, want 2", logs.Len())
	}
}

func TestFormatETA(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "calculating..."},
		{42 * time.Second, "42s"},
		{3*time.Minute + 5*time.Second, "3m 5s"},
		{2*time.Hour + 1*time.Minute, "2h 1m 0s"},
	}
	for _, tt := range tests {
		if got := FormatETA(tt.d); got != tt.want {
			t.Errorf("FormatETA(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{512, "512 B"},
		{1536, "1.5 KB"},
		{5 << 20, "5.0 MB"},
		{3 << 30, "3.0 GB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.n); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
