package metrics

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewCollectorInterval(t *testing.T) {
	c := NewCollector(0, zap.NewNop())
	if c.interval != DefaultInterval {
		t.Errorf("interval = %v, want %v", c.interval, DefaultInterval)
	}
	c = NewCollector(5*time.Second, zap.NewNop())
	if c.interval != 5*time.Second {
		t.Errorf("interval = %v", c.interval)
	}
}

func TestSample(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	c := NewCollector(time.Second, zap.New(core))

	if c.Last() != nil {
		t.Fatal("expected no snapshot before sampling")
	}

	c.SetStage("parse")
	s := c.Sample()

	if s.Stage != "parse" || s.Goroutines < 1 || s.HeapAllocGB <= 0 {
		t.Errorf("snapshot = %+v", s)
	}
	if c.Last() != s {
		t.Error("Last does not return the latest snapshot")
	}
	if c.PeakRSSGB() != s.ProcessRSSGB {
		t.Errorf("peak = %f, rss = %f", c.PeakRSSGB(), s.ProcessRSSGB)
	}

	entries := logs.FilterMessage("System metrics").All()
	if len(entries) != 1 || entries[0].ContextMap()["stage"] != "parse" {
		t.Errorf("entries = %v", entries)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	c := NewCollector(time.Hour, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if c.Last() == nil {
		t.Error("expected an initial sample")
	}
}

func TestFormatGB(t *testing.T) {
	if got := formatGB(1.234); got != "1.23 GB" {
		t.Errorf("formatGB = %q", got)
	}
}
