package pipeline

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultProgressStep is the percentage between two progress log lines
const DefaultProgressStep = 10.0

// unknownSizeStep is the byte distance between log lines when the stream
// length is unknown
const unknownSizeStep = 64 << 20

// Progress holds current progress information
type Progress struct {
	Current    int64
	Total      int64
	Percentage float64
	Elapsed    time.Duration
	ETA        time.Duration
	Throughput float64 // bytes per second
}

// ProgressLogger reports parser progress through zap at fixed percentage
// steps. It implements osmxml.Progress.
type ProgressLogger struct {
	description string
	step        float64
	logger      *zap.Logger
	start       time.Time

	mu      sync.Mutex
	next    float64 // next percentage (or byte offset) to log at
	updates int64
	last    Progress
	closed  bool
}

// NewProgressLogger creates a progress logger. A non-positive step selects
// DefaultProgressStep.
func NewProgressLogger(description string, step float64, logger *zap.Logger) *ProgressLogger {
	if step <= 0 {
		step = DefaultProgressStep
	}
	return &ProgressLogger{
		description: description,
		step:        step,
		logger:      logger,
		start:       time.Now(),
		next:        step,
	}
}

// Update records the stream position and logs when the next step is reached
func (p *ProgressLogger) Update(current, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.updates++
	p.last = p.calculate(current, total)

	if total > 0 {
		if p.last.Percentage < p.next {
			return
		}
		for p.next <= p.last.Percentage {
			p.next += p.step
		}
	} else {
		if float64(current) < p.next*unknownSizeStep/p.step {
			return
		}
		p.next = (float64(current)/unknownSizeStep + 1) * p.step
	}

	p.logger.Info(p.description,
		zap.String("progress", fmt.Sprintf("%.0f%%", p.last.Percentage)),
		zap.String("read", FormatBytes(current)),
		zap.String("rate", FormatBytes(int64(p.last.Throughput))+"/s"),
		zap.String("eta", FormatETA(p.last.ETA)),
	)
}

// Close logs the final position; later updates are ignored
func (p *ProgressLogger) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.logger.Info(p.description+" finished",
		zap.String("read", FormatBytes(p.last.Current)),
		zap.Duration("elapsed", time.Since(p.start).Round(time.Millisecond)),
		zap.Int64("entities", p.updates),
	)
}

// Updates returns the number of Update calls received before Close
func (p *ProgressLogger) Updates() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.updates
}

// Closed reports whether Close was called
func (p *ProgressLogger) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Last returns the most recent progress
func (p *ProgressLogger) Last() Progress {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// calculate derives percentage, throughput and ETA from the byte position
func (p *ProgressLogger) calculate(current, total int64) Progress {
	elapsed := time.Since(p.start)
	prog := Progress{Current: current, Total: total, Elapsed: elapsed.Round(time.Second)}

	if elapsed.Seconds() > 0 {
		prog.Throughput = float64(current) / elapsed.Seconds()
	}
	if total > 0 && current > 0 {
		prog.Percentage = float64(current) / float64(total) * 100
		if prog.Percentage < 100 && prog.Throughput > 0 {
			remaining := float64(total-current) / prog.Throughput
			prog.ETA = (time.Duration(remaining * float64(time.Second))).Round(time.Second)
		}
	}
	return prog
}

// FormatETA formats the ETA duration in a human-readable format
func FormatETA(d time.Duration) string {
	if d <= 0 {
		return "calculating..."
	}

	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// FormatBytes formats bytes in a human-readable format
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
