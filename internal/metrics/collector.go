// Package metrics logs process and system resource usage while a load runs.
package metrics

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"
)

// DefaultInterval is used for intervals below one second
const DefaultInterval = 30 * time.Second

const gib = 1024 * 1024 * 1024

// Snapshot holds one sample of resource usage
type Snapshot struct {
	Stage             string
	CPUPercent        float64 // System-wide CPU usage (0-100%)
	ProcessCPUPercent float64 // This process, per core, can exceed 100%
	ProcessRSSGB      float64
	HeapAllocGB       float64
	Goroutines        int
	MemoryUsedGB      float64
	MemoryTotalGB     float64
	MemoryPercent     float64
	Timestamp         time.Time
}

// Collector periodically samples and logs resource usage
type Collector struct {
	interval time.Duration
	logger   *zap.Logger
	proc     *process.Process

	mu    sync.RWMutex
	stage string
	last  *Snapshot
	peak  float64 // highest process RSS seen, GiB
}

// NewCollector creates a collector logging to logger
func NewCollector(interval time.Duration, logger *zap.Logger) *Collector {
	if interval < time.Second {
		interval = DefaultInterval
	}

	// nil when the process cannot be inspected; process fields stay 0
	proc, _ := process.NewProcess(int32(os.Getpid()))

	return &Collector{
		interval: interval,
		logger:   logger,
		proc:     proc,
	}
}

// SetStage labels subsequent samples with the running pipeline stage
func (c *Collector) SetStage(stage string) {
	c.mu.Lock()
	c.stage = stage
	c.mu.Unlock()
}

// Run samples until ctx is cancelled. It always returns nil so it can run
// inside an errgroup next to the load.
func (c *Collector) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.Sample()

	for {
		select {
		case <-ctx.Done():
			c.logger.Debug("Metrics collection stopped", zap.String("peak_rss", formatGB(c.PeakRSSGB())))
			return nil
		case <-ticker.C:
			c.Sample()
		}
	}
}

// Last returns the most recent snapshot, nil before the first sample
func (c *Collector) Last() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

// PeakRSSGB returns the highest resident set size sampled so far
func (c *Collector) PeakRSSGB() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.peak
}

// Sample collects one snapshot and logs it
func (c *Collector) Sample() *Snapshot {
	s := &Snapshot{Timestamp: time.Now(), Goroutines: runtime.NumGoroutine()}

	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		s.CPUPercent = pct[0]
	}

	if c.proc != nil {
		if pct, err := c.proc.Percent(0); err == nil {
			s.ProcessCPUPercent = pct
		}
		if info, err := c.proc.MemoryInfo(); err == nil {
			s.ProcessRSSGB = float64(info.RSS) / gib
		}
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	s.HeapAllocGB = float64(ms.HeapAlloc) / gib

	if vmem, err := mem.VirtualMemory(); err == nil {
		s.MemoryPercent = vmem.UsedPercent
		s.MemoryUsedGB = float64(vmem.Used) / gib
		s.MemoryTotalGB = float64(vmem.Total) / gib
	}

	c.mu.Lock()
	s.Stage = c.stage
	c.last = s
	if s.ProcessRSSGB > c.peak {
		c.peak = s.ProcessRSSGB
	}
	c.mu.Unlock()

	c.logger.Info("System metrics",
		zap.String("stage", s.Stage),
		zap.Float64("sys_cpu", s.CPUPercent),
		zap.Float64("proc_cpu", s.ProcessCPUPercent),
		zap.String("rss", formatGB(s.ProcessRSSGB)),
		zap.String("heap", formatGB(s.HeapAllocGB)),
		zap.Int("goroutines", s.Goroutines),
		zap.Float64("mem_pct", s.MemoryPercent),
		zap.String("mem_used", formatGB(s.MemoryUsedGB)),
	)
	return s
}

// formatGB formats gigabytes with two decimal places
func formatGB(gb float64) string {
	return fmt.Sprintf("%.2f GB", gb)
}
