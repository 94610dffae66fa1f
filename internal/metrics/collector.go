// Package metrics samples host and process resource usage while a run is in
// progress.
package metrics

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"
)

const (
	mib = 1024 * 1024
	gib = 1024 * mib
)

// Sample is one snapshot of resource usage
type Sample struct {
	CPUPercent        float64 // system-wide, 0-100
	ProcessCPUPercent float64 // per core, can exceed 100
	ProcessRSSMB      float64
	MemoryUsedGB      float64
	MemoryTotalGB     float64
	MemoryPercent     float64
	DiskReadMBps      float64
	DiskWriteMBps     float64
	Timestamp         time.Time
}

// Collector periodically samples resource usage and logs it
type Collector struct {
	interval time.Duration
	logger   *zap.Logger
	proc     *process.Process

	lastDisk     map[string]disk.IOCountersStat
	lastDiskTime time.Time

	mu   sync.RWMutex
	last *Sample
}

// NewCollector creates a collector logging to logger every interval.
// Intervals below one second are raised to 30 seconds.
func NewCollector(interval time.Duration, logger *zap.Logger) *Collector {
	if interval < time.Second {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		logger.Debug("Process metrics unavailable", zap.Error(err))
		proc = nil
	}

	return &Collector{
		interval: interval,
		logger:   logger,
		proc:     proc,
	}
}

// Start samples until ctx is cancelled. The first sample is taken
// immediately.
func (c *Collector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.Collect()

	for {
		select {
		case <-ctx.Done():
			c.logger.Debug("Metrics collection stopped")
			return
		case <-ticker.C:
			c.Collect()
		}
	}
}

// Last returns the most recent sample, nil before the first one
func (c *Collector) Last() *Sample {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

// Collect takes one sample, stores and logs it
func (c *Collector) Collect() *Sample {
	s := &Sample{Timestamp: time.Now()}

	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		s.CPUPercent = pct[0]
	}

	if c.proc != nil {
		if pct, err := c.proc.Percent(0); err == nil {
			s.ProcessCPUPercent = pct
		}
		if info, err := c.proc.MemoryInfo(); err == nil {
			s.ProcessRSSMB = float64(info.RSS) / mib
		}
	}

	if vmem, err := mem.VirtualMemory(); err == nil {
		s.MemoryPercent = vmem.UsedPercent
		s.MemoryUsedGB = float64(vmem.Used) / gib
		s.MemoryTotalGB = float64(vmem.Total) / gib
	}

	s.DiskReadMBps, s.DiskWriteMBps = c.diskRates(s.Timestamp)

	c.mu.Lock()
	c.last = s
	c.mu.Unlock()

	c.logger.Info("System metrics",
		zap.Float64("sys_cpu", round1(s.CPUPercent)),
		zap.Float64("proc_cpu", round1(s.ProcessCPUPercent)),
		zap.String("proc_rss", fmt.Sprintf("%.1f MB", s.ProcessRSSMB)),
		zap.Float64("mem_pct", round1(s.MemoryPercent)),
		zap.String("mem_used", fmt.Sprintf("%.1f GB", s.MemoryUsedGB)),
		zap.String("disk_r", fmt.Sprintf("%.1f MB/s", s.DiskReadMBps)),
		zap.String("disk_w", fmt.Sprintf("%.1f MB/s", s.DiskWriteMBps)),
	)
	return s
}

// diskRates returns read and write throughput since the previous call. The
// first call only records a baseline.
func (c *Collector) diskRates(now time.Time) (readMBps, writeMBps float64) {
	counters, err := disk.IOCounters()
	if err != nil {
		return 0, 0
	}

	prev, prevTime := c.lastDisk, c.lastDiskTime
	c.lastDisk, c.lastDiskTime = counters, now
	if prev == nil {
		return 0, 0
	}

	elapsed := now.Sub(prevTime).Seconds()
	if elapsed < 0.1 {
		return 0, 0
	}

	var readDelta, writeDelta uint64
	for name, counter := range counters {
		last, ok := prev[name]
		if !ok {
			continue
		}
		// Counters can wrap
		if counter.ReadBytes >= last.ReadBytes {
			readDelta += counter.ReadBytes - last.ReadBytes
		}
		if counter.WriteBytes >= last.WriteBytes {
			writeDelta += counter.WriteBytes - last.WriteBytes
		}
	}

	return float64(readDelta) / elapsed / mib, float64(writeDelta) / elapsed / mib
}

func round1(f float64) float64 {
	return float64(int64(f*10+0.5)) / 10
}
