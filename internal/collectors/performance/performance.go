// Package performance implements the periodic resource sampler that
// produces the Performance LogExtra variant (orig §3, §5).
//
// Grounded on pkg/monitoring/resource_monitor.go's ticker-driven
// ctx-cancel sampling loop, and on nova_abordagem/metrics.go's
// cpu.Times-delta percentage calculation, both reusing
// github.com/shirou/gopsutil/v3 exactly as the teacher does. Trimmed of
// goroutine/FD threshold alerting and webhooks — this SDK reports
// samples to the engine, it doesn't alert on its own.
package performance

import (
	"context"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/sirupsen/logrus"

	"github.com/Oreo-Mcflurry/ProbySDK/pkg/model"
)

// Config configures the sampling interval.
type Config struct {
	Interval time.Duration
	Logger   *logrus.Logger
}

// Collector implements engine.Collector, sampling CPU/memory/disk IO on a
// fixed interval and emitting one Performance entry per tick.
type Collector struct {
	cfg  Config
	sink func(model.LogEntry)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	lastDiskRead  uint64
	lastDiskWrite uint64
	haveLastDisk  bool
}

// New builds a Collector. A zero Interval defaults to 5s at Start.
func New(cfg Config, sink func(model.LogEntry)) *Collector {
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	return &Collector{cfg: cfg, sink: sink}
}

func (c *Collector) Start() error {
	interval := c.cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.wg.Add(1)
	go c.loop(interval)
	return nil
}

func (c *Collector) Stop() error {
	if c.cancel == nil {
		return nil
	}
	c.cancel()
	c.wg.Wait()
	return nil
}

func (c *Collector) loop(interval time.Duration) {
	defer c.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.sink(c.sample())
		}
	}
}

func (c *Collector) sample() model.LogEntry {
	extra := model.PerformanceExtra{}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		extra.CPUPercent = percents[0]
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		extra.MemoryMB = float64(vm.Used) / (1024 * 1024)
	}

	if counters, err := disk.IOCounters(); err == nil {
		var readTotal, writeTotal uint64
		for _, stat := range counters {
			readTotal += stat.ReadBytes
			writeTotal += stat.WriteBytes
		}
		if c.haveLastDisk {
			extra.DiskReadB = int64(readTotal - c.lastDiskRead)
			extra.DiskWriteB = int64(writeTotal - c.lastDiskWrite)
		}
		c.lastDiskRead, c.lastDiskWrite = readTotal, writeTotal
		c.haveLastDisk = true
	}

	wrapped := model.NewPerformanceExtra(extra)
	return model.NewEntry(time.Now(), model.LevelDebug, model.CategoryPerformance, "resource sample", model.SourceSite{}, nil, &wrapped)
}
