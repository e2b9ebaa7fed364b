// Package engine implements the Log Engine: gatekeeping, rate limiting,
// memory pressure response, collector lifecycle, buffer ownership, timed
// flush, and emergency flush (orig §4.2).
//
// The start/stop lifecycle and component-wiring order is grounded on
// internal/app/app.go's sequential-Start/reverse-order-Stop idiom; the
// single-second tumbling-window rate limiter's struct/mutex shape is
// grounded on pkg/ratelimit/adaptive_limiter.go, simplified from
// adaptive/latency-feedback rate limiting (a server-side backpressure
// concern this SDK doesn't have) down to the fixed-window counter orig
// §4.2 specifies.
package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Oreo-Mcflurry/ProbySDK/internal/config"
	"github.com/Oreo-Mcflurry/ProbySDK/internal/diagnostics"
	"github.com/Oreo-Mcflurry/ProbySDK/internal/metrics"
	"github.com/Oreo-Mcflurry/ProbySDK/internal/transport"
	"github.com/Oreo-Mcflurry/ProbySDK/internal/transport/wsserver"
	"github.com/Oreo-Mcflurry/ProbySDK/pkg/model"
	"github.com/Oreo-Mcflurry/ProbySDK/pkg/ringbuffer"
	"github.com/Oreo-Mcflurry/ProbySDK/pkg/wire"
)

// Collector is anything the Engine starts/stops alongside itself,
// indicated by a bit in model.Config.EnabledCollectors (orig §4.2
// "registers collectors indicated by the bitset").
type Collector interface {
	Start() error
	Stop() error
}

// CollectorFactory builds a Collector for one Collector bit, given a
// sink to ingest entries into. Registered once via RegisterFactory before
// Start so callers can wire platform-specific collectors without the
// Engine importing them directly.
type CollectorFactory func(sink func(model.LogEntry)) Collector

// Engine is the process-wide orchestrator described in orig §4.2/§5.
type Engine struct {
	logger *logrus.Logger

	mu        sync.Mutex
	running   bool
	config    model.Config
	buffer    *ringbuffer.RingBuffer
	transport *transport.Transport
	flushDone chan struct{}
	flushWG   sync.WaitGroup

	factories  map[model.Collector]CollectorFactory
	collectors []registeredCollector

	rateMu      sync.Mutex
	windowStart time.Time
	counter     int
}

type registeredCollector struct {
	bit       model.Collector
	collector Collector
}

// collectorName maps a single collector bit to the label used on the
// CollectorUp gauge. Unrecognized bits (e.g. a caller-defined extension)
// fall back to their numeric value rather than panicking.
func collectorName(bit model.Collector) string {
	switch bit {
	case model.CollectorNetwork:
		return "network"
	case model.CollectorLifecycle:
		return "lifecycle"
	case model.CollectorUI:
		return "ui"
	case model.CollectorPerformance:
		return "performance"
	case model.CollectorCrash:
		return "crash"
	default:
		return fmt.Sprintf("collector_%d", bit)
	}
}

// New constructs an idle Engine. Start brings it up.
func New(logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Engine{logger: logger, factories: make(map[model.Collector]CollectorFactory)}
}

// RegisterFactory associates a collector bit with the factory that builds
// it. Must be called before Start for that bit to take effect.
func (e *Engine) RegisterFactory(bit model.Collector, factory CollectorFactory) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.factories[bit] = factory
}

// Start implements orig §4.2's start(config): idempotent, validates,
// rebuilds the buffer, wires the flush timer, starts transport, and
// registers the configured collectors.
func (e *Engine) Start(cfg model.Config, handshake wsserver.HandshakeProvider, onCommand wsserver.CommandHandler) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return nil
	}

	if cfg.DebugBuildsOnly && !cfg.IsDebugBuild {
		e.logger.Info("engine: debug_builds_only set and this is not a debug build, staying disabled")
		return nil
	}
	if !cfg.Enabled {
		e.logger.Info("engine: disabled by configuration")
		return nil
	}

	for _, w := range config.Validate(&cfg) {
		e.logger.WithField("key", w.Key).Warn(w.Message)
	}

	e.config = cfg
	e.buffer = ringbuffer.New(ringbuffer.Config{
		MainCapacity:     cfg.Limits.MaxBufferCount,
		PriorityCapacity: cfg.Limits.MaxPriorityBufferCount,
	}, e.logger)

	tr, err := transport.New(transport.Config{
		Transport:   cfg.Transport,
		Persistence: cfg.Persistence,
		Handshake:   handshake,
		OnCommand:   onCommand,
		Logger:      e.logger,
	})
	if err != nil {
		return err
	}
	e.transport = tr
	if err := e.transport.Start(); err != nil {
		return err
	}

	e.collectors = nil
	for bit, factory := range e.factories {
		if cfg.EnabledCollectors&bit == 0 {
			continue
		}
		c := factory(e.ingestFromCollector)
		if err := c.Start(); err != nil {
			e.logger.WithError(err).Warnf("engine: collector %v failed to start", bit)
			continue
		}
		e.collectors = append(e.collectors, registeredCollector{bit: bit, collector: c})
		metrics.SetCollectorUp(collectorName(bit), true)
	}

	e.windowStart = time.Now()
	e.counter = 0

	e.flushDone = make(chan struct{})
	e.flushWG.Add(1)
	go e.flushLoop(cfg.Limits.FlushInterval)

	if cfg.Limits.MemoryHardCapBytes > 0 {
		e.flushWG.Add(1)
		go e.memoryWatchLoop(cfg.Limits.MemoryHardCapBytes, cfg.Limits.EstimatedBytesPerEntry)
	}

	e.running = true
	return nil
}

// Stop implements orig §4.2's stop(): stops collectors in reverse
// registration order, cancels the timer, drains once, stops transport.
// Idempotent.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return nil
	}
	e.running = false
	collectors := e.collectors
	e.collectors = nil
	close(e.flushDone)
	e.mu.Unlock()

	e.flushWG.Wait()

	for i := len(collectors) - 1; i >= 0; i-- {
		if err := collectors[i].collector.Stop(); err != nil {
			e.logger.WithError(err).Warn("engine: collector stop failed")
		}
		metrics.SetCollectorUp(collectorName(collectors[i].bit), false)
	}

	if batch := e.buffer.Drain(); len(batch) > 0 {
		e.transport.Send(batch)
	}

	return e.transport.Stop()
}

// ShouldLog implements orig §4.2's should_log(level, category).
func (e *Engine) ShouldLog(level model.LogLevel, category model.Category) bool {
	e.mu.Lock()
	running, cfg := e.running, e.config
	e.mu.Unlock()

	if !running {
		return false
	}
	if _, disabled := cfg.Filter.DisabledCategories[category.ID]; disabled {
		return false
	}
	minLevel := cfg.Filter.GlobalMinLevel
	if per, ok := cfg.Filter.PerCategoryMinimum[category.ID]; ok {
		minLevel = per
	}
	return level >= minLevel
}

// Ingest implements orig §4.2's ingest(entry): priority entries bypass
// the rate limiter; everything else is dropped silently when limited.
func (e *Engine) Ingest(entry model.LogEntry) {
	if !entry.Level.IsPriority() && e.rateLimited() {
		metrics.RecordDropped("rate_limited")
		return
	}
	e.mu.Lock()
	buf := e.buffer
	e.mu.Unlock()
	if buf == nil {
		return
	}
	buf.Append(entry)
	metrics.RecordIngested(entry.Category.ID, entry.Level.String())
}

func (e *Engine) ingestFromCollector(entry model.LogEntry) {
	if e.ShouldLog(entry.Level, entry.Category) {
		e.Ingest(entry)
	}
}

// rateLimited implements orig §4.2's single-second tumbling window.
// max_per_second == 0 disables limiting; error/fatal bypass it entirely
// at the Ingest call site, never reaching here.
func (e *Engine) rateLimited() bool {
	e.mu.Lock()
	maxPerSecond := e.config.Limits.MaxLogsPerSecond
	e.mu.Unlock()

	if maxPerSecond == 0 {
		return false
	}

	e.rateMu.Lock()
	defer e.rateMu.Unlock()

	now := time.Now()
	if now.Sub(e.windowStart) >= time.Second {
		e.windowStart = now
		e.counter = 1
		return false
	}
	e.counter++
	return e.counter > maxPerSecond
}

func (e *Engine) flushLoop(interval time.Duration) {
	defer e.flushWG.Done()
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-e.flushDone:
			return
		case <-ticker.C:
			start := time.Now()
			stats := e.buffer.Stats()
			metrics.BufferOccupancy.WithLabelValues("main").Set(float64(stats.MainSize))
			metrics.BufferOccupancy.WithLabelValues("priority").Set(float64(stats.PrioritySize))

			if batch := e.buffer.Drain(); len(batch) > 0 {
				e.transport.Send(batch)
			}
			metrics.FlushDuration.Observe(time.Since(start).Seconds())
		}
	}
}

// memoryWatchLoop implements orig §4.2's "start(config) installs a
// memory-warning observer": it periodically asks the buffer to enforce
// its own estimated byte budget against cfg.Limits.MemoryHardCapBytes,
// draining and shrinking capacity whenever the estimate breaches the cap.
// Estimating from buffered-entry count (EnforceByteBudget) rather than
// whole-process heap stats keeps the signal tied to what this SDK
// actually controls instead of GC noise from the rest of the host app.
func (e *Engine) memoryWatchLoop(capBytes, bytesPerEntry int64) {
	defer e.flushWG.Done()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-e.flushDone:
			return
		case <-ticker.C:
			batch := e.buffer.EnforceByteBudget(capBytes, bytesPerEntry)
			if len(batch) == 0 {
				continue
			}
			e.logger.WithFields(logrus.Fields{
				"component": "engine",
				"cap_bytes": capBytes,
				"entries":   len(batch),
			}).Warn("engine: buffer byte budget exceeded, applying memory-pressure response")
			e.transport.Send(batch)
		}
	}
}

// EmergencyFlush implements orig §4.2's emergency_flush(): a synchronous
// drain written to the journal via Transport.EmergencyPersist, plus a
// best-effort send to any live peer. Called from the crash path (orig
// §4.9), so it must not block on the flush timer — it only ever touches
// the ring buffer's own mutex and the transport's synchronous write path.
func (e *Engine) EmergencyFlush() {
	e.mu.Lock()
	buf, tr := e.buffer, e.transport
	e.mu.Unlock()
	if buf == nil || tr == nil {
		return
	}

	batch := buf.Drain()
	if len(batch) == 0 {
		return
	}
	tr.EmergencyPersist(batch)
	if tr.HasAuthenticatedViewers() {
		tr.Send(batch)
	}
}

// HandleCommand applies one decoded remote command (orig §4.11) to the
// live filter state. It is the default behavior wired as a peer's
// CommandHandler; a host that wants different semantics supplies its own
// wsserver.CommandHandler instead of this one.
func (e *Engine) HandleCommand(cmd wire.Command) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return
	}

	switch cmd.Kind {
	case wire.CommandSetLogLevel:
		e.config.Filter.GlobalMinLevel = cmd.Level

	case wire.CommandSetCategoryLevel:
		if e.config.Filter.PerCategoryMinimum == nil {
			e.config.Filter.PerCategoryMinimum = make(map[string]model.LogLevel)
		}
		e.config.Filter.PerCategoryMinimum[cmd.Category] = cmd.Level

	case wire.CommandSetEnabled:
		if e.config.Filter.DisabledCategories == nil {
			e.config.Filter.DisabledCategories = make(map[string]struct{})
		}
		if cmd.Enabled {
			delete(e.config.Filter.DisabledCategories, cmd.Category)
		} else {
			e.config.Filter.DisabledCategories[cmd.Category] = struct{}{}
		}

	case wire.CommandClearLogs:
		if e.buffer != nil {
			e.buffer.Drain()
		}

	case wire.CommandRequestPerformanceSnapshot:
		// Collectors own their own sampling cadence; an on-demand
		// snapshot is a hook for a future performance collector method,
		// not something the engine can synthesize on its own.
	}
}

// ApplyFilterUpdate applies a reloaded FilterConfig/MaxLogsPerSecond pair
// to the live config, the narrow subset SPEC_FULL §13.3's config watcher
// is allowed to hot-swap. It is the OnFilterChanged callback a host wires
// config.Watcher to.
func (e *Engine) ApplyFilterUpdate(filter model.FilterConfig, maxLogsPerSecond int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return
	}
	e.config.Filter = filter
	e.config.Limits.MaxLogsPerSecond = maxLogsPerSecond
	e.logger.Info("engine: filter config hot-reloaded")
}

// Snapshot reports current buffer/connection/journal state for
// internal/diagnostics' /debug/snapshot endpoint.
func (e *Engine) Snapshot() diagnostics.Snapshot {
	e.mu.Lock()
	running, buf, tr := e.running, e.buffer, e.transport
	e.mu.Unlock()

	snap := diagnostics.Snapshot{Running: running}
	if buf != nil {
		stats := buf.Stats()
		snap.BufferMain = stats.MainSize
		snap.BufferPriority = stats.PrioritySize
	}
	if tr != nil {
		snap.ActiveConnections = tr.ConnectionCount()
		snap.AuthenticatedConnections = tr.AuthenticatedConnectionCount()
		snap.JournalBytes = tr.JournalBytes()
	}
	return snap
}

// HandleMemoryWarning implements orig §4.1's memory-pressure response:
// drain-and-send, then halve the ring's capacity floor at 50.
func (e *Engine) HandleMemoryWarning() {
	e.mu.Lock()
	buf, tr := e.buffer, e.transport
	e.mu.Unlock()
	if buf == nil {
		return
	}
	batch := buf.HandleMemoryWarning()
	if len(batch) > 0 && tr != nil {
		tr.Send(batch)
	}
}
