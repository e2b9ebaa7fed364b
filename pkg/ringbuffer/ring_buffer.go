// Package ringbuffer implements the bounded dual-ring memory store that
// sits between producers and the Transport layer (orig §4.1).
//
// Two in-memory sequences are protected by a single mutex: a main ring of
// capacity N and a priority ring of capacity P that only ever holds
// error/fatal entries. Append never fails — on overflow it silently
// evicts the oldest entries, matching orig §4.1's "append never fails; it
// silently evicts" failure semantics.
package ringbuffer

import (
	"sort"
	"sync"

	"github.com/Oreo-Mcflurry/ProbySDK/pkg/model"
	"github.com/cespare/xxhash/v2"
	"github.com/sirupsen/logrus"
)

// Config mirrors the teacher's DiskBufferConfig shape: a plain value
// struct with defaults applied by the constructor.
type Config struct {
	MainCapacity     int
	PriorityCapacity int
}

// Stats mirrors the teacher's BufferStats counters, trimmed to what a
// pure in-memory ring can report (no file/compression fields).
type Stats struct {
	TotalAppended int64
	TotalDropped  int64
	TotalDrains   int64
	MainSize      int
	PrioritySize  int
}

// RingBuffer is the dual-ring bounded store.
type RingBuffer struct {
	config Config
	logger *logrus.Logger

	mutex    sync.Mutex
	main     []model.LogEntry
	priority []model.LogEntry

	stats Stats
}

// New constructs a RingBuffer with the given capacities, applying the
// orig §4.1 defaults (1000 / 100) when zero is passed.
func New(cfg Config, logger *logrus.Logger) *RingBuffer {
	if cfg.MainCapacity <= 0 {
		cfg.MainCapacity = 1000
	}
	if cfg.PriorityCapacity <= 0 {
		cfg.PriorityCapacity = 100
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RingBuffer{
		config: cfg,
		logger: logger,
	}
}

// Append adds one entry, evicting the oldest entries from the main ring
// (and, for error/fatal entries, also from the priority ring) as needed
// to stay within capacity.
func (b *RingBuffer) Append(e model.LogEntry) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.main, b.stats.TotalDropped = pushBounded(b.main, e, b.config.MainCapacity, b.stats.TotalDropped)
	if e.Level.IsPriority() {
		b.priority, _ = pushBounded(b.priority, e, b.config.PriorityCapacity, 0)
	}
	b.stats.TotalAppended++
	b.stats.MainSize = len(b.main)
	b.stats.PrioritySize = len(b.priority)
}

// pushBounded drops the oldest (len-cap+1) entries when the ring is at
// capacity, then appends e. dropped accumulates the running total dropped
// so callers that don't track it (the priority ring) can pass 0.
func pushBounded(ring []model.LogEntry, e model.LogEntry, capacity int, dropped int64) ([]model.LogEntry, int64) {
	if capacity <= 0 {
		return ring, dropped
	}
	if len(ring) >= capacity {
		excess := len(ring) - capacity + 1
		dropped += int64(excess)
		ring = append([]model.LogEntry(nil), ring[excess:]...)
	}
	return append(ring, e), dropped
}

// Drain takes the union of both rings, deduplicates by entry id
// (preserving first occurrence), sorts ascending by timestamp with a
// stable sort so ties keep their relative order, clears both rings, and
// returns the merged batch.
func (b *RingBuffer) Drain() []model.LogEntry {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.drainLocked()
}

func (b *RingBuffer) drainLocked() []model.LogEntry {
	merged := make([]model.LogEntry, 0, len(b.main)+len(b.priority))
	seen := make(map[uint64]struct{}, len(b.main)+len(b.priority))

	add := func(entries []model.LogEntry) {
		for _, e := range entries {
			h := xxhash.Sum64String(e.ID)
			if _, ok := seen[h]; ok {
				continue
			}
			seen[h] = struct{}{}
			merged = append(merged, e)
		}
	}
	add(b.main)
	add(b.priority)

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp.Before(merged[j].Timestamp)
	})

	b.main = nil
	b.priority = nil
	b.stats.TotalDrains++
	b.stats.MainSize = 0
	b.stats.PrioritySize = 0

	return merged
}

// ReduceMaxSize atomically lowers the main ring's capacity and trims the
// oldest excess entries to match.
func (b *RingBuffer) ReduceMaxSize(newCap int) {
	if newCap <= 0 {
		return
	}
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.config.MainCapacity = newCap
	if len(b.main) > newCap {
		excess := len(b.main) - newCap
		b.stats.TotalDropped += int64(excess)
		b.main = append([]model.LogEntry(nil), b.main[excess:]...)
	}
	b.stats.MainSize = len(b.main)
}

// HandleMemoryWarning drains the buffer (the caller is responsible for
// handing the returned batch to Transport.Send) and then halves the ring
// capacity down to a floor of 50, per orig §4.1.
func (b *RingBuffer) HandleMemoryWarning() []model.LogEntry {
	b.mutex.Lock()
	batch := b.drainLocked()
	newCap := b.config.MainCapacity / 2
	if newCap < 50 {
		newCap = 50
	}
	b.config.MainCapacity = newCap
	b.mutex.Unlock()

	b.logger.WithFields(logrus.Fields{
		"component":   "ringbuffer",
		"new_capacity": newCap,
	}).Warn("memory pressure: drained buffer and reduced capacity")
	return batch
}

// EnforceByteBudget estimates current memory usage at bytesPerEntry per
// buffered entry; if the estimate exceeds capBytes it behaves like a
// memory warning, targeting capBytes/bytesPerEntry entries.
func (b *RingBuffer) EnforceByteBudget(capBytes int64, bytesPerEntry int64) []model.LogEntry {
	if bytesPerEntry <= 0 {
		bytesPerEntry = 512
	}
	b.mutex.Lock()
	estimated := int64(len(b.main)+len(b.priority)) * bytesPerEntry
	if estimated <= capBytes {
		b.mutex.Unlock()
		return nil
	}
	batch := b.drainLocked()
	target := int(capBytes / bytesPerEntry)
	if target < 50 {
		target = 50
	}
	b.config.MainCapacity = target
	b.mutex.Unlock()
	return batch
}

// Stats returns a point-in-time snapshot of buffer occupancy and
// lifetime counters.
func (b *RingBuffer) Stats() Stats {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.stats
}
