package ringbuffer

import (
	"testing"
	"time"

	"github.com/Oreo-Mcflurry/ProbySDK/pkg/model"
	"github.com/stretchr/testify/require"
)

func entry(level model.LogLevel, msg string, ts time.Time) model.LogEntry {
	return model.NewEntry(ts, level, model.CategoryApp, msg, model.SourceSite{}, nil, nil)
}

// TestOverflowKeepsError is scenario 1 from the spec: N=3, P=2; append
// info1, info2, error1, info3, info4. Drain yields {error1, info3, info4}
// sorted by timestamp.
func TestOverflowKeepsError(t *testing.T) {
	rb := New(Config{MainCapacity: 3, PriorityCapacity: 2}, nil)
	base := time.Now()

	info1 := entry(model.LevelInfo, "info1", base)
	info2 := entry(model.LevelInfo, "info2", base.Add(time.Millisecond))
	error1 := entry(model.LevelError, "error1", base.Add(2*time.Millisecond))
	info3 := entry(model.LevelInfo, "info3", base.Add(3*time.Millisecond))
	info4 := entry(model.LevelInfo, "info4", base.Add(4*time.Millisecond))

	rb.Append(info1)
	rb.Append(info2)
	rb.Append(error1)
	rb.Append(info3)
	rb.Append(info4)

	batch := rb.Drain()
	require.Len(t, batch, 3)
	require.Equal(t, "error1", batch[0].Message)
	require.Equal(t, "info3", batch[1].Message)
	require.Equal(t, "info4", batch[2].Message)
}

func TestDrainDedupesByIDAndSortsByTimestamp(t *testing.T) {
	rb := New(Config{MainCapacity: 10, PriorityCapacity: 10}, nil)
	base := time.Now()
	e1 := entry(model.LevelError, "e1", base.Add(5*time.Millisecond))
	e2 := entry(model.LevelInfo, "e2", base)

	rb.Append(e1) // lands in both rings
	rb.Append(e2)

	batch := rb.Drain()
	require.Len(t, batch, 2)
	require.Equal(t, "e2", batch[0].Message)
	require.Equal(t, "e1", batch[1].Message)
}

func TestDrainClearsBuffers(t *testing.T) {
	rb := New(Config{MainCapacity: 10, PriorityCapacity: 10}, nil)
	rb.Append(entry(model.LevelInfo, "a", time.Now()))
	rb.Drain()
	require.Empty(t, rb.Drain())
}

func TestReduceMaxSizeTrimsOldest(t *testing.T) {
	rb := New(Config{MainCapacity: 5, PriorityCapacity: 5}, nil)
	base := time.Now()
	for i := 0; i < 5; i++ {
		rb.Append(entry(model.LevelInfo, string(rune('a'+i)), base.Add(time.Duration(i)*time.Millisecond)))
	}
	rb.ReduceMaxSize(2)
	batch := rb.Drain()
	require.Len(t, batch, 2)
	require.Equal(t, "d", batch[0].Message)
	require.Equal(t, "e", batch[1].Message)
}

func TestHandleMemoryWarningHalvesCapacity(t *testing.T) {
	rb := New(Config{MainCapacity: 100, PriorityCapacity: 10}, nil)
	rb.Append(entry(model.LevelInfo, "x", time.Now()))
	batch := rb.HandleMemoryWarning()
	require.Len(t, batch, 1)
	require.Equal(t, 50, rb.config.MainCapacity)
}

func TestEnforceByteBudgetNoOpUnderCap(t *testing.T) {
	rb := New(Config{MainCapacity: 100, PriorityCapacity: 10}, nil)
	rb.Append(entry(model.LevelInfo, "x", time.Now()))
	batch := rb.EnforceByteBudget(1_000_000, 100)
	require.Empty(t, batch)
	require.Len(t, rb.Drain(), 1)
}

func TestEnforceByteBudgetDrainsWhenEstimateExceedsCap(t *testing.T) {
	rb := New(Config{MainCapacity: 100, PriorityCapacity: 10}, nil)
	base := time.Now()
	for i := 0; i < 5; i++ {
		rb.Append(entry(model.LevelInfo, string(rune('a'+i)), base.Add(time.Duration(i)*time.Millisecond)))
	}

	batch := rb.EnforceByteBudget(100, 100) // 5 entries * 100 bytes = 500 > 100
	require.Len(t, batch, 5)
	require.Empty(t, rb.Drain())
}
