package crash

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Oreo-Mcflurry/ProbySDK/pkg/model"
)

type fakeFlusher struct{ calls int }

func (f *fakeFlusher) EmergencyFlush() { f.calls++ }

func TestBuildEntryForSignalProducesFatalCrashExtra(t *testing.T) {
	c := New(Config{}, func(model.LogEntry) {})
	entry := c.buildEntry("signal", "SIGSEGV", "")

	require.Equal(t, model.LevelFatal, entry.Level)
	require.Equal(t, model.CategoryCrash, entry.Category)
	require.Equal(t, model.ExtraCrash, entry.Extra.Kind)
	require.Equal(t, "SIGSEGV", entry.Extra.Crash.Signal)
	require.NotEmpty(t, entry.Extra.Crash.Frames)
}

func TestRecoverPanicEmitsEntryAndFlushes(t *testing.T) {
	flusher := &fakeFlusher{}
	var got []model.LogEntry
	c := New(Config{Flusher: flusher}, func(e model.LogEntry) { got = append(got, e) })

	func() {
		defer c.RecoverPanic()
		panic("boom")
	}()

	require.Len(t, got, 1)
	require.Equal(t, "panic", got[0].Extra.Crash.ExceptionType)
	require.Equal(t, "boom", got[0].Extra.Crash.Reason)
	require.Equal(t, 1, flusher.calls)
}

func TestRecoverPanicWithoutPanicIsNoOp(t *testing.T) {
	var got []model.LogEntry
	c := New(Config{}, func(e model.LogEntry) { got = append(got, e) })

	func() {
		defer c.RecoverPanic()
	}()

	require.Empty(t, got)
}

func TestStopWithoutStartIsNoOp(t *testing.T) {
	c := New(Config{}, func(model.LogEntry) {})
	require.NoError(t, c.Stop())
}
