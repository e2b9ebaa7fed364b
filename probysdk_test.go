package probysdk

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Oreo-Mcflurry/ProbySDK/pkg/model"
)

func testConfig(t *testing.T, dir string) Config {
	t.Helper()
	cfg := model.Default()
	cfg.IsDebugBuild = true
	cfg.Transport.Port = 0
	cfg.Transport.RequiresPairing = false
	cfg.Persistence.Enabled = true
	cfg.Persistence.Directory = filepath.Join(dir, "journal")
	cfg.Limits.FlushInterval = 20 * time.Millisecond
	cfg.Limits.MaxLogsPerSecond = 0
	return cfg
}

// TestStartIngestStopRoundTrips exercises the embeddable surface the way a
// host application would: construct, start, ingest an entry, stop.
func TestStartIngestStopRoundTrips(t *testing.T) {
	sdk := New(nil)
	cfg := testConfig(t, t.TempDir())
	require.NoError(t, sdk.Start(cfg, nil, nil))
	defer sdk.Stop()

	require.True(t, sdk.ShouldLog(model.LevelInfo, model.CategoryApp))
	sdk.Ingest(model.NewEntry(time.Now(), model.LevelInfo, model.CategoryApp, "hello", model.SourceSite{}, nil, nil))

	snap := sdk.Snapshot()
	require.True(t, snap.Running)
}

// TestApplyFilterUpdateRaisesGlobalMinimum covers the host-facing filter
// hot-swap: after raising the global minimum level to error, ShouldLog
// rejects a warning it would otherwise accept.
func TestApplyFilterUpdateRaisesGlobalMinimum(t *testing.T) {
	sdk := New(nil)
	cfg := testConfig(t, t.TempDir())
	require.NoError(t, sdk.Start(cfg, nil, nil))
	defer sdk.Stop()

	require.True(t, sdk.ShouldLog(model.LevelInfo, model.CategoryApp))
	sdk.ApplyFilterUpdate(model.FilterConfig{
		GlobalMinLevel:     model.LevelError,
		PerCategoryMinimum: map[string]model.LogLevel{},
		DisabledCategories: map[string]struct{}{},
	}, 10)
	require.False(t, sdk.ShouldLog(model.LevelWarning, model.CategoryApp))
}

// TestHandleMemoryWarningDrainsBufferOnDemand covers the host-forwarded
// native memory-pressure path: a host app relays its platform's own
// warning (not this SDK's internal poll) into an immediate drain.
func TestHandleMemoryWarningDrainsBufferOnDemand(t *testing.T) {
	sdk := New(nil)
	cfg := testConfig(t, t.TempDir())
	cfg.Limits.FlushInterval = time.Minute  // keep the periodic flush from racing the assertion
	cfg.Limits.MemoryHardCapBytes = 0       // isolate the on-demand path from the internal poll loop
	require.NoError(t, sdk.Start(cfg, nil, nil))
	defer sdk.Stop()

	for i := 0; i < 5; i++ {
		sdk.Ingest(model.NewEntry(time.Now(), model.LevelInfo, model.CategoryApp, "x", model.SourceSite{}, nil, nil))
	}
	require.Equal(t, 5, sdk.Snapshot().BufferMain)

	sdk.HandleMemoryWarning()

	require.Equal(t, 0, sdk.Snapshot().BufferMain)
}

// TestRegisterFactoryStartsAndStopsCustomCollector covers the duck-typed
// Collector/CollectorFactory bridge into internal/engine's own interface.
func TestRegisterFactoryStartsAndStopsCustomCollector(t *testing.T) {
	var started, stopped bool

	sdk := New(nil)
	sdk.RegisterFactory(model.CollectorUI, func(sink func(model.LogEntry)) Collector {
		return &fakeCollector{onStart: func() { started = true }, onStop: func() { stopped = true }}
	})

	cfg := testConfig(t, t.TempDir())
	cfg.EnabledCollectors = model.CollectorUI
	require.NoError(t, sdk.Start(cfg, nil, nil))
	require.True(t, started)

	require.NoError(t, sdk.Stop())
	require.True(t, stopped)
}

type fakeCollector struct {
	onStart func()
	onStop  func()
}

func (f *fakeCollector) Start() error {
	if f.onStart != nil {
		f.onStart()
	}
	return nil
}

func (f *fakeCollector) Stop() error {
	if f.onStop != nil {
		f.onStop()
	}
	return nil
}
