package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Oreo-Mcflurry/ProbySDK/pkg/model"
)

func testConfig(t *testing.T, dir string) Config {
	t.Helper()
	return Config{
		Transport: model.TransportConfig{
			Port:            0,
			RequiresPairing: false,
		},
		Persistence: model.PersistenceConfig{
			Enabled:          true,
			Directory:        dir,
			MaxFileSize:      1 << 20,
			MaxReplayEntries: 100,
			FlushOnConnect:   true,
		},
		Handshake: func() model.Handshake { return model.Handshake{SDKVersion: "test"} },
	}
}

// TestSendPersistsWhenNoViewer is scenario 5's transport-level half: with
// no viewer connected, Send falls through to the journal, and the batch
// is there to be read back for replay.
func TestSendPersistsWhenNoViewer(t *testing.T) {
	dir := t.TempDir()
	tr, err := New(testConfig(t, dir))
	require.NoError(t, err)
	require.NoError(t, tr.Start())
	defer tr.Stop()

	require.False(t, tr.HasAuthenticatedViewers())

	entries := []model.LogEntry{
		model.NewEntry(time.Now(), model.LevelInfo, model.CategoryApp, "a", model.SourceSite{}, nil, nil),
		model.NewEntry(time.Now(), model.LevelInfo, model.CategoryApp, "b", model.SourceSite{}, nil, nil),
	}
	tr.Send(entries)

	// Save is queued to the journal's worker; wait for the write to land.
	require.Eventually(t, func() bool { return tr.journal.Size() > 0 }, time.Second, 5*time.Millisecond)

	replay := tr.journal.LoadForReplay()
	require.Len(t, replay, 2)
}

func TestEmergencyPersistWritesSynchronously(t *testing.T) {
	dir := t.TempDir()
	tr, err := New(testConfig(t, dir))
	require.NoError(t, err)
	require.NoError(t, tr.Start())
	defer tr.Stop()

	entry := model.NewEntry(time.Now(), model.LevelFatal, model.CategoryCrash, "boom", model.SourceSite{}, nil, nil)
	tr.EmergencyPersist([]model.LogEntry{entry})

	require.Len(t, tr.journal.LoadForReplay(), 1)
}
