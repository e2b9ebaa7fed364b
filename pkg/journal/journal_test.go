package journal

import (
	"testing"
	"time"

	"github.com/Oreo-Mcflurry/ProbySDK/pkg/model"
	"github.com/stretchr/testify/require"
)

func makeEntries(n int, base time.Time) []model.LogEntry {
	out := make([]model.LogEntry, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, model.NewEntry(base.Add(time.Duration(i)*time.Millisecond), model.LevelInfo, model.CategoryApp, "msg", model.SourceSite{}, nil, nil))
	}
	return out
}

// TestReplayOnConnect is scenario 5 from the spec: persistence enabled,
// no viewer connected, 10 entries ingested (here as one batch save), then
// replay is bounded and the journal is empty after clearing.
func TestReplayOnConnect(t *testing.T) {
	dir := t.TempDir()
	j, err := New(Config{Directory: dir, MaxFileSize: 1 << 20, MaxReplayEntries: 100}, nil)
	require.NoError(t, err)
	defer j.Stop()

	entries := makeEntries(10, time.Now())
	j.EmergencySave(entries)

	replay := j.LoadForReplay()
	require.Len(t, replay, 10)

	j.ClearReplayedEntries()
	require.Empty(t, j.LoadForReplay())
}

func TestReplayBoundedByMaxEntries(t *testing.T) {
	dir := t.TempDir()
	j, err := New(Config{Directory: dir, MaxFileSize: 1 << 20, MaxReplayEntries: 5}, nil)
	require.NoError(t, err)
	defer j.Stop()

	j.EmergencySave(makeEntries(10, time.Now()))
	replay := j.LoadForReplay()
	require.LessOrEqual(t, len(replay), 5)
}

func TestRotationOnSizeCrossing(t *testing.T) {
	dir := t.TempDir()
	j, err := New(Config{Directory: dir, MaxFileSize: 200, MaxReplayEntries: 1000}, nil)
	require.NoError(t, err)
	defer j.Stop()

	base := time.Now()
	for i := 0; i < 20; i++ {
		j.EmergencySave(makeEntries(1, base.Add(time.Duration(i)*time.Millisecond)))
	}

	files, err := j.listFilesLocked()
	require.NoError(t, err)
	require.Greater(t, len(files), 1)
}

func TestCompressedSealedFilesDecodeTransparently(t *testing.T) {
	dir := t.TempDir()
	j, err := New(Config{Directory: dir, MaxFileSize: 50, MaxReplayEntries: 1000, CompressSealed: true}, nil)
	require.NoError(t, err)
	defer j.Stop()

	base := time.Now()
	for i := 0; i < 5; i++ {
		j.EmergencySave(makeEntries(1, base.Add(time.Duration(i)*time.Millisecond)))
	}
	// force the active file to seal and compress too
	j.mu.Lock()
	j.sealCurrentLocked()
	j.mu.Unlock()

	replay := j.LoadForReplay()
	require.Len(t, replay, 5)
}
