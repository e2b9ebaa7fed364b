package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Oreo-Mcflurry/ProbySDK/pkg/model"
)

func TestWatcherReloadsFilterOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "probysdk.yaml")
	require.NoError(t, os.WriteFile(path, []byte("filter:\n  global_min_level: info\n"), 0o644))

	var mu sync.Mutex
	var got model.FilterConfig
	received := make(chan struct{}, 1)

	w, err := NewWatcher(path, nil, func(filter model.FilterConfig, maxLogsPerSecond int) {
		mu.Lock()
		got = filter
		mu.Unlock()
		select {
		case received <- struct{}{}:
		default:
		}
	})
	require.NoError(t, err)
	w.Start()
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("filter:\n  global_min_level: warning\n"), 0o644))

	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reload callback")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, model.LevelWarning, got.GlobalMinLevel)
}
