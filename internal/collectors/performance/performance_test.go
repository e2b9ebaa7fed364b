package performance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Oreo-Mcflurry/ProbySDK/pkg/model"
)

func TestSampleProducesPerformanceExtra(t *testing.T) {
	c := New(Config{}, func(model.LogEntry) {})
	entry := c.sample()

	require.Equal(t, model.CategoryPerformance, entry.Category)
	require.NotNil(t, entry.Extra)
	require.Equal(t, model.ExtraPerformance, entry.Extra.Kind)
	require.NotNil(t, entry.Extra.Performance)
}

func TestStartStopRunsSamplingLoop(t *testing.T) {
	var count int
	c := New(Config{Interval: 10 * time.Millisecond}, func(model.LogEntry) { count++ })
	require.NoError(t, c.Start())
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, c.Stop())
	require.Greater(t, count, 0)
}

func TestStopWithoutStartIsNoOp(t *testing.T) {
	c := New(Config{}, func(model.LogEntry) {})
	require.NoError(t, c.Stop())
}
