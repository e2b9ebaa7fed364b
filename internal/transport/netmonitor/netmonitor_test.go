package netmonitor

import (
	"net"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func fakeInterfaces(names ...string) InterfaceLister {
	return func() ([]net.Interface, error) {
		out := make([]net.Interface, 0, len(names))
		for _, n := range names {
			out = append(out, net.Interface{Name: n, Flags: net.FlagUp})
		}
		return out, nil
	}
}

// TestNonWiFiToWiFiTriggersRestart covers orig §4.3's transition rule.
func TestNonWiFiToWiFiTriggersRestart(t *testing.T) {
	var restarts int32
	m := New(Config{
		Interfaces: fakeInterfaces("eth0"),
		Restart:    func() error { atomic.AddInt32(&restarts, 1); return nil },
		RestartDelay: 0,
	})
	m.hasWiFi = m.probeWiFi()
	require.False(t, m.hasWiFi)

	m.config.Interfaces = fakeInterfaces("en0")
	m.poll()

	require.Equal(t, int32(1), atomic.LoadInt32(&restarts))
}

// TestWiFiToNonWiFiDoesNotRestart covers the "logged only" half.
func TestWiFiToNonWiFiDoesNotRestart(t *testing.T) {
	var restarts int32
	m := New(Config{
		Interfaces:   fakeInterfaces("en0"),
		Restart:      func() error { atomic.AddInt32(&restarts, 1); return nil },
		RestartDelay: 0,
	})
	m.hasWiFi = m.probeWiFi()
	require.True(t, m.hasWiFi)

	m.config.Interfaces = fakeInterfaces("eth0")
	m.poll()

	require.Equal(t, int32(0), atomic.LoadInt32(&restarts))
	require.False(t, m.hasWiFi)
}

func TestNoTransitionIsNoOp(t *testing.T) {
	var restarts int32
	m := New(Config{
		Interfaces:   fakeInterfaces("eth0"),
		Restart:      func() error { atomic.AddInt32(&restarts, 1); return nil },
		RestartDelay: 0,
	})
	m.hasWiFi = m.probeWiFi()
	m.poll()
	m.poll()
	require.Equal(t, int32(0), atomic.LoadInt32(&restarts))
}
