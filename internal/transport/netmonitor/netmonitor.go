// Package netmonitor watches the host's network interfaces for a
// non-WiFi -> WiFi transition and triggers a listener restart when it
// happens (orig §4.3), since the WebSocket TCP listener may be bound to
// an interface that has since gone away.
//
// The polling-loop-with-ctx-cancel shape is grounded on
// pkg/discovery/service_discovery.go's discoveryLoop; the is_restarting
// guard is grounded on pkg/circuit_breaker/circuit_breaker.go's
// open/closed state, here narrowed to a single boolean latch rather than
// a failure-counting breaker.
package netmonitor

import (
	"context"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultPollInterval = 2 * time.Second

// RestartFunc performs the restart itself. The Monitor waits RestartDelay
// before calling it; the transport's implementation then stops and starts
// the server with no pause between the two.
type RestartFunc func() error

// InterfaceLister abstracts net.Interfaces for tests.
type InterfaceLister func() ([]net.Interface, error)

// Config configures a Monitor.
type Config struct {
	PollInterval time.Duration
	RestartDelay time.Duration
	Restart      RestartFunc
	Interfaces   InterfaceLister
	Logger       *logrus.Logger
}

// Monitor tracks "has a WiFi interface" and guards restarts with
// is_restarting so overlapping transitions can't double-fire.
type Monitor struct {
	config Config
	logger *logrus.Logger

	mu            sync.Mutex
	hasWiFi       bool
	isRestarting  bool
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// New constructs a Monitor. Start must be called to begin polling.
func New(cfg Config) *Monitor {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.RestartDelay <= 0 {
		cfg.RestartDelay = 500 * time.Millisecond
	}
	if cfg.Interfaces == nil {
		cfg.Interfaces = net.Interfaces
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	return &Monitor{config: cfg, logger: cfg.Logger}
}

// Start begins the polling loop in the background.
func (m *Monitor) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	m.cancel = cancel
	m.hasWiFi = m.probeWiFi()
	m.mu.Unlock()

	m.wg.Add(1)
	go m.loop(ctx)
}

// Stop halts the polling loop and waits for it to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
}

func (m *Monitor) loop(ctx context.Context) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.poll()
		}
	}
}

// poll is the single evaluation step, split out so tests can drive it
// deterministically instead of waiting on the ticker.
func (m *Monitor) poll() {
	current := m.probeWiFi()

	m.mu.Lock()
	previous := m.hasWiFi
	m.hasWiFi = current
	restarting := m.isRestarting
	m.mu.Unlock()

	if previous == current {
		return
	}

	if !previous && current {
		if restarting {
			return
		}
		m.triggerRestart()
		return
	}

	// WiFi -> non-WiFi: logged only, future entries fall to the journal.
	m.logger.WithField("component", "netmonitor").Warn("WiFi interface lost")
}

func (m *Monitor) triggerRestart() {
	m.mu.Lock()
	if m.isRestarting {
		m.mu.Unlock()
		return
	}
	m.isRestarting = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.isRestarting = false
		m.mu.Unlock()
	}()

	m.logger.WithField("component", "netmonitor").Info("WiFi interface appeared, restarting listener")
	time.Sleep(m.config.RestartDelay)

	if m.config.Restart != nil {
		if err := m.config.Restart(); err != nil {
			m.logger.WithError(err).Error("netmonitor: restart failed")
		}
	}
}

// probeWiFi reports whether any up, non-loopback interface looks like a
// WiFi adapter by name. Go's net package exposes no interface-type field,
// so this falls back to the common platform naming conventions (en0/wlan0
// and similar) the way a short-lived polling probe reasonably can.
func (m *Monitor) probeWiFi() bool {
	ifaces, err := m.config.Interfaces()
	if err != nil {
		return false
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		name := strings.ToLower(iface.Name)
		if strings.HasPrefix(name, "en") || strings.HasPrefix(name, "wlan") ||
			strings.HasPrefix(name, "wifi") || strings.HasPrefix(name, "wl") {
			return true
		}
	}
	return false
}

// IsRestarting reports the current restart-guard state.
func (m *Monitor) IsRestarting() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isRestarting
}
