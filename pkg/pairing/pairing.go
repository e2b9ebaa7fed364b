// Package pairing implements the PIN issuance/validation/cooldown state
// machine that gates log delivery to an unauthenticated WebSocket peer
// (orig §4.5).
//
// The attempt-counter-plus-lockout-duration shape is grounded on the
// teacher's pkg/security/auth.go AuthManager, narrowed from
// username/password sessions down to validating a single shared PIN.
package pairing

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Config configures the Manager (orig §3 transport.{maxAttempts,
// cooldownDuration,fixedPin}).
type Config struct {
	FixedCode        string
	MaxAttempts      int
	CooldownDuration time.Duration
}

// Result is the outcome of Validate.
type Result struct {
	Accepted bool
	Reason   string
}

// Manager holds the active code, the failed-attempt counter, and an
// optional cooldown-until timestamp.
type Manager struct {
	config Config
	logger *logrus.Logger

	mu            sync.Mutex
	activeCode    string
	attempts      int
	cooldownUntil time.Time

	now func() time.Time // overridable for tests
}

// New constructs a Manager; GenerateCode must be called before the first
// Validate to populate the active code, matching orig §4.5's "generate
// code, then display it" startup sequence.
func New(cfg Config, logger *logrus.Logger) *Manager {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.CooldownDuration <= 0 {
		cfg.CooldownDuration = 30 * time.Second
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Manager{config: cfg, logger: logger, now: time.Now}
}

// GenerateCode uses the configured fixed code if present, otherwise draws
// 4 cryptographically-random bytes, interprets them big-endian as a u32,
// reduces modulo 1,000,000, and formats as a zero-padded 6-digit string.
// The code is displayed via the platform developer log (here, logrus at
// Info level — orig §4.5 doesn't specify a wire channel for this, only
// that it reaches the developer).
func (m *Manager) GenerateCode() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.config.FixedCode != "" {
		m.activeCode = m.config.FixedCode
	} else {
		var b [4]byte
		if _, err := rand.Read(b[:]); err != nil {
			// crypto/rand failing is not a recoverable condition worth
			// inventing a fallback PRNG for; the process environment is
			// broken in a way pairing can't route around.
			panic("pairing: crypto/rand unavailable: " + err.Error())
		}
		v := binary.BigEndian.Uint32(b[:]) % 1_000_000
		m.activeCode = fmt.Sprintf("%06d", v)
	}
	m.attempts = 0
	m.cooldownUntil = time.Time{}

	m.logger.WithFields(logrus.Fields{"component": "pairing"}).
		Infof("pairing code: %s", m.activeCode)
	return m.activeCode
}

// Validate implements the three-step algorithm of orig §4.5.
func (m *Manager) Validate(code string) Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()

	if !m.cooldownUntil.IsZero() && now.Before(m.cooldownUntil) {
		remaining := m.cooldownUntil.Sub(now)
		seconds := int(remaining / time.Second)
		if remaining%time.Second != 0 {
			seconds++
		}
		return Result{Accepted: false, Reason: fmt.Sprintf("Cooldown active. Try again in %ds", seconds)}
	}

	if code != m.activeCode {
		m.attempts++
		if m.attempts >= m.config.MaxAttempts {
			m.cooldownUntil = now.Add(m.config.CooldownDuration)
			m.attempts = 0
			return Result{Accepted: false, Reason: "Too many failed attempts. Cooldown started."}
		}
		remaining := m.config.MaxAttempts - m.attempts
		return Result{Accepted: false, Reason: fmt.Sprintf("Invalid code. %d attempts remaining", remaining)}
	}

	m.attempts = 0
	m.cooldownUntil = time.Time{}
	return Result{Accepted: true}
}
