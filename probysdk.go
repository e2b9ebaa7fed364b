// Package probysdk is the embeddable entry point to ProbySDK: an
// in-process logging engine a mobile or desktop application links
// directly into its binary (orig §1's Purpose). It re-exports the
// Log Engine's public surface from internal/engine so a host
// application never needs (and, since internal/engine is unexported,
// never can) reach past this package.
//
// Grounded on the teacher's cmd/main.go + internal/app.App pairing: the
// host process there wires internal/app the same way a mobile/desktop
// app wires SDK here, just with a public constructor instead of a
// binary entry point.
package probysdk

import (
	"github.com/sirupsen/logrus"

	"github.com/Oreo-Mcflurry/ProbySDK/internal/diagnostics"
	"github.com/Oreo-Mcflurry/ProbySDK/internal/engine"
	"github.com/Oreo-Mcflurry/ProbySDK/pkg/model"
	"github.com/Oreo-Mcflurry/ProbySDK/pkg/wire"
)

// Collector is anything SDK starts/stops alongside itself when its bit
// is set in Config.EnabledCollectors. Mirrors internal/engine.Collector
// so a host app can implement one without importing an internal package.
type Collector interface {
	Start() error
	Stop() error
}

// CollectorFactory builds a Collector for one Collector bit, given a
// sink to ingest entries into.
type CollectorFactory func(sink func(model.LogEntry)) Collector

// Handshake is sent to a viewer the moment its connection is accepted,
// advertising this SDK's protocol version, device/app identity, and
// capabilities (orig §4.4).
type Handshake = model.Handshake

// Command is a remote instruction a paired viewer may issue (orig §4.11).
type Command = wire.Command

// Config is the full, validated SDK configuration (orig §3).
type Config = model.Config

// Snapshot reports buffer/connection/journal state for diagnostics.
type Snapshot = diagnostics.Snapshot

// SDK wraps the Log Engine: the single object a host application embeds,
// starts once at process/app launch, and stops at shutdown.
type SDK struct {
	engine *engine.Engine
}

// New constructs an idle SDK. Register any custom collectors with
// RegisterFactory, then call Start. logger may be nil, in which case the
// SDK logs through logrus's standard logger.
func New(logger *logrus.Logger) *SDK {
	return &SDK{engine: engine.New(logger)}
}

// RegisterFactory associates a collector bit with the factory that
// builds it. Must be called before Start for that bit to take effect.
func (s *SDK) RegisterFactory(bit model.Collector, factory CollectorFactory) {
	s.engine.RegisterFactory(bit, func(sink func(model.LogEntry)) engine.Collector {
		return factory(sink)
	})
}

// Start brings the SDK up: validates cfg, opens the ring buffer, starts
// the transport (WebSocket server, Bonjour advertiser, journal), and
// starts every enabled collector. handshake is invoked once per viewer
// connection; onCommand is invoked for every remote command a paired
// viewer issues and may be left nil to use the SDK's own default command
// handling (SetLogLevel/SetCategoryLevel/SetEnabled/ClearLogs/
// RequestPerformanceSnapshot — orig §4.11).
func (s *SDK) Start(cfg Config, handshake func() Handshake, onCommand func(Command)) error {
	commandHandler := s.engine.HandleCommand
	if onCommand != nil {
		commandHandler = onCommand
	}
	return s.engine.Start(cfg, handshake, commandHandler)
}

// Stop drains the buffer, stops every collector, and closes the
// transport. Idempotent.
func (s *SDK) Stop() error {
	return s.engine.Stop()
}

// Ingest hands one entry to the engine's gatekeeping/rate-limiting path
// (orig §4.2). Collectors and host-app log call sites both go through
// this.
func (s *SDK) Ingest(entry model.LogEntry) {
	s.engine.Ingest(entry)
}

// ShouldLog reports whether an entry at level/category would currently
// be accepted, letting a host app skip expensive log-site formatting
// when the answer is no.
func (s *SDK) ShouldLog(level model.LogLevel, category model.Category) bool {
	return s.engine.ShouldLog(level, category)
}

// ApplyFilterUpdate hot-swaps the live filter and rate limit, the narrow
// subset a config-file reload is allowed to change after Start.
func (s *SDK) ApplyFilterUpdate(filter model.FilterConfig, maxLogsPerSecond int) {
	s.engine.ApplyFilterUpdate(filter, maxLogsPerSecond)
}

// Snapshot reports current buffer/connection/journal state.
func (s *SDK) Snapshot() Snapshot {
	return s.engine.Snapshot()
}

// EmergencyFlush synchronously drains the buffer and hands it to the
// transport layer, bypassing the normal flush timer. Satisfies the
// crash collector's EmergencyFlusher interface so a host app can pass
// the SDK itself as crash.Config.Flusher.
func (s *SDK) EmergencyFlush() {
	s.engine.EmergencyFlush()
}

// HandleMemoryWarning implements orig §4.1's memory-pressure response
// on demand: drain-and-send, then halve the buffer's capacity floor. A
// host app forwards its platform's own memory-pressure notification here
// (iOS's didReceiveMemoryWarning, Android's onTrimMemory) — the SDK also
// runs its own periodic buffer-byte-budget check internally, but native
// callbacks react faster than any poll interval can.
func (s *SDK) HandleMemoryWarning() {
	s.engine.HandleMemoryWarning()
}
