// Package transport glues the WebSocket server, the Bonjour advertiser,
// the pairing manager, the network-path monitor, and the on-disk journal
// into the single delivery path the Engine drains into (orig §4.3).
//
// The orchestration shape — own lifecycle, wire sub-components together,
// single send() entry point deciding broadcast-vs-persist — is grounded
// on internal/dispatcher/dispatcher.go's Start/Stop/AddSink/Handle
// orchestration idiom, stripped of the worker pool, retry/backoff, DLQ,
// and multi-sink routing that dispatcher.go carries for its own domain.
package transport

import (
	"github.com/sirupsen/logrus"

	"github.com/Oreo-Mcflurry/ProbySDK/internal/metrics"
	"github.com/Oreo-Mcflurry/ProbySDK/internal/transport/advertiser"
	"github.com/Oreo-Mcflurry/ProbySDK/internal/transport/netmonitor"
	"github.com/Oreo-Mcflurry/ProbySDK/internal/transport/wsserver"
	apperrors "github.com/Oreo-Mcflurry/ProbySDK/pkg/errors"
	"github.com/Oreo-Mcflurry/ProbySDK/pkg/journal"
	"github.com/Oreo-Mcflurry/ProbySDK/pkg/model"
	"github.com/Oreo-Mcflurry/ProbySDK/pkg/pairing"
)

// Config configures the Transport layer; it is built once from
// model.Config at Engine.start and never mutated (orig §3).
type Config struct {
	Transport  model.TransportConfig
	Persistence model.PersistenceConfig
	Handshake  wsserver.HandshakeProvider
	OnCommand  wsserver.CommandHandler
	Logger     *logrus.Logger
}

// Transport owns the server, advertiser, pairing manager, journal, and
// network monitor, and is the single object the Engine drains batches
// into (orig §4.3's "send(batch)").
type Transport struct {
	config Config
	logger *logrus.Logger

	server     *wsserver.Server
	advertiser *advertiser.Advertiser
	pairing    *pairing.Manager
	journal    *journal.Journal
	netMonitor *netmonitor.Monitor
}

// New wires the sub-components together but does not start them. An error
// is only possible when persistence is enabled and the journal directory
// cannot be created.
func New(cfg Config) (*Transport, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}

	t := &Transport{config: cfg, logger: cfg.Logger}

	if cfg.Persistence.Enabled {
		j, err := journal.New(journal.Config{
			Directory:        cfg.Persistence.Directory,
			MaxFileSize:      cfg.Persistence.MaxFileSize,
			MaxFileCount:     cfg.Persistence.MaxFileCount,
			MaxRetention:     cfg.Persistence.MaxRetention,
			MaxReplayEntries: cfg.Persistence.MaxReplayEntries,
			Protection:       cfg.Persistence.Protection,
			CompressSealed:   cfg.Persistence.CompressSealed,
		}, cfg.Logger)
		if err != nil {
			return nil, apperrors.JournalError("new", "failed to construct journal").Wrap(err)
		}
		t.journal = j
	}

	if cfg.Transport.RequiresPairing {
		t.pairing = pairing.New(pairing.Config{
			FixedCode:        cfg.Transport.FixedPIN,
			MaxAttempts:      cfg.Transport.MaxAttempts,
			CooldownDuration: cfg.Transport.CooldownDuration,
		}, cfg.Logger)
		t.pairing.GenerateCode()
	}

	t.server = wsserver.New(wsserver.Config{
		Port:            cfg.Transport.Port,
		RequiresPairing: cfg.Transport.RequiresPairing,
		Handshake:       cfg.Handshake,
		Pairing:         t.pairing,
		OnCommand:       cfg.OnCommand,
		OnAuthenticated: t.onViewerAuthenticated,
		Logger:          cfg.Logger,
	})

	advCfg := advertiser.Config{
		AnonymizeDeviceName: cfg.Transport.AnonymizeDeviceName,
		AdvertiseAppName:    cfg.Transport.AdvertiseAppName,
		PairingRequired:     cfg.Transport.RequiresPairing,
		Port:                cfg.Transport.Port,
	}
	if cfg.Handshake != nil {
		hs := cfg.Handshake()
		advCfg.DeviceName = hs.Device.Name
		advCfg.SDKVersion = hs.SDKVersion
		advCfg.AppName = hs.App.Name
		advCfg.AppVersion = hs.App.Version
	}
	t.advertiser = advertiser.New(advCfg, cfg.Logger)

	t.netMonitor = netmonitor.New(netmonitor.Config{
		Restart: t.restartServer,
		Logger:  cfg.Logger,
	})

	return t, nil
}

// Start brings up the server, the advertiser, and the network monitor, in
// that order (orig §4.3's start(config)); the journal, if any, is already
// open from New.
func (t *Transport) Start() error {
	port, err := t.server.Start()
	if err != nil {
		return apperrors.TransportError("start", "websocket server failed to start").Wrap(err)
	}
	t.advertiser.SetPort(port) // keep advertisement in sync with an ephemeral bind

	if err := t.advertiser.Start(); err != nil {
		t.logger.WithError(err).Warn("transport: advertiser failed to start")
	}

	t.netMonitor.Start()
	return nil
}

// Stop tears everything down; the journal is flushed and closed last so
// any in-flight Save from a concurrent Send has a chance to land.
func (t *Transport) Stop() error {
	t.netMonitor.Stop()
	if err := t.advertiser.Stop(); err != nil {
		t.logger.WithError(err).Warn("transport: advertiser stop failed")
	}
	if err := t.server.Stop(); err != nil {
		t.logger.WithError(err).Warn("transport: server stop failed")
	}
	if t.journal != nil {
		t.journal.Stop()
	}
	return nil
}

// Send implements orig §4.3's send(batch): broadcast to authenticated
// viewers if any exist, otherwise persist to the journal.
func (t *Transport) Send(batch []model.LogEntry) {
	if t.server.HasAuthenticatedViewers() {
		t.server.Send(batch)
		return
	}
	if t.journal != nil {
		t.journal.Save(batch)
		metrics.JournalBytes.Set(float64(t.journal.Size()))
	}
}

// EmergencyPersist implements orig §4.3's emergency_persist(batch): a
// synchronous journal write from the crash path, never the async queue.
func (t *Transport) EmergencyPersist(batch []model.LogEntry) {
	if t.journal != nil {
		t.journal.EmergencySave(batch)
		metrics.JournalBytes.Set(float64(t.journal.Size()))
	}
}

// onViewerAuthenticated implements orig §4.3's "on peer-authenticated
// callback": when flush_on_connect is set, replay the journal to that
// peer only, then clear it.
func (t *Transport) onViewerAuthenticated(connID string) {
	if t.journal == nil || !t.config.Persistence.FlushOnConnect {
		return
	}
	entries := t.journal.LoadForReplay()
	if len(entries) == 0 {
		return
	}
	t.server.SendReplay(entries, connID)
	t.journal.ClearReplayedEntries()
}

func (t *Transport) restartServer() error {
	if err := t.server.Stop(); err != nil {
		t.logger.WithError(err).Warn("transport: restart stop failed")
	}
	port, err := t.server.Start()
	if err != nil {
		return err
	}
	t.advertiser.SetPort(port)
	_ = t.advertiser.Stop()
	return t.advertiser.Start()
}

// HasAuthenticatedViewers exposes the server's gate for callers that need
// to decide whether to attempt a best-effort send outside the normal
// batch path (orig §4.9's emergency_flush "also attempt send").
func (t *Transport) HasAuthenticatedViewers() bool {
	return t.server.HasAuthenticatedViewers()
}

// ConnectionCount reports the number of open viewer sessions.
func (t *Transport) ConnectionCount() int { return t.server.ConnectionCount() }

// AuthenticatedConnectionCount reports the number of paired viewer
// sessions.
func (t *Transport) AuthenticatedConnectionCount() int { return t.server.AuthenticatedCount() }

// JournalBytes reports the active journal file's size, or zero when
// persistence is disabled.
func (t *Transport) JournalBytes() int64 {
	if t.journal == nil {
		return 0
	}
	return t.journal.Size()
}
