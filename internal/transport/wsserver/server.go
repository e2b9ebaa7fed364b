// Package wsserver implements the WebSocket listener viewers connect to
// (orig §4.4): an accept loop, a per-connection session state machine
// (pending -> ready -> authenticated|closed), and the inbound message
// handling table that routes pings, commands, and pairing attempts.
//
// The client-map/register/unregister/broadcast shape is grounded on
// other_examples/16d832fa_strongdm-leash__internal-websocket-hub.go.go's
// WebSocketHub, narrowed to ProbySDK's tagged-union wire protocol and
// pairing gate; transport is github.com/gorilla/websocket.
package wsserver

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Oreo-Mcflurry/ProbySDK/internal/metrics"
	"github.com/Oreo-Mcflurry/ProbySDK/pkg/model"
	"github.com/Oreo-Mcflurry/ProbySDK/pkg/pairing"
	"github.com/Oreo-Mcflurry/ProbySDK/pkg/wire"
)

const (
	writeDeadline = 5 * time.Second
	pongWait      = 60 * time.Second
	pingInterval  = 30 * time.Second
	readLimit     = 1 << 20 // 1 MiB, orig §4.4 bounds inbound frame size
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type sessionState int

const (
	statePending sessionState = iota
	stateReady
	stateAuthenticated
	stateClosed
)

// HandshakeProvider builds the Handshake sent to a connection the moment
// it reaches stateReady. It is a closure rather than a static value so
// device/app info captured at SDK-init time can be supplied lazily.
type HandshakeProvider func() model.Handshake

// CommandHandler receives a decoded inbound Command once the connection
// is either unauthenticated-but-pairing-disabled or authenticated (orig
// §4.4's dispatch rule: commands never reach the app before pairing
// succeeds when pairing is required).
type CommandHandler func(cmd wire.Command)

// OnViewerAuthenticated fires once a connection is authenticated (its
// pairing attempt is accepted, or right after the handshake when pairing
// is not required), so the caller can trigger journal replay and flush-on-connect
// (orig §4.6, §4.7).
type OnViewerAuthenticated func(connID string)

// Config configures a Server.
type Config struct {
	Port              int
	RequiresPairing   bool
	Handshake         HandshakeProvider
	Pairing           *pairing.Manager
	OnCommand         CommandHandler
	OnAuthenticated   OnViewerAuthenticated
	Logger            *logrus.Logger
}

// Server is the WebSocket listener and connection registry.
type Server struct {
	config Config
	logger *logrus.Logger

	httpServer *http.Server
	listener   net.Listener

	mu            sync.RWMutex
	conns         map[string]*connection
	authenticated map[string]struct{}
}

// New constructs a Server. It does not start listening until Start.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	return &Server{
		config:        cfg,
		logger:        cfg.Logger,
		conns:         make(map[string]*connection),
		authenticated: make(map[string]struct{}),
	}
}

// InvalidPortError is returned by Start when the configured port cannot
// be bound to (orig §4.4's invalid_port(n) surfacing).
type InvalidPortError struct {
	Port int
	Err  error
}

func (e *InvalidPortError) Error() string {
	return fmt.Sprintf("wsserver: invalid port %d: %v", e.Port, e.Err)
}

func (e *InvalidPortError) Unwrap() error { return e.Err }

// Start binds the listener and begins accepting connections in the
// background. It returns the bound port (useful when Config.Port is 0
// for an ephemeral assignment) or an *InvalidPortError.
func (s *Server) Start() (int, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Port))
	if err != nil {
		return 0, &InvalidPortError{Port: s.config.Port, Err: err}
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleUpgrade)
	s.httpServer = &http.Server{Handler: mux}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Error("wsserver: serve exited")
		}
	}()

	return ln.Addr().(*net.TCPAddr).Port, nil
}

// Stop closes the listener and every live connection.
func (s *Server) Stop() error {
	s.mu.Lock()
	conns := make([]*connection, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.close()
	}

	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}

// HasAuthenticatedViewers reports whether at least one connection has
// completed pairing (or pairing is not required and has reached ready).
func (s *Server) HasAuthenticatedViewers() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.authenticated) > 0
}

// Send broadcasts entries to every authenticated connection as a single
// logBatch message (orig §4.4 "send").
func (s *Server) Send(entries []model.LogEntry) {
	if len(entries) == 0 {
		return
	}
	payload, err := wire.Encode(wire.Message{Type: wire.TypeLogBatch, Entries: entries})
	if err != nil {
		s.logger.WithError(err).Error("wsserver: encode logBatch failed")
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id := range s.authenticated {
		if c, ok := s.conns[id]; ok {
			c.enqueue(payload)
		}
	}
}

// broadcastPong sends an already-encoded pong frame to every open
// connection, regardless of authentication state: orig §4.4's dispatch
// table treats ping/pong as a liveness check available before pairing.
func (s *Server) broadcastPong(payload []byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.conns {
		c.enqueue(payload)
	}
}

// SendReplay delivers replayed journal entries to exactly one connection
// as a logReplay message (orig §4.7's replay-on-connect).
func (s *Server) SendReplay(entries []model.LogEntry, connID string) {
	if len(entries) == 0 {
		return
	}
	payload, err := wire.Encode(wire.Message{Type: wire.TypeLogReplay, Entries: entries})
	if err != nil {
		s.logger.WithError(err).Error("wsserver: encode logReplay failed")
		return
	}
	s.mu.RLock()
	c, ok := s.conns[connID]
	s.mu.RUnlock()
	if ok {
		c.enqueue(payload)
	}
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Warn("wsserver: upgrade failed")
		return
	}

	c := newConnection(s, conn)

	s.mu.Lock()
	s.conns[c.id] = c
	s.mu.Unlock()
	metrics.ActiveConnections.Set(float64(s.connectionCount()))

	go c.writePump()
	go c.readPump()

	c.advanceToReady()
}

func (s *Server) removeConnection(id string) {
	s.mu.Lock()
	delete(s.conns, id)
	delete(s.authenticated, id)
	connCount, authCount := len(s.conns), len(s.authenticated)
	s.mu.Unlock()
	metrics.ActiveConnections.Set(float64(connCount))
	metrics.AuthenticatedConnections.Set(float64(authCount))
}

func (s *Server) markAuthenticated(id string) {
	s.mu.Lock()
	s.authenticated[id] = struct{}{}
	authCount := len(s.authenticated)
	s.mu.Unlock()
	metrics.AuthenticatedConnections.Set(float64(authCount))
}

func (s *Server) connectionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

// ConnectionCount reports how many viewer sessions are currently open,
// regardless of authentication state.
func (s *Server) ConnectionCount() int { return s.connectionCount() }

// AuthenticatedCount reports how many open sessions have completed
// pairing (or never needed to).
func (s *Server) AuthenticatedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.authenticated)
}
