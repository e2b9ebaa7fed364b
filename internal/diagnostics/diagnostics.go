// Package diagnostics exposes ProbySDK's own operational state over a
// small HTTP side-channel: liveness, Prometheus metrics, and a snapshot
// of buffer/connection/journal state for local debugging (SPEC_FULL
// §13.2). It is entirely optional and never touches the log-capture
// data path.
//
// Grounded on internal/app/handlers.go's registerHandlers/gorilla-mux
// routing shape, trimmed of the enterprise SLO/security/goroutine-leak
// endpoints this SDK doesn't have, plus internal/app/app.go's
// http.Server lifecycle.
package diagnostics

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Snapshot is the payload served at /debug/snapshot.
type Snapshot struct {
	Running                  bool  `json:"running"`
	BufferMain               int   `json:"buffer_main"`
	BufferPriority           int   `json:"buffer_priority"`
	ActiveConnections        int   `json:"active_connections"`
	AuthenticatedConnections int   `json:"authenticated_connections"`
	JournalBytes             int64 `json:"journal_bytes"`
}

// SnapshotFunc is called lazily on every /debug/snapshot request, so the
// server never holds a stale copy of engine state.
type SnapshotFunc func() Snapshot

// Server is the diagnostics HTTP side-channel. Start binds a listener on
// Addr; Stop closes it. Both are safe to call from any goroutine.
type Server struct {
	logger   *logrus.Logger
	server   *http.Server
	snapshot SnapshotFunc
}

// New builds a Server bound to addr (e.g. ":9395", conventionally the
// main transport port plus one). snapshot may be nil, in which case
// /debug/snapshot always reports the zero Snapshot.
func New(addr string, snapshot SnapshotFunc, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if snapshot == nil {
		snapshot = func() Snapshot { return Snapshot{} }
	}

	s := &Server{logger: logger, snapshot: snapshot}

	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/debug/snapshot", s.handleSnapshot).Methods(http.MethodGet)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	return s
}

// Start begins serving in the background. A listen failure is logged,
// not returned, since the diagnostics channel is a convenience, not
// something the host application's startup should fail over.
func (s *Server) Start() {
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Warn("diagnostics: server stopped unexpectedly")
		}
	}()
}

// Stop closes the listener.
func (s *Server) Stop() error {
	return s.server.Close()
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.snapshot())
}
