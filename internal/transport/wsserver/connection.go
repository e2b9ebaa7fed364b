package wsserver

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Oreo-Mcflurry/ProbySDK/internal/metrics"
	"github.com/Oreo-Mcflurry/ProbySDK/pkg/wire"
)

// connection is one viewer's session: a gorilla/websocket.Conn plus the
// pending/ready/authenticated/closed state machine of orig §4.4.
type connection struct {
	id     string
	server *Server
	conn   *websocket.Conn

	send   chan []byte
	closed chan struct{}
	once   sync.Once

	mu    sync.Mutex
	state sessionState
}

func newConnection(s *Server, conn *websocket.Conn) *connection {
	return &connection{
		id:     uuid.NewString(),
		server: s,
		conn:   conn,
		send:   make(chan []byte, 256),
		closed: make(chan struct{}),
		state:  statePending,
	}
}

func (c *connection) enqueue(payload []byte) {
	select {
	case c.send <- payload:
	default:
		c.server.logger.Warnf("wsserver: dropping message for connection %s (send buffer full)", c.id)
	}
}

// advanceToReady sends the handshake and moves pending -> ready. Every
// connection reaches "ready" regardless of pairing; pairing only gates
// whether commands are dispatched and whether Send considers it a
// recipient, matching orig §4.4's single-codepath requirement.
func (c *connection) advanceToReady() {
	c.mu.Lock()
	c.state = stateReady
	requiresPairing := c.server.config.RequiresPairing
	c.mu.Unlock()

	if c.server.config.Handshake != nil {
		hs := c.server.config.Handshake()
		hs.PairingRequired = requiresPairing
		payload, err := wire.Encode(wire.Message{Type: wire.TypeHandshake, Handshake: &hs})
		if err == nil {
			c.enqueue(payload)
		}
	}

	if !requiresPairing {
		c.server.markAuthenticated(c.id)
		if c.server.config.OnAuthenticated != nil {
			c.server.config.OnAuthenticated(c.id)
		}
	}
}

func (c *connection) isAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateAuthenticated
}

// handleInbound implements orig §4.4's inbound dispatch table.
func (c *connection) handleInbound(raw []byte) {
	msg, err := wire.Decode(raw)
	if err != nil {
		c.server.logger.WithError(err).Warnf("wsserver: protocol error on connection %s", c.id)
		c.close()
		return
	}

	switch msg.Type {
	case wire.TypePing:
		pong, err := wire.Encode(wire.Message{Type: wire.TypePong})
		if err == nil {
			c.server.broadcastPong(pong)
		}

	case wire.TypeCommand:
		if msg.Command == nil {
			return
		}
		if !c.server.config.RequiresPairing || c.isAuthenticated() {
			if c.server.config.OnCommand != nil {
				c.server.config.OnCommand(*msg.Command)
			}
		}

	case wire.TypePairingRequest:
		c.handlePairingRequest(msg.PairingCode)

	case wire.TypePairingResponse, wire.TypeHandshake, wire.TypeLog, wire.TypeLogBatch, wire.TypeLogReplay:
		// Server-sent message types received from a viewer are ignored;
		// viewers only ever originate ping/command/pairingRequest.
	}
}

func (c *connection) handlePairingRequest(code string) {
	if c.server.config.Pairing == nil {
		return
	}
	result := c.server.config.Pairing.Validate(code)

	resp, _ := wire.Encode(wire.Message{
		Type:            wire.TypePairingResponse,
		PairingAccepted: result.Accepted,
		PairingReason:   result.Reason,
	})
	c.enqueue(resp)

	if result.Accepted {
		metrics.RecordPairingAttempt("success")
	} else {
		metrics.RecordPairingAttempt("failure")
	}

	if result.Accepted {
		c.mu.Lock()
		c.state = stateAuthenticated
		c.mu.Unlock()

		c.server.markAuthenticated(c.id)
		if c.server.config.OnAuthenticated != nil {
			c.server.config.OnAuthenticated(c.id)
		}
	}
}

func (c *connection) readPump() {
	defer func() {
		c.server.removeConnection(c.id)
		c.close()
	}()

	c.conn.SetReadLimit(readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.BinaryMessage && msgType != websocket.TextMessage {
			continue
		}
		c.handleInbound(payload)
	}
}

func (c *connection) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.BinaryMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.closed:
			return
		}
	}
}

func (c *connection) close() {
	c.once.Do(func() {
		close(c.closed)
		_ = c.conn.Close()
		c.mu.Lock()
		c.state = stateClosed
		c.mu.Unlock()
	})
}
