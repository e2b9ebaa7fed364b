package wsserver

import (
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/Oreo-Mcflurry/ProbySDK/pkg/model"
	"github.com/Oreo-Mcflurry/ProbySDK/pkg/pairing"
	"github.com/Oreo-Mcflurry/ProbySDK/pkg/wire"
)

func dial(t *testing.T, port int) *websocket.Conn {
	t.Helper()
	u := url.URL{Scheme: "ws", Host: "127.0.0.1:" + itoa(port), Path: "/"}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	require.NoError(t, err)
	return conn
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func readDecoded(t *testing.T, conn *websocket.Conn) wire.Message {
	t.Helper()
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	msg, err := wire.Decode(data)
	require.NoError(t, err)
	return msg
}

// TestHandshakeSentOnConnectWithoutPairing covers the no-pairing-required
// path: a connection reaches "ready" and is immediately authenticated.
func TestHandshakeSentOnConnectWithoutPairing(t *testing.T) {
	var authenticated sync.WaitGroup
	authenticated.Add(1)

	s := New(Config{
		Port:            0,
		RequiresPairing: false,
		Handshake: func() model.Handshake {
			return model.Handshake{ProtocolVersion: 1, SDKVersion: "test"}
		},
		OnAuthenticated: func(connID string) { authenticated.Done() },
	})
	port, err := s.Start()
	require.NoError(t, err)
	defer s.Stop()

	conn := dial(t, port)
	defer conn.Close()

	msg := readDecoded(t, conn)
	require.Equal(t, wire.TypeHandshake, msg.Type)
	require.False(t, msg.Handshake.PairingRequired)

	waitWithTimeout(t, &authenticated, time.Second)
	require.True(t, s.HasAuthenticatedViewers())
}

// TestPairingGatesCommandsAndBroadcast is scenario 2's server-side half:
// an unauthenticated connection's command is not dispatched, broadcast
// never reaches it, and a correct pairingRequest flips it to authenticated.
func TestPairingGatesCommandsAndBroadcast(t *testing.T) {
	pm := pairing.New(pairing.Config{FixedCode: "123456"}, nil)
	pm.GenerateCode()

	var dispatched int
	var mu sync.Mutex

	s := New(Config{
		Port:            0,
		RequiresPairing: true,
		Pairing:         pm,
		Handshake:       func() model.Handshake { return model.Handshake{} },
		OnCommand: func(cmd wire.Command) {
			mu.Lock()
			dispatched++
			mu.Unlock()
		},
	})
	port, err := s.Start()
	require.NoError(t, err)
	defer s.Stop()

	conn := dial(t, port)
	defer conn.Close()

	hs := readDecoded(t, conn)
	require.True(t, hs.Handshake.PairingRequired)

	cmdPayload, err := wire.Encode(wire.Message{Type: wire.TypeCommand, Command: &wire.Command{Kind: wire.CommandClearLogs}})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, cmdPayload))
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	require.Equal(t, 0, dispatched)
	mu.Unlock()
	require.False(t, s.HasAuthenticatedViewers())

	reqPayload, err := wire.Encode(wire.Message{Type: wire.TypePairingRequest, PairingCode: "123456"})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, reqPayload))

	resp := readDecoded(t, conn)
	require.Equal(t, wire.TypePairingResponse, resp.Type)
	require.True(t, resp.PairingAccepted)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && !s.HasAuthenticatedViewers() {
		time.Sleep(5 * time.Millisecond)
	}
	require.True(t, s.HasAuthenticatedViewers())

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, cmdPayload))
	deadline = time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := dispatched
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	mu.Lock()
	require.Equal(t, 1, dispatched)
	mu.Unlock()
}

// TestSendBroadcastsOnlyToAuthenticated ensures Send never reaches a
// connection that hasn't completed pairing.
func TestSendBroadcastsOnlyToAuthenticated(t *testing.T) {
	pm := pairing.New(pairing.Config{FixedCode: "000000"}, nil)
	pm.GenerateCode()

	s := New(Config{
		Port:            0,
		RequiresPairing: true,
		Pairing:         pm,
		Handshake:       func() model.Handshake { return model.Handshake{} },
	})
	port, err := s.Start()
	require.NoError(t, err)
	defer s.Stop()

	conn := dial(t, port)
	defer conn.Close()
	readDecoded(t, conn) // handshake

	entry := model.NewEntry(time.Now(), model.LevelInfo, model.CategoryApp, "hello", model.SourceSite{}, nil, nil)
	s.Send([]model.LogEntry{entry})

	_ = conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = conn.ReadMessage()
	require.Error(t, err) // no logBatch arrives pre-authentication
}

// TestPingBroadcastsPongToAllConnections covers orig §4.4's dispatch
// table entry "ping | broadcast pong to all": a ping from one viewer must
// be answered on every open connection, not just the sender's.
func TestPingBroadcastsPongToAllConnections(t *testing.T) {
	s := New(Config{
		Port:            0,
		RequiresPairing: false,
		Handshake:       func() model.Handshake { return model.Handshake{} },
	})
	port, err := s.Start()
	require.NoError(t, err)
	defer s.Stop()

	sender := dial(t, port)
	defer sender.Close()
	readDecoded(t, sender) // handshake

	bystander := dial(t, port)
	defer bystander.Close()
	readDecoded(t, bystander) // handshake

	pingPayload, err := wire.Encode(wire.Message{Type: wire.TypePing})
	require.NoError(t, err)
	require.NoError(t, sender.WriteMessage(websocket.BinaryMessage, pingPayload))

	senderMsg := readDecoded(t, sender)
	require.Equal(t, wire.TypePong, senderMsg.Type)

	bystanderMsg := readDecoded(t, bystander)
	require.Equal(t, wire.TypePong, bystanderMsg.Type)
}

func waitWithTimeout(t *testing.T, wg *sync.WaitGroup, d time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatal("timed out waiting for condition")
	}
}
