package wire

import (
	"testing"
	"time"

	"github.com/Oreo-Mcflurry/ProbySDK/pkg/model"
	"github.com/stretchr/testify/require"
)

func sampleEntry() model.LogEntry {
	extra := model.NewNetworkExtra(model.NetworkExtra{
		Method: "GET",
		URL:    "https://example.com",
		Status: 200,
	})
	return model.NewEntry(
		time.Date(2026, 1, 2, 3, 4, 5, 123456000, time.UTC),
		model.LevelWarning,
		model.CategoryNetwork,
		"request completed",
		model.SourceSite{File: "net.go", Function: "Do", Line: 42},
		model.Metadata{"retries": model.IntValue(2)},
		&extra,
	)
}

func roundTrip(t *testing.T, msg Message) Message {
	t.Helper()
	data, err := Encode(msg)
	require.NoError(t, err)
	decoded, err := Decode(data)
	require.NoError(t, err)
	return decoded
}

func TestRoundTripLog(t *testing.T) {
	entry := sampleEntry()
	decoded := roundTrip(t, Message{Type: TypeLog, Entry: &entry})
	require.Equal(t, TypeLog, decoded.Type)
	require.Equal(t, entry.ID, decoded.Entry.ID)
	require.True(t, entry.Timestamp.Equal(decoded.Entry.Timestamp))
	require.Equal(t, entry.Level, decoded.Entry.Level)
	require.Equal(t, entry.Category.ID, decoded.Entry.Category.ID)
	require.Equal(t, entry.Message, decoded.Entry.Message)
	require.Equal(t, model.ExtraNetwork, decoded.Entry.Extra.Kind)
	require.Equal(t, "GET", decoded.Entry.Extra.Network.Method)
}

func TestRoundTripLogBatch(t *testing.T) {
	entries := []model.LogEntry{sampleEntry(), sampleEntry()}
	decoded := roundTrip(t, Message{Type: TypeLogBatch, Entries: entries})
	require.Equal(t, TypeLogBatch, decoded.Type)
	require.Len(t, decoded.Entries, 2)
}

func TestRoundTripPingPong(t *testing.T) {
	require.Equal(t, TypePing, roundTrip(t, Message{Type: TypePing}).Type)
	require.Equal(t, TypePong, roundTrip(t, Message{Type: TypePong}).Type)
}

func TestRoundTripPairing(t *testing.T) {
	req := roundTrip(t, Message{Type: TypePairingRequest, PairingCode: "123456"})
	require.Equal(t, "123456", req.PairingCode)

	resp := roundTrip(t, Message{Type: TypePairingResponse, PairingAccepted: true})
	require.True(t, resp.PairingAccepted)
}

func TestRoundTripCommand(t *testing.T) {
	cmd := &Command{Kind: CommandSetLogLevel, Level: model.LevelError}
	decoded := roundTrip(t, Message{Type: TypeCommand, Command: cmd})
	require.Equal(t, CommandSetLogLevel, decoded.Command.Kind)
	require.Equal(t, model.LevelError, decoded.Command.Level)
}

func TestRoundTripHandshake(t *testing.T) {
	hs := &model.Handshake{
		ProtocolVersion: model.ProtocolVersion,
		SDKVersion:      "1.0.0",
		PairingRequired: true,
		Capabilities:    []string{"replay"},
	}
	decoded := roundTrip(t, Message{Type: TypeHandshake, Handshake: hs})
	require.Equal(t, hs.SDKVersion, decoded.Handshake.SDKVersion)
	require.True(t, decoded.Handshake.PairingRequired)
}

func TestDecodeUnknownTypeIsHardError(t *testing.T) {
	_, err := Decode([]byte(`{"type":"somethingElse","payload":{}}`))
	require.Error(t, err)
	var decErr *DecodeError
	require.ErrorAs(t, err, &decErr)
}

func TestDecodeIgnoresUnknownFields(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"ping","payload":{"unexpected":true},"extra_top_level":1}`))
	require.NoError(t, err)
	require.Equal(t, TypePing, msg.Type)
}
