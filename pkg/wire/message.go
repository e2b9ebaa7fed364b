// Package wire implements the tagged-union wire codec ProbySDK speaks
// over the WebSocket binary channel (orig §4.11).
//
// Every message is a JSON object with a "type" discriminator and a
// variant-specific "payload"; there are no other top-level fields.
// Decoding a known type tolerates unknown fields for forward
// compatibility; decoding an unknown type is a hard, connection-scoped
// error.
package wire

import (
	"encoding/json"
	"fmt"

	"github.com/Oreo-Mcflurry/ProbySDK/pkg/model"
)

// Type is the wire message discriminator.
type Type string

const (
	TypeHandshake       Type = "handshake"
	TypeLog             Type = "log"
	TypeLogBatch        Type = "logBatch"
	TypeLogReplay       Type = "logReplay"
	TypePing            Type = "ping"
	TypePong            Type = "pong"
	TypeCommand         Type = "command"
	TypePairingRequest  Type = "pairingRequest"
	TypePairingResponse Type = "pairingResponse"
)

// Message is the decoded, in-memory form of any wire message. Only the
// fields relevant to Type are populated; the rest are zero.
type Message struct {
	Type Type

	Handshake *model.Handshake

	Entry   *model.LogEntry
	Entries []model.LogEntry

	Command *Command

	PairingCode     string
	PairingAccepted bool
	PairingReason   string
}

// envelope is the on-wire shape shared by every message.
type envelope struct {
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// DecodeError is returned for unknown message types or malformed
// payloads; the server treats it as a protocol error scoped to the
// originating connection (orig §7).
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string { return "wire: " + e.Reason }

// Encode serializes a Message to its on-wire JSON form.
func Encode(m Message) ([]byte, error) {
	switch m.Type {
	case TypeHandshake:
		return marshalEnvelope(m.Type, m.Handshake)
	case TypeLog:
		if m.Entry == nil {
			return nil, fmt.Errorf("wire: log message missing entry")
		}
		return marshalEnvelope(m.Type, EncodeEntry(*m.Entry))
	case TypeLogBatch, TypeLogReplay:
		entries := make([]Entry, 0, len(m.Entries))
		for _, e := range m.Entries {
			entries = append(entries, EncodeEntry(e))
		}
		return marshalEnvelope(m.Type, entries)
	case TypePing, TypePong:
		return marshalEnvelope(m.Type, nil)
	case TypeCommand:
		return marshalEnvelope(m.Type, m.Command)
	case TypePairingRequest:
		return marshalEnvelope(m.Type, pairingRequestPayload{Code: m.PairingCode})
	case TypePairingResponse:
		return marshalEnvelope(m.Type, pairingResponsePayload{
			Accepted: m.PairingAccepted,
			Reason:   m.PairingReason,
		})
	default:
		return nil, fmt.Errorf("wire: unknown message type %q", m.Type)
	}
}

type pairingRequestPayload struct {
	Code string `json:"code"`
}

type pairingResponsePayload struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

func marshalEnvelope(t Type, payload interface{}) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return json.Marshal(envelope{Type: t, Payload: raw})
}

// Decode parses raw bytes into a Message. An unrecognized "type" is a
// hard DecodeError; unrecognized fields inside a known type's payload are
// silently ignored by encoding/json's default unmarshal behavior.
func Decode(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Message{}, &DecodeError{Reason: "malformed envelope: " + err.Error()}
	}

	switch env.Type {
	case TypeHandshake:
		var hs model.Handshake
		if err := unmarshalIfPresent(env.Payload, &hs); err != nil {
			return Message{}, &DecodeError{Reason: "malformed handshake: " + err.Error()}
		}
		return Message{Type: TypeHandshake, Handshake: &hs}, nil

	case TypeLog:
		var we Entry
		if err := json.Unmarshal(env.Payload, &we); err != nil {
			return Message{}, &DecodeError{Reason: "malformed log payload: " + err.Error()}
		}
		entry := DecodeEntry(we)
		return Message{Type: TypeLog, Entry: &entry}, nil

	case TypeLogBatch, TypeLogReplay:
		var wes []Entry
		if err := json.Unmarshal(env.Payload, &wes); err != nil {
			return Message{}, &DecodeError{Reason: "malformed batch payload: " + err.Error()}
		}
		entries := make([]model.LogEntry, 0, len(wes))
		for _, we := range wes {
			entries = append(entries, DecodeEntry(we))
		}
		return Message{Type: env.Type, Entries: entries}, nil

	case TypePing:
		return Message{Type: TypePing}, nil
	case TypePong:
		return Message{Type: TypePong}, nil

	case TypeCommand:
		var cmd Command
		if err := json.Unmarshal(env.Payload, &cmd); err != nil {
			return Message{}, &DecodeError{Reason: "malformed command payload: " + err.Error()}
		}
		return Message{Type: TypeCommand, Command: &cmd}, nil

	case TypePairingRequest:
		var p pairingRequestPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return Message{}, &DecodeError{Reason: "malformed pairingRequest payload: " + err.Error()}
		}
		return Message{Type: TypePairingRequest, PairingCode: p.Code}, nil

	case TypePairingResponse:
		var p pairingResponsePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return Message{}, &DecodeError{Reason: "malformed pairingResponse payload: " + err.Error()}
		}
		return Message{Type: TypePairingResponse, PairingAccepted: p.Accepted, PairingReason: p.Reason}, nil

	default:
		return Message{}, &DecodeError{Reason: fmt.Sprintf("unknown message type %q", env.Type)}
	}
}

func unmarshalIfPresent(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}
