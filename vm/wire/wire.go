// Package wire defines the simulator messages exchanged between the engine
// and its host shell, and their canonical CBOR encoding.
package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Message type tags.
const (
	TypeStatus   = "status"
	TypeSerial   = "serial"
	TypeEventBus = "eventbus"
	TypeWarning  = "warning"
)

// Runtime states carried by StatusMessage.
const (
	StateRunning = "running"
	StateKilled  = "killed"
)

// Message is any simulator message.
type Message interface {
	MessageType() string
}

// StatusMessage announces a runtime lifecycle change.
type StatusMessage struct {
	RuntimeID string `cbor:"1,keyasint"`
	State     string `cbor:"2,keyasint"`
}

// SerialMessage carries a flushed chunk of serial output.
type SerialMessage struct {
	ID   string `cbor:"1,keyasint"`
	Data string `cbor:"2,keyasint"`
	Time int64  `cbor:"3,keyasint"` // unix milliseconds
}

// EventBusMessage is a host-originated device event.
type EventBusMessage struct {
	ID      int `cbor:"1,keyasint"`
	EventID int `cbor:"2,keyasint"`
	Value   int `cbor:"3,keyasint,omitempty"`
}

// WarningMessage is a non-fatal runtime warning.
type WarningMessage struct {
	Message string `cbor:"1,keyasint"`
}

func (*StatusMessage) MessageType() string   { return TypeStatus }
func (*SerialMessage) MessageType() string   { return TypeSerial }
func (*EventBusMessage) MessageType() string { return TypeEventBus }
func (*WarningMessage) MessageType() string  { return TypeWarning }

type envelope struct {
	Type string          `cbor:"1,keyasint"`
	Body cbor.RawMessage `cbor:"2,keyasint"`
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Marshal encodes m inside a typed envelope.
func Marshal(m Message) ([]byte, error) {
	body, err := cborEncMode.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("wire: marshal %s: %w", m.MessageType(), err)
	}
	return cborEncMode.Marshal(&envelope{Type: m.MessageType(), Body: body})
}

// Unmarshal decodes an envelope produced by Marshal.
func Unmarshal(data []byte) (Message, error) {
	var env envelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("wire: unmarshal envelope: %w", err)
	}
	var m Message
	switch env.Type {
	case TypeStatus:
		m = &StatusMessage{}
	case TypeSerial:
		m = &SerialMessage{}
	case TypeEventBus:
		m = &EventBusMessage{}
	case TypeWarning:
		m = &WarningMessage{}
	default:
		return nil, fmt.Errorf("wire: unknown message type %q", env.Type)
	}
	if err := cbor.Unmarshal(env.Body, m); err != nil {
		return nil, fmt.Errorf("wire: unmarshal %s: %w", env.Type, err)
	}
	return m, nil
}
