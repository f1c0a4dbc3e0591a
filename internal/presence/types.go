// Package presence defines the identities, connection abstractions and wire
// envelope shared by the registry and the relay components.
package presence

import (
	"encoding/json"

	"github.com/pkg/errors"
)

//go:generate mockgen -destination=mocks/mock_observer.go -package=mocks . Observer

// Identity is an opaque, externally issued user identifier. The core never
// verifies it.
type Identity string

// Status is the presence state carried by a status-change event.
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// TypingKind distinguishes the two typing signals.
type TypingKind int

const (
	TypingStart TypingKind = iota
	TypingStop
)

// Inbound event names (client to server).
const (
	EventOnline      = "online"
	EventOffline     = "offline"
	EventMessage     = "message"
	EventTypingStart = "typing-start"
	EventTypingStop  = "typing-stop"
)

// Outbound event names (server to client).
const (
	EventStatusChange      = "status-change"
	EventMessageReceived   = "message-received"
	EventPeerTyping        = "peer-typing"
	EventPeerTypingStopped = "peer-typing-stopped"
	EventOnlineUsers       = "online-users"
)

// Envelope is the JSON frame exchanged in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// IdentityPayload is the data of online and offline events.
type IdentityPayload struct {
	UserID Identity `json:"userId"`
}

// StatusChange is the data of a status-change event.
type StatusChange struct {
	UserID Identity `json:"userId"`
	Status Status   `json:"status"`
}

// OnlineUsers is the snapshot sent to a connection right after it announces.
type OnlineUsers struct {
	UserIDs []Identity `json:"userIds"`
}

// Addressing holds the routing fields of message and typing events. Message
// payloads may carry any additional fields; they are forwarded untouched.
type Addressing struct {
	Sender   Identity `json:"sender"`
	Receiver Identity `json:"receiver"`
}

// ErrMalformedPayload is returned when an event's data cannot be decoded or
// lacks its routing fields.
var ErrMalformedPayload = errors.New("malformed payload")

// Conn is an opaque live transport session. The core only stores and
// compares handles by ID; it never constructs or closes them.
type Conn interface {
	// ID uniquely identifies the session for the lifetime of the process.
	ID() string
	// Send enqueues a frame for delivery. It must not block; a slow or
	// failed peer reports an error instead.
	Send(payload []byte) error
}

// Handler consumes the data of one inbound event.
type Handler func(data json.RawMessage)

// Socket is the transport abstraction the Dispatcher attaches to.
type Socket interface {
	Conn
	OnMessage(event string, handler Handler)
	OnClose(handler func())
}

// Observer is notified of presence transitions and unicast outcomes. It is
// called synchronously from the relay path and must return quickly.
type Observer interface {
	StatusChanged(id Identity, status Status)
	Relayed(event string, delivered bool)
}

// Observers fans notifications out to every non-nil observer.
type Observers []Observer

func (o Observers) StatusChanged(id Identity, status Status) {
	for _, obs := range o {
		if obs != nil {
			obs.StatusChanged(id, status)
		}
	}
}

func (o Observers) Relayed(event string, delivered bool) {
	for _, obs := range o {
		if obs != nil {
			obs.Relayed(event, delivered)
		}
	}
}

// Encode wraps data into an Envelope frame.
func Encode(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s data", event)
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: raw})
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s envelope", event)
	}
	return frame, nil
}

func decodeAddressing(data json.RawMessage) (Addressing, error) {
	var addr Addressing
	if err := json.Unmarshal(data, &addr); err != nil {
		return Addressing{}, errors.Wrap(ErrMalformedPayload, err.Error())
	}
	if addr.Receiver == "" {
		return Addressing{}, errors.Wrap(ErrMalformedPayload, "missing receiver")
	}
	return addr, nil
}

func decodeIdentity(data json.RawMessage) (Identity, error) {
	var p IdentityPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return "", errors.Wrap(ErrMalformedPayload, err.Error())
	}
	if p.UserID == "" {
		return "", errors.Wrap(ErrMalformedPayload, "missing userId")
	}
	return p.UserID, nil
}
