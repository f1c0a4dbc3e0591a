package presence

import (
	"encoding/json"

	"go.uber.org/zap"
)

// Router delivers chat messages to the recipient's live connection.
type Router struct {
	registry *Registry
	logger   *zap.Logger
	observer Observer
}

// NewRouter creates a Router over registry. observer may be nil.
func NewRouter(registry *Registry, logger *zap.Logger, observer Observer) *Router {
	return &Router{registry: registry, logger: logger, observer: orNop(observer)}
}

// Route sends message-received(payload) to receiver's connection only. An
// offline receiver makes this a silent no-op; the sender is never told. The
// return value reports whether a send succeeded and is meant for accounting.
func (r *Router) Route(sender, receiver Identity, payload json.RawMessage) bool {
	return unicast(r.registry, r.logger, r.observer, sender, receiver, EventMessageReceived, payload)
}

// TypingRelay forwards typing signals with the same semantics as Router. It
// keeps no state between calls, so there is no typing timeout here.
type TypingRelay struct {
	registry *Registry
	logger   *zap.Logger
	observer Observer
}

// NewTypingRelay creates a TypingRelay over registry. observer may be nil.
func NewTypingRelay(registry *Registry, logger *zap.Logger, observer Observer) *TypingRelay {
	return &TypingRelay{registry: registry, logger: logger, observer: orNop(observer)}
}

// Signal relays peer-typing or peer-typing-stopped, carrying sender, to
// receiver's connection if it is online.
func (t *TypingRelay) Signal(sender, receiver Identity, kind TypingKind) bool {
	event := EventPeerTyping
	if kind == TypingStop {
		event = EventPeerTypingStopped
	}
	return unicast(t.registry, t.logger, t.observer, sender, receiver, event, IdentityPayload{UserID: sender})
}

func unicast(registry *Registry, logger *zap.Logger, observer Observer, sender, receiver Identity, event string, data any) bool {
	conn, ok := registry.Lookup(receiver)
	if !ok {
		logger.Debug("Receiver offline; dropping event",
			zap.String("event", event),
			zap.String("sender", string(sender)),
			zap.String("receiver", string(receiver)))
		observer.Relayed(event, false)
		return false
	}

	frame, err := Encode(event, data)
	if err != nil {
		logger.Warn("Failed to encode relayed event", zap.String("event", event), zap.Error(err))
		observer.Relayed(event, false)
		return false
	}

	if err := conn.Send(frame); err != nil {
		logger.Debug("Failed to relay event",
			zap.String("event", event),
			zap.String("receiver", string(receiver)),
			zap.String("conn_id", conn.ID()),
			zap.Error(err))
		observer.Relayed(event, false)
		return false
	}

	observer.Relayed(event, true)
	return true
}
