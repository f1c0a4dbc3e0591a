// Package presence routes inbound socket events to exactly one of the
// broadcaster, router, typing relay or reconciler.
package presence

import (
	"encoding/json"

	"go.uber.org/zap"
)

// Dispatcher binds the relay components to a Socket's events.
type Dispatcher struct {
	registry    *Registry
	broadcaster *Broadcaster
	router      *Router
	typing      *TypingRelay
	reconciler  *Reconciler
	logger      *zap.Logger
}

// NewDispatcher creates a Dispatcher. All components must share registry.
func NewDispatcher(
	registry *Registry,
	broadcaster *Broadcaster,
	router *Router,
	typing *TypingRelay,
	reconciler *Reconciler,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		registry:    registry,
		broadcaster: broadcaster,
		router:      router,
		typing:      typing,
		reconciler:  reconciler,
		logger:      logger,
	}
}

// Attach registers the event handlers on sock. Registration with the
// registry only happens once sock sends an online event.
func (d *Dispatcher) Attach(sock Socket) {
	sock.OnMessage(EventOnline, func(data json.RawMessage) {
		id, err := decodeIdentity(data)
		if err != nil {
			d.dropMalformed(sock, EventOnline, err)
			return
		}
		d.Online(sock, id)
	})

	sock.OnMessage(EventOffline, func(data json.RawMessage) {
		id, err := decodeIdentity(data)
		if err != nil {
			d.dropMalformed(sock, EventOffline, err)
			return
		}
		d.Logout(id)
	})

	sock.OnMessage(EventMessage, func(data json.RawMessage) {
		addr, err := decodeAddressing(data)
		if err != nil {
			d.dropMalformed(sock, EventMessage, err)
			return
		}
		d.router.Route(addr.Sender, addr.Receiver, data)
	})

	sock.OnMessage(EventTypingStart, d.typingHandler(sock, EventTypingStart, TypingStart))
	sock.OnMessage(EventTypingStop, d.typingHandler(sock, EventTypingStop, TypingStop))

	sock.OnClose(func() {
		d.reconciler.OnConnectionLost(sock)
	})
}

// Online registers conn as id's live connection and announces the
// transition. A connection that was announced under another identity first
// takes that identity offline.
func (d *Dispatcher) Online(conn Conn, id Identity) {
	d.registry.WithTransition(func() {
		if prev, ok := d.registry.IdentityOf(conn); ok && prev != id {
			d.registry.UnregisterByIdentity(prev)
			d.broadcaster.Announce(prev, StatusOffline)
		}

		if old, ok := d.registry.Lookup(id); ok && old.ID() != conn.ID() {
			d.logger.Info("Superseding registered connection",
				zap.String("user_id", string(id)),
				zap.String("old_conn_id", old.ID()),
				zap.String("conn_id", conn.ID()))
		}

		d.registry.Register(id, conn)
		d.broadcaster.Announce(id, StatusOnline)
		d.sendSnapshot(conn)
	})
}

// Logout handles an explicit offline event for id.
func (d *Dispatcher) Logout(id Identity) {
	d.registry.WithTransition(func() {
		if !d.registry.UnregisterByIdentity(id) {
			return
		}
		d.broadcaster.Announce(id, StatusOffline)
	})
}

func (d *Dispatcher) typingHandler(sock Socket, event string, kind TypingKind) Handler {
	return func(data json.RawMessage) {
		addr, err := decodeAddressing(data)
		if err != nil {
			d.dropMalformed(sock, event, err)
			return
		}
		d.typing.Signal(addr.Sender, addr.Receiver, kind)
	}
}

func (d *Dispatcher) sendSnapshot(conn Conn) {
	frame, err := Encode(EventOnlineUsers, OnlineUsers{UserIDs: d.registry.Identities()})
	if err != nil {
		d.logger.Error("Failed to encode online snapshot", zap.Error(err))
		return
	}
	if err := conn.Send(frame); err != nil {
		d.logger.Debug("Failed to send online snapshot", zap.String("conn_id", conn.ID()), zap.Error(err))
	}
}

func (d *Dispatcher) dropMalformed(conn Conn, event string, err error) {
	d.logger.Warn("Dropping malformed event",
		zap.String("event", event),
		zap.String("conn_id", conn.ID()),
		zap.Error(err))
}
