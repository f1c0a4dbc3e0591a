package presence

import (
	"encoding/json"

	"go.uber.org/zap"
)

// Core owns one Registry and the components built over it.
type Core struct {
	Registry    *Registry
	Broadcaster *Broadcaster
	Router      *Router
	Typing      *TypingRelay
	Reconciler  *Reconciler
	Dispatcher  *Dispatcher
}

// New wires a fresh registry to every component. Nil observers are skipped.
func New(logger *zap.Logger, observers ...Observer) *Core {
	if logger == nil {
		logger = zap.NewNop()
	}
	observer := Observers(observers)

	registry := NewRegistry()
	broadcaster := NewBroadcaster(registry, logger.Named("broadcaster"), observer)
	router := NewRouter(registry, logger.Named("router"), observer)
	typing := NewTypingRelay(registry, logger.Named("typing"), observer)
	reconciler := NewReconciler(registry, broadcaster, logger.Named("reconciler"))

	return &Core{
		Registry:    registry,
		Broadcaster: broadcaster,
		Router:      router,
		Typing:      typing,
		Reconciler:  reconciler,
		Dispatcher:  NewDispatcher(registry, broadcaster, router, typing, reconciler, logger.Named("dispatcher")),
	}
}

// Deliver routes an already-persisted message payload to its receiver. It is
// the call-in point for the persistence layer and only fails when payload
// lacks a receiver; an offline receiver is not an error.
func (c *Core) Deliver(payload json.RawMessage) error {
	addr, err := decodeAddressing(payload)
	if err != nil {
		return err
	}
	c.Router.Route(addr.Sender, addr.Receiver, payload)
	return nil
}
