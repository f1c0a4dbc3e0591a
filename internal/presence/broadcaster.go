package presence

import (
	"go.uber.org/zap"
)

// Broadcaster emits status-change events to every registered connection.
type Broadcaster struct {
	registry *Registry
	logger   *zap.Logger
	observer Observer
}

// NewBroadcaster creates a Broadcaster over registry. observer may be nil.
func NewBroadcaster(registry *Registry, logger *zap.Logger, observer Observer) *Broadcaster {
	return &Broadcaster{
		registry: registry,
		logger:   logger,
		observer: orNop(observer),
	}
}

// Announce sends status-change(id, status) to all registered connections,
// including id's own connection when it has just come online. Delivery is
// fire-and-forget: a failed send is logged and the loop moves on.
func (b *Broadcaster) Announce(id Identity, status Status) {
	frame, err := Encode(EventStatusChange, StatusChange{UserID: id, Status: status})
	if err != nil {
		b.logger.Error("Failed to encode status change", zap.String("user_id", string(id)), zap.Error(err))
		return
	}

	conns := b.registry.Connections()
	failed := 0
	for _, conn := range conns {
		if err := conn.Send(frame); err != nil {
			failed++
			b.logger.Debug("Dropped status change for connection",
				zap.String("conn_id", conn.ID()),
				zap.Error(err))
		}
	}

	b.logger.Info("Presence changed",
		zap.String("user_id", string(id)),
		zap.String("status", string(status)),
		zap.Int("recipients", len(conns)-failed),
		zap.Int("failed", failed))
	b.observer.StatusChanged(id, status)
}

type nopObserver struct{}

func (nopObserver) StatusChanged(Identity, Status) {}
func (nopObserver) Relayed(string, bool)           {}

func orNop(o Observer) Observer {
	if o == nil {
		return nopObserver{}
	}
	return o
}
