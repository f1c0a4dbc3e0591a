package presence

import "go.uber.org/zap"

// Reconciler reacts to connections that disappear, cleanly or not.
type Reconciler struct {
	registry    *Registry
	broadcaster *Broadcaster
	logger      *zap.Logger
}

// NewReconciler creates a Reconciler over registry.
func NewReconciler(registry *Registry, broadcaster *Broadcaster, logger *zap.Logger) *Reconciler {
	return &Reconciler{registry: registry, broadcaster: broadcaster, logger: logger}
}

// OnConnectionLost removes the entry owned by conn and announces the owner
// offline. Handles that never announced, or were superseded by a newer
// registration of the same identity, are ignored, as are repeated calls.
func (r *Reconciler) OnConnectionLost(conn Conn) {
	r.registry.WithTransition(func() {
		id, ok := r.registry.UnregisterByHandle(conn)
		if !ok {
			r.logger.Debug("Lost connection was not registered", zap.String("conn_id", conn.ID()))
			return
		}
		r.broadcaster.Announce(id, StatusOffline)
	})
}
