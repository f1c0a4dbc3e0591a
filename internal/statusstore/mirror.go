// Package statusstore mirrors presence transitions into Redis so the
// persistence layer can read a user's last known status and last-seen time.
//
// Writes happen on a single background goroutine fed by a bounded queue; the
// relay path only ever enqueues, and drops the update when the queue is full.
package statusstore

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Tyrowin/presencechat/internal/presence"
)

const (
	fieldStatus   = "status"
	fieldLastSeen = "last_seen"

	writeTimeout = 2 * time.Second
)

// Key returns the hash key holding id's mirrored status.
func Key(id presence.Identity) string { return "presence:" + string(id) }

// Record is the mirrored state of one identity.
type Record struct {
	Status   presence.Status
	LastSeen time.Time
}

type update struct {
	id     presence.Identity
	status presence.Status
	at     time.Time
}

// Mirror implements presence.Observer on top of a Redis client.
type Mirror struct {
	client  *redis.Client
	queue   chan update
	logger  *zap.Logger
	now     func() time.Time
	dropped atomic.Int64
}

var _ presence.Observer = (*Mirror)(nil)

// Connect opens a client and checks the server answers.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "ping redis at %s", addr)
	}
	return client, nil
}

// NewMirror creates a Mirror buffering up to queueSize pending writes.
func NewMirror(client *redis.Client, queueSize int, logger *zap.Logger) *Mirror {
	if queueSize <= 0 {
		queueSize = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mirror{
		client: client,
		queue:  make(chan update, queueSize),
		logger: logger,
		now:    time.Now,
	}
}

// StatusChanged enqueues a write without blocking.
func (m *Mirror) StatusChanged(id presence.Identity, status presence.Status) {
	select {
	case m.queue <- update{id: id, status: status, at: m.now()}:
	default:
		m.dropped.Add(1)
		m.logger.Warn("Status queue full; dropping update",
			zap.String("user_id", string(id)),
			zap.String("status", string(status)))
	}
}

// Relayed is a no-op; only transitions are mirrored.
func (m *Mirror) Relayed(string, bool) {}

// Dropped returns how many updates were discarded because the queue was full.
func (m *Mirror) Dropped() int64 {
	return m.dropped.Load()
}

// Run applies queued updates until ctx is cancelled, then flushes whatever is
// still queued. Each write gets its own deadline, independent of ctx.
func (m *Mirror) Run(ctx context.Context) error {
	for {
		select {
		case u := <-m.queue:
			m.apply(u)
		case <-ctx.Done():
			m.flush()
			return nil
		}
	}
}

func (m *Mirror) flush() {
	for {
		select {
		case u := <-m.queue:
			m.apply(u)
		default:
			return
		}
	}
}

func (m *Mirror) apply(u update) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	err := m.client.HSet(ctx, Key(u.id),
		fieldStatus, string(u.status),
		fieldLastSeen, u.at.UnixMilli(),
	).Err()
	if err != nil {
		m.logger.Warn("Failed to mirror status", zap.String("user_id", string(u.id)), zap.Error(err))
	}
}

// Get reads the mirrored record for id. It is the read side the persistence
// layer uses for isOnline and lastSeen; ok is false for an identity that was
// never mirrored.
func (m *Mirror) Get(ctx context.Context, id presence.Identity) (Record, bool, error) {
	values, err := m.client.HGetAll(ctx, Key(id)).Result()
	if err != nil {
		return Record{}, false, errors.Wrapf(err, "read %s", Key(id))
	}
	if len(values) == 0 {
		return Record{}, false, nil
	}

	millis, err := strconv.ParseInt(values[fieldLastSeen], 10, 64)
	if err != nil {
		return Record{}, false, errors.Wrapf(err, "parse %s of %s", fieldLastSeen, Key(id))
	}
	return Record{
		Status:   presence.Status(values[fieldStatus]),
		LastSeen: time.UnixMilli(millis),
	}, true, nil
}
