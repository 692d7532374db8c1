package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"bloodlink/pkg/types"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// Loader fetches the full donor collection.
type Loader interface {
	AllDonors(ctx context.Context) ([]*types.Donor, error)
}

// Listener yields change notifications from the database.
type Listener interface {
	Listen(ctx context.Context) error
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Close(ctx context.Context) error
}

// Feed reloads the donor collection on every change notification and hands
// the whole collection to each subscriber.
type Feed struct {
	loader   Loader
	listener Listener
	logger   *logrus.Logger

	retryDelay time.Duration

	mu     sync.Mutex
	nextID int
	subs   map[int]chan []*types.Donor
}

func New(loader Loader, listener Listener, logger *logrus.Logger) *Feed {
	return &Feed{
		loader:     loader,
		listener:   listener,
		logger:     logger,
		retryDelay: 2 * time.Second,
		subs:       make(map[int]chan []*types.Donor),
	}
}

// Subscribe registers for deliveries. A subscriber that falls behind only ever
// holds the newest collection. The returned func unsubscribes and is safe to
// call more than once.
func (f *Feed) Subscribe() (<-chan []*types.Donor, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextID
	f.nextID++

	ch := make(chan []*types.Donor, 1)
	f.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			delete(f.subs, id)
			close(ch)
		})
	}
}

func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Publish delivers donors to all current subscribers without blocking.
func (f *Feed) Publish(donors []*types.Donor) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, ch := range f.subs {
		select {
		case <-ch:
		default:
		}
		ch <- donors
	}
}

// Refresh loads the collection and publishes it.
func (f *Feed) Refresh(ctx context.Context) error {
	donors, err := f.loader.AllDonors(ctx)
	if err != nil {
		return fmt.Errorf("failed to reload donors: %w", err)
	}

	f.Publish(donors)
	return nil
}

// Run listens until ctx is done. Listener failures are retried.
func (f *Feed) Run(ctx context.Context) error {
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := f.listener.Close(closeCtx); err != nil {
			f.logger.WithError(err).Warn("failed to close donor feed listener")
		}
	}()

	for {
		err := f.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}

		f.logger.WithError(err).Error("donor feed listener failed, retrying")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(f.retryDelay):
		}
	}
}

func (f *Feed) listen(ctx context.Context) error {
	if err := f.listener.Listen(ctx); err != nil {
		return fmt.Errorf("failed to listen for donor changes: %w", err)
	}

	f.logger.WithField("channel", "donors_changed").Info("donor feed listening")

	// changes committed before LISTEN took effect were notified to nobody
	if err := f.Refresh(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		f.logger.WithError(err).Error("failed to refresh donor feed after listen")
	}

	for {
		n, err := f.listener.WaitForNotification(ctx)
		if err != nil {
			return err
		}

		f.logger.WithField("donor_id", n.Payload).Debug("donor changed")

		if err := f.Refresh(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			f.logger.WithError(err).Error("failed to refresh donor feed")
		}
	}
}

// PoolListener holds one pooled connection in LISTEN mode.
type PoolListener struct {
	pool    *pgxpool.Pool
	channel string

	conn *pgxpool.Conn
}

func NewPoolListener(pool *pgxpool.Pool, channel string) *PoolListener {
	return &PoolListener{pool: pool, channel: channel}
}

func (l *PoolListener) Listen(ctx context.Context) error {
	// a previous connection may have died mid-wait
	_ = l.Close(ctx)

	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire listen connection: %w", err)
	}

	_, err = conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize())
	if err != nil {
		conn.Release()
		return fmt.Errorf("failed to listen on %s: %w", l.channel, err)
	}

	l.conn = conn
	return nil
}

func (l *PoolListener) WaitForNotification(ctx context.Context) (*pgconn.Notification, error) {
	if l.conn == nil {
		return nil, errors.New("listener is not connected")
	}
	return l.conn.Conn().WaitForNotification(ctx)
}

func (l *PoolListener) Close(ctx context.Context) error {
	if l.conn == nil {
		return nil
	}

	// the connection is still in LISTEN mode, so it must not go back to the pool
	conn := l.conn.Hijack()
	l.conn = nil
	return conn.Close(ctx)
}
