package feed

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"bloodlink/pkg/types"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type fakeLoader struct {
	mu     sync.Mutex
	donors []*types.Donor
	err    error
	gate   chan struct{}
	calls  int
}

func (l *fakeLoader) AllDonors(ctx context.Context) ([]*types.Donor, error) {
	if l.gate != nil {
		select {
		case <-l.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	return l.donors, l.err
}

func (l *fakeLoader) set(donors ...*types.Donor) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.donors = donors
}

type fakeListener struct {
	notes  chan *pgconn.Notification
	closed chan struct{}
	once   sync.Once
}

func newFakeListener() *fakeListener {
	return &fakeListener{
		notes:  make(chan *pgconn.Notification),
		closed: make(chan struct{}),
	}
}

func (l *fakeListener) Listen(context.Context) error { return nil }

func (l *fakeListener) WaitForNotification(ctx context.Context) (*pgconn.Notification, error) {
	select {
	case n := <-l.notes:
		return n, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *fakeListener) Close(context.Context) error {
	l.once.Do(func() { close(l.closed) })
	return nil
}

func donor(id string) *types.Donor {
	return &types.Donor{ID: id, BloodType: types.BloodTypeOPos, Availability: types.AvailabilityNow}
}

func ids(donors []*types.Donor) []string {
	out := make([]string, 0, len(donors))
	for _, d := range donors {
		out = append(out, d.ID)
	}
	return out
}

func TestSubscribeKeepsOnlyLatest(t *testing.T) {
	f := New(&fakeLoader{}, newFakeListener(), quietLogger())

	ch, unsubscribe := f.Subscribe()
	defer unsubscribe()

	f.Publish([]*types.Donor{donor("a")})
	f.Publish([]*types.Donor{donor("b")})
	f.Publish([]*types.Donor{donor("c")})

	got := <-ch
	assert.Equal(t, []string{"c"}, ids(got))

	select {
	case extra := <-ch:
		t.Fatalf("unexpected extra delivery %v", ids(extra))
	default:
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	f := New(&fakeLoader{}, newFakeListener(), quietLogger())

	ch, unsubscribe := f.Subscribe()
	require.Equal(t, 1, f.Subscribers())

	unsubscribe()
	unsubscribe()

	assert.Equal(t, 0, f.Subscribers())
	_, ok := <-ch
	assert.False(t, ok)

	// publishing after everyone left must not block or panic
	f.Publish([]*types.Donor{donor("a")})
}

func TestRunReloadsOnNotification(t *testing.T) {
	loader := &fakeLoader{}
	listener := newFakeListener()
	f := New(loader, listener, quietLogger())

	ch, unsubscribe := f.Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()

	select {
	case got := <-ch:
		assert.Empty(t, got)
	case <-time.After(time.Second):
		t.Fatal("no delivery after listen")
	}

	loader.set(donor("a"), donor("b"))
	listener.notes <- &pgconn.Notification{Channel: "donors_changed", Payload: "a"}

	select {
	case got := <-ch:
		assert.Equal(t, []string{"a", "b"}, ids(got))
	case <-time.After(time.Second):
		t.Fatal("no delivery after notification")
	}

	cancel()
	require.NoError(t, <-done)

	select {
	case <-listener.closed:
	default:
		t.Fatal("listener not closed on shutdown")
	}
}

func TestRefreshFailureDoesNotPublish(t *testing.T) {
	loader := &fakeLoader{err: errors.New("connection refused")}
	f := New(loader, newFakeListener(), quietLogger())

	ch, unsubscribe := f.Subscribe()
	defer unsubscribe()

	err := f.Refresh(context.Background())
	require.Error(t, err)

	select {
	case <-ch:
		t.Fatal("failed reload must not be delivered")
	default:
	}
}

type droppingListener struct {
	*fakeListener
	drop    chan struct{}
	mu      sync.Mutex
	listens int
}

func (l *droppingListener) Listen(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listens++
	return nil
}

// WaitForNotification fails on the first connection once drop is closed,
// like a socket that dies.
func (l *droppingListener) WaitForNotification(ctx context.Context) (*pgconn.Notification, error) {
	l.mu.Lock()
	first := l.listens == 1
	l.mu.Unlock()
	if first {
		select {
		case <-l.drop:
			return nil, errors.New("conn closed")
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return l.fakeListener.WaitForNotification(ctx)
}

func TestRunCatchesUpAfterReconnect(t *testing.T) {
	loader := &fakeLoader{}
	loader.set(donor("before"))
	listener := &droppingListener{fakeListener: newFakeListener(), drop: make(chan struct{})}

	f := New(loader, listener, quietLogger())
	f.retryDelay = 10 * time.Millisecond

	ch, unsubscribe := f.Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()

	select {
	case got := <-ch:
		assert.Equal(t, []string{"before"}, ids(got))
	case <-time.After(time.Second):
		t.Fatal("no delivery after first listen")
	}

	// changed while the connection was down, so no notification ever arrives
	loader.set(donor("missed"))
	close(listener.drop)

	select {
	case got := <-ch:
		assert.Equal(t, []string{"missed"}, ids(got))
	case <-time.After(time.Second):
		t.Fatal("no catch-up delivery after reconnect")
	}

	cancel()
	require.NoError(t, <-done)
}

// gatedListener holds LISTEN back until open is closed.
type gatedListener struct {
	*fakeListener
	open chan struct{}
}

func (l *gatedListener) Listen(ctx context.Context) error {
	select {
	case <-l.open:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
