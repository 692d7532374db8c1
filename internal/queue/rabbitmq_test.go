package queue

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeConfirmation struct {
	done chan struct{}
	ack  bool
}

func newConfirmation() *fakeConfirmation {
	return &fakeConfirmation{done: make(chan struct{})}
}

func (c *fakeConfirmation) resolve(ack bool) {
	c.ack = ack
	close(c.done)
}

func (c *fakeConfirmation) WaitContext(ctx context.Context) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-c.done:
	}
	return c.ack, nil
}

type published struct {
	exchange  string
	key       string
	mandatory bool
	msg       amqp.Publishing
}

type fakeChannel struct {
	mu        sync.Mutex
	published []published
	err       error
	closed    bool

	// confirm builds the confirmation for the nth publish, counting from zero.
	confirm func(n int) Confirmation
}

func (f *fakeChannel) PublishDeferred(_ context.Context, exchange, key string, mandatory bool, msg amqp.Publishing) (Confirmation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	n := len(f.published)
	f.published = append(f.published, published{exchange: exchange, key: key, mandatory: mandatory, msg: msg})
	return f.confirm(n), nil
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

type fakeConn struct {
	closed int
}

func (c *fakeConn) Close() error {
	c.closed++
	return nil
}

func acked(int) Confirmation {
	c := newConfirmation()
	c.resolve(true)
	return c
}

func testClient(ch *fakeChannel) (*Client, *fakeConn) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	conn := &fakeConn{}
	return newClient(ch, conn, logger), conn
}

func TestPublishJSONAcked(t *testing.T) {
	ch := &fakeChannel{confirm: acked}
	client, _ := testClient(ch)

	require.NoError(t, client.PublishJSON(context.Background(), RouteDonorNotified, map[string]string{"donorId": "d1"}))
	require.NoError(t, client.PublishJSON(context.Background(), RouteRequestCreated, map[string]string{"requestId": "r1"}))

	require.Len(t, ch.published, 2)

	notified := ch.published[0]
	assert.Equal(t, ExchangeEvents, notified.exchange)
	assert.Equal(t, RouteDonorNotified, notified.key)
	assert.True(t, notified.mandatory)
	assert.Equal(t, amqp.Persistent, notified.msg.DeliveryMode)
	assert.Equal(t, "application/json", notified.msg.ContentType)

	var body map[string]string
	require.NoError(t, json.Unmarshal(notified.msg.Body, &body))
	assert.Equal(t, "d1", body["donorId"])

	assert.False(t, ch.published[1].mandatory)
}

func TestPublishJSONNacked(t *testing.T) {
	ch := &fakeChannel{confirm: func(int) Confirmation {
		c := newConfirmation()
		c.resolve(false)
		return c
	}}
	client, _ := testClient(ch)

	err := client.PublishJSON(context.Background(), RouteDonorNotified, struct{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not acknowledged")
}

func TestPublishJSONTimeoutDoesNotShiftLaterConfirms(t *testing.T) {
	first := newConfirmation()
	ch := &fakeChannel{confirm: func(n int) Confirmation {
		if n == 0 {
			return first
		}
		c := newConfirmation()
		c.resolve(n%2 == 1)
		return c
	}}
	client, _ := testClient(ch)
	client.publishTimeout = 20 * time.Millisecond

	err := client.PublishJSON(context.Background(), RouteDonorNotified, struct{}{})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// the late answer to the first publish belongs to it alone
	first.resolve(false)

	assert.NoError(t, client.PublishJSON(context.Background(), RouteDonorNotified, struct{}{}))
	assert.Error(t, client.PublishJSON(context.Background(), RouteDonorNotified, struct{}{}))
	assert.NoError(t, client.PublishJSON(context.Background(), RouteDonorNotified, struct{}{}))
}

func TestPublishJSONRunsConcurrently(t *testing.T) {
	const inFlight = 3

	// nothing is confirmed until every publish has been sent
	all := make(chan struct{})
	var confs []*fakeConfirmation
	ch := &fakeChannel{}
	ch.confirm = func(n int) Confirmation {
		c := newConfirmation()
		confs = append(confs, c)
		if n == inFlight-1 {
			for _, c := range confs {
				c.resolve(true)
			}
			close(all)
		}
		return c
	}
	client, _ := testClient(ch)
	client.publishTimeout = time.Second

	errs := make(chan error, inFlight)
	for i := 0; i < inFlight; i++ {
		go func() {
			errs <- client.PublishJSON(context.Background(), RouteDonorNotified, struct{}{})
		}()
	}

	for i := 0; i < inFlight; i++ {
		assert.NoError(t, <-errs)
	}
	<-all
}

func TestPublishJSONErrors(t *testing.T) {
	t.Run("publish fails", func(t *testing.T) {
		boom := errors.New("channel closed by server")
		client, _ := testClient(&fakeChannel{err: boom})

		err := client.PublishJSON(context.Background(), RouteRequestFulfilled, struct{}{})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("unencodable event is never sent", func(t *testing.T) {
		ch := &fakeChannel{confirm: acked}
		client, _ := testClient(ch)

		err := client.PublishJSON(context.Background(), RouteRequestCreated, map[string]any{"bad": func() {}})
		assert.Error(t, err)
		assert.Empty(t, ch.published)
	})
}

func TestCloseIsIdempotent(t *testing.T) {
	ch := &fakeChannel{confirm: acked}
	client, conn := testClient(ch)

	require.NoError(t, client.Close())
	require.NoError(t, client.Close())

	assert.True(t, ch.closed)
	assert.Equal(t, 1, conn.closed)
	assert.ErrorIs(t, client.PublishJSON(context.Background(), RouteDonorNotified, struct{}{}), ErrClosed)
}
