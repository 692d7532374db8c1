package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const (
	ExchangeEvents = "bloodlink.events"

	// QueueDonorNotifications feeds the SMS/push workers.
	QueueDonorNotifications = "bloodlink.donor_notifications"

	RouteDonorNotified    = "donor.notified"
	RouteRequestCreated   = "request.created"
	RouteRequestFulfilled = "request.fulfilled"
	RouteRequestCancelled = "request.cancelled"
)

var ErrClosed = errors.New("rabbitmq: client is closed")

const defaultPublishTimeout = 5 * time.Second

// Confirmation is the broker's answer to one publish.
type Confirmation interface {
	WaitContext(ctx context.Context) (bool, error)
}

// Channel is the part of an AMQP channel the client publishes through.
type Channel interface {
	PublishDeferred(ctx context.Context, exchange, key string, mandatory bool, msg amqp.Publishing) (Confirmation, error)
	Close() error
}

type amqpChannel struct {
	ch *amqp.Channel
}

func (a amqpChannel) PublishDeferred(ctx context.Context, exchange, key string, mandatory bool, msg amqp.Publishing) (Confirmation, error) {
	dc, err := a.ch.PublishWithDeferredConfirmWithContext(ctx, exchange, key, mandatory, false, msg)
	if err != nil {
		return nil, err
	}
	if dc == nil {
		return nil, errors.New("rabbitmq: channel is not in confirm mode")
	}
	return dc, nil
}

func (a amqpChannel) Close() error {
	return a.ch.Close()
}

// Client publishes JSON events with publisher confirms on one channel. Each
// publish waits for its own confirmation, so publishes may run concurrently.
type Client struct {
	logger *logrus.Logger

	conn io.Closer
	ch   Channel

	publishTimeout time.Duration

	mu     sync.RWMutex
	closed bool
}

func Dial(url string, logger *logrus.Logger) (*Client, error) {
	conn, err := amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(30 * time.Second),
	})
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial failed: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: failed to open channel: %w", err)
	}

	if err := declareTopology(ch); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: failed to declare topology: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: failed to enable confirms: %w", err)
	}

	returns := ch.NotifyReturn(make(chan amqp.Return, 1))
	go func() {
		for r := range returns {
			logger.WithFields(logrus.Fields{
				"exchange":    r.Exchange,
				"routing_key": r.RoutingKey,
				"reply_code":  r.ReplyCode,
			}).Warn("rabbitmq returned unroutable message")
		}
	}()

	logger.WithField("exchange", ExchangeEvents).Info("rabbitmq connected")

	return newClient(amqpChannel{ch: ch}, conn, logger), nil
}

func newClient(ch Channel, conn io.Closer, logger *logrus.Logger) *Client {
	return &Client{
		logger:         logger,
		conn:           conn,
		ch:             ch,
		publishTimeout: defaultPublishTimeout,
	}
}

func declareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(ExchangeEvents, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", ExchangeEvents, err)
	}

	if _, err := ch.QueueDeclare(QueueDonorNotifications, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", QueueDonorNotifications, err)
	}

	if err := ch.QueueBind(QueueDonorNotifications, RouteDonorNotified, ExchangeEvents, false, nil); err != nil {
		return fmt.Errorf("bind queue %s to %s: %w", QueueDonorNotifications, ExchangeEvents, err)
	}

	return nil
}

// PublishJSON marshals v and waits for the broker to confirm it.
func (c *Client) PublishJSON(ctx context.Context, routingKey string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", routingKey, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.publishTimeout)
	defer cancel()

	// donor notifications must land in a queue; the broker returns them otherwise
	mandatory := routingKey == RouteDonorNotified

	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return ErrClosed
	}
	conf, err := c.ch.PublishDeferred(ctx, ExchangeEvents, routingKey, mandatory, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Timestamp:    time.Now(),
		Body:         body,
	})
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", routingKey, err)
	}

	acked, err := conf.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("rabbitmq: no confirmation for %s: %w", routingKey, err)
	}
	if !acked {
		return fmt.Errorf("rabbitmq: %s not acknowledged", routingKey)
	}

	return nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	_ = c.ch.Close()
	return c.conn.Close()
}
