// Package amqp carries change events and alerts over a RabbitMQ topic
// exchange. Change events are routed change.<family>.<collection> and
// alerts alert.<family>.<kind>.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"familybudget/internal/core"
	"familybudget/internal/gateway"
	applog "familybudget/internal/log"
)

// Circuit breaker states.
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	maxBackoff     = 30 * time.Second
	publishTimeout = 5 * time.Second
	feedBuffer     = 64
)

var (
	_ gateway.ChangePublisher = (*Client)(nil)
	_ gateway.ChangeFeed      = (*Client)(nil)
)

type Client struct {
	url          string
	exchangeName string
	logger       *applog.Logger

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	state        int32
	failureCount int64
	lastFailure  time.Time
}

// NewClient dials url and declares the durable topic exchange.
func NewClient(url, exchangeName string) (*Client, error) {
	c := &Client{
		url:          url,
		exchangeName: exchangeName,
		logger:       applog.Default(applog.ComponentAMQP),
	}
	if _, err := c.ensureChannel(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) log() *applog.Logger {
	if c.logger == nil {
		return applog.Default(applog.ComponentAMQP)
	}
	return c.logger
}

// ensureChannel returns the publishing channel, reconnecting if the
// connection was lost.
func (c *Client) ensureChannel() (*amqp091.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil && !c.conn.IsClosed() && c.channel != nil && !c.channel.IsClosed() {
		return c.channel, nil
	}
	c.closeLocked()

	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declareExchange(channel, c.exchangeName); err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}
	c.conn = conn
	c.channel = channel
	return channel, nil
}

func declareExchange(ch *amqp091.Channel, name string) error {
	err := ch.ExchangeDeclare(
		name,    // name
		"topic", // type
		true,    // durable
		false,   // auto-deleted
		false,   // internal
		false,   // no-wait
		nil,     // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	return nil
}

// PublishChange implements gateway.ChangePublisher.
func (c *Client) PublishChange(ctx context.Context, ev gateway.ChangeEvent) error {
	body, err := NewChangeMessage(ev).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return c.publish(ctx, ChangeRoutingKey(ev.FamilyID, ev.Collection), body)
}

// PublishAlert publishes a raised alert for other family members.
func (c *Client) PublishAlert(ctx context.Context, a core.Alert) error {
	body, err := NewAlertMessage(a).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return c.publish(ctx, AlertRoutingKey(a.FamilyID, a.Kind), body)
}

func (c *Client) publish(ctx context.Context, routingKey string, body []byte) error {
	if c.isCircuitOpen() {
		return fmt.Errorf("circuit breaker is open, dropping message %s", routingKey)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	ch, err := c.ensureChannel()
	if err != nil {
		c.recordFailure()
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = ch.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		routingKey,     // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		c.recordFailure()
		if isConnectionError(err) {
			c.mu.Lock()
			c.closeLocked()
			c.mu.Unlock()
		}
		return fmt.Errorf("publish message: %w", err)
	}
	c.recordSuccess()

	c.log().DebugContext(ctx, "Published message",
		applog.FieldRoutingKey, routingKey,
		"exchange", c.exchangeName)
	return nil
}

// Subscribe implements gateway.ChangeFeed. Each call declares its own
// exclusive auto-delete queue bound to the family's change keys. The
// returned channel is closed once ctx is done; lost connections are
// re-established with exponential backoff in between.
func (c *Client) Subscribe(ctx context.Context, familyID string) (<-chan gateway.ChangeEvent, error) {
	deliveries, ch, err := c.consume(familyID)
	if err != nil {
		return nil, err
	}

	out := make(chan gateway.ChangeEvent, feedBuffer)
	go func() {
		defer close(out)
		attempt := 0
		for {
			if deliveries != nil {
				attempt = 0
				c.forward(ctx, deliveries, out)
				ch.Close()
			}
			if ctx.Err() != nil {
				return
			}

			c.log().WarnContext(ctx, "Change feed interrupted, resubscribing",
				applog.FieldFamilyID, familyID,
				"attempt", attempt)
			select {
			case <-ctx.Done():
				return
			case <-time.After(exponentialBackoff(attempt)):
			}
			attempt++

			deliveries, ch, err = c.consume(familyID)
			if err != nil {
				c.log().ErrorContext(ctx, "Resubscribe failed",
					applog.FieldFamilyID, familyID,
					applog.FieldError, err)
				deliveries = nil
			}
		}
	}()

	c.log().InfoContext(ctx, "Subscribed to change feed",
		applog.FieldFamilyID, familyID,
		applog.FieldRoutingKey, ChangeBindingKey(familyID))
	return out, nil
}

// consume opens a dedicated channel with a fresh queue bound to the
// family's change keys.
func (c *Client) consume(familyID string) (<-chan amqp091.Delivery, *amqp091.Channel, error) {
	if _, err := c.ensureChannel(); err != nil {
		return nil, nil, err
	}
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	ch, err := conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	q, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		return nil, nil, fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, ChangeBindingKey(familyID), c.exchangeName, false, nil); err != nil {
		ch.Close()
		return nil, nil, fmt.Errorf("bind queue: %w", err)
	}
	deliveries, err := ch.Consume(
		q.Name, // queue
		"",     // consumer
		true,   // auto-ack: consumers re-read state on each event
		true,   // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		ch.Close()
		return nil, nil, fmt.Errorf("start consuming: %w", err)
	}
	return deliveries, ch, nil
}

// forward decodes deliveries into out until ctx is done or the
// deliveries channel closes.
func (c *Client) forward(ctx context.Context, deliveries <-chan amqp091.Delivery, out chan<- gateway.ChangeEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			msg, err := ChangeMessageFromJSON(d.Body)
			if err != nil {
				c.log().ErrorContext(ctx, "Failed to unmarshal change message",
					applog.FieldRoutingKey, d.RoutingKey,
					applog.FieldError, err)
				continue
			}
			select {
			case out <- msg.Event():
			case <-ctx.Done():
				return
			}
		}
	}
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.mu.Lock()
	last := c.lastFailure
	c.mu.Unlock()
	if time.Since(last) > openTimeout {
		atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
		return false
	}
	return true
}

func (c *Client) recordFailure() {
	n := atomic.AddInt64(&c.failureCount, 1)
	c.mu.Lock()
	c.lastFailure = time.Now()
	c.mu.Unlock()
	if n >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

// exponentialBackoff doubles from one second, capped at maxBackoff.
func exponentialBackoff(attempt int) time.Duration {
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{"connection", "EOF", "broken pipe", "closed network"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (c *Client) closeLocked() {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	return nil
}
