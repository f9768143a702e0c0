package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"sft-ticketing-backend/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

const ExchangeKind = "topic"

// Publisher emits domain events such as ticket.sold. Publishing happens after
// a commit, so callers log failures instead of returning them.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload interface{}) error
}

// Message is the envelope every domain event is wrapped in.
type Message struct {
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQP publishes JSON messages to a topic exchange.
type AMQP struct {
	exchange string

	mu      sync.Mutex
	conn    *amqp.Connection
	channel channel
}

func NewPublisher(url, exchange string) (*AMQP, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("newPublisher: rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("newPublisher: rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, ExchangeKind, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("newPublisher: rabbitmq exchange declare: %w", err)
	}

	return &AMQP{exchange: exchange, conn: conn, channel: ch}, nil
}

func (p *AMQP) Publish(ctx context.Context, routingKey string, payload interface{}) error {
	body, err := json.Marshal(Message{Type: routingKey, OccurredAt: time.Now().UTC(), Data: payload})
	if err != nil {
		return fmt.Errorf("publish: marshal payload: %w", err)
	}

	// amqp channels are not safe for concurrent publishing.
	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish: %s/%s: %w", p.exchange, routingKey, err)
	}

	logger.Debugf(ctx, "publish: published to %s/%s", p.exchange, routingKey)
	return nil
}

func (p *AMQP) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// Nop drops every message. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, interface{}) error { return nil }

// Notify publishes and logs a failure. A nil publisher is a no-op.
func Notify(ctx context.Context, p Publisher, routingKey string, payload interface{}) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, routingKey, payload); err != nil {
		logger.Warnf(ctx, "notify: unable to publish %s: %v", routingKey, err)
	}
}
