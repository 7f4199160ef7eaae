// Package events publishes billing events to RabbitMQ for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloo-solutions/askbase/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Channel is the subset of *amqp.Channel used for publishing
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// ChannelOpener hands out a fresh channel per publish
type ChannelOpener interface {
	Channel() (Channel, error)
}

type connOpener struct {
	conn *amqp.Connection
}

func (o connOpener) Channel() (Channel, error) {
	ch, err := o.conn.Channel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// Dial connects to the broker and verifies a channel can be opened.
func Dial(ctx context.Context, url string) (*amqp.Connection, error) {
	conn, err := amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(5 * time.Second),
	})
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}
	_ = ch.Close()

	if err := ctx.Err(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

// AMQPPublisher writes billing events as persistent JSON messages to a durable queue
type AMQPPublisher struct {
	opener    ChannelOpener
	queueName string
}

// NewAMQPPublisher creates a publisher on an open connection
func NewAMQPPublisher(conn *amqp.Connection, queueName string) *AMQPPublisher {
	return NewAMQPPublisherWithOpener(connOpener{conn: conn}, queueName)
}

// NewAMQPPublisherWithOpener creates a publisher over any channel source
func NewAMQPPublisherWithOpener(opener ChannelOpener, queueName string) *AMQPPublisher {
	return &AMQPPublisher{opener: opener, queueName: queueName}
}

// Publish sends one billing event. The event type doubles as the AMQP message type.
func (p *AMQPPublisher) Publish(ctx context.Context, e *domain.BillingEvent) error {
	if e == nil {
		return fmt.Errorf("billing event cannot be nil")
	}

	ch, err := p.opener.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel: %w", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(p.queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", p.queueName, err)
	}

	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal billing event: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    e.ID,
		Type:         e.EventType,
		Timestamp:    e.CreatedAt,
		Headers:      amqp.Table{"tenant_id": e.TenantID},
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queueName, false, false, msg); err != nil {
		return fmt.Errorf("publish billing event %s: %w", e.ID, err)
	}
	return nil
}
