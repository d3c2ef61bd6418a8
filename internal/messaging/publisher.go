// Package messaging publishes booking lifecycle events to RabbitMQ.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Routing keys
const (
	BookingConfirmed = "booking.confirmed"
	BookingRefunded  = "booking.refunded"
	BookingCancelled = "booking.cancelled"
	TicketRedeemed   = "ticket.redeemed"
)

// Envelope wraps every published payload
type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type Publisher struct {
	conn     *amqp.Connection
	ch       channel
	exchange string
	now      func() time.Time
}

func NewPublisher(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &Publisher{conn: conn, ch: ch, exchange: exchange, now: time.Now}, nil
}

// PublishJSON wraps v in an Envelope and publishes it with routing key key
func (p *Publisher) PublishJSON(ctx context.Context, key string, v any) error {
	msg, err := p.envelope(key, v)
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx, p.exchange, key, false, false, msg)
}

func (p *Publisher) envelope(key string, v any) (amqp.Publishing, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal %s payload: %w", key, err)
	}
	env := Envelope{
		ID:         uuid.NewString(),
		Type:       key,
		OccurredAt: p.now().UTC(),
		Data:       data,
	}
	body, err := json.Marshal(env)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal envelope: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    env.ID,
		Timestamp:    env.OccurredAt,
		Type:         key,
		Body:         body,
	}, nil
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// NopPublisher drops every message. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishJSON(context.Context, string, any) error { return nil }

func (NopPublisher) Close() error { return nil }
