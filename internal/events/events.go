// Package events publishes booking events to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/m3rciful/eventbot/core/logger"
)

// DefaultQueue receives booking confirmations.
const DefaultQueue = "booking.confirmed"

// BookingConfirmed is emitted after a booking is stored.
type BookingConfirmed struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	Tour      string    `json:"tour"`
	UserName  string    `json:"user_name"`
	CreatedAt time.Time `json:"created_at"`
}

// NewBookingConfirmed fills ID and CreatedAt.
func NewBookingConfirmed(userID int64, tour, userName string) BookingConfirmed {
	return BookingConfirmed{
		ID:        uuid.NewString(),
		UserID:    userID,
		Tour:      tour,
		UserName:  userName,
		CreatedAt: time.Now().UTC(),
	}
}

// Publisher delivers booking events. Failures are reported, never fatal to the caller.
type Publisher interface {
	PublishBookingConfirmed(ctx context.Context, ev BookingConfirmed) error
}

// Nop discards events.
type Nop struct{}

// PublishBookingConfirmed does nothing.
func (Nop) PublishBookingConfirmed(context.Context, BookingConfirmed) error { return nil }

// AMQP publishes to a durable queue on the default exchange.
type AMQP struct {
	url   string
	queue string
	dial  func(url string) (*amqp.Connection, error)
}

// NewAMQP returns a publisher for url. An empty queue selects DefaultQueue.
func NewAMQP(url, queue string) *AMQP {
	if queue == "" {
		queue = DefaultQueue
	}
	return &AMQP{url: url, queue: queue, dial: amqp.Dial}
}

// PublishBookingConfirmed sends ev as a persistent JSON message.
func (p *AMQP) PublishBookingConfirmed(ctx context.Context, ev BookingConfirmed) error {
	start := time.Now()
	err := p.publish(ctx, ev)
	attrs := []slog.Attr{
		slog.String("queue", p.queue),
		slog.String("job_id", ev.ID),
		slog.String("tour", ev.Tour),
		slog.Duration("duration_ms", logger.RoundMS(logger.Took(start))),
	}
	if err != nil {
		attrs = append(attrs, slog.String("status", "fail"), slog.Any("err", err))
		logger.LogEvent(ctx, logger.Events, slog.LevelWarn, "events.publish", attrs...)
		return err
	}
	attrs = append(attrs, slog.String("status", "ok"))
	logger.LogEvent(ctx, logger.Events, slog.LevelInfo, "events.publish", attrs...)
	return nil
}

func (p *AMQP) publish(ctx context.Context, ev BookingConfirmed) error {
	msg, err := publishing(ev)
	if err != nil {
		return err
	}
	conn, err := p.dial(p.url)
	if err != nil {
		return fmt.Errorf("amqp dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("amqp channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("amqp declare %s: %w", p.queue, err)
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		return fmt.Errorf("amqp publish %s: %w", p.queue, err)
	}
	return nil
}

func publishing(ev BookingConfirmed) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Timestamp:    time.Now().UTC(),
		Type:         "booking.confirmed",
		Body:         body,
	}, nil
}
