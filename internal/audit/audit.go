// Package audit publishes admin actions to RabbitMQ.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultQueue receives booking status events.
const DefaultQueue = "hostel.booking.status"

// Event records one status change requested through the portal.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	BookingID  int64     `json:"bookingId"`
	Action     string    `json:"action"`
	Status     string    `json:"status"`
	Actor      string    `json:"actor,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(bookingID int64, action, status, actor string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       "booking.status_changed",
		BookingID:  bookingID,
		Action:     action,
		Status:     status,
		Actor:      actor,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher sends events somewhere durable.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop drops every event. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// AMQPPublisher dials the broker for every event. Admin actions are rare
// enough that a long-lived connection is not worth its reconnect logic.
type AMQPPublisher struct {
	URL    string
	Queue  string
	Logger *slog.Logger
}

// NewAMQPPublisher returns a publisher for url, or Nop when url is empty.
func NewAMQPPublisher(url, queue string, logger *slog.Logger) Publisher {
	if url == "" {
		return Nop{}
	}
	if queue == "" {
		queue = DefaultQueue
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AMQPPublisher{URL: url, Queue: queue, Logger: logger}
}

// Publish declares the durable queue and sends e as a persistent message.
// Errors are logged and returned; callers normally ignore them.
func (p *AMQPPublisher) Publish(ctx context.Context, e Event) error {
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		p.Logger.Warn("audit: dial failed", "error", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.Logger.Warn("audit: channel open failed", "error", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.Queue, true, false, false, false, nil); err != nil {
		p.Logger.Warn("audit: queue declare failed", "queue", p.Queue, "error", err)
		return err
	}

	body, err := Encode(e)
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(ctx, "", p.Queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    e.ID,
		Timestamp:    e.OccurredAt,
		Type:         e.Type,
		Body:         body,
	})
	if err != nil {
		p.Logger.Warn("audit: publish failed", "queue", p.Queue, "error", err)
		return err
	}
	return nil
}

// Encode serialises an event the way it is put on the wire.
func Encode(e Event) ([]byte, error) {
	return json.Marshal(e)
}

// Recorder keeps events in memory for tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Events returns a copy of what was published.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
