package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"hostel-portal/internal/audit"
	"hostel-portal/internal/models"
)

// ErrInFlight is returned when the same row already has a request
// outstanding for the same browser.
var ErrInFlight = errors.New("a status change for this booking is already in progress")

// BookingAPI is the backend surface the processor needs.
type BookingAPI interface {
	List(ctx context.Context) ([]models.Booking, error)
	UpdateStatus(ctx context.Context, id int64, status models.BookingStatus) (*models.Booking, error)
}

type rowKey struct {
	owner string
	id    int64
}

// Processor sends status changes and reloads the authoritative list.
// It never updates local state optimistically and never retries.
type Processor struct {
	api    BookingAPI
	audit  audit.Publisher
	logger *slog.Logger

	mu       sync.Mutex
	inFlight map[rowKey]struct{}
}

// NewProcessor returns a processor. A nil publisher drops audit events.
func NewProcessor(api BookingAPI, pub audit.Publisher, logger *slog.Logger) *Processor {
	if pub == nil {
		pub = audit.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{api: api, audit: pub, logger: logger, inFlight: make(map[rowKey]struct{})}
}

// Request is one admin click. Owner scopes the in-flight guard, normally
// the browser session id, and is never published. Actor is what the
// audit event records.
type Request struct {
	Owner  string
	Actor  string
	ID     int64
	Action Action
}

// Apply sends req to the backend and returns the re-fetched booking
// list. A second request for the same owner and booking while the first
// is outstanding fails with ErrInFlight; other rows and other owners are
// not serialised.
func (p *Processor) Apply(ctx context.Context, req Request) ([]models.Booking, error) {
	id, action := req.ID, req.Action
	key := rowKey{owner: req.Owner, id: id}
	if !p.begin(key) {
		return nil, ErrInFlight
	}
	defer p.end(key)

	if _, err := p.api.UpdateStatus(ctx, id, action.Target); err != nil {
		return nil, err
	}

	p.logger.Info("booking status changed", "booking_id", id, "action", action.Name, "status", action.Target)
	if err := p.audit.Publish(ctx, audit.NewEvent(id, action.Name, string(action.Target), req.Actor)); err != nil {
		p.logger.Warn("audit publish failed", "booking_id", id, "error", err)
	}

	bookings, err := p.api.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("reload bookings: %w", err)
	}
	return bookings, nil
}

// Processing reports whether a request is outstanding for the row.
func (p *Processor) Processing(owner string, id int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.inFlight[rowKey{owner: owner, id: id}]
	return ok
}

func (p *Processor) begin(key rowKey) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.inFlight[key]; busy {
		return false
	}
	p.inFlight[key] = struct{}{}
	return true
}

func (p *Processor) end(key rowKey) {
	p.mu.Lock()
	delete(p.inFlight, key)
	p.mu.Unlock()
}
