package services

import (
	"context"

	"hostel-portal/internal/models"
)

// Payments has no endpoints of its own. Payment records are the bookings
// that carry payment details, and confirming or cancelling a payment is a
// booking status change.
type Payments struct {
	bookings *Bookings
}

// ListRecords returns the bookings that carry payment information.
func (s *Payments) ListRecords(ctx context.Context) ([]models.Booking, error) {
	all, err := s.bookings.List(ctx)
	if err != nil {
		return nil, err
	}
	records := make([]models.Booking, 0, len(all))
	for _, b := range all {
		if b.HasPayment() {
			records = append(records, b)
		}
	}
	return records, nil
}

// Confirm marks the booking as paid.
func (s *Payments) Confirm(ctx context.Context, id int64) (*models.Booking, error) {
	return s.bookings.UpdateStatus(ctx, id, models.StatusApproved)
}

// Cancel cancels the booking behind an unpaid payment.
func (s *Payments) Cancel(ctx context.Context, id int64) (*models.Booking, error) {
	return s.bookings.UpdateStatus(ctx, id, models.StatusCancelled)
}
