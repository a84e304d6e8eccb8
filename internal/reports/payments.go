package reports

import (
	"github.com/shopspring/decimal"

	"hostel-portal/internal/models"
)

const (
	// AllPayments disables the payment status filter.
	AllPayments = "ALL"
	// NoPaymentStatus stands in for a missing payment status.
	NoPaymentStatus = "N/A"
)

// PaymentStatusOf returns the booking's payment status or N/A.
func PaymentStatusOf(b models.Booking) string {
	if b.PaymentStatus == "" {
		return NoPaymentStatus
	}
	return b.PaymentStatus
}

// FilterPayments keeps records whose payment status equals status.
func FilterPayments(records []models.Booking, status string) []models.Booking {
	if status == "" || status == AllPayments {
		return records
	}
	var out []models.Booking
	for _, b := range records {
		if PaymentStatusOf(b) == status {
			out = append(out, b)
		}
	}
	return out
}

// PaymentStatuses lists the distinct payment statuses in first-seen
// order, for the filter drop-down.
func PaymentStatuses(records []models.Booking) []string {
	seen := make(map[string]bool)
	var out []string
	for _, b := range records {
		s := PaymentStatusOf(b)
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// PaymentNotCreated is the summary status when no payment exists yet.
const PaymentNotCreated = "NOT_CREATED"

// PaymentSummary is what a student sees about paying for their booking.
type PaymentSummary struct {
	BookingID     int64
	BookingStatus models.BookingStatus
	Status        string
	Amount        decimal.NullDecimal
	DueAt         *models.Timestamp
}

// PaymentSummaryOf derives the payment card from the current booking.
// It returns nil when the student has no booking.
func PaymentSummaryOf(b *models.Booking) *PaymentSummary {
	if b == nil {
		return nil
	}
	s := &PaymentSummary{
		BookingID:     b.ID,
		BookingStatus: b.Status,
		Status:        b.PaymentStatus,
		Amount:        b.PaymentAmount,
		DueAt:         b.PaymentDueAt,
	}
	if s.Status == "" {
		s.Status = PaymentNotCreated
	}
	return s
}
