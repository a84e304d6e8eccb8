package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BookingStatus is the backend-owned lifecycle state of a booking.
type BookingStatus string

const (
	StatusPendingPayment BookingStatus = "PENDING_PAYMENT"
	StatusApproved       BookingStatus = "APPROVED"
	StatusRejected       BookingStatus = "REJECTED"
	StatusExpired        BookingStatus = "EXPIRED"
	StatusCancelled      BookingStatus = "CANCELLED"

	// StatusUnknown buckets a missing or unrecognised status.
	StatusUnknown BookingStatus = "UNKNOWN"
)

// BookingStatuses lists the known statuses in lifecycle order.
var BookingStatuses = []BookingStatus{
	StatusPendingPayment, StatusApproved, StatusRejected, StatusExpired, StatusCancelled,
}

// Known reports whether s is one of the five lifecycle values.
func (s BookingStatus) Known() bool {
	for _, k := range BookingStatuses {
		if s == k {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further admin action is offered.
func (s BookingStatus) IsTerminal() bool {
	return s != StatusPendingPayment
}

// Label is the human form used by badges and exports, e.g. "PENDING PAYMENT".
func (s BookingStatus) Label() string {
	if s == "" {
		return string(StatusUnknown)
	}
	return strings.ReplaceAll(string(s), "_", " ")
}

// BadgeClass maps a status onto a style bucket. Unknown values fall back to
// the neutral bucket.
func (s BookingStatus) BadgeClass() string {
	switch s {
	case StatusPendingPayment:
		return "badge-warning"
	case StatusApproved:
		return "badge-success"
	case StatusRejected, StatusCancelled:
		return "badge-danger"
	case StatusExpired:
		return "badge-muted"
	default:
		return "badge-neutral"
	}
}

// Booking is the admin projection of a booking. The student endpoint
// returns a subset of the same fields.
type Booking struct {
	ID              int64               `json:"id"`
	Status          BookingStatus       `json:"status"`
	CreatedAt       *Timestamp          `json:"createdAt,omitempty"`
	SpecialRequests string              `json:"specialRequests,omitempty"`
	StudentID       *int64              `json:"studentId,omitempty"`
	StudentName     string              `json:"studentName,omitempty"`
	StudentEmail    string              `json:"studentEmail,omitempty"`
	HostelName      string              `json:"hostelName,omitempty"`
	RoomNumber      string              `json:"roomNumber,omitempty"`
	PaymentStatus   string              `json:"paymentStatus,omitempty"`
	PaymentAmount   decimal.NullDecimal `json:"paymentAmount"`
	PaymentDueAt    *Timestamp          `json:"paymentDueAt,omitempty"`
}

// HasPayment reports whether the booking carries any payment information.
func (b Booking) HasPayment() bool {
	return b.PaymentStatus != "" || b.PaymentAmount.Valid || b.PaymentDueAt != nil
}

// Preferences is the student application form. It only exists while the
// form is being submitted.
type Preferences struct {
	HostelID          int64        `json:"hostelId" validate:"required,gt=0"`
	PreferredCapacity int          `json:"preferredCapacity" validate:"min=1,max=10"`
	HasAC             bool         `json:"hasAc"`
	HasWifi           bool         `json:"hasWifi"`
	MattressType      MattressType `json:"mattressType" validate:"required,oneof=NORMAL QUEEN"`
	SpecialRequests   string       `json:"specialRequests,omitempty" validate:"max=500"`
}

// ApplyResult is returned by POST /api/student/apply.
type ApplyResult struct {
	ID           int64         `json:"id"`
	Status       BookingStatus `json:"status"`
	HostelName   string        `json:"hostelName,omitempty"`
	RoomNumber   string        `json:"roomNumber,omitempty"`
	PaymentDueAt *Timestamp    `json:"paymentDueAt,omitempty"`
}

// Succeeded reports whether the application produced a usable booking.
func (r ApplyResult) Succeeded() bool {
	return r.Status != StatusRejected
}

// StatusUpdate is the body of a booking status change.
type StatusUpdate struct {
	Status BookingStatus `json:"status"`
}

// Timestamp accepts both RFC 3339 values and the zone-less local date-times
// the backend emits.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	var err error
	for _, layout := range timestampLayouts {
		var parsed time.Time
		if parsed, err = time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return err
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.Time.Format(time.RFC3339) + `"`), nil
}

// Display renders the timestamp for tables. A nil timestamp renders as "-".
func (t *Timestamp) Display(layout string) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Time.Format(layout)
}
