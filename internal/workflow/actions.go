// Package workflow runs admin status transitions on bookings.
package workflow

import "hostel-portal/internal/models"

// Action is an admin request to move a booking to a terminal status.
type Action struct {
	Name   string
	Label  string
	Target models.BookingStatus
	Style  string
}

// Deny-style actions are kept apart: rejecting an application and
// cancelling an unpaid payment end in different statuses.
var (
	Approve        = Action{Name: "approve", Label: "Approve", Target: models.StatusApproved, Style: "btn-success"}
	Reject         = Action{Name: "reject", Label: "Reject", Target: models.StatusRejected, Style: "btn-danger"}
	ConfirmPayment = Action{Name: "confirm", Label: "Confirm payment", Target: models.StatusApproved, Style: "btn-success"}
	CancelPayment  = Action{Name: "cancel", Label: "Cancel payment", Target: models.StatusCancelled, Style: "btn-danger"}
)

// Screen identifies the admin page offering the actions.
type Screen string

const (
	BookingsScreen Screen = "bookings"
	PaymentsScreen Screen = "payments"
)

var screenActions = map[Screen][]Action{
	BookingsScreen: {Approve, Reject},
	PaymentsScreen: {ConfirmPayment, CancelPayment},
}

// ActionsFor returns the buttons shown for a booking row. Only bookings
// awaiting payment have any.
func ActionsFor(screen Screen, status models.BookingStatus) []Action {
	if status != models.StatusPendingPayment {
		return nil
	}
	return screenActions[screen]
}

// Lookup finds an action offered by screen.
func Lookup(screen Screen, name string) (Action, bool) {
	for _, a := range screenActions[screen] {
		if a.Name == name {
			return a, true
		}
	}
	return Action{}, false
}

// LookupAny searches every screen. The CLI uses it.
func LookupAny(name string) (Action, bool) {
	for _, screen := range []Screen{BookingsScreen, PaymentsScreen} {
		if a, ok := Lookup(screen, name); ok {
			return a, true
		}
	}
	return Action{}, false
}
