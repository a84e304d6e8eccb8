// Package services wraps each backend resource in a small typed API.
// None of them hold state: the bearer token travels in the context.
package services

import (
	"context"
	"errors"

	"hostel-portal/internal/apiclient"
)

// ErrNotFound is returned when a lookup over a listing finds nothing.
var ErrNotFound = errors.New("not found")

// Doer is the subset of the API client the services rely on.
type Doer interface {
	Do(ctx context.Context, path string, req apiclient.Request, out any) error
}

// Set bundles one service per resource.
type Set struct {
	Auth     *Auth
	Students *Students
	Hostels  *Hostels
	Rooms    *Rooms
	Bookings *Bookings
	Payments *Payments
}

// NewSet builds every service over the same client. statusMethod is the
// HTTP method used for booking status updates.
func NewSet(c Doer, statusMethod string) *Set {
	bookings := &Bookings{api: c, statusMethod: statusMethod}
	return &Set{
		Auth:     &Auth{api: c},
		Students: &Students{api: c},
		Hostels:  &Hostels{api: c},
		Rooms:    &Rooms{api: c},
		Bookings: bookings,
		Payments: &Payments{bookings: bookings},
	}
}
