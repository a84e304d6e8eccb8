package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"hostel-portal/internal/apiclient"
	"hostel-portal/internal/models"
)

// Bookings covers /api/admin/bookings.
type Bookings struct {
	api          Doer
	statusMethod string
}

func (s *Bookings) List(ctx context.Context) ([]models.Booking, error) {
	var out []models.Booking
	if err := s.api.Do(ctx, "/api/admin/bookings", apiclient.Request{}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateStatus asks the backend to move a booking to status. The backend
// decides whether the transition is allowed.
func (s *Bookings) UpdateStatus(ctx context.Context, id int64, status models.BookingStatus) (*models.Booking, error) {
	var out models.Booking
	path := fmt.Sprintf("/api/admin/bookings/%d/status", id)
	err := s.api.Do(ctx, path, apiclient.Request{
		Method: StatusMethod(s.statusMethod),
		Body:   models.StatusUpdate{Status: status},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// StatusMethod normalises the configured status-update method. Only PUT
// and PATCH are accepted, PATCH being the default.
func StatusMethod(m string) string {
	if strings.EqualFold(m, http.MethodPut) {
		return http.MethodPut
	}
	return http.MethodPatch
}
