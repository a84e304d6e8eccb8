package services

import (
	"context"
	"net/http"

	"hostel-portal/internal/apiclient"
	"hostel-portal/internal/models"
)

// Students covers the /api/student endpoints.
type Students struct {
	api Doer
}

func (s *Students) Profile(ctx context.Context) (*models.StudentProfile, error) {
	var out models.StudentProfile
	if err := s.api.Do(ctx, "/api/student/profile", apiclient.Request{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Students) UpdateProfile(ctx context.Context, req models.UpdateProfileRequest) (*models.StudentProfile, error) {
	var out models.StudentProfile
	err := s.api.Do(ctx, "/api/student/profile", apiclient.Request{Method: http.MethodPut, Body: req}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Apply submits room preferences. The backend allocates a room or rejects
// the application.
func (s *Students) Apply(ctx context.Context, prefs models.Preferences) (*models.ApplyResult, error) {
	var out models.ApplyResult
	err := s.api.Do(ctx, "/api/student/apply", apiclient.Request{Method: http.MethodPost, Body: prefs}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// MyBooking returns the student's current booking. The backend answers
// with an error when there is none.
func (s *Students) MyBooking(ctx context.Context) (*models.Booking, error) {
	var out models.Booking
	if err := s.api.Do(ctx, "/api/student/booking", apiclient.Request{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
