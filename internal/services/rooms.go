package services

import (
	"context"
	"net/http"

	"hostel-portal/internal/apiclient"
	"hostel-portal/internal/models"
)

// Rooms covers /api/admin/rooms.
type Rooms struct {
	api Doer
}

func (s *Rooms) List(ctx context.Context) ([]models.Room, error) {
	var out []models.Room
	if err := s.api.Do(ctx, "/api/admin/rooms", apiclient.Request{}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Rooms) Create(ctx context.Context, req models.CreateRoomRequest) (*models.Room, error) {
	var out models.Room
	err := s.api.Do(ctx, "/api/admin/rooms", apiclient.Request{Method: http.MethodPost, Body: req}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
