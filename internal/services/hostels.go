package services

import (
	"context"
	"fmt"
	"net/http"

	"hostel-portal/internal/apiclient"
	"hostel-portal/internal/models"
)

// Hostels covers /api/admin/hostels.
type Hostels struct {
	api Doer
}

func (s *Hostels) List(ctx context.Context) ([]models.Hostel, error) {
	var out []models.Hostel
	if err := s.api.Do(ctx, "/api/admin/hostels", apiclient.Request{}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListActive returns only hostels open for applications, in backend order.
func (s *Hostels) ListActive(ctx context.Context) ([]models.Hostel, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	active := make([]models.Hostel, 0, len(all))
	for _, h := range all {
		if h.Active {
			active = append(active, h)
		}
	}
	return active, nil
}

// Get finds a hostel by id in the listing. The backend has no single
// hostel endpoint.
func (s *Hostels) Get(ctx context.Context, id int64) (*models.Hostel, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID == id {
			return &all[i], nil
		}
	}
	return nil, fmt.Errorf("hostel %d: %w", id, ErrNotFound)
}

func (s *Hostels) Create(ctx context.Context, req models.UpsertHostelRequest) (*models.Hostel, error) {
	var out models.Hostel
	err := s.api.Do(ctx, "/api/admin/hostels", apiclient.Request{Method: http.MethodPost, Body: req}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Hostels) Update(ctx context.Context, id int64, req models.UpsertHostelRequest) (*models.Hostel, error) {
	var out models.Hostel
	path := fmt.Sprintf("/api/admin/hostels/%d", id)
	if err := s.api.Do(ctx, path, apiclient.Request{Method: http.MethodPut, Body: req}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetActive flips the active flag while keeping name and location.
func (s *Hostels) SetActive(ctx context.Context, h models.Hostel, active bool) (*models.Hostel, error) {
	return s.Update(ctx, h.ID, models.UpsertHostelRequest{
		Name:     h.Name,
		Location: h.Location,
		Active:   active,
	})
}
