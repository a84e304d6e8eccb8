package services

import (
	"context"
	"net/http"

	"hostel-portal/internal/apiclient"
	"hostel-portal/internal/models"
)

// Auth calls the unauthenticated auth endpoints.
type Auth struct {
	api Doer
}

// Login exchanges credentials for a token and role.
func (s *Auth) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	var out models.AuthResponse
	err := s.api.Do(ctx, "/api/auth/login", apiclient.Request{
		Method: http.MethodPost,
		Body:   models.LoginRequest{Email: email, Password: password},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates a student account and signs it in.
func (s *Auth) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	var out models.AuthResponse
	err := s.api.Do(ctx, "/api/auth/register", apiclient.Request{
		Method: http.MethodPost,
		Body:   req,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
