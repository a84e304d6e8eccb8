// Package session owns the authentication state of a browser: the bearer
// token, the role and, for students, the cached profile. Nothing else in
// the portal reads or writes persisted auth state.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"hostel-portal/internal/apiclient"
	"hostel-portal/internal/models"
)

// AuthAPI issues tokens.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*models.AuthResponse, error)
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error)
}

// ProfileAPI loads the signed in student's profile.
type ProfileAPI interface {
	Profile(ctx context.Context) (*models.StudentProfile, error)
}

// Store persists the parts of a session that survive a restart.
type Store interface {
	SaveAuth(token string, role models.Role) error
	ClearAuth() error
	SaveTheme(theme models.Theme) error
}

// Deps are shared by every holder.
type Deps struct {
	Auth     AuthAPI
	Profiles ProfileAPI
	Logger   *slog.Logger
	// LoadTimeout bounds the background profile load of a restored session.
	LoadTimeout time.Duration
}

// Persisted is what a Store hands back when a session is restored.
type Persisted struct {
	Token string
	Role  models.Role
	Theme models.Theme
}

// State is a point-in-time copy of a holder.
type State struct {
	Token   string
	Role    models.Role
	Profile *models.StudentProfile
	Loading bool
	Theme   models.Theme
}

// Authenticated reports whether a token is present.
func (s State) Authenticated() bool { return s.Token != "" }

// Holder is the auth state of one browser.
type Holder struct {
	deps  Deps
	store Store

	mu      sync.RWMutex
	token   string
	role    models.Role
	profile *models.StudentProfile
	theme   models.Theme
	pending int
	ready   chan struct{}
}

// NewHolder restores a holder from persisted state. A restored student
// session starts loading its profile in the background; anything else is
// ready immediately.
func NewHolder(deps Deps, store Store, p Persisted) *Holder {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.LoadTimeout <= 0 {
		deps.LoadTimeout = 10 * time.Second
	}
	if p.Theme == "" {
		p.Theme = models.ThemeLight
	}

	h := &Holder{
		deps:  deps,
		store: store,
		token: p.Token,
		role:  p.Role,
		theme: p.Theme,
		ready: make(chan struct{}),
	}

	if h.token != "" && h.role == models.RoleStudent {
		h.pending = 1
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), deps.LoadTimeout)
			defer cancel()
			h.fetchProfile(ctx, h.token)
		}()
	} else {
		close(h.ready)
	}
	return h
}

// Snapshot returns the current state.
func (h *Holder) Snapshot() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return State{
		Token:   h.token,
		Role:    h.role,
		Profile: h.profile,
		Loading: h.pending > 0,
		Theme:   h.theme,
	}
}

// Context attaches the holder's bearer token to ctx for API calls.
func (h *Holder) Context(ctx context.Context) context.Context {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return apiclient.WithToken(ctx, h.token)
}

// Wait blocks until no profile load is in flight or ctx is done, and
// returns the state at that point.
func (h *Holder) Wait(ctx context.Context) State {
	h.mu.RLock()
	ready := h.ready
	h.mu.RUnlock()

	select {
	case <-ready:
	case <-ctx.Done():
	}
	return h.Snapshot()
}

// Login authenticates against the backend. On failure the error is
// returned as-is and neither memory nor the store is touched.
func (h *Holder) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	resp, err := h.deps.Auth.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := h.signIn(ctx, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Register creates an account and signs it in, with the same contract
// as Login.
func (h *Holder) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	resp, err := h.deps.Auth.Register(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := h.signIn(ctx, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (h *Holder) signIn(ctx context.Context, resp *models.AuthResponse) error {
	if err := h.currentStore().SaveAuth(resp.Token, resp.Role); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	h.mu.Lock()
	h.token = resp.Token
	h.role = resp.Role
	h.profile = nil
	h.mu.Unlock()

	if resp.Role == models.RoleStudent {
		h.LoadProfile(ctx)
	}
	return nil
}

// Logout forgets the token, role and profile in memory and in the store.
// The backend is not called.
func (h *Holder) Logout() error {
	h.mu.Lock()
	h.clearLocked()
	h.mu.Unlock()
	return h.currentStore().ClearAuth()
}

func (h *Holder) clearLocked() {
	h.token = ""
	h.role = ""
	h.profile = nil
}

// LoadProfile fetches the student profile with the current token. A
// failure means the session is no longer valid: it is logged and the
// holder logs out. The error never reaches the caller.
func (h *Holder) LoadProfile(ctx context.Context) {
	h.mu.Lock()
	token := h.token
	if token == "" {
		h.mu.Unlock()
		return
	}
	if h.pending == 0 {
		h.ready = make(chan struct{})
	}
	h.pending++
	h.mu.Unlock()

	h.fetchProfile(ctx, token)
}

// fetchProfile expects pending to have been incremented for it.
func (h *Holder) fetchProfile(ctx context.Context, token string) {
	profile, err := h.deps.Profiles.Profile(apiclient.WithToken(ctx, token))

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.token == token {
		if err != nil {
			h.deps.Logger.Warn("profile load failed, signing out", "error", err)
			h.clearLocked()
			if cerr := h.store.ClearAuth(); cerr != nil {
				h.deps.Logger.Error("clear session", "error", cerr)
			}
		} else {
			h.profile = profile
		}
	}

	h.pending--
	if h.pending == 0 {
		close(h.ready)
	}
}

// SetProfile replaces the cached profile after a successful update.
func (h *Holder) SetProfile(p *models.StudentProfile) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.token != "" {
		h.profile = p
	}
}

// SetTheme stores the theme preference.
func (h *Holder) SetTheme(theme models.Theme) error {
	if err := h.currentStore().SaveTheme(theme); err != nil {
		return err
	}
	h.mu.Lock()
	h.theme = theme
	h.mu.Unlock()
	return nil
}

func (h *Holder) currentStore() Store {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.store
}

// rebind points later writes at s. The caller has already copied the
// current state into it.
func (h *Holder) rebind(s Store) {
	h.mu.Lock()
	h.store = s
	h.mu.Unlock()
}
