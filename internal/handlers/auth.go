package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"hostel-portal/internal/guard"
	"hostel-portal/internal/models"
	"hostel-portal/internal/session"
	"hostel-portal/internal/validate"
)

// LandingViewModel holds data for the landing page.
type LandingViewModel struct {
	Authenticated bool
	Home          string
}

// Landing renders the public front page.
func (h *Handlers) Landing(w http.ResponseWriter, r *http.Request) {
	st := h.state(r)
	h.render(w, r, "landing.html", LandingViewModel{
		Authenticated: st.Authenticated(),
		Home:          st.Role.Home(),
	})
}

// LoginViewModel holds data for the login page.
type LoginViewModel struct {
	Email string
	From  string
	Error string
}

// LoginForm renders the login page.
func (h *Handlers) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "login.html", LoginViewModel{From: guard.SafeReturn(r.URL.Query().Get("from"))})
}

// Login handles the login form submission.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, r, "login.html", LoginViewModel{Error: "Invalid form submission"})
		return
	}

	vm := LoginViewModel{
		Email: strings.TrimSpace(r.FormValue("email")),
		From:  guard.SafeReturn(r.FormValue("from")),
	}
	password := r.FormValue("password")
	if vm.Email == "" || password == "" {
		vm.Error = "Email and password are required"
		h.render(w, r, "login.html", vm)
		return
	}

	resp, err := h.signIn(w, r, func(s *session.Holder) (*models.AuthResponse, error) {
		return s.Login(r.Context(), vm.Email, password)
	})
	if err != nil {
		vm.Error = h.userMessage(err)
		h.render(w, r, "login.html", vm)
		return
	}

	h.logger.Info("signed in", "role", resp.Role)
	h.redirect(w, r, guard.ReturnTo(resp.Role, vm.From))
}

// RegisterViewModel holds data for the registration page.
type RegisterViewModel struct {
	Form    models.RegisterRequest
	Genders []models.Gender
	Error   string
}

// RegisterForm renders the registration page.
func (h *Handlers) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "register.html", RegisterViewModel{
		Form:    models.RegisterRequest{Gender: models.GenderMale},
		Genders: models.Genders,
	})
}

// Register handles the registration form submission.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	vm := RegisterViewModel{Genders: models.Genders}
	if err := r.ParseForm(); err != nil {
		vm.Error = "Invalid form submission"
		h.render(w, r, "register.html", vm)
		return
	}

	vm.Form = models.RegisterRequest{
		FullName: strings.TrimSpace(r.FormValue("fullName")),
		Email:    strings.TrimSpace(r.FormValue("email")),
		Phone:    strings.TrimSpace(r.FormValue("phone")),
		Gender:   models.Gender(r.FormValue("gender")),
		Password: r.FormValue("password"),
	}
	if err := validate.Registration(vm.Form, r.FormValue("confirmPassword")); err != nil {
		vm.Error = err.Error()
		vm.Form.Password = ""
		h.render(w, r, "register.html", vm)
		return
	}

	resp, err := h.signIn(w, r, func(s *session.Holder) (*models.AuthResponse, error) {
		return s.Register(r.Context(), vm.Form)
	})
	if err != nil {
		vm.Error = h.userMessage(err)
		vm.Form.Password = ""
		h.render(w, r, "register.html", vm)
		return
	}

	h.logger.Info("registered", "role", resp.Role)
	h.redirect(w, r, resp.Role.Home())
}

// errSessionStart is returned by signIn when the new session cannot be
// stored.
var errSessionStart = errors.New("start session")

// signIn authenticates a fresh holder that only carries the current
// theme, then moves the browser onto a new session id. The id the
// browser arrived with never holds a token.
func (h *Handlers) signIn(w http.ResponseWriter, r *http.Request, authenticate func(*session.Holder) (*models.AuthResponse, error)) (*models.AuthResponse, error) {
	b := browserFrom(r)
	fresh := h.sessions.Anonymous()
	if err := fresh.SetTheme(b.holder.Snapshot().Theme); err != nil {
		return nil, err
	}

	resp, err := authenticate(fresh)
	if err != nil {
		return nil, err
	}

	id, expiresAt, err := h.sessions.Rotate(b.id, fresh)
	if err != nil {
		h.logger.Error("rotate session", "error", err)
		return nil, errSessionStart
	}
	b.id, b.holder = id, fresh
	h.setSessionCookie(w, id, expiresAt)
	return resp, nil
}

// Logout forgets the session's token. The theme stays with the browser.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := browserFrom(r).holder.Logout(); err != nil {
		h.logger.Error("logout", "error", err)
	}
	h.redirect(w, r, guard.LoginPath)
}

// ToggleTheme switches between the light and dark theme and returns to
// the page the visitor was on.
func (h *Handlers) ToggleTheme(w http.ResponseWriter, r *http.Request) {
	b := browserFrom(r)
	if err := b.holder.SetTheme(b.holder.Snapshot().Theme.Toggle()); err != nil {
		h.logger.Error("save theme", "error", err)
	} else if b.id == "" {
		if err := h.rotate(w, r); err != nil {
			h.logger.Error("store theme", "error", err)
		}
	}

	back := "/"
	if ref, err := url.Parse(r.Referer()); err == nil && ref.Host == r.Host && strings.HasPrefix(ref.Path, "/") {
		back = ref.RequestURI()
	}
	h.redirect(w, r, back)
}
