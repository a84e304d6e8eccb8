package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"
	"github.com/shopspring/decimal"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"hostel-portal/internal/apiclient"
	"hostel-portal/internal/metrics"
	"hostel-portal/internal/models"
	"hostel-portal/internal/ratelimit"
	"hostel-portal/internal/services"
	"hostel-portal/internal/session"
	"hostel-portal/internal/validate"
	"hostel-portal/internal/workflow"
)

type contextKey string

const (
	browserContextKey contextKey = "browser"
	// SessionCookieName is the name of the browser session cookie.
	SessionCookieName = "session"
)

const dateTimeLayout = "02 Jan 2006 15:04"

// Raw HTML in markdown input is escaped; WithUnsafe is not set.
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// Options are the dependencies of the web handlers.
type Options struct {
	Sessions    *session.Manager
	Services    *services.Set
	Processor   *workflow.Processor
	Metrics     *metrics.Metrics
	Limiter     *ratelimit.Limiter
	Logger      *slog.Logger
	TemplateDir string
	// SecureCookie sets the Secure flag on the session cookie.
	SecureCookie bool
	// ProfileWait bounds how long a guarded page waits for a restored
	// profile before rendering the loading page.
	ProfileWait time.Duration
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	sessions     *session.Manager
	api          *services.Set
	processor    *workflow.Processor
	metrics      *metrics.Metrics
	limiter      *ratelimit.Limiter
	logger       *slog.Logger
	templateDir  string
	secureCookie bool
	profileWait  time.Duration
	now          func() time.Time
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(opts Options) *Handlers {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.New(nil, ratelimit.Config{}, opts.Logger)
	}
	if opts.Processor == nil {
		opts.Processor = workflow.NewProcessor(opts.Services.Bookings, nil, opts.Logger)
	}
	if opts.ProfileWait <= 0 {
		opts.ProfileWait = 2 * time.Second
	}
	return &Handlers{
		sessions:     opts.Sessions,
		api:          opts.Services,
		processor:    opts.Processor,
		metrics:      opts.Metrics,
		limiter:      opts.Limiter,
		logger:       opts.Logger,
		templateDir:  opts.TemplateDir,
		secureCookie: opts.SecureCookie,
		profileWait:  opts.ProfileWait,
		now:          time.Now,
	}
}

// Mount registers every page on r.
func (h *Handlers) Mount(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.Session)

		r.Get("/", h.Landing)
		r.Post("/theme", h.ToggleTheme)
		r.Post("/logout", h.Logout)

		r.Group(func(r chi.Router) {
			r.Use(h.Public)
			r.Use(h.limiter.Middleware([]string{http.MethodPost}, h.tooManyRequests))
			r.Get("/login", h.LoginForm)
			r.Post("/login", h.Login)
			r.Get("/register", h.RegisterForm)
			r.Post("/register", h.Register)
		})

		r.Route("/student", func(r chi.Router) {
			r.Use(h.Protected("student", models.RoleStudent))
			r.Get("/", h.StudentDashboard)
			r.Get("/apply", h.ApplyForm)
			r.Post("/apply", h.Apply)
			r.Get("/booking", h.MyBooking)
			r.Get("/payments", h.MyPayments)
			r.Get("/preferences", h.PreferencesGuide)
			r.Get("/profile", h.ProfileForm)
			r.Post("/profile", h.UpdateProfile)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.Protected("admin", models.RoleAdmin))
			r.Get("/", h.AdminDashboard)
			r.Get("/hostels", h.ListHostels)
			r.Post("/hostels", h.CreateHostel)
			r.Get("/hostels/{id}/edit", h.EditHostelForm)
			r.Post("/hostels/{id}", h.UpdateHostel)
			r.Post("/hostels/{id}/toggle", h.ToggleHostel)
			r.Get("/rooms", h.ListRooms)
			r.Post("/rooms", h.CreateRoom)
			r.Get("/bookings", h.ListBookings)
			r.Post("/bookings/{id}/{action}", h.BookingAction)
			r.Get("/payments", h.ListPayments)
			r.Post("/payments/{id}/{action}", h.PaymentAction)
			r.Get("/students", h.ListStudents)
			r.Get("/reports", h.Reports)
			r.Get("/reports/export.csv", h.ExportCSV)
			r.Get("/reports/print", h.PrintReport)
		})
	})
}

// browser is the per-request view of the visitor's session.
type browser struct {
	id     string
	holder *session.Holder
}

func browserFrom(r *http.Request) *browser {
	if b, ok := r.Context().Value(browserContextKey).(*browser); ok {
		return b
	}
	return nil
}

// apiContext carries the session's bearer token to the services.
func apiContext(r *http.Request) context.Context {
	if b := browserFrom(r); b != nil {
		return b.holder.Context(r.Context())
	}
	return r.Context()
}

func (h *Handlers) state(r *http.Request) session.State {
	if b := browserFrom(r); b != nil {
		return b.holder.Snapshot()
	}
	return session.State{Theme: models.ThemeLight}
}

// userMessage turns an error into something a visitor can read. Backend
// messages are shown verbatim; anything else is logged and replaced.
func (h *Handlers) userMessage(err error) string {
	var apiErr *apiclient.Error
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Message
	case errors.Is(err, workflow.ErrInFlight):
		return err.Error()
	case errors.Is(err, errSessionStart):
		return "Could not start your session. Please try again."
	case errors.Is(err, context.DeadlineExceeded):
		h.logger.Warn("backend timeout", "error", err)
		return "The server took too long to answer. Please try again."
	default:
		h.logger.Error("backend request failed", "error", err)
		return "Unable to reach the server. Please try again."
	}
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// redirect sends the browser to location. htmx requests get HX-Redirect so
// the whole page, navigation included, is reloaded.
func (h *Handlers) redirect(w http.ResponseWriter, r *http.Request, location string) {
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", location)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, location, http.StatusFound)
}

// done finishes a successful mutation by showing path. htmx swaps the
// content area only.
func (h *Handlers) done(w http.ResponseWriter, r *http.Request, path string) {
	if isHTMX(r) {
		loc, _ := json.Marshal(map[string]string{"path": path, "target": "#content"})
		w.Header().Set("HX-Location", string(loc))
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

func (h *Handlers) tooManyRequests(w http.ResponseWriter, r *http.Request, _ time.Duration) {
	h.renderStatus(w, r, http.StatusTooManyRequests, "error.html", ErrorViewModel{
		Title:   "Too many attempts",
		Message: "Please wait a moment before trying again.",
	})
}

// ErrorViewModel holds data for the error page.
type ErrorViewModel struct {
	Title   string
	Message string
}

func (h *Handlers) funcMap(r *http.Request) template.FuncMap {
	st := h.state(r)
	return template.FuncMap{
		"csrfField":    func() template.HTML { return csrf.TemplateField(r) },
		"csrfToken":    func() string { return csrf.Token(r) },
		"currentRole":  func() string { return string(st.Role) },
		"isLoggedIn":   func() bool { return st.Authenticated() },
		"currentTheme": func() string { return string(st.Theme) },
		"currentPath":  func() string { return r.URL.Path },
		"profile":      func() *models.StudentProfile { return st.Profile },
		"dateTime":     func(t *models.Timestamp) string { return t.Display(dateTimeLayout) },
		"date":         func(t *models.Timestamp) string { return t.Display("02 Jan 2006") },
		"money":        func(d decimal.Decimal) string { return d.StringFixed(2) },
		"nullMoney":    nullMoney,
		"orDash":       orDash,
		"imageURL":     imageURL,
		"renderMarkdown": func(md string) template.HTML {
			var buf bytes.Buffer
			if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
				return template.HTML(template.HTMLEscapeString(md))
			}
			return template.HTML(buf.String())
		},
	}
}

func nullMoney(d decimal.NullDecimal) string {
	if !d.Valid {
		return "-"
	}
	return d.Decimal.StringFixed(2)
}

// imageURL passes profile images that validate, data URLs included, to
// src attributes.
func imageURL(s string) template.URL {
	if s == "" || validate.ProfileImageURL(s) != nil {
		return ""
	}
	return template.URL(s)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// render writes view inside base.html, or only its content block for htmx.
func (h *Handlers) render(w http.ResponseWriter, r *http.Request, viewName string, data any) {
	h.renderStatus(w, r, http.StatusOK, viewName, data)
}

func (h *Handlers) renderStatus(w http.ResponseWriter, r *http.Request, status int, viewName string, data any) {
	tmpl, err := template.New("base.html").Funcs(h.funcMap(r)).ParseFiles(
		filepath.Join(h.templateDir, "base.html"),
		filepath.Join(h.templateDir, viewName),
	)
	if err != nil {
		h.logger.Error("template parse", "view", viewName, "error", err)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	target := "base.html"
	if isHTMX(r) {
		target = "content"
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, target, data); err != nil {
		h.logger.Error("template execute", "view", viewName, "error", err)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
