package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"hostel-portal/internal/guard"
	"hostel-portal/internal/models"
	"hostel-portal/internal/session"
)

// Session attaches the visitor's browser session to the request.
// Visitors without a stored session get an anonymous holder that is
// kept in memory for this request only; it is written to the database
// once it has something worth keeping (see rotate). Stored sessions are
// rolling: past the halfway point of their lifetime they are renewed
// together with the cookie.
func (h *Handlers) Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b := &browser{}

		if cookie, cerr := r.Cookie(SessionCookieName); cerr == nil && cookie.Value != "" {
			holder, expiresAt, err := h.sessions.Get(cookie.Value)
			switch {
			case errors.Is(err, session.ErrNotFound):
				h.clearSessionCookie(w)
			case err != nil:
				h.logger.Error("load session", "error", err)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			default:
				b.id, b.holder = cookie.Value, holder
				if renewedAt, renewed, terr := h.sessions.Touch(b.id, expiresAt); terr != nil {
					// Keep serving on the current expiry.
					h.logger.Warn("renew session", "error", terr)
				} else if renewed {
					h.setSessionCookie(w, b.id, renewedAt)
				}
			}
		}

		if b.holder == nil {
			b.holder = h.sessions.Anonymous()
		}

		ctx := context.WithValue(r.Context(), browserContextKey, b)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// rotate stores the browser's state under a fresh session id and sends
// the new cookie. The previous id, if there was one, stops working.
func (h *Handlers) rotate(w http.ResponseWriter, r *http.Request) error {
	b := browserFrom(r)
	id, expiresAt, err := h.sessions.Rotate(b.id, b.holder)
	if err != nil {
		return err
	}
	b.id = id
	h.setSessionCookie(w, id, expiresAt)
	return nil
}

func (h *Handlers) setSessionCookie(w http.ResponseWriter, id string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    id,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// settle waits for a restored profile load, but never longer than
// profileWait, so a slow backend shows the loading page instead of
// hanging the request.
func (h *Handlers) settle(r *http.Request) session.State {
	b := browserFrom(r)
	if b == nil {
		return session.State{}
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.profileWait)
	defer cancel()
	return b.holder.Wait(ctx)
}

// Protected only lets sessions with one of the allowed roles through.
// Unauthenticated visitors are sent to the login page with the page they
// asked for; other roles go to their own home.
func (h *Handlers) Protected(name string, allowed ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempted := ""
			if r.Method == http.MethodGet {
				attempted = r.URL.RequestURI()
			}
			d := guard.Protected(h.settle(r), allowed, attempted)
			h.metrics.ObserveGuard(name, d.Outcome.String())
			h.follow(w, r, d, next)
		})
	}
}

// Public keeps signed in visitors away from login and registration.
func (h *Handlers) Public(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := guard.Public(h.settle(r))
		h.metrics.ObserveGuard("public", d.Outcome.String())
		h.follow(w, r, d, next)
	})
}

func (h *Handlers) follow(w http.ResponseWriter, r *http.Request, d guard.Decision, next http.Handler) {
	switch d.Outcome {
	case guard.Render:
		next.ServeHTTP(w, r)
	case guard.Loading:
		h.renderLoading(w, r)
	default:
		h.redirect(w, r, d.Location)
	}
}

// LoadingViewModel holds data for the loading placeholder.
type LoadingViewModel struct {
	Path string
}

func (h *Handlers) renderLoading(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Refresh", "1")
	w.Header().Set("Cache-Control", "no-store")
	h.render(w, r, "loading.html", LoadingViewModel{Path: r.URL.RequestURI()})
}
