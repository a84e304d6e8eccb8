// Package guard decides whether a page may render for a session.
//
// The decisions are a convenience for the browser: the backend enforces
// authorization on every call regardless of what is rendered here.
package guard

import (
	"net/url"
	"strings"

	"hostel-portal/internal/models"
	"hostel-portal/internal/session"
)

// Outcome is what the caller should do with the request.
type Outcome int

const (
	Render Outcome = iota
	Loading
	Redirect
)

func (o Outcome) String() string {
	switch o {
	case Render:
		return "render"
	case Loading:
		return "loading"
	default:
		return "redirect"
	}
}

// Decision is the result of a guard.
type Decision struct {
	Outcome  Outcome
	Location string
}

// LoginPath is where unauthenticated visitors are sent.
const LoginPath = "/login"

// Protected guards a role-specific subtree. attempted is the path and
// query the visitor asked for; it is carried to the login page so they can
// come back after signing in.
func Protected(s session.State, allowed []models.Role, attempted string) Decision {
	if s.Loading {
		return Decision{Outcome: Loading}
	}
	if !s.Authenticated() {
		return Decision{Outcome: Redirect, Location: LoginURL(attempted)}
	}
	for _, r := range allowed {
		if s.Role == r {
			return Decision{Outcome: Render}
		}
	}
	return Decision{Outcome: Redirect, Location: s.Role.Home()}
}

// Public guards login and registration: signed in visitors go home.
func Public(s session.State) Decision {
	if s.Loading {
		return Decision{Outcome: Loading}
	}
	if s.Authenticated() {
		return Decision{Outcome: Redirect, Location: s.Role.Home()}
	}
	return Decision{Outcome: Render}
}

// LoginURL returns the login path with from set to attempted.
func LoginURL(attempted string) string {
	from := SafeReturn(attempted)
	if from == "" {
		return LoginPath
	}
	return LoginPath + "?" + url.Values{"from": {from}}.Encode()
}

// SafeReturn returns from if it is a local absolute path, or "" so the
// caller can fall back to the role's home. The login page itself is never
// a return target.
func SafeReturn(from string) string {
	if from == "" || !strings.HasPrefix(from, "/") || strings.HasPrefix(from, "//") || strings.Contains(from, `\`) {
		return ""
	}
	u, err := url.Parse(from)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return ""
	}
	if u.Path == LoginPath || u.Path == "/register" {
		return ""
	}
	return from
}

// ReturnTo picks the post-login destination: the carried location when it
// is safe and belongs to the role's subtree, else the role's home.
func ReturnTo(role models.Role, from string) string {
	from = SafeReturn(from)
	home := role.Home()
	if from == "" || !(from == home || strings.HasPrefix(from, home+"/") || strings.HasPrefix(from, home+"?")) {
		return home
	}
	return from
}
