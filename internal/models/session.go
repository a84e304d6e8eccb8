package models

import "time"

// Theme is the persisted light/dark preference.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Toggle returns the other theme.
func (t Theme) Toggle() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// BrowserSession is the server-side record behind the session cookie. It
// holds what a single browser keeps between visits: the sealed bearer
// token, the role and the theme.
type BrowserSession struct {
	ID           string
	SealedToken  string
	Role         Role
	Theme        Theme
	ExpiresAt    time.Time
	LastActivity time.Time
}
