package storage

import (
	"database/sql"
	"time"

	"hostel-portal/internal/models"

	// Import sqlite driver
	_ "modernc.org/sqlite"
)

// Times are stored in UTC so that text comparison in SQL orders them.
func now() time.Time { return time.Now().UTC() }

// DB wraps a sql.DB connection.
type DB struct {
	conn *sql.DB
}

// NewDB opens a database connection and runs migrations.
func NewDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Every :memory: connection is a separate database.
	if path == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		return nil, err
	}

	return db, nil
}

func (db *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS browser_sessions (
			id TEXT PRIMARY KEY,
			api_token TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT '',
			theme TEXT NOT NULL DEFAULT 'light',
			expires_at DATETIME NOT NULL,
			last_activity DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_browser_sessions_expires_at ON browser_sessions (expires_at)`,
	}

	for _, m := range migrations {
		if _, err := db.conn.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// CreateSession inserts an anonymous browser session.
func (db *DB) CreateSession(id string, expiresAt time.Time) error {
	_, err := db.conn.Exec(
		"INSERT INTO browser_sessions (id, expires_at, last_activity) VALUES (?, ?, ?)",
		id, expiresAt.UTC(), now(),
	)
	return err
}

// GetSession returns an unexpired session. It returns sql.ErrNoRows when
// the id is unknown or the session has expired.
func (db *DB) GetSession(id string) (*models.BrowserSession, error) {
	row := db.conn.QueryRow(`
		SELECT id, api_token, role, theme, expires_at, last_activity
		FROM browser_sessions
		WHERE id = ? AND expires_at > ?
	`, id, now())

	var s models.BrowserSession
	var role, theme string
	if err := row.Scan(&s.ID, &s.SealedToken, &role, &theme, &s.ExpiresAt, &s.LastActivity); err != nil {
		return nil, err
	}
	s.Role = models.Role(role)
	s.Theme = models.Theme(theme)
	return &s, nil
}

// SaveAuth stores the sealed bearer token and role for a session.
func (db *DB) SaveAuth(id, sealedToken string, role models.Role) error {
	_, err := db.conn.Exec(
		"UPDATE browser_sessions SET api_token = ?, role = ? WHERE id = ?",
		sealedToken, string(role), id,
	)
	return err
}

// ClearAuth forgets the token and role but keeps the theme.
func (db *DB) ClearAuth(id string) error {
	_, err := db.conn.Exec("UPDATE browser_sessions SET api_token = '', role = '' WHERE id = ?", id)
	return err
}

// SetTheme stores the theme preference for a session.
func (db *DB) SetTheme(id string, theme models.Theme) error {
	_, err := db.conn.Exec("UPDATE browser_sessions SET theme = ? WHERE id = ?", string(theme), id)
	return err
}

// RenewSession updates the last_activity and expires_at for a session.
func (db *DB) RenewSession(id string, newExpiresAt time.Time) error {
	_, err := db.conn.Exec(
		"UPDATE browser_sessions SET last_activity = ?, expires_at = ? WHERE id = ?",
		now(), newExpiresAt.UTC(), id,
	)
	return err
}

// DeleteSession removes a session by id.
func (db *DB) DeleteSession(id string) error {
	_, err := db.conn.Exec("DELETE FROM browser_sessions WHERE id = ?", id)
	return err
}

// CleanExpiredSessions removes all expired sessions and returns how many
// were removed.
func (db *DB) CleanExpiredSessions() (int64, error) {
	res, err := db.conn.Exec("DELETE FROM browser_sessions WHERE expires_at <= ?", now())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SessionCount returns the number of stored sessions, expired or not.
func (db *DB) SessionCount() (int, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM browser_sessions").Scan(&count)
	return count, err
}

// AuthenticatedSessionCount returns how many unexpired sessions carry a
// token.
func (db *DB) AuthenticatedSessionCount() (int, error) {
	var count int
	err := db.conn.QueryRow(
		"SELECT COUNT(*) FROM browser_sessions WHERE api_token != '' AND expires_at > ?",
		now(),
	).Scan(&count)
	return count, err
}
