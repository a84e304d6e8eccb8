package session

import (
	"database/sql"
	"errors"
	"log/slog"
	"sync"
	"time"

	"hostel-portal/internal/auth"
	"hostel-portal/internal/storage"
)

// Lifetime is how long an idle browser session lasts (30 days).
const Lifetime = 30 * 24 * time.Hour

// ErrNotFound is returned for unknown or expired session ids.
var ErrNotFound = errors.New("session not found")

type entry struct {
	holder    *Holder
	expiresAt time.Time
}

// Manager maps browser session ids onto holders, backed by the database.
type Manager struct {
	db     *storage.DB
	sealer *auth.Sealer
	deps   Deps
	now    func() time.Time

	mu      sync.Mutex
	holders map[string]*entry
}

// NewManager returns a manager that restores sessions from db.
func NewManager(db *storage.DB, sealer *auth.Sealer, deps Deps) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Manager{
		db:      db,
		sealer:  sealer,
		deps:    deps,
		now:     time.Now,
		holders: make(map[string]*entry),
	}
}

// Anonymous returns a holder for a visitor without a stored session.
// Nothing is written until Rotate gives it an id.
func (m *Manager) Anonymous() *Holder {
	return NewHolder(m.deps, NewMemoryStore(Persisted{}), Persisted{})
}

// Rotate moves the state of h onto a fresh session id. oldID, when set,
// is deleted and stops resolving. Signing in always rotates, so an id
// handed out before login never carries a token.
func (m *Manager) Rotate(oldID string, h *Holder) (string, time.Time, error) {
	id, err := auth.GenerateSessionToken()
	if err != nil {
		return "", time.Time{}, err
	}
	expiresAt := m.now().Add(Lifetime)
	if err := m.db.CreateSession(id, expiresAt); err != nil {
		return "", time.Time{}, err
	}

	st := h.Snapshot()
	store := m.store(id)
	if st.Token != "" {
		if err := store.SaveAuth(st.Token, st.Role); err != nil {
			return "", time.Time{}, err
		}
	}
	if err := store.SaveTheme(st.Theme); err != nil {
		return "", time.Time{}, err
	}
	h.rebind(store)

	m.mu.Lock()
	if oldID != "" {
		delete(m.holders, oldID)
	}
	m.holders[id] = &entry{holder: h, expiresAt: expiresAt}
	m.mu.Unlock()

	if oldID != "" {
		if err := m.db.DeleteSession(oldID); err != nil {
			return "", time.Time{}, err
		}
	}
	return id, expiresAt, nil
}

// Actor names a session in audit records without revealing its id.
func (m *Manager) Actor(id string) string {
	return "session:" + m.sealer.Fingerprint(id)
}

// Get returns the holder for id, restoring it from the database when it
// is not cached. A stored token that cannot be opened or whose JWT has
// expired is dropped before the holder is built.
func (m *Manager) Get(id string) (*Holder, time.Time, error) {
	now := m.now()

	m.mu.Lock()
	if e, ok := m.holders[id]; ok {
		if e.expiresAt.After(now) {
			m.mu.Unlock()
			return e.holder, e.expiresAt, nil
		}
		delete(m.holders, id)
	}
	m.mu.Unlock()

	rec, err := m.db.GetSession(id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, ErrNotFound
	}
	if err != nil {
		return nil, time.Time{}, err
	}

	p := Persisted{Role: rec.Role, Theme: rec.Theme}
	if rec.SealedToken != "" {
		token, err := m.sealer.Open(rec.SealedToken)
		switch {
		case err != nil:
			m.deps.Logger.Warn("dropping unreadable session token", "error", err)
		case auth.TokenExpired(token, now):
			m.deps.Logger.Info("dropping expired session token")
		default:
			p.Token = token
		}
		if p.Token == "" {
			p.Role = ""
			if err := m.db.ClearAuth(id); err != nil {
				return nil, time.Time{}, err
			}
		}
	}

	h := NewHolder(m.deps, m.store(id), p)

	m.mu.Lock()
	defer m.mu.Unlock()
	// Another request may have restored the same session meanwhile.
	if e, ok := m.holders[id]; ok {
		return e.holder, e.expiresAt, nil
	}
	m.holders[id] = &entry{holder: h, expiresAt: rec.ExpiresAt}
	return h, rec.ExpiresAt, nil
}

// Touch extends a session once it is past the halfway point of its
// lifetime. It reports the new expiry and whether it changed.
func (m *Manager) Touch(id string, expiresAt time.Time) (time.Time, bool, error) {
	now := m.now()
	if expiresAt.Sub(now) >= Lifetime/2 {
		return expiresAt, false, nil
	}
	next := now.Add(Lifetime)
	if err := m.db.RenewSession(id, next); err != nil {
		return expiresAt, false, err
	}
	m.mu.Lock()
	if e, ok := m.holders[id]; ok {
		e.expiresAt = next
	}
	m.mu.Unlock()
	return next, true, nil
}

// Delete removes a session entirely.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	delete(m.holders, id)
	m.mu.Unlock()
	return m.db.DeleteSession(id)
}

// Prune removes expired sessions from memory and from the database.
func (m *Manager) Prune() (int64, error) {
	now := m.now()
	m.mu.Lock()
	for id, e := range m.holders {
		if !e.expiresAt.After(now) {
			delete(m.holders, id)
		}
	}
	m.mu.Unlock()
	return m.db.CleanExpiredSessions()
}

// Cached returns the number of holders kept in memory.
func (m *Manager) Cached() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.holders)
}

func (m *Manager) store(id string) Store {
	return &sqlStore{db: m.db, sealer: m.sealer, id: id}
}
