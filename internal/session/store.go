package session

import (
	"sync"

	"hostel-portal/internal/auth"
	"hostel-portal/internal/models"
	"hostel-portal/internal/storage"
)

// MemoryStore keeps persisted state in memory. The CLI and tests use it.
type MemoryStore struct {
	mu sync.Mutex
	p  Persisted
}

// NewMemoryStore returns a store pre-populated with p.
func NewMemoryStore(p Persisted) *MemoryStore {
	return &MemoryStore{p: p}
}

func (s *MemoryStore) SaveAuth(token string, role models.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.p.Token = token
	s.p.Role = role
	return nil
}

func (s *MemoryStore) ClearAuth() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.p.Token = ""
	s.p.Role = ""
	return nil
}

func (s *MemoryStore) SaveTheme(theme models.Theme) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.p.Theme = theme
	return nil
}

// Persisted returns a copy of the stored values.
func (s *MemoryStore) Persisted() Persisted {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p
}

// sqlStore writes one browser session row. Tokens are sealed before they
// reach the database.
type sqlStore struct {
	db     *storage.DB
	sealer *auth.Sealer
	id     string
}

func (s *sqlStore) SaveAuth(token string, role models.Role) error {
	sealed, err := s.sealer.Seal(token)
	if err != nil {
		return err
	}
	return s.db.SaveAuth(s.id, sealed, role)
}

func (s *sqlStore) ClearAuth() error {
	return s.db.ClearAuth(s.id)
}

func (s *sqlStore) SaveTheme(theme models.Theme) error {
	return s.db.SetTheme(s.id, theme)
}
