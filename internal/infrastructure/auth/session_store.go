package auth

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"fixversity/internal/domain/identity"
	"fixversity/internal/errs"
)

// SessionStore persists the client's current session.
type SessionStore interface {
	Load(ctx context.Context) (*identity.Session, error)
	Save(ctx context.Context, session identity.Session) error
	Clear(ctx context.Context) error
}

// FileSessionStore keeps the session in a 0600 JSON credentials file so CLI
// invocations share one login.
type FileSessionStore struct {
	path string
	mu   sync.Mutex
}

func NewFileSessionStore(path string) *FileSessionStore {
	return &FileSessionStore{path: path}
}

func (s *FileSessionStore) Load(_ context.Context) (*identity.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrap(err, "read credentials file")
	}
	var session identity.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, errs.Wrap(err, "decode credentials file")
	}
	if session.RefreshToken == "" {
		return nil, nil
	}
	return &session, nil
}

func (s *FileSessionStore) Save(_ context.Context, session identity.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return errs.Wrap(err, "create credentials dir")
	}
	raw, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return errs.Wrap(err, "encode session")
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return errs.Wrap(err, "write credentials file")
	}
	return nil
}

func (s *FileSessionStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errs.Wrap(err, "remove credentials file")
	}
	return nil
}

type MemorySessionStore struct {
	mu      sync.Mutex
	session *identity.Session
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{}
}

func (s *MemorySessionStore) Load(_ context.Context) (*identity.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, nil
	}
	copied := *s.session
	return &copied, nil
}

func (s *MemorySessionStore) Save(_ context.Context, session identity.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = &session
	return nil
}

func (s *MemorySessionStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
	return nil
}
