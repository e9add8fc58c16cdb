package auth

import (
	"errors"
	"strings"
	"sync"
)

// Credentials is the access/refresh token pair issued at login and rotated
// by refresh. It is replaced atomically, never patched field by field.
type Credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (c Credentials) Valid() bool {
	return strings.TrimSpace(c.AccessToken) != "" && strings.TrimSpace(c.RefreshToken) != ""
}

// Storage is the durable home of the credential pair. Injected so auth can
// be tested headless; the real implementation lives in internal/store.
type Storage interface {
	Load() (Credentials, error)
	Save(Credentials) error
	Clear() error
}

var ErrNoCredentials = errors.New("no stored credentials; run `conduit login` first")

// MemoryStorage is an in-memory Storage, used by tests and as a fallback
// when the local database cannot be opened.
type MemoryStorage struct {
	mu    sync.Mutex
	creds Credentials
	set   bool
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (s *MemoryStorage) Load() (Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.set {
		return Credentials{}, nil
	}
	return s.creds, nil
}

func (s *MemoryStorage) Save(creds Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = creds
	s.set = true
	return nil
}

func (s *MemoryStorage) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = Credentials{}
	s.set = false
	return nil
}
