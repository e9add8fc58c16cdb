package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// CredentialStore owns the credential pair for the process. It is the only
// writer: login and refresh go through it, and every reader sees the pair
// it last persisted. Refresh is single-flight, so any number of concurrent
// expired requests cause exactly one refresh call.
type CredentialStore struct {
	storage    Storage
	refreshURL string
	http       *http.Client

	group singleflight.Group

	mu     sync.RWMutex
	creds  Credentials
	loaded bool
}

func NewCredentialStore(storage Storage, refreshURL string, httpClient *http.Client) *CredentialStore {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &CredentialStore{
		storage:    storage,
		refreshURL: refreshURL,
		http:       httpClient,
	}
}

// Current returns the credential pair, loading it from storage on first
// use. A zero pair means the user is logged out.
func (s *CredentialStore) Current() Credentials {
	s.mu.RLock()
	if s.loaded {
		creds := s.creds
		s.mu.RUnlock()
		return creds
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		if creds, err := s.storage.Load(); err == nil {
			s.creds = creds
		}
		s.loaded = true
	}
	return s.creds
}

// Set replaces the stored pair (login).
func (s *CredentialStore) Set(creds Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storage.Save(creds); err != nil {
		return err
	}
	s.creds = creds
	s.loaded = true
	return nil
}

// Clear drops the pair from memory and storage (logout, failed refresh).
func (s *CredentialStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = Credentials{}
	s.loaded = true
	return s.storage.Clear()
}

// RefreshURL reports the refresh endpoint so the transport can recognize
// its own refresh traffic and avoid recursing on it.
func (s *CredentialStore) RefreshURL() string {
	return s.refreshURL
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Refresh exchanges the refresh token for a new pair. Concurrent callers
// share one in-flight exchange and all receive its result. On failure the
// stored pair is cleared; the session is unrecoverable at that point.
func (s *CredentialStore) Refresh(ctx context.Context) (Credentials, error) {
	result, err, _ := s.group.Do("refresh", func() (any, error) {
		return s.refresh(ctx)
	})
	if err != nil {
		return Credentials{}, err
	}
	return result.(Credentials), nil
}

func (s *CredentialStore) refresh(ctx context.Context) (Credentials, error) {
	current := s.Current()
	if current.RefreshToken == "" {
		_ = s.Clear()
		return Credentials{}, ErrNoCredentials
	}

	body, err := json.Marshal(refreshRequest{RefreshToken: current.RefreshToken})
	if err != nil {
		return Credentials{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.refreshURL, bytes.NewReader(body))
	if err != nil {
		return Credentials{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		_ = s.Clear()
		return Credentials{}, fmt.Errorf("refresh credentials: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = s.Clear()
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Credentials{}, fmt.Errorf("refresh rejected (%d): %s", resp.StatusCode, bytes.TrimSpace(payload))
	}

	var parsed refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		_ = s.Clear()
		return Credentials{}, fmt.Errorf("decode refresh response: %w", err)
	}
	next := Credentials{
		AccessToken:  parsed.AccessToken,
		RefreshToken: parsed.RefreshToken,
	}
	// Backends that do not rotate the refresh token omit it.
	if next.RefreshToken == "" {
		next.RefreshToken = current.RefreshToken
	}
	if next.AccessToken == "" {
		_ = s.Clear()
		return Credentials{}, fmt.Errorf("refresh response missing access token")
	}
	if err := s.Set(next); err != nil {
		return Credentials{}, err
	}
	return next, nil
}
