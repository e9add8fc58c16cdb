package store

import (
	"conduit/internal/auth"
	"conduit/internal/types"
)

// Repository is the durable client-side state: the credential pair and the
// cached session list.
type Repository interface {
	Credentials() auth.Storage
	Sessions() SessionCacheStore
	Close() error
}

// SessionCacheStore persists the last authoritative session list.
type SessionCacheStore interface {
	SaveSessions(sessions []*types.ChatSession) error
	LoadSessions() ([]*types.ChatSession, error)
}
