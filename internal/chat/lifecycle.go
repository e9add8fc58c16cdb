package chat

import (
	"context"
	"errors"
	"strings"

	"conduit/internal/types"
)

// SessionAPI is the backend surface the lifecycle manager needs. The real
// implementation is internal/client; tests supply fakes.
type SessionAPI interface {
	CreateSession(ctx context.Context, title string) (*types.ChatSession, error)
	ListSessions(ctx context.Context, skip, limit int) ([]*types.ChatSession, error)
	SessionMessages(ctx context.Context, sessionID string) ([]*types.Message, error)
	RenameSession(ctx context.Context, sessionID, title string) (*types.ChatSession, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// SessionCache persists the last authoritative session list locally so the
// UI can paint before the backend answers.
type SessionCache interface {
	SaveSessions(sessions []*types.ChatSession) error
	LoadSessions() ([]*types.ChatSession, error)
}

const defaultListLimit = 100

// Lifecycle owns the in-memory session list, the active selection and the
// loaded messages of the active session. It is single-writer: all mutation
// happens on the UI loop through its methods. Server responses are
// authoritative; optimistic edits are reconciled by the next Refresh.
type Lifecycle struct {
	api   SessionAPI
	cache SessionCache

	sessions []*types.ChatSession
	activeID string
	messages []*types.Message
}

func NewLifecycle(api SessionAPI, cache SessionCache) *Lifecycle {
	return &Lifecycle{api: api, cache: cache}
}

func (l *Lifecycle) Sessions() []*types.ChatSession {
	return l.sessions
}

func (l *Lifecycle) ActiveID() string {
	return l.activeID
}

func (l *Lifecycle) Active() *types.ChatSession {
	return l.find(l.activeID)
}

func (l *Lifecycle) Messages() []*types.Message {
	return l.messages
}

// LoadCached seeds the session list from the local cache. Best effort; a
// missing or unreadable cache just means an empty sidebar until Refresh.
func (l *Lifecycle) LoadCached() {
	if l.cache == nil {
		return
	}
	if sessions, err := l.cache.LoadSessions(); err == nil && len(sessions) > 0 {
		l.sessions = sessions
		l.markActive()
	}
}

// Refresh replaces the list with the server's, overwriting any optimistic
// titles. The active selection survives when the session still exists,
// otherwise it falls to the first session.
func (l *Lifecycle) Refresh(ctx context.Context) error {
	sessions, err := l.api.ListSessions(ctx, 0, defaultListLimit)
	if err != nil {
		return err
	}
	l.sessions = sessions
	var selectErr error
	if l.find(l.activeID) == nil {
		l.activeID = ""
		l.messages = nil
		if len(sessions) > 0 {
			selectErr = l.Select(ctx, sessions[0].ID)
		}
	}
	l.markActive()
	l.saveCache()
	return selectErr
}

// Create makes a new session, activates it and clears the transcript. It
// must succeed before a first message is sent; the caller surfaces the
// error as a terminal failure.
func (l *Lifecycle) Create(ctx context.Context, title string) (*types.ChatSession, error) {
	session, err := l.api.CreateSession(ctx, title)
	if err != nil {
		return nil, err
	}
	l.sessions = append([]*types.ChatSession{session}, l.sessions...)
	l.activeID = session.ID
	l.messages = nil
	l.markActive()
	l.saveCache()
	return session, nil
}

// Select activates a session and loads its messages.
func (l *Lifecycle) Select(ctx context.Context, sessionID string) error {
	session := l.find(sessionID)
	if session == nil {
		return errors.New("unknown session: " + sessionID)
	}
	messages, err := l.api.SessionMessages(ctx, sessionID)
	if err != nil {
		return err
	}
	l.activeID = sessionID
	l.messages = messages
	l.markActive()
	return nil
}

// Rename updates the title optimistically for responsiveness and reverts
// if the server refuses. The next Refresh reconciles either way.
func (l *Lifecycle) Rename(ctx context.Context, sessionID, title string) error {
	session := l.find(sessionID)
	if session == nil {
		return errors.New("unknown session: " + sessionID)
	}
	previous := session.Title
	session.SetTitle(title)
	if _, err := l.api.RenameSession(ctx, sessionID, strings.TrimSpace(title)); err != nil {
		session.Title = previous
		return err
	}
	l.saveCache()
	return nil
}

// Delete removes a session only after the server confirms. Deleting the
// active session activates the first remaining one (messages reloaded) or
// creates a fresh session when none remain.
func (l *Lifecycle) Delete(ctx context.Context, sessionID string) error {
	if err := l.api.DeleteSession(ctx, sessionID); err != nil {
		return err
	}
	kept := l.sessions[:0:0]
	for _, session := range l.sessions {
		if session.ID != sessionID {
			kept = append(kept, session)
		}
	}
	l.sessions = kept

	if l.activeID == sessionID {
		l.activeID = ""
		l.messages = nil
		if len(l.sessions) > 0 {
			if err := l.Select(ctx, l.sessions[0].ID); err != nil {
				return err
			}
		} else {
			if _, err := l.Create(ctx, ""); err != nil {
				return err
			}
		}
	}
	l.saveCache()
	return nil
}

// SetSessionTitle applies a server-assigned title reported by the first
// Start event of a fresh session, without waiting for a list round trip.
func (l *Lifecycle) SetSessionTitle(sessionID, title string) {
	if session := l.find(sessionID); session != nil {
		session.SetTitle(title)
		l.saveCache()
	}
}

// AppendMessage adds a message to the active transcript.
func (l *Lifecycle) AppendMessage(message *types.Message) {
	l.messages = append(l.messages, message)
}

// UpdateMessage replaces the stored copy of a message by id.
func (l *Lifecycle) UpdateMessage(message types.Message) {
	for i, existing := range l.messages {
		if existing.ID == message.ID {
			clone := message
			l.messages[i] = &clone
			return
		}
	}
}

func (l *Lifecycle) find(sessionID string) *types.ChatSession {
	if sessionID == "" {
		return nil
	}
	for _, session := range l.sessions {
		if session.ID == sessionID {
			return session
		}
	}
	return nil
}

func (l *Lifecycle) markActive() {
	for _, session := range l.sessions {
		session.IsActive = session.ID == l.activeID
	}
}

func (l *Lifecycle) saveCache() {
	if l.cache != nil {
		_ = l.cache.SaveSessions(l.sessions)
	}
}
