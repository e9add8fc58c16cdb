package types

import (
	"strings"
	"time"
)

type ChatSession struct {
	ID           string    `json:"id"`
	Title        *string   `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	MessageCount int       `json:"message_count"`
	IsActive     bool      `json:"is_active,omitempty"`
}

const untitledSession = "New conversation"

// DisplayTitle returns the title shown in session lists. Sessions that have
// not been named yet (by the user or by the backend's first Start event) get
// a stable placeholder.
func (s *ChatSession) DisplayTitle() string {
	if s == nil || s.Title == nil {
		return untitledSession
	}
	title := strings.TrimSpace(*s.Title)
	if title == "" {
		return untitledSession
	}
	return title
}

// SetTitle replaces the session title in place.
func (s *ChatSession) SetTitle(title string) {
	if s == nil {
		return
	}
	title = strings.TrimSpace(title)
	if title == "" {
		s.Title = nil
		return
	}
	s.Title = &title
}
