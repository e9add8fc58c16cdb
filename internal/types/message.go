package types

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type MessageStatus string

const (
	MessageStatusPending   MessageStatus = "pending"
	MessageStatusRunning   MessageStatus = "running"
	MessageStatusCompleted MessageStatus = "completed"
	MessageStatusFailed    MessageStatus = "failed"
	MessageStatusError     MessageStatus = "error"
)

// Message is one entry in a conversation. A user message is immutable once
// created; an assistant message is mutated only by the turn reducer while
// IsStreaming is true.
type Message struct {
	ID          string        `json:"id"`
	SessionID   string        `json:"session_id,omitempty"`
	Role        Role          `json:"role"`
	Content     string        `json:"content"`
	CreatedAt   time.Time     `json:"created_at"`
	IsStreaming bool          `json:"is_streaming,omitempty"`
	Progress    int           `json:"progress,omitempty"`
	Status      MessageStatus `json:"status,omitempty"`
}

// Terminal reports whether the message reached a final state.
func (m *Message) Terminal() bool {
	if m == nil {
		return false
	}
	switch m.Status {
	case MessageStatusCompleted, MessageStatusFailed, MessageStatusError:
		return true
	}
	return false
}
