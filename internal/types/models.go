// internal/types/models.go
package types

import (
	"time"
)

// RequestScope tells whether a request came from typed input or a
// suggested question.
type RequestScope string

const (
	ScopeQuery     RequestScope = "query"
	ScopeSuggested RequestScope = "suggested"
)

// RequestRecord identifies one submitted query. Records are never mutated
// after creation.
type RequestRecord struct {
	ID       RequestID    `json:"id"`
	IssuedAt time.Time    `json:"issued_at"`
	Scope    RequestScope `json:"scope"`
}

func NewRequestRecord(scope RequestScope, now time.Time) RequestRecord {
	return RequestRecord{
		ID:       NewRequestID(),
		IssuedAt: now,
		Scope:    scope,
	}
}

// Marker flags frames that carry a signal instead of text.
type Marker int

const (
	MarkerNone Marker = iota
	MarkerUsingRealData
)

// StreamMessage is one decoded frame of an insight stream. SessionID is set
// on the final frame when the backend issued a conversation session.
type StreamMessage struct {
	RequestID  RequestID `json:"request_id"`
	Chunk      *string   `json:"chunk,omitempty"`
	IsComplete bool      `json:"is_complete"`
	Error      *string   `json:"error,omitempty"`
	Marker     Marker    `json:"marker"`
	UserID     UserID    `json:"user_id,omitempty"`
	SessionID  SessionID `json:"session_id,omitempty"`
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationEntry is one line of the visible transcript.
type ConversationEntry struct {
	ID            EntryID   `json:"id"`
	Role          Role      `json:"role"`
	Content       string    `json:"content"`
	IsStreaming   bool      `json:"is_streaming"`
	Timestamp     time.Time `json:"timestamp"`
	UsingRealData bool      `json:"using_real_data"`
}

// SessionState is the locally persisted view of the backend conversation
// session. A nil SessionID means no session correlation.
type SessionState struct {
	SessionID *SessionID `json:"session_id"`
	UserID    UserID     `json:"user_id"`
	CreatedAt time.Time  `json:"created_at"`
}

// AccessStatus is the account's permission tier as reported by the backend.
type AccessStatus string

const (
	StatusUnknown   AccessStatus = "unknown"
	StatusPending   AccessStatus = "pending"
	StatusActive    AccessStatus = "active"
	StatusSuspended AccessStatus = "suspended"
	StatusRevoked   AccessStatus = "revoked"
)

// ParseAccessStatus maps a backend status string onto AccessStatus.
// Unrecognised values become StatusUnknown.
func ParseAccessStatus(s string) AccessStatus {
	switch AccessStatus(s) {
	case StatusPending, StatusActive, StatusSuspended, StatusRevoked:
		return AccessStatus(s)
	default:
		return StatusUnknown
	}
}

// StatusSnapshot is the persisted access status.
type StatusSnapshot struct {
	Status          AccessStatus `json:"status"`
	LastRefreshedAt time.Time    `json:"last_refreshed_at"`
}
