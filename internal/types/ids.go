// internal/types/ids.go
package types

import (
	"github.com/google/uuid"
)

type RequestID string
type EntryID string
type SessionID string
type UserID string
type ClientID string

// NewRequestID returns a UUIDv7 so that ids minted later sort after ids
// minted earlier.
func NewRequestID() RequestID {
	return RequestID(uuid.Must(uuid.NewV7()).String())
}

func NewEntryID() EntryID {
	return EntryID(uuid.New().String())
}

// Before reports whether id was minted before other. Ids that are not
// UUIDv7 compare as unordered and Before returns false.
func (id RequestID) Before(other RequestID) bool {
	a, err := uuid.Parse(string(id))
	if err != nil || a.Version() != 7 {
		return false
	}
	b, err := uuid.Parse(string(other))
	if err != nil || b.Version() != 7 {
		return false
	}
	return string(id) < string(other)
}
