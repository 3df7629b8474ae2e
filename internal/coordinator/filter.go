package coordinator

import (
	"sync"

	"github.com/user/finsight/internal/types"
)

// Filter holds the id of the latest accepted request. Results for any
// other id are stale and must not touch shared state.
type Filter struct {
	mu      sync.RWMutex
	current types.RequestID
}

func NewFilter() *Filter {
	return &Filter{}
}

// MarkCurrent makes id the latest request. Ids minted before the current
// one are ignored so the slot never rolls back. It reports whether id is
// now current.
func (f *Filter) MarkCurrent(id types.RequestID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current != "" && id.Before(f.current) {
		return false
	}
	f.current = id
	return true
}

// IsCurrent reports whether id is the latest request.
func (f *Filter) IsCurrent(id types.RequestID) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return id != "" && f.current == id
}

// Current returns the latest request id, or "" before the first request.
func (f *Filter) Current() types.RequestID {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.current
}
