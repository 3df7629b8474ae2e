// Package transcript holds the ordered conversation shown to the user.
package transcript

import (
	"sync"
	"time"

	"github.com/user/finsight/internal/types"
)

// Greeting is the assistant entry a fresh or cleared transcript starts with.
const Greeting = "Hi! Ask me anything about your finances and I'll generate insights from your data."

// Observer is called after every change with a copy of the changed entry.
// Observers run with the transcript lock released.
type Observer func(entry types.ConversationEntry)

// Transcript is the insertion-ordered list of conversation entries. Only
// assistant entries are mutated after creation.
type Transcript struct {
	mu        sync.Mutex
	entries   []*types.ConversationEntry
	index     map[types.EntryID]*types.ConversationEntry
	now       func() time.Time
	observers []Observer
}

// New creates a transcript holding only the greeting entry. A nil clock
// uses time.Now.
func New(now func() time.Time) *Transcript {
	if now == nil {
		now = time.Now
	}
	t := &Transcript{now: now}
	t.resetLocked()
	return t
}

// Subscribe registers fn to receive every entry change.
func (t *Transcript) Subscribe(fn Observer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observers = append(t.observers, fn)
}

func (t *Transcript) resetLocked() {
	greeting := &types.ConversationEntry{
		ID:        types.NewEntryID(),
		Role:      types.RoleAssistant,
		Content:   Greeting,
		Timestamp: t.now(),
	}
	t.entries = []*types.ConversationEntry{greeting}
	t.index = map[types.EntryID]*types.ConversationEntry{greeting.ID: greeting}
}

// Reset drops every entry and starts over with the greeting.
func (t *Transcript) Reset() {
	t.mu.Lock()
	t.resetLocked()
	greeting := *t.entries[0]
	observers := t.observers
	t.mu.Unlock()
	notify(observers, greeting)
}

// AppendUser appends a user entry.
func (t *Transcript) AppendUser(content string) types.EntryID {
	return t.append(types.RoleUser, content, false)
}

// AppendAssistant appends an assistant entry. At most one entry streams at
// a time, so a streaming append stops any entry still marked streaming.
func (t *Transcript) AppendAssistant(content string, streaming bool) types.EntryID {
	return t.append(types.RoleAssistant, content, streaming)
}

func (t *Transcript) append(role types.Role, content string, streaming bool) types.EntryID {
	t.mu.Lock()
	var changed []types.ConversationEntry
	if streaming {
		for _, e := range t.entries {
			if e.IsStreaming {
				e.IsStreaming = false
				changed = append(changed, *e)
			}
		}
	}
	entry := &types.ConversationEntry{
		ID:          types.NewEntryID(),
		Role:        role,
		Content:     content,
		IsStreaming: streaming,
		Timestamp:   t.now(),
	}
	t.entries = append(t.entries, entry)
	t.index[entry.ID] = entry
	changed = append(changed, *entry)
	observers := t.observers
	t.mu.Unlock()

	notify(observers, changed...)
	return entry.ID
}

// Mutation edits an entry in place. It runs with the transcript locked.
type Mutation func(entry *types.ConversationEntry)

// Guard is evaluated under the transcript lock immediately before a
// mutation is applied. Returning false discards the mutation.
type Guard func() bool

// Update applies fn to the entry with the given id if guard (when non-nil)
// still holds. It reports whether the entry existed and the mutation ran.
func (t *Transcript) Update(id types.EntryID, guard Guard, fn Mutation) bool {
	t.mu.Lock()
	if guard != nil && !guard() {
		t.mu.Unlock()
		return false
	}
	entry, ok := t.index[id]
	if !ok {
		t.mu.Unlock()
		return false
	}
	fn(entry)
	changed := *entry
	observers := t.observers
	t.mu.Unlock()

	notify(observers, changed)
	return true
}

// UpdateOrAppend applies fn to the entry with the given id, or to a new
// assistant entry appended in its place when the id no longer exists. It
// returns the id of the entry that was changed, or "" when guard failed.
func (t *Transcript) UpdateOrAppend(id types.EntryID, guard Guard, fn Mutation) types.EntryID {
	t.mu.Lock()
	if guard != nil && !guard() {
		t.mu.Unlock()
		return ""
	}
	entry, ok := t.index[id]
	if !ok {
		entry = &types.ConversationEntry{
			ID:        types.NewEntryID(),
			Role:      types.RoleAssistant,
			Timestamp: t.now(),
		}
		t.entries = append(t.entries, entry)
		t.index[entry.ID] = entry
	}
	fn(entry)
	changed := *entry
	observers := t.observers
	t.mu.Unlock()

	notify(observers, changed)
	return changed.ID
}

// Get returns a copy of the entry with the given id.
func (t *Transcript) Get(id types.EntryID) (types.ConversationEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.index[id]
	if !ok {
		return types.ConversationEntry{}, false
	}
	return *entry, true
}

// Entries returns a copy of the transcript in insertion order.
func (t *Transcript) Entries() []types.ConversationEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]types.ConversationEntry, len(t.entries))
	for i, e := range t.entries {
		out[i] = *e
	}
	return out
}

// Streaming returns the number of entries currently marked streaming.
func (t *Transcript) Streaming() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, e := range t.entries {
		if e.IsStreaming {
			n++
		}
	}
	return n
}

func notify(observers []Observer, entries ...types.ConversationEntry) {
	for _, e := range entries {
		for _, fn := range observers {
			fn(e)
		}
	}
}
