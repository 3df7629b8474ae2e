// Package session tracks the backend conversation session id and keeps it
// persisted across runs.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/user/finsight/internal/types"
)

// Backend is the part of the insights API that manages sessions.
type Backend interface {
	SessionStatus(ctx context.Context) (bool, error)
	DropSession(ctx context.Context, sessionID types.SessionID) (types.SessionID, error)
}

// RotateFunc is called after Clear adopted a new session id.
type RotateFunc func(next types.SessionID)

// Manager owns the adopted session id.
type Manager struct {
	mu      sync.RWMutex
	state   types.SessionState
	backend Backend
	store   types.PersistentStore
	userID  types.UserID
	hooks   []RotateFunc

	// Now is the clock used for CreatedAt.
	Now func() time.Time
	log *slog.Logger
}

// New creates a manager with no session. Call Restore to load a persisted
// one.
func New(backend Backend, store types.PersistentStore, userID types.UserID, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		state:   types.SessionState{UserID: userID},
		backend: backend,
		store:   store,
		userID:  userID,
		Now:     time.Now,
		log:     log.With("module", "session"),
	}
}

// OnRotate registers fn to run after every successful Clear.
func (m *Manager) OnRotate(fn RotateFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, fn)
}

// Current returns the adopted session id.
func (m *Manager) Current() (types.SessionID, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state.SessionID == nil {
		return "", false
	}
	return *m.state.SessionID, true
}

// State returns a copy of the session state.
func (m *Manager) State() types.SessionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := m.state
	if st.SessionID != nil {
		id := *st.SessionID
		st.SessionID = &id
	}
	return st
}

// Adopt makes id the current session and persists it. Adopting the id
// already held is a no-op.
func (m *Manager) Adopt(ctx context.Context, id types.SessionID) error {
	if id == "" {
		return errors.New("adopt session: empty id")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.SessionID != nil && *m.state.SessionID == id {
		return nil
	}
	m.state = types.SessionState{
		SessionID: &id,
		UserID:    m.userID,
		CreatedAt: m.Now(),
	}
	m.log.Info("session adopted", "session_id", string(id))
	return m.persistLocked(ctx)
}

// Clear asks the backend to drop the current conversation context and
// adopts the replacement id it returns. The session is rotated, never left
// empty. Rotate hooks run after adoption.
func (m *Manager) Clear(ctx context.Context) (types.SessionID, error) {
	current, _ := m.Current()

	next, err := m.backend.DropSession(ctx, current)
	if err != nil {
		return "", fmt.Errorf("clear session: %w", err)
	}
	if err := m.Adopt(ctx, next); err != nil {
		return "", fmt.Errorf("clear session: %w", err)
	}

	m.mu.RLock()
	hooks := append([]RotateFunc(nil), m.hooks...)
	m.mu.RUnlock()
	for _, fn := range hooks {
		fn(next)
	}

	m.log.Info("session rotated", "previous", string(current), "session_id", string(next))
	return next, nil
}

// Load reads the persisted session without contacting the backend. A
// session persisted for another user, or one that cannot be decoded, is
// removed. It reports whether a session was loaded.
func (m *Manager) Load(ctx context.Context) (bool, error) {
	data, err := m.store.Get(ctx, types.KeySession)
	if errors.Is(err, types.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load session: %w", err)
	}

	var st types.SessionState
	if err := json.Unmarshal(data, &st); err != nil {
		m.log.Warn("discarding unreadable session state", "error", err)
		return false, m.store.Remove(ctx, types.KeySession)
	}
	if st.UserID != "" && m.userID != "" && st.UserID != m.userID {
		m.log.Warn("discarding session of another user", "stored_user", string(st.UserID))
		return false, m.store.Remove(ctx, types.KeySession)
	}
	if st.SessionID == nil || *st.SessionID == "" {
		return false, nil
	}

	m.mu.Lock()
	st.UserID = m.userID
	m.state = st
	m.mu.Unlock()
	m.log.Debug("session loaded", "session_id", string(*st.SessionID))
	return true, nil
}

// Restore loads the persisted session and trusts it until the backend says
// otherwise. Backend errors keep the restored id.
func (m *Manager) Restore(ctx context.Context) error {
	ok, err := m.Load(ctx)
	if err != nil || !ok {
		return err
	}
	restored, _ := m.Current()

	has, err := m.backend.SessionStatus(ctx)
	if err != nil {
		m.log.Warn("session check failed, keeping restored session", "session_id", string(restored), "error", err)
		return nil
	}
	if has {
		return nil
	}
	return m.discard(ctx, restored)
}

// discard drops id if it is still the current session.
func (m *Manager) discard(ctx context.Context, id types.SessionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.SessionID == nil || *m.state.SessionID != id {
		return nil
	}
	m.state = types.SessionState{UserID: m.userID, CreatedAt: m.Now()}
	m.log.Info("backend has no session, discarding", "session_id", string(id))
	return m.persistLocked(ctx)
}

func (m *Manager) persistLocked(ctx context.Context) error {
	data, err := json.Marshal(m.state)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := m.store.Set(ctx, types.KeySession, data); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}
