// Package status keeps the account's access status fresh without letting
// callers hammer the backend.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/user/finsight/internal/types"
	"github.com/user/finsight/pkg/insights"
)

const (
	DefaultCooldown      = 5 * time.Second
	DefaultStartupWindow = 15 * time.Second
)

// Backend is the part of the insights API that reports access status.
type Backend interface {
	ClientStatus(ctx context.Context, clientID types.ClientID) (string, error)
	UserClient(ctx context.Context) (*insights.UserClient, error)
}

// Outcome says what a Refresh call did.
type Outcome int

const (
	Refreshed Outcome = iota
	Failed
	SkippedBusy
	SkippedCooldown
	SkippedRecent
)

func (o Outcome) String() string {
	switch o {
	case Refreshed:
		return "refreshed"
	case Failed:
		return "failed"
	case SkippedBusy:
		return "skipped (refresh in progress)"
	case SkippedCooldown:
		return "skipped (cooldown)"
	case SkippedRecent:
		return "skipped (recently refreshed)"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Options configures a Controller. Zero durations use the defaults.
type Options struct {
	// ClientID selects the per-client endpoint. When empty the client
	// linked to the authenticated user is used.
	ClientID      types.ClientID
	Cooldown      time.Duration
	StartupWindow time.Duration
	Now           func() time.Time
	Logger        *slog.Logger
}

// Controller holds the last known access status. Only one refresh runs
// at a time.
type Controller struct {
	backend Backend
	store   types.PersistentStore
	opts    Options
	log     *slog.Logger
	busy    *semaphore.Weighted

	mu       sync.RWMutex
	snapshot types.StatusSnapshot
	// lastAttempt is when the last refresh finished, successful or not.
	lastAttempt time.Time
}

func New(backend Backend, store types.PersistentStore, opts Options) *Controller {
	if opts.Cooldown <= 0 {
		opts.Cooldown = DefaultCooldown
	}
	if opts.StartupWindow <= 0 {
		opts.StartupWindow = DefaultStartupWindow
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Controller{
		backend:  backend,
		store:    store,
		opts:     opts,
		log:      opts.Logger.With("module", "status"),
		busy:     semaphore.NewWeighted(1),
		snapshot: types.StatusSnapshot{Status: types.StatusUnknown},
	}
}

// Load reads the persisted snapshot. A missing snapshot is not an error.
func (c *Controller) Load(ctx context.Context) error {
	data, err := c.store.Get(ctx, types.KeyStatus)
	if errors.Is(err, types.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load status: %w", err)
	}
	var snap types.StatusSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		c.log.Warn("ignoring unreadable status snapshot", "error", err)
		return nil
	}
	snap.Status = types.ParseAccessStatus(string(snap.Status))

	c.mu.Lock()
	c.snapshot = snap
	c.mu.Unlock()
	return nil
}

// Status returns the last known access status.
func (c *Controller) Status() types.AccessStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot.Status
}

// Snapshot returns the last known status and when it was fetched.
func (c *Controller) Snapshot() types.StatusSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// Refresh fetches the status unless a refresh is already running or the
// last one, successful or not, finished less than the cooldown ago. A
// failed fetch keeps the previous status.
func (c *Controller) Refresh(ctx context.Context) (Outcome, error) {
	if !c.busy.TryAcquire(1) {
		return SkippedBusy, nil
	}
	defer c.busy.Release(1)

	if c.sinceAttempt() < c.opts.Cooldown {
		return SkippedCooldown, nil
	}
	return c.refresh(ctx)
}

// StartupRefresh refreshes only when the last recorded refresh, including
// one persisted by an earlier run, is older than the startup window.
func (c *Controller) StartupRefresh(ctx context.Context) (Outcome, error) {
	if !c.busy.TryAcquire(1) {
		return SkippedBusy, nil
	}
	defer c.busy.Release(1)

	if c.sinceSuccess() <= c.opts.StartupWindow {
		return SkippedRecent, nil
	}
	return c.refresh(ctx)
}

// sinceSuccess returns how long ago the last successful refresh finished,
// including one persisted by an earlier run.
func (c *Controller) sinceSuccess() time.Duration {
	c.mu.RLock()
	last := c.snapshot.LastRefreshedAt
	c.mu.RUnlock()
	return c.elapsed(last)
}

// sinceAttempt returns how long ago the last refresh of any outcome
// finished.
func (c *Controller) sinceAttempt() time.Duration {
	c.mu.RLock()
	last := c.lastAttempt
	if c.snapshot.LastRefreshedAt.After(last) {
		last = c.snapshot.LastRefreshedAt
	}
	c.mu.RUnlock()
	return c.elapsed(last)
}

// elapsed is effectively infinite for a zero time.
func (c *Controller) elapsed(t time.Time) time.Duration {
	if t.IsZero() {
		return time.Duration(math.MaxInt64)
	}
	return c.opts.Now().Sub(t)
}

func (c *Controller) refresh(ctx context.Context) (Outcome, error) {
	raw, err := c.fetch(ctx)
	now := c.opts.Now()
	c.mu.Lock()
	c.lastAttempt = now
	c.mu.Unlock()
	if err != nil {
		c.log.Warn("status refresh failed, keeping last known status", "status", string(c.Status()), "error", err)
		return Failed, err
	}

	snap := types.StatusSnapshot{
		Status:          types.ParseAccessStatus(raw),
		LastRefreshedAt: now,
	}
	c.mu.Lock()
	c.snapshot = snap
	c.mu.Unlock()
	c.log.Debug("status refreshed", "status", string(snap.Status))

	if err := c.persist(ctx, snap); err != nil {
		c.log.Warn("persist status", "error", err)
	}
	return Refreshed, nil
}

func (c *Controller) fetch(ctx context.Context) (string, error) {
	if c.opts.ClientID != "" {
		return c.backend.ClientStatus(ctx, c.opts.ClientID)
	}
	uc, err := c.backend.UserClient(ctx)
	if err != nil {
		return "", err
	}
	return uc.Status, nil
}

func (c *Controller) persist(ctx context.Context, snap types.StatusSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, types.KeyStatus, data)
}
