package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/user/finsight/internal/budget"
	"github.com/user/finsight/internal/config"
	"github.com/user/finsight/internal/coordinator"
	"github.com/user/finsight/internal/session"
	"github.com/user/finsight/internal/state"
	"github.com/user/finsight/internal/status"
	"github.com/user/finsight/internal/transcript"
	"github.com/user/finsight/internal/types"
	"github.com/user/finsight/pkg/insights"
)

// app is the wired set of components every command works with.
type app struct {
	cfg        *config.Config
	store      types.PersistentStore
	closeStore func() error
	client     *insights.Client
	sessions   *session.Manager
	status     *status.Controller
	transcript *transcript.Transcript
	coord      *coordinator.Coordinator
}

func openApp(cfg *config.Config) (*app, error) {
	if cfg.API.UserID == "" {
		return nil, fmt.Errorf("no user id configured (set api.user_id or FINSIGHT_USER_ID)")
	}
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	client := insights.New(&insights.Config{
		BaseURL:       cfg.API.BaseURL,
		Token:         cfg.API.Token,
		Timeout:       cfg.Timeout(),
		StreamTimeout: cfg.StreamTimeout(),
	}, slog.Default())

	userID := types.UserID(cfg.API.UserID)
	sessions := session.New(client, store, userID, slog.Default())
	client.SetSessionSource(sessions)

	tr := transcript.New(nil)
	sessions.OnRotate(func(types.SessionID) {
		tr.Reset()
	})

	opts := coordinator.Options{
		UserID:           userID,
		UseConnectedData: cfg.Insights.UseConnectedData,
		UseDirectData:    cfg.Insights.UseDirectData,
		IntegrationMode:  cfg.Insights.IntegrationMode,
		Logger:           slog.Default(),
	}
	if cfg.Insights.MaxQueryTokens > 0 {
		b, err := budget.New(cfg.Insights.TokenizerModel, cfg.Insights.MaxQueryTokens)
		if err != nil {
			slog.Warn("query token budget disabled", "error", err)
		} else {
			opts.Limiter = b
		}
	}

	ctrl := status.New(client, store, status.Options{
		ClientID:      types.ClientID(cfg.API.ClientID),
		Cooldown:      cfg.Cooldown(),
		StartupWindow: cfg.StartupWindow(),
		Logger:        slog.Default(),
	})

	return &app{
		cfg:        cfg,
		store:      store,
		closeStore: closeStore,
		client:     client,
		sessions:   sessions,
		status:     ctrl,
		transcript: tr,
		coord:      coordinator.New(coordinator.NewClientBackend(client), sessions, tr, opts),
	}, nil
}

// openStore opens the configured PersistentStore backend.
func openStore(cfg *config.Config) (types.PersistentStore, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Store.Backend {
	case config.StoreMemory:
		return state.NewMemoryStore(), noop, nil
	case config.StoreFile:
		return state.NewFileStore(cfg.DataDir), noop, nil
	case config.StoreBolt, "":
		s, err := state.OpenBoltStore(filepath.Join(cfg.DataDir, "finsight.db"))
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// startup restores the session and loads the status in parallel, then
// refreshes the status if the persisted one is outside the startup window.
// Both steps always run to completion. The first failure is logged and
// returned; callers treat it as a warning.
func (a *app) startup(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error {
		if err := a.sessions.Restore(ctx); err != nil {
			return fmt.Errorf("restore session: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := a.status.Load(ctx); err != nil {
			return fmt.Errorf("load status: %w", err)
		}
		if o, err := a.status.StartupRefresh(ctx); err != nil {
			return fmt.Errorf("startup status refresh (%s): %w", o, err)
		}
		return nil
	})
	err := g.Wait()
	if err != nil {
		slog.Warn("startup incomplete", "error", err)
	}
	return err
}

func (a *app) Close() error {
	return a.closeStore()
}
