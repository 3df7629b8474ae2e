package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/user/finsight/internal/render"
	"github.com/user/finsight/internal/status"
)

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.AddCommand(statusShowCmd, statusRefreshCmd, statusWatchCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show or refresh the account access status",
}

var statusShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the last known access status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(loadConfig())
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.status.Load(context.Background()); err != nil {
			return err
		}
		fmt.Println(render.Status(a.status.Snapshot()))
		return nil
	},
}

var statusRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch the access status from the backend",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(loadConfig())
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := context.Background()
		if err := a.status.Load(ctx); err != nil {
			return err
		}
		o, err := a.status.Refresh(ctx)
		reportRefresh(a, o, err)
		return nil
	},
}

var statusWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Refresh the access status on the configured schedule until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(loadConfig())
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := a.status.Load(ctx); err != nil {
			return err
		}
		o, err := a.status.StartupRefresh(ctx)
		reportRefresh(a, o, err)

		sched := status.NewSchedule(a.status, a.cfg.Status.Schedule, func(o status.Outcome, err error) {
			reportRefresh(a, o, err)
		})
		if err := sched.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		sched.Stop()
		return nil
	},
}

func reportRefresh(a *app, o status.Outcome, err error) {
	switch o {
	case status.Refreshed:
		fmt.Println(render.Status(a.status.Snapshot()))
	case status.Failed:
		render.PrintWarning("Refresh failed, keeping %s: %v", a.status.Status(), err)
	default:
		render.PrintInfo("Refresh %s", o)
	}
}
