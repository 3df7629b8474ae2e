package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/user/finsight/internal/render"
)

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionShowCmd, sessionClearCmd, sessionRestoreCmd)
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage the conversation session",
}

var sessionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the persisted session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(loadConfig())
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.sessions.Load(context.Background()); err != nil {
			return err
		}
		return printSession(a)
	},
}

var sessionClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop the backend conversation context and start a new session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(loadConfig())
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := context.Background()
		if _, err := a.sessions.Load(ctx); err != nil {
			return err
		}
		next, err := a.sessions.Clear(ctx)
		if err != nil {
			return err
		}
		render.PrintSuccess("New session %s", next)
		return nil
	},
}

var sessionRestoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Verify the persisted session with the backend",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(loadConfig())
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.sessions.Restore(context.Background()); err != nil {
			return err
		}
		if _, ok := a.sessions.Current(); !ok {
			render.PrintWarning("No active session.")
			return nil
		}
		return printSession(a)
	},
}

func printSession(a *app) error {
	st := a.sessions.State()
	if st.SessionID == nil {
		fmt.Println("No session.")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION\tUSER\tCREATED")
	fmt.Fprintf(w, "%s\t%s\t%s\n",
		*st.SessionID,
		st.UserID,
		st.CreatedAt.Format("2006-01-02 15:04:05"),
	)
	return w.Flush()
}
