package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/user/finsight/internal/coordinator"
	"github.com/user/finsight/internal/render"
)

var askSuggested bool

func init() {
	askCmd.Flags().BoolVar(&askSuggested, "suggested", false, "send the question as a suggested prompt")
	rootCmd.AddCommand(askCmd)
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question, or start an interactive chat when none is given",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(loadConfig())
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		_ = a.startup(ctx)
		a.transcript.Subscribe(render.NewStreamPrinter(os.Stdout).Observe)

		if len(args) > 0 {
			ask(ctx, a, strings.Join(args, " "), askSuggested)
			return nil
		}
		return chat(ctx, a)
	},
}

func ask(ctx context.Context, a *app, question string, suggested bool) {
	var res coordinator.Result
	if suggested {
		res = a.coord.SubmitSuggested(ctx, question)
	} else {
		res = a.coord.Submit(ctx, question)
	}
	if res.Outcome == coordinator.OutcomeFellBack {
		render.PrintInfo("answered without streaming")
	}
}

// chat reads questions from stdin until EOF. Lines starting with a slash
// are commands.
func chat(ctx context.Context, a *app) error {
	render.PrintInfo("Type a question, /clear to start a new conversation, /reset to clear the screen, /quit to leave.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(render.Styles.User.Render("> "))
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/clear":
			if _, err := a.sessions.Clear(ctx); err != nil {
				render.PrintError("clear conversation: %v", err)
			} else {
				render.PrintSuccess("Started a new conversation.")
			}
			continue
		case "/reset":
			a.coord.ResetTranscript()
			continue
		}

		ask(ctx, a, line, false)
		if ctx.Err() != nil {
			return nil
		}
	}
}
