// Package cmd implements the answer-assistant CLI using cobra.
package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

// Execute runs the CLI with the provided arguments.
func Execute(ctx context.Context, args []string) error {
	root := newRootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "answer-assistant",
		Short: "Suggest replies to a chat using an OpenAI-compatible model",
		Long: `answer-assistant suggests the next reply in a conversation.

It selects the newest messages that fit a token budget and asks a chat
completion model, either directly with an API secret or through a relay
that authenticates callers with a platform token.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(newAnswerCmd())
	root.AddCommand(newRelayCmd())
	return root
}
