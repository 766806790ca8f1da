package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"answer-assistant/internal/assistant"
	"answer-assistant/internal/config"
	"answer-assistant/internal/history"
	"answer-assistant/internal/models"
)

type answerOptions struct {
	configPath   string
	historyFiles []string
	dbPath       string
	chatID       string
	secret       string
	token        string
	proxyURL     string
	record       bool
	model        string
	temperature  float64
	maxTokens    int
	budget       int
	minMessages  int
	concurrency  int
}

// conversation is one history to answer.
type conversation struct {
	name     string
	messages []models.Message
	chatID   string
}

func newAnswerCmd() *cobra.Command {
	opts := answerOptions{}

	cmd := &cobra.Command{
		Use:   "answer",
		Short: "Suggest the next reply for one or more conversations",
		Example: `  answer-assistant answer --history chat.yaml
  answer-assistant answer --token $QB_TOKEN --proxy https://relay.example.com --history a.yaml --history b.json
  answer-assistant answer --db history.db --chat support-42 --record`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAnswer(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to YAML configuration file")
	flags.StringArrayVar(&opts.historyFiles, "history", nil, "Conversation file (YAML or JSON); repeatable")
	flags.StringVar(&opts.dbPath, "db", "", "SQLite history store")
	flags.StringVar(&opts.chatID, "chat", "", "Chat to answer from the history store")
	flags.StringVar(&opts.secret, "secret", "", "Provider API secret (default from OPENAI_API_KEY)")
	flags.StringVar(&opts.token, "token", "", "Relay platform token (default from QB_TOKEN)")
	flags.StringVar(&opts.proxyURL, "proxy", "", "Relay address; requires --token")
	flags.BoolVar(&opts.record, "record", false, "Append the answer to the history store as an owner message")
	flags.StringVar(&opts.model, "model", "", "Override the model")
	flags.Float64Var(&opts.temperature, "temperature", 0, "Override the sampling temperature")
	flags.IntVar(&opts.maxTokens, "max-tokens", 0, "Override the answer token cap (0 leaves it unbounded)")
	flags.IntVar(&opts.budget, "budget", 0, "Override the history token budget")
	flags.IntVar(&opts.minMessages, "min-messages", 0, "Override the minimum number of selected messages")
	flags.IntVar(&opts.concurrency, "concurrency", 4, "Maximum conversations answered at once")

	return cmd
}

func runAnswer(cmd *cobra.Command, opts answerOptions) error {
	settings, err := answerSettings(cmd, opts)
	if err != nil {
		return err
	}

	if !cmd.Flags().Changed("secret") {
		opts.secret = os.Getenv("OPENAI_API_KEY")
	}
	if !cmd.Flags().Changed("token") {
		opts.token = os.Getenv("QB_TOKEN")
	}
	cred := answerCredential(opts, cmd.Flags().Changed("token"))

	if opts.record && opts.dbPath == "" {
		return errors.New("--record requires --db and --chat")
	}
	if opts.concurrency <= 0 {
		return fmt.Errorf("--concurrency must be positive, got %d", opts.concurrency)
	}

	ctx := cmd.Context()

	var store *history.Store
	if opts.dbPath != "" {
		if opts.chatID == "" {
			return errors.New("--db requires --chat")
		}
		store, err = history.OpenStore(opts.dbPath)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	conversations, err := loadConversations(cmd, opts, store)
	if err != nil {
		return err
	}

	a := assistant.New(assistant.WithLogger(slog.Default()))
	answers := make([]string, len(conversations))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.concurrency)
	for i, conv := range conversations {
		g.Go(func() error {
			answer, err := a.Answer(gctx, conv.messages, cred, settings)
			if err != nil {
				return fmt.Errorf("%s: %w", conv.name, err)
			}
			answers[i] = answer
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if opts.record {
		for i, conv := range conversations {
			if conv.chatID == "" {
				continue
			}
			if err := store.Append(ctx, conv.chatID, models.OwnerMessage(answers[i])); err != nil {
				return err
			}
			slog.Debug("recorded answer", "chat", conv.chatID)
		}
	}

	return printAnswers(cmd.OutOrStdout(), conversations, answers)
}

func answerSettings(cmd *cobra.Command, opts answerOptions) (config.Settings, error) {
	settings := config.Default()
	if opts.configPath != "" {
		cfg, err := config.Load(opts.configPath)
		if err != nil {
			return config.Settings{}, err
		}
		settings = cfg.Assistant
	}

	flags := cmd.Flags()
	if flags.Changed("model") {
		settings.OpenAI.Body.Model = opts.model
	}
	if flags.Changed("temperature") {
		settings.OpenAI.Body.Temperature = opts.temperature
	}
	if flags.Changed("max-tokens") {
		settings.OpenAI.Body.MaxTokens = opts.maxTokens
	}
	if flags.Changed("budget") {
		settings.MaxTokenCount = opts.budget
	}
	if flags.Changed("min-messages") {
		settings.MinMessageCount = opts.minMessages
	}

	if err := settings.Validate(); err != nil {
		return config.Settings{}, err
	}
	return settings, nil
}

// answerCredential prefers the relay when either relay flag is given so a
// missing half is reported rather than silently falling back to the secret.
func answerCredential(opts answerOptions, tokenFlag bool) assistant.Credential {
	if opts.proxyURL != "" || tokenFlag {
		return assistant.Proxy(opts.token, opts.proxyURL)
	}
	return assistant.Secret(opts.secret)
}

func loadConversations(cmd *cobra.Command, opts answerOptions, store *history.Store) ([]conversation, error) {
	var conversations []conversation

	for _, path := range opts.historyFiles {
		messages, err := history.LoadFile(path)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, conversation{name: path, messages: messages})
	}

	if store != nil {
		messages, err := store.History(cmd.Context(), opts.chatID, 0)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, conversation{
			name:     "chat " + opts.chatID,
			messages: messages,
			chatID:   opts.chatID,
		})
	}

	if len(conversations) == 0 {
		return nil, errors.New("no conversation given: pass --history or --db with --chat")
	}
	return conversations, nil
}

func printAnswers(w io.Writer, conversations []conversation, answers []string) error {
	if len(answers) == 1 {
		_, err := fmt.Fprintln(w, strings.TrimSpace(answers[0]))
		return err
	}

	for i, conv := range conversations {
		if _, err := fmt.Fprintf(w, "== %s ==\n%s\n\n", conv.name, strings.TrimSpace(answers[i])); err != nil {
			return err
		}
	}
	return nil
}
