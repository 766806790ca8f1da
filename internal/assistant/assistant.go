// Package assistant turns a chat history into a suggested reply by asking a
// chat completion endpoint, either directly or through a relay.
package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"answer-assistant/internal/config"
	"answer-assistant/internal/models"
	"answer-assistant/internal/provider"
	"answer-assistant/internal/provider/factory"
	openaiProvider "answer-assistant/internal/provider/openai"
	"answer-assistant/internal/tokenizer"
)

// Assistant generates answers. It holds no per-call state and is safe for
// concurrent use.
type Assistant struct {
	client      *http.Client
	logger      *slog.Logger
	providerURL string
}

// Option customises an Assistant.
type Option func(*Assistant)

// WithHTTPClient sets the client used for completion requests.
func WithHTTPClient(client *http.Client) Option {
	return func(a *Assistant) {
		if client != nil {
			a.client = client
		}
	}
}

// WithLogger sets the logger for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assistant) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithProviderURL points secret-authenticated requests at another
// OpenAI-compatible host.
func WithProviderURL(u string) Option {
	return func(a *Assistant) { a.providerURL = u }
}

// New creates an Assistant.
func New(opts ...Option) *Assistant {
	a := &Assistant{
		client:      factory.NewHTTPClient(factory.DefaultHTTPTimeout),
		logger:      slog.Default(),
		providerURL: config.DefaultProviderURL,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Answer selects the newest messages that fit settings.MaxTokenCount, sends
// them with the system prompt and returns the first generated choice.
// Exactly one attempt is made; any failure aborts the call.
func (a *Assistant) Answer(ctx context.Context, messages []models.Message, cred Credential, settings config.Settings) (string, error) {
	if cred == nil {
		return "", ErrIncorrectToken
	}
	if err := cred.validate(); err != nil {
		return "", err
	}

	selected := tokenizer.Extract(messages, settings.MaxTokenCount)
	if len(selected) < settings.MinMessageCount {
		return "", fmt.Errorf("%w: %d selected, at least %d required",
			ErrIncorrectMessageCount, len(selected), settings.MinMessageCount)
	}

	transport, err := cred.transport(a.providerURL, settings.OpenAI.Request, a.client)
	if err != nil {
		return "", err
	}

	body, err := openaiProvider.BuildPayload(selected, settings.OpenAI.Body).Encode()
	if err != nil {
		return "", err
	}

	a.logger.Debug("requesting answer",
		"target", cred.kind(),
		"url", endpoint(transport),
		"model", settings.OpenAI.Body.Model,
		"history", len(messages),
		"selected", len(selected),
		"tokens", tokenizer.Total(selected),
	)

	raw, err := transport.Send(ctx, body)
	if err != nil {
		return "", err
	}

	answer, err := openaiProvider.ParseAnswer(raw)
	if err != nil {
		return "", err
	}
	return answer, nil
}

// endpoint reports the URL a transport posts to, when it exposes one.
func endpoint(t provider.Transport) string {
	if u, ok := t.(interface{ URL() string }); ok {
		return u.URL()
	}
	return ""
}
