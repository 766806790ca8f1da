package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"answer-assistant/internal/models"
)

const (
	defaultMinMessageCount = 1
	defaultMaxTokenCount   = 3500
	defaultTemperature     = 0.5
	maxTemperature         = 2.0

	// DefaultProviderURL is the base address of the completion provider.
	DefaultProviderURL = "https://api.openai.com"
)

// Config represents the application configuration parsed from YAML.
type Config struct {
	Assistant Settings    `yaml:"assistant"`
	Relay     RelayConfig `yaml:"relay"`
}

// Settings drives a single answer generation. It is passed by value so a
// call never observes later changes made by the caller.
type Settings struct {
	// MinMessageCount is the minimum number of selected messages required
	// to request an answer.
	MinMessageCount int `yaml:"min_message_count"`
	// MaxTokenCount is the estimated token budget for the selected history.
	MaxTokenCount int            `yaml:"max_token_count"`
	OpenAI        OpenAISettings `yaml:"openai"`
}

// OpenAISettings groups transport-level and body-level request settings.
type OpenAISettings struct {
	Request RequestSettings `yaml:"request"`
	Body    BodySettings    `yaml:"body"`
}

// RequestSettings controls how the request is addressed.
type RequestSettings struct {
	APIVersion   models.APIVersion `yaml:"api_version"`
	Organization string            `yaml:"organization"`
}

// BodySettings holds the generation parameters placed in the request body.
type BodySettings struct {
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	// MaxTokens caps the generated answer; zero leaves it unbounded.
	MaxTokens int `yaml:"max_tokens"`
}

// RelayConfig configures the intermediary server.
type RelayConfig struct {
	Port      int              `yaml:"port"`
	Tokens    []string         `yaml:"tokens"`
	Upstreams []UpstreamConfig `yaml:"upstreams"`
}

// UpstreamConfig captures authentication and routing info for a provider
// the relay forwards to.
type UpstreamConfig struct {
	Name         string            `yaml:"name"`
	APIKey       string            `yaml:"api_key"`
	BaseURL      string            `yaml:"base_url"`
	Organization string            `yaml:"organization"`
	APIVersion   models.APIVersion `yaml:"api_version"`
	Models       []string          `yaml:"models"`
	Headers      Headers           `yaml:"headers"`
	Aliases      map[string]string `yaml:"aliases"`
}

// Headers contains additional HTTP headers to send with a provider request.
type Headers map[string]string

// Default returns the settings used when nothing is configured.
func Default() Settings {
	return Settings{
		MinMessageCount: defaultMinMessageCount,
		MaxTokenCount:   defaultMaxTokenCount,
		OpenAI: OpenAISettings{
			Request: RequestSettings{
				APIVersion: models.APIVersionV1,
			},
			Body: BodySettings{
				Model:       string(models.DefaultModel),
				Temperature: defaultTemperature,
			},
		},
	}
}

// Load reads YAML configuration from disk on top of the defaults and
// validates the assistant settings.
func Load(path string) (Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Config{}, fmt.Errorf("resolve config path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %q: %w", absPath, err)
	}

	cfg := Config{Assistant: Default()}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file %q: %w", absPath, err)
	}

	for i := range cfg.Relay.Upstreams {
		cfg.Relay.Upstreams[i].APIKey = os.ExpandEnv(cfg.Relay.Upstreams[i].APIKey)
	}
	for i := range cfg.Relay.Tokens {
		cfg.Relay.Tokens[i] = os.ExpandEnv(cfg.Relay.Tokens[i])
	}

	if err := cfg.Assistant.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate performs sanity checks on the assistant settings.
func (s Settings) Validate() error {
	if s.MinMessageCount < 0 {
		return fmt.Errorf("assistant.min_message_count must not be negative, got %d", s.MinMessageCount)
	}
	if s.MaxTokenCount < 0 {
		return fmt.Errorf("assistant.max_token_count must not be negative, got %d", s.MaxTokenCount)
	}
	if strings.TrimSpace(string(s.OpenAI.Request.APIVersion)) == "" {
		return errors.New("assistant.openai.request.api_version must be provided")
	}

	body := s.OpenAI.Body
	if strings.TrimSpace(body.Model) == "" {
		return errors.New("assistant.openai.body.model must be provided")
	}
	if !models.KnownModel(body.Model) {
		slog.Warn("model is not in the known catalogue", "model", body.Model)
	}
	if body.Temperature < 0 || body.Temperature > maxTemperature {
		return fmt.Errorf("assistant.openai.body.temperature must be within [0, %.0f], got %v", maxTemperature, body.Temperature)
	}
	if body.MaxTokens < 0 {
		return fmt.Errorf("assistant.openai.body.max_tokens must not be negative, got %d", body.MaxTokens)
	}
	return nil
}

// Validate performs strict sanity checks on the relay configuration.
func (r RelayConfig) Validate() error {
	if r.Port <= 0 || r.Port > 65535 {
		return fmt.Errorf("relay.port must be a valid TCP port, got %d", r.Port)
	}
	if len(r.Tokens) == 0 {
		return errors.New("relay.tokens must list at least one accepted token")
	}
	for i, token := range r.Tokens {
		if strings.TrimSpace(token) == "" {
			return fmt.Errorf("relay.tokens[%d] must not be empty", i)
		}
	}
	if len(r.Upstreams) == 0 {
		return errors.New("relay.upstreams must configure at least one provider")
	}

	seen := make(map[string]struct{}, len(r.Upstreams))
	for _, upstream := range r.Upstreams {
		if err := validateUpstream(upstream); err != nil {
			return err
		}
		if _, dup := seen[upstream.Name]; dup {
			return fmt.Errorf("relay upstream %q configured twice", upstream.Name)
		}
		seen[upstream.Name] = struct{}{}
	}
	return nil
}

func validateUpstream(upstream UpstreamConfig) error {
	name := upstream.Name
	if strings.TrimSpace(name) == "" {
		return errors.New("relay upstream: name must be provided")
	}
	if strings.TrimSpace(upstream.APIKey) == "" {
		return fmt.Errorf("upstream %s: api_key must be provided", name)
	}
	if upstream.BaseURL != "" {
		u, err := url.Parse(upstream.BaseURL)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("upstream %s: base_url %q must be an absolute http(s) URL", name, upstream.BaseURL)
		}
	}
	if len(upstream.Models) == 0 {
		return fmt.Errorf("upstream %s: at least one model must be configured", name)
	}

	for _, model := range upstream.Models {
		if strings.TrimSpace(model) == "" {
			return fmt.Errorf("upstream %s: model id must not be empty", name)
		}
	}

	for headerKey := range upstream.Headers {
		if !isCanonicalHTTPHeader(headerKey) {
			return fmt.Errorf("upstream %s: header %q is not a valid canonical HTTP header", name, headerKey)
		}
		if _, reserved := reservedHeaders[http.CanonicalHeaderKey(headerKey)]; reserved {
			return fmt.Errorf("upstream %s: header %q is set by the relay and cannot be overridden", name, headerKey)
		}
	}

	for alias, target := range upstream.Aliases {
		if strings.TrimSpace(alias) == "" {
			return fmt.Errorf("upstream %s: alias name must not be empty", name)
		}
		if strings.TrimSpace(target) == "" {
			return fmt.Errorf("upstream %s: alias %q target must not be empty", name, alias)
		}
	}

	return nil
}

// Endpoint returns the upstream base URL, falling back to the provider default.
func (u UpstreamConfig) Endpoint() string {
	if u.BaseURL == "" {
		return DefaultProviderURL
	}
	return strings.TrimRight(u.BaseURL, "/")
}

// Version returns the upstream API revision, falling back to v1.
func (u UpstreamConfig) Version() models.APIVersion {
	if u.APIVersion == "" {
		return models.APIVersionV1
	}
	return u.APIVersion
}

// reservedHeaders are written by the transports themselves.
var reservedHeaders = map[string]struct{}{
	"Authorization":       {},
	"Content-Type":        {},
	"Qb-Token":            {},
	"Openai-Organization": {},
}

func isCanonicalHTTPHeader(header string) bool {
	if header == "" {
		return false
	}

	for _, r := range header {
		if !(r == '-' || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')) {
			return false
		}
	}
	return true
}
