package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"answer-assistant/internal/config"
	"answer-assistant/internal/models"
	"answer-assistant/internal/provider"
)

const (
	contentTypeJSON = "application/json"
	userAgent       = "answer-assistant/0.1"

	headerOrganization = "OpenAI-Organization"
	// HeaderToken carries the platform token to the relay.
	HeaderToken = "QB-Token"

	maxResponseBytes = 8 << 20
)

// Direct sends requests straight to the provider, authenticated with the API secret.
type Direct struct {
	name         string
	apiKey       string
	organization string
	headers      map[string]string
	client       *http.Client
	chatURL      string
}

// DirectOption customises a Direct transport.
type DirectOption func(*Direct)

// WithName sets the transport name reported by Name.
func WithName(name string) DirectOption {
	return func(d *Direct) { d.name = name }
}

// WithHeaders adds extra headers to every request.
func WithHeaders(headers map[string]string) DirectOption {
	return func(d *Direct) { d.headers = headers }
}

// NewDirect creates a transport targeting baseURL (the provider host when
// empty) at the configured API revision.
func NewDirect(apiKey, baseURL string, req config.RequestSettings, client *http.Client, opts ...DirectOption) (*Direct, error) {
	if client == nil {
		return nil, errors.New("http client must not be nil")
	}
	if baseURL == "" {
		baseURL = config.DefaultProviderURL
	}

	chatURL, err := chatCompletionsURL(baseURL, req.APIVersion)
	if err != nil {
		return nil, err
	}

	d := &Direct{
		name:         "openai",
		apiKey:       apiKey,
		organization: req.Organization,
		client:       client,
		chatURL:      chatURL,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

func (d *Direct) Name() string {
	return d.name
}

// URL returns the chat completions endpoint this transport posts to.
func (d *Direct) URL() string {
	return d.chatURL
}

func (d *Direct) Send(ctx context.Context, body []byte) ([]byte, error) {
	header := make(http.Header)
	header.Set("Authorization", "Bearer "+d.apiKey)
	if d.organization != "" {
		header.Set(headerOrganization, d.organization)
	}
	for k, v := range d.headers {
		header.Set(k, v)
	}
	return post(ctx, d.client, d.chatURL, body, header)
}

// Proxied sends requests through a relay that holds the provider secret.
// The caller authenticates with a platform token instead.
type Proxied struct {
	token        string
	organization string
	client       *http.Client
	chatURL      string
}

// NewProxied creates a transport targeting the relay at serverURL.
func NewProxied(token, serverURL string, req config.RequestSettings, client *http.Client) (*Proxied, error) {
	if client == nil {
		return nil, errors.New("http client must not be nil")
	}

	chatURL, err := chatCompletionsURL(serverURL, req.APIVersion)
	if err != nil {
		return nil, err
	}

	return &Proxied{
		token:        token,
		organization: req.Organization,
		client:       client,
		chatURL:      chatURL,
	}, nil
}

func (p *Proxied) Name() string {
	return "proxy"
}

// URL returns the relay endpoint this transport posts to.
func (p *Proxied) URL() string {
	return p.chatURL
}

func (p *Proxied) Send(ctx context.Context, body []byte) ([]byte, error) {
	header := make(http.Header)
	header.Set(HeaderToken, p.token)
	if p.organization != "" {
		header.Set(headerOrganization, p.organization)
	}
	return post(ctx, p.client, p.chatURL, body, header)
}

func chatCompletionsURL(base string, version models.APIVersion) (string, error) {
	raw := strings.TrimRight(base, "/") + "/" + string(version) + "/chat/completions"
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", provider.ErrInvalidURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: %q is not absolute", provider.ErrInvalidURL, raw)
	}
	return u.String(), nil
}

func post(ctx context.Context, client *http.Client, target string, body []byte, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: construct request: %v", provider.ErrInvalidURL, err)
	}

	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set("User-Agent", userAgent)
	for k, values := range header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat completion request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &provider.StatusError{
			StatusCode: resp.StatusCode,
			Body:       diagnostic(data),
		}
	}
	return data, nil
}

// diagnostic returns the body as compact JSON text, or "" when it is not JSON.
func diagnostic(body []byte) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, bytes.TrimSpace(body)); err != nil {
		return ""
	}
	return buf.String()
}
