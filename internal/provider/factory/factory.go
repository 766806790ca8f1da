package factory

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"answer-assistant/internal/config"
	"answer-assistant/internal/provider"
	openaiProvider "answer-assistant/internal/provider/openai"
)

const (
	// DefaultHTTPTimeout bounds a single completion round trip.
	DefaultHTTPTimeout     = 60 * time.Second
	defaultDialTimeout     = 10 * time.Second
	defaultKeepAlive       = 30 * time.Second
	defaultIdleConnTimeout = 90 * time.Second
)

// RegisterConfiguredUpstreams constructs a direct transport per configured
// upstream and stores it in the registry together with its models and aliases.
func RegisterConfiguredUpstreams(cfg config.RelayConfig, registry *provider.Registry, client *http.Client) error {
	if registry == nil {
		return errors.New("registry must not be nil")
	}
	if client == nil {
		client = NewHTTPClient(DefaultHTTPTimeout)
	}

	for _, upstream := range cfg.Upstreams {
		req := config.RequestSettings{
			APIVersion:   upstream.Version(),
			Organization: upstream.Organization,
		}
		transport, err := openaiProvider.NewDirect(
			upstream.APIKey,
			upstream.Endpoint(),
			req,
			client,
			openaiProvider.WithName(upstream.Name),
			openaiProvider.WithHeaders(upstream.Headers),
		)
		if err != nil {
			return fmt.Errorf("initialise upstream %s: %w", upstream.Name, err)
		}
		if err := registry.Register(transport, upstream.Models, upstream.Aliases); err != nil {
			return fmt.Errorf("register upstream %s: %w", upstream.Name, err)
		}
	}

	return nil
}

// NewHTTPClient returns a client with pooled keep-alive connections.
func NewHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: defaultKeepAlive}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          50,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
