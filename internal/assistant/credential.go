package assistant

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"answer-assistant/internal/config"
	"answer-assistant/internal/provider"
	openaiProvider "answer-assistant/internal/provider/openai"
)

// Credential selects how the completion endpoint is reached. It is either
// a provider secret (Secret) or a platform token plus relay address (Proxy).
type Credential interface {
	validate() error
	transport(providerURL string, req config.RequestSettings, client *http.Client) (provider.Transport, error)
	kind() string
}

type secretCredential struct {
	key string
}

// Secret authenticates directly against the provider with an API secret.
func Secret(key string) Credential {
	return secretCredential{key: key}
}

func (c secretCredential) validate() error {
	if strings.TrimSpace(c.key) == "" {
		return ErrIncorrectToken
	}
	return nil
}

func (c secretCredential) transport(providerURL string, req config.RequestSettings, client *http.Client) (provider.Transport, error) {
	return openaiProvider.NewDirect(c.key, providerURL, req, client)
}

func (secretCredential) kind() string { return "direct" }

type proxyCredential struct {
	token     string
	serverURL string
}

// Proxy authenticates against a relay that holds the provider secret.
func Proxy(token, serverURL string) Credential {
	return proxyCredential{token: token, serverURL: serverURL}
}

func (c proxyCredential) validate() error {
	if strings.TrimSpace(c.token) == "" {
		return ErrIncorrectToken
	}

	raw := strings.TrimSpace(c.serverURL)
	if raw == "" {
		return fmt.Errorf("%w: empty address", ErrIncorrectProxyServerURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIncorrectProxyServerURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q must be an absolute http(s) URL", ErrIncorrectProxyServerURL, raw)
	}
	if u.RawQuery != "" || u.ForceQuery || u.Fragment != "" {
		return fmt.Errorf("%w: %q must not carry a query or fragment", ErrIncorrectProxyServerURL, raw)
	}
	return nil
}

func (c proxyCredential) transport(_ string, req config.RequestSettings, client *http.Client) (provider.Transport, error) {
	return openaiProvider.NewProxied(c.token, strings.TrimSpace(c.serverURL), req, client)
}

func (proxyCredential) kind() string { return "proxy" }
