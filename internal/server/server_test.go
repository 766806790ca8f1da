package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"answer-assistant/internal/assistant"
	"answer-assistant/internal/config"
	"answer-assistant/internal/models"
	"answer-assistant/internal/provider"
	"answer-assistant/internal/provider/factory"
	"answer-assistant/internal/router"
)

const relayToken = "qb-secret"

type upstreamCall struct {
	auth  string
	model string
}

func newUpstream(t *testing.T, status int, body string, calls chan<- upstreamCall) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Model string `json:"model"`
		}
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &payload)
		if calls != nil {
			calls <- upstreamCall{auth: r.Header.Get("Authorization"), model: payload.Model}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newRelay(t *testing.T, upstreamURL string) *Server {
	t.Helper()

	cfg := config.RelayConfig{
		Port:   8080,
		Tokens: []string{"other-token", relayToken},
		Upstreams: []config.UpstreamConfig{
			{
				Name:    "primary",
				APIKey:  "sk-upstream",
				BaseURL: upstreamURL,
				Models:  []string{"gpt-3.5-turbo", "gpt-4"},
				Aliases: map[string]string{"smart": "gpt-4"},
			},
		},
	}

	registry := provider.NewRegistry()
	if err := factory.RegisterConfiguredUpstreams(cfg, registry, http.DefaultClient); err != nil {
		t.Fatalf("register upstreams: %v", err)
	}

	srv, err := New(cfg, router.New(registry))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return srv
}

func doRequest(t *testing.T, srv *Server, method, target, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("QB-Token", token)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()

	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return body
}

const chatBody = `{"model":"smart","messages":[{"role":"user","content":"Hello"}]}`

func TestHealth(t *testing.T) {
	t.Parallel()

	srv := newRelay(t, "http://127.0.0.1:1")
	rec := doRequest(t, srv, http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("expected a request id header")
	}
}

func TestChatCompletions_RelaysVerbatim(t *testing.T) {
	t.Parallel()

	calls := make(chan upstreamCall, 1)
	upstreamBody := `{"id":"chatcmpl-1","choices":[{"message":{"role":"assistant","content":"Sure thing"}}]}`
	upstream := newUpstream(t, http.StatusOK, upstreamBody, calls)
	srv := newRelay(t, upstream.URL)

	rec := doRequest(t, srv, http.MethodPost, "/v1/chat/completions", relayToken, chatBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != upstreamBody {
		t.Errorf("expected upstream body verbatim, got %s", rec.Body.String())
	}

	call := <-calls
	if call.auth != "Bearer sk-upstream" {
		t.Errorf("expected relay to inject the upstream key, got %q", call.auth)
	}
	if call.model != "gpt-4" {
		t.Errorf("expected canonical model upstream, got %q", call.model)
	}
}

func TestChatCompletions_RequiresToken(t *testing.T) {
	t.Parallel()

	calls := make(chan upstreamCall, 1)
	upstream := newUpstream(t, http.StatusOK, `{}`, calls)
	srv := newRelay(t, upstream.URL)

	for _, token := range []string{"", "wrong", relayToken + "x"} {
		rec := doRequest(t, srv, http.MethodPost, "/v1/chat/completions", token, chatBody)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("token %q: expected 401, got %d", token, rec.Code)
			continue
		}
		if body := decodeError(t, rec); body.Error.Type != "authentication_error" {
			t.Errorf("token %q: unexpected error type %q", token, body.Error.Type)
		}
	}

	select {
	case <-calls:
		t.Error("unauthenticated request reached the upstream")
	default:
	}
}

func TestChatCompletions_Errors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		status     int
		upstream   string
		body       string
		wantStatus int
		wantType   string
		wantMsg    string
	}{
		{
			name:       "unknown model",
			status:     http.StatusOK,
			upstream:   `{}`,
			body:       `{"model":"gpt-5","messages":[{"role":"user","content":"Hi"}]}`,
			wantStatus: http.StatusBadRequest,
			wantType:   "invalid_request_error",
			wantMsg:    "unknown model",
		},
		{
			name:       "invalid payload",
			status:     http.StatusOK,
			upstream:   `{}`,
			body:       `{"model":"gpt-4","messages":[]}`,
			wantStatus: http.StatusBadRequest,
			wantType:   "invalid_request_error",
			wantMsg:    "at least one message",
		},
		{
			name:       "trailing data",
			status:     http.StatusOK,
			upstream:   `{}`,
			body:       chatBody + `{}`,
			wantStatus: http.StatusBadRequest,
			wantType:   "invalid_request_error",
			wantMsg:    "single JSON object",
		},
		{
			name:       "empty body",
			status:     http.StatusOK,
			upstream:   `{}`,
			body:       ``,
			wantStatus: http.StatusBadRequest,
			wantType:   "invalid_request_error",
			wantMsg:    "request body is required",
		},
		{
			name:       "upstream status mirrored",
			status:     http.StatusTooManyRequests,
			upstream:   `{"error":"rate limited"}`,
			body:       chatBody,
			wantStatus: http.StatusTooManyRequests,
			wantType:   "upstream_error",
			wantMsg:    `{"error":"rate limited"}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			upstream := newUpstream(t, tc.status, tc.upstream, nil)
			srv := newRelay(t, upstream.URL)

			rec := doRequest(t, srv, http.MethodPost, "/v1/chat/completions", relayToken, tc.body)
			if rec.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tc.wantStatus, rec.Code, rec.Body.String())
			}
			body := decodeError(t, rec)
			if body.Error.Type != tc.wantType {
				t.Errorf("expected type %q, got %q", tc.wantType, body.Error.Type)
			}
			if !strings.Contains(body.Error.Message, tc.wantMsg) {
				t.Errorf("expected message containing %q, got %q", tc.wantMsg, body.Error.Message)
			}
		})
	}
}

func TestChatCompletions_UnreachableUpstream(t *testing.T) {
	t.Parallel()

	upstream := newUpstream(t, http.StatusOK, `{}`, nil)
	unreachable := upstream.URL
	upstream.Close()

	srv := newRelay(t, unreachable)
	rec := doRequest(t, srv, http.MethodPost, "/v1/chat/completions", relayToken, chatBody)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestNew_ValidatesConfig(t *testing.T) {
	t.Parallel()

	if _, err := New(config.RelayConfig{}, router.New(provider.NewRegistry())); err == nil {
		t.Error("expected validation error")
	}
	if _, err := New(config.RelayConfig{}, nil); err == nil {
		t.Error("expected error for nil router")
	}
}

func TestAssistantThroughRelay(t *testing.T) {
	t.Parallel()

	upstream := newUpstream(t, http.StatusOK, `{"choices":[{"message":{"content":"Sure thing"}}]}`, nil)
	relay := httptest.NewServer(newRelay(t, upstream.URL).Handler())
	t.Cleanup(relay.Close)

	settings := config.Default()
	settings.OpenAI.Body.Model = "smart"
	history := []models.Message{
		models.OpponentMessage("Hello"),
		models.OwnerMessage("Hi, how can I help?"),
	}

	a := assistant.New(assistant.WithHTTPClient(relay.Client()))
	answer, err := a.Answer(context.Background(), history, assistant.Proxy(relayToken, relay.URL), settings)
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if answer != "Sure thing" {
		t.Errorf("unexpected answer %q", answer)
	}

	blankTurn := []models.Message{
		models.OpponentMessage("Hello"),
		models.OwnerMessage(" "),
		models.OpponentMessage("Are you there?"),
	}
	answer, err = a.Answer(context.Background(), blankTurn, assistant.Proxy(relayToken, relay.URL), settings)
	if err != nil {
		t.Fatalf("Answer with a blank turn failed: %v", err)
	}
	if answer != "Sure thing" {
		t.Errorf("unexpected answer %q", answer)
	}

	_, err = a.Answer(context.Background(), history, assistant.Proxy("wrong", relay.URL), settings)
	var statusErr *provider.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 StatusError, got %v", err)
	}
}

// Not parallel: swaps the default logger.
func TestRequestLogRecordsHandledStatus(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	upstream := newUpstream(t, http.StatusOK, `{}`, nil)
	srv := newRelay(t, upstream.URL)

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if !strings.Contains(buf.String(), "status=401") {
		t.Errorf("expected request log with status=401, got %q", buf.String())
	}
}
