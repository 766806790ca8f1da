package translator

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"answer-assistant/internal/models"
)

var (
	errEmptyModel        = errors.New("model must be provided")
	errEmptyMessages     = errors.New("at least one message is required")
	errUnsupportedStop   = errors.New("unsupported stop value")
	errInvalidRole       = errors.New("invalid role")
	errInvalidContent    = errors.New("invalid message content")
	errStreamUnsupported = errors.New("streaming responses are not supported")
	errInvalidMaxTokens  = errors.New("max_tokens must be positive")
	errInvalidTemp       = errors.New("temperature must be within [0, 2]")
)

var allowedRoles = map[string]struct{}{
	"system":    {},
	"user":      {},
	"assistant": {},
}

// ChatCompletionRequest is a validated chat/completions request. Fields the
// relay does not inspect are kept as received and forwarded unchanged.
type ChatCompletionRequest struct {
	Model       string
	Messages    []ChatMessage
	MaxTokens   *int
	Temperature *float64

	fields map[string]json.RawMessage
}

// UnmarshalJSON implements custom parsing to enforce validation.
func (r *ChatCompletionRequest) UnmarshalJSON(data []byte) error {
	type alias struct {
		Model       string          `json:"model"`
		Messages    []ChatMessage   `json:"messages"`
		Stream      bool            `json:"stream"`
		MaxTokens   *int            `json:"max_tokens"`
		Temperature *float64        `json:"temperature"`
		Stop        json.RawMessage `json:"stop"`
	}

	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode chat request: %w", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("decode chat request: %w", err)
	}

	if raw.Stream {
		return errStreamUnsupported
	}

	if err := validateStop(raw.Stop); err != nil {
		return err
	}

	r.Model = strings.TrimSpace(raw.Model)
	r.Messages = raw.Messages
	r.MaxTokens = raw.MaxTokens
	r.Temperature = raw.Temperature
	r.fields = fields

	return r.validate()
}

func (r *ChatCompletionRequest) validate() error {
	if r.Model == "" {
		return errEmptyModel
	}
	if len(r.Messages) == 0 {
		return errEmptyMessages
	}
	for i, msg := range r.Messages {
		if err := msg.validate(); err != nil {
			return fmt.Errorf("message[%d]: %w", i, err)
		}
	}
	if r.MaxTokens != nil && *r.MaxTokens <= 0 {
		return errInvalidMaxTokens
	}
	if r.Temperature != nil && (*r.Temperature < 0 || *r.Temperature > 2) {
		return errInvalidTemp
	}
	return nil
}

// Encode returns the decoded request body with the model replaced by modelID.
func (r ChatCompletionRequest) Encode(modelID string) ([]byte, error) {
	out := make(map[string]json.RawMessage, len(r.fields)+1)
	for k, v := range r.fields {
		out[k] = v
	}

	model, err := json.Marshal(modelID)
	if err != nil {
		return nil, fmt.Errorf("encode model: %w", err)
	}
	out["model"] = model

	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode chat request: %w", err)
	}
	return data, nil
}

// History maps the conversational turns back onto chat roles. System turns
// are left out.
func (r ChatCompletionRequest) History() []models.Message {
	out := make([]models.Message, 0, len(r.Messages))
	for _, m := range r.Messages {
		switch m.Role {
		case "assistant":
			out = append(out, models.OwnerMessage(m.Content))
		case "user":
			out = append(out, models.OpponentMessage(m.Content))
		}
	}
	return out
}

// ChatMessage captures a single message within the chat request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// UnmarshalJSON requires string content. Blank text is accepted.
func (m *ChatMessage) UnmarshalJSON(data []byte) error {
	type alias struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
		Name    string          `json:"name"`
	}

	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}

	content, err := extractMessageContent(raw.Content)
	if err != nil {
		return err
	}

	m.Role = strings.TrimSpace(raw.Role)
	m.Content = content
	m.Name = strings.TrimSpace(raw.Name)

	return m.validate()
}

func (m ChatMessage) validate() error {
	if _, ok := allowedRoles[m.Role]; !ok {
		return fmt.Errorf("%w: %s", errInvalidRole, m.Role)
	}
	return nil
}

func extractMessageContent(raw json.RawMessage) (string, error) {
	if raw == nil {
		return "", fmt.Errorf("%w: missing content", errInvalidContent)
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return "", fmt.Errorf("%w: content must be a string", errInvalidContent)
	}
	return text, nil
}

// validateStop accepts a non-blank string or a list of them.
func validateStop(raw json.RawMessage) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if strings.TrimSpace(single) == "" {
			return errUnsupportedStop
		}
		return nil
	}

	var multi []string
	if err := json.Unmarshal(raw, &multi); err == nil {
		for _, item := range multi {
			if strings.TrimSpace(item) == "" {
				return errUnsupportedStop
			}
		}
		return nil
	}
	return errUnsupportedStop
}
