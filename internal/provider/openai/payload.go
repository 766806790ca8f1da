package openai

import (
	"encoding/json"
	"fmt"

	"answer-assistant/internal/config"
	"answer-assistant/internal/models"
)

// SystemPrompt frames the model as an assistant suggesting an answer.
const SystemPrompt = "You are a helpful, pattern-following assistant. Write some suggestions to answer"

const (
	roleSystem    = "system"
	roleUser      = "user"
	roleAssistant = "assistant"
)

// ChatPayload is the chat/completions request body.
type ChatPayload struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	Messages    []ChatMessage `json:"messages"`
}

// ChatMessage is one wire-level conversation turn.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// BuildPayload maps a chat history onto the request body. The system prompt
// always comes first, owner turns become assistant turns and opponent turns
// become user turns. Empty messages are dropped.
func BuildPayload(messages []models.Message, body config.BodySettings) ChatPayload {
	wire := make([]ChatMessage, 0, len(messages)+1)
	wire = append(wire, ChatMessage{Role: roleSystem, Content: SystemPrompt})

	for _, msg := range messages {
		if msg.Content == "" {
			continue
		}
		role, ok := wireRole(msg.Role)
		if !ok {
			continue
		}
		wire = append(wire, ChatMessage{Role: role, Content: msg.Content})
	}

	payload := ChatPayload{
		Model:       body.Model,
		Temperature: body.Temperature,
		Messages:    wire,
	}
	if body.MaxTokens > 0 {
		v := body.MaxTokens
		payload.MaxTokens = &v
	}
	return payload
}

// Encode serialises the payload as JSON.
func (p ChatPayload) Encode() ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return data, nil
}

func wireRole(role models.Role) (string, bool) {
	switch role {
	case models.Owner:
		return roleAssistant, true
	case models.Opponent:
		return roleUser, true
	default:
		return "", false
	}
}
