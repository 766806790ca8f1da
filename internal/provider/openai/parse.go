package openai

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Response shape errors, checked in this order. Each names the part of
// choices[0].message.content that was missing or malformed.
var (
	ErrWrongBody    = errors.New("response body is not a JSON object")
	ErrWrongChoices = errors.New("response choices are missing or not an array")
	ErrEmptyChoices = errors.New("response choices are empty")
	ErrWrongMessage = errors.New("response choice has no message object")
	ErrWrongContent = errors.New("response message has no string content")
)

// ParseAnswer extracts choices[0].message.content from a chat completion
// response. Further choices are ignored.
func ParseAnswer(raw []byte) (string, error) {
	var body any
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", fmt.Errorf("%w: %v", ErrWrongBody, err)
	}

	object, ok := body.(map[string]any)
	if !ok {
		return "", ErrWrongBody
	}

	choices, ok := object["choices"].([]any)
	if !ok {
		return "", ErrWrongChoices
	}

	if len(choices) == 0 {
		return "", ErrEmptyChoices
	}
	first, ok := choices[0].(map[string]any)
	if !ok {
		return "", ErrEmptyChoices
	}

	message, ok := first["message"].(map[string]any)
	if !ok {
		return "", ErrWrongMessage
	}

	content, ok := message["content"].(string)
	if !ok {
		return "", ErrWrongContent
	}
	return content, nil
}
