// Package history loads chat histories from conversation files and keeps
// them in a SQLite store.
package history

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"answer-assistant/internal/models"
)

type document struct {
	Messages []entry `yaml:"messages"`
}

type entry struct {
	Role    string `yaml:"role"`
	Content string `yaml:"content"`
}

// LoadFile reads a conversation file. YAML and JSON documents share the
// same shape:
//
//	messages:
//	  - role: opponent
//	    content: Hello
//	  - role: owner
//	    content: Hi, how can I help?
func LoadFile(path string) ([]models.Message, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve history path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("read history file %q: %w", absPath, err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse history file %q: %w", absPath, err)
	}

	messages := make([]models.Message, 0, len(doc.Messages))
	for i, e := range doc.Messages {
		role, err := models.ParseRole(strings.ToLower(strings.TrimSpace(e.Role)))
		if err != nil {
			return nil, fmt.Errorf("history file %q: messages[%d]: %w", absPath, i, err)
		}
		messages = append(messages, models.Message{Role: role, Content: e.Content})
	}
	return messages, nil
}
