// Package tokenizer estimates token usage of chat messages and picks the
// part of a conversation that fits a token budget.
//
// The estimate counts whitespace-separated words. It is cheaper than a model
// tokenizer and only approximates it, but it is deterministic and monotonic,
// which is what history selection relies on.
package tokenizer

import (
	"strings"

	"answer-assistant/internal/models"
)

// Count returns the estimated number of tokens in text.
func Count(text string) int {
	return len(strings.Fields(text))
}

// Extract returns the longest suffix of messages whose estimated token total
// does not exceed limit, in chronological order.
//
// Messages are taken newest first; the walk stops at the first message that
// would overflow the budget, so the result never has gaps. A message is never
// truncated to fit.
func Extract(messages []models.Message, limit int) []models.Message {
	if limit < 0 {
		limit = 0
	}

	total := 0
	start := len(messages)
	for i := len(messages) - 1; i >= 0; i-- {
		cost := Count(messages[i].Content)
		if total+cost > limit {
			break
		}
		total += cost
		start = i
	}

	selected := make([]models.Message, len(messages)-start)
	copy(selected, messages[start:])
	return selected
}

// Total sums the estimated tokens of all messages.
func Total(messages []models.Message) int {
	total := 0
	for _, msg := range messages {
		total += Count(msg.Content)
	}
	return total
}
