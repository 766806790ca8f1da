package models

import "fmt"

// Role identifies which side of the conversation authored a message.
type Role int

const (
	// Owner is the user the answer is generated for.
	Owner Role = iota
	// Opponent is the other participant of the chat.
	Opponent
)

// ParseRole maps the textual role name back onto a Role.
func ParseRole(s string) (Role, error) {
	switch s {
	case "owner":
		return Owner, nil
	case "opponent":
		return Opponent, nil
	default:
		return 0, fmt.Errorf("unknown role %q", s)
	}
}

func (r Role) String() string {
	switch r {
	case Owner:
		return "owner"
	case Opponent:
		return "opponent"
	default:
		return "unknown"
	}
}

// Message is a single chat turn. Values are immutable once constructed.
type Message struct {
	Role    Role
	Content string
}

// OwnerMessage constructs a message authored by the owner.
func OwnerMessage(content string) Message {
	return Message{Role: Owner, Content: content}
}

// OpponentMessage constructs a message authored by the opponent.
func OpponentMessage(content string) Message {
	return Message{Role: Opponent, Content: content}
}

// APIVersion is the path segment selecting the completion API revision.
type APIVersion string

const APIVersionV1 APIVersion = "v1"

// GPTModel names a chat completion model.
type GPTModel string

const (
	GPT35Turbo        GPTModel = "gpt-3.5-turbo"
	GPT35Turbo0613    GPTModel = "gpt-3.5-turbo-0613"
	GPT35Turbo16k     GPTModel = "gpt-3.5-turbo-16k"
	GPT35Turbo16k0613 GPTModel = "gpt-3.5-turbo-16k-0613"
	GPT4              GPTModel = "gpt-4"
	GPT40613          GPTModel = "gpt-4-0613"
	GPT432k           GPTModel = "gpt-4-32k"
	GPT432k0613       GPTModel = "gpt-4-32k-0613"

	// DefaultModel is the vendor's standard chat model.
	DefaultModel = GPT35Turbo
)

var knownModels = map[GPTModel]struct{}{
	GPT35Turbo:        {},
	GPT35Turbo0613:    {},
	GPT35Turbo16k:     {},
	GPT35Turbo16k0613: {},
	GPT4:              {},
	GPT40613:          {},
	GPT432k:           {},
	GPT432k0613:       {},
}

// KnownModel reports whether id is one of the catalogued chat models.
func KnownModel(id string) bool {
	_, ok := knownModels[GPTModel(id)]
	return ok
}

// Model identifies a model served by a relay upstream.
type Model struct {
	ID       string
	Provider string
}
