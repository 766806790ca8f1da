package history

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"answer-assistant/internal/models"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadFile_YAML(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "chat.yaml", `
messages:
  - role: opponent
    content: Hello
  - role: Owner
    content: Hi, how can I help?
  - role: opponent
    content: ""
`)

	messages, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	want := []models.Message{
		models.OpponentMessage("Hello"),
		models.OwnerMessage("Hi, how can I help?"),
		models.OpponentMessage(""),
	}
	if len(messages) != len(want) {
		t.Fatalf("expected %d messages, got %+v", len(want), messages)
	}
	for i := range want {
		if messages[i] != want[i] {
			t.Errorf("message %d: expected %+v, got %+v", i, want[i], messages[i])
		}
	}
}

func TestLoadFile_JSON(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "chat.json", `{"messages":[{"role":"opponent","content":"Is it still for sale?"}]}`)

	messages, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if len(messages) != 1 || messages[0] != models.OpponentMessage("Is it still for sale?") {
		t.Errorf("unexpected messages %+v", messages)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	t.Parallel()

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := writeFile(t, "bad.yaml", "messages: [")
	if _, err := LoadFile(bad); err == nil {
		t.Error("expected parse error")
	}

	role := writeFile(t, "role.yaml", "messages:\n  - role: system\n    content: x\n")
	_, err := LoadFile(role)
	if err == nil || !strings.Contains(err.Error(), "messages[0]") {
		t.Errorf("expected role error naming the entry, got %v", err)
	}
}

func openTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := OpenStore(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_AppendAndHistory(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	chat := []models.Message{
		models.OpponentMessage("one"),
		models.OwnerMessage("two"),
		models.OpponentMessage("three"),
		models.OwnerMessage("four"),
	}
	for _, msg := range chat {
		if err := store.Append(ctx, "chat-1", msg); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
	if err := store.Append(ctx, "chat-2", models.OpponentMessage("elsewhere")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	all, err := store.History(ctx, "chat-1", 0)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(all) != len(chat) {
		t.Fatalf("expected %d messages, got %+v", len(chat), all)
	}
	for i := range chat {
		if all[i] != chat[i] {
			t.Errorf("message %d: expected %+v, got %+v", i, chat[i], all[i])
		}
	}

	newest, err := store.History(ctx, "chat-1", 2)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(newest) != 2 || newest[0].Content != "three" || newest[1].Content != "four" {
		t.Errorf("expected the two newest messages oldest first, got %+v", newest)
	}

	empty, err := store.History(ctx, "unknown", 10)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected no messages, got %+v", empty)
	}
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	store, err := OpenStore(path)
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	if err := store.Append(ctx, "chat", models.OwnerMessage("kept")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := OpenStore(path)
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	defer reopened.Close()

	messages, err := reopened.History(ctx, "chat", 0)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(messages) != 1 || messages[0] != models.OwnerMessage("kept") {
		t.Errorf("unexpected messages %+v", messages)
	}
}

func TestStore_Errors(t *testing.T) {
	t.Parallel()

	if _, err := OpenStore(filepath.Join(t.TempDir(), "missing", "history.db")); err == nil {
		t.Error("expected error for missing parent directory")
	}

	store, err := OpenStore(":memory:")
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Append(ctx, "", models.OwnerMessage("x")); !errors.Is(err, ErrEmptyChatID) {
		t.Errorf("expected ErrEmptyChatID, got %v", err)
	}
	if _, err := store.History(ctx, "", 1); !errors.Is(err, ErrEmptyChatID) {
		t.Errorf("expected ErrEmptyChatID, got %v", err)
	}
}
