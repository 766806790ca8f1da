package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	// Registers the pure-Go driver as "sqlite".
	_ "modernc.org/sqlite"

	"answer-assistant/internal/models"
)

const memoryPath = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	chat_id    TEXT    NOT NULL,
	role       TEXT    NOT NULL CHECK (role IN ('owner', 'opponent')),
	content    TEXT    NOT NULL,
	created_at TEXT    NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_messages_chat ON messages (chat_id, id);
`

// ErrEmptyChatID is returned when a chat identifier is blank.
var ErrEmptyChatID = errors.New("chat id must not be empty")

// Store persists chat messages per chat in SQLite.
type Store struct {
	db *sql.DB
}

// OpenStore opens or creates the database at path and applies the schema.
// ":memory:" opens a private in-memory database.
func OpenStore(path string) (*Store, error) {
	if path != memoryPath {
		dir := filepath.Dir(path)
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return nil, fmt.Errorf("history store: parent directory %q does not exist", dir)
		}
	}

	dsn := path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("history store: open %q: %w", path, err)
	}

	// Each connection to :memory: is a separate database.
	if path == memoryPath {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(4)
		db.SetMaxIdleConns(2)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history store: apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append adds msg as the newest message of the chat.
func (s *Store) Append(ctx context.Context, chatID string, msg models.Message) error {
	if chatID == "" {
		return ErrEmptyChatID
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (chat_id, role, content) VALUES (?, ?, ?)`,
		chatID, msg.Role.String(), msg.Content,
	)
	if err != nil {
		return fmt.Errorf("append message to chat %q: %w", chatID, err)
	}
	return nil
}

// History returns up to limit of the newest messages of the chat, oldest
// first. A limit of zero or less returns the whole chat.
func (s *Store) History(ctx context.Context, chatID string, limit int) ([]models.Message, error) {
	if chatID == "" {
		return nil, ErrEmptyChatID
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content FROM (
			SELECT id, role, content FROM messages
			WHERE chat_id = ?
			ORDER BY id DESC
			LIMIT ?
		) ORDER BY id ASC`,
		chatID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query chat %q: %w", chatID, err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var roleName, content string
		if err := rows.Scan(&roleName, &content); err != nil {
			return nil, fmt.Errorf("scan chat %q: %w", chatID, err)
		}
		role, err := models.ParseRole(roleName)
		if err != nil {
			return nil, fmt.Errorf("chat %q: %w", chatID, err)
		}
		messages = append(messages, models.Message{Role: role, Content: content})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read chat %q: %w", chatID, err)
	}
	return messages, nil
}
