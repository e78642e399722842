// Package chat manages per-user conversations and their messages. Each
// chat keeps a denormalized preview and message count so listings never
// touch the messages table.
package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"choco-backend/internal/store"
)

// ErrNotFound indicates the chat or message does not exist for the
// user.
var ErrNotFound = errors.New("chat not found")

// previewLength bounds the denormalized last-message preview.
const previewLength = 100

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Chat is one conversation of one user.
type Chat struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Title        string    `json:"title"`
	Preview      string    `json:"preview,omitempty"`
	MessageCount int       `json:"message_count"`
	SessionID    string    `json:"session_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Message is one entry of a conversation.
type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Service persists chats and messages.
type Service struct {
	db     store.Querier
	logger zerolog.Logger
}

// NewService creates the chat service.
func NewService(db store.Querier, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger.With().Str("component", "chat").Logger(),
	}
}

// EnsureSchema creates the chat tables when absent.
func (s *Service) EnsureSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS chats (
	id            TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL,
	title         TEXT NOT NULL,
	preview       TEXT NOT NULL DEFAULT '',
	message_count INTEGER NOT NULL DEFAULT 0,
	session_id    TEXT NOT NULL,
	created_at    TIMESTAMP NOT NULL,
	updated_at    TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chats_user ON chats (user_id, updated_at);
CREATE TABLE IF NOT EXISTS chat_messages (
	id         TEXT PRIMARY KEY,
	chat_id    TEXT NOT NULL,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_messages_chat ON chat_messages (chat_id, created_at);`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create chat schema: %w", err)
	}
	return nil
}

// Create opens a new conversation. The session id ties messages to the
// external agent's conversational state.
func (s *Service) Create(ctx context.Context, userID, title string) (*Chat, error) {
	if title == "" {
		title = "New chat"
	}
	now := time.Now().UTC()
	c := &Chat{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     title,
		SessionID: uuid.New().String(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	const query = `
INSERT INTO chats (id, user_id, title, preview, message_count, session_id, created_at, updated_at)
VALUES (?, ?, ?, '', 0, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query, c.ID, c.UserID, c.Title, c.SessionID, c.CreatedAt, c.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}
	s.logger.Info().Str("chat_id", c.ID).Str("user_id", userID).Msg("chat created")
	return c, nil
}

// Get loads one chat, scoped to its owner.
func (s *Service) Get(ctx context.Context, userID, chatID string) (*Chat, error) {
	const query = `
SELECT id, user_id, title, preview, message_count, session_id, created_at, updated_at
FROM chats WHERE id = ? AND user_id = ?`
	c, err := scanChat(s.db.QueryRowContext(ctx, query, chatID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load chat %s: %w", chatID, err)
	}
	return c, nil
}

// List returns the user's chats, most recently active first.
func (s *Service) List(ctx context.Context, userID string) ([]*Chat, error) {
	const query = `
SELECT id, user_id, title, preview, message_count, session_id, created_at, updated_at
FROM chats WHERE user_id = ? ORDER BY updated_at DESC`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	defer rows.Close()

	var chats []*Chat
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chat row: %w", err)
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

// Rename changes the chat title.
func (s *Service) Rename(ctx context.Context, userID, chatID, title string) error {
	if title == "" {
		return fmt.Errorf("chat title is empty")
	}
	const query = `UPDATE chats SET title = ?, updated_at = ? WHERE id = ? AND user_id = ?`
	res, err := s.db.ExecContext(ctx, query, title, time.Now().UTC(), chatID, userID)
	if err != nil {
		return fmt.Errorf("failed to rename chat %s: %w", chatID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a chat and all its messages.
func (s *Service) Delete(ctx context.Context, userID, chatID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chats WHERE id = ? AND user_id = ?`, chatID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete chat %s: %w", chatID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE chat_id = ?`, chatID); err != nil {
		return fmt.Errorf("failed to delete chat messages: %w", err)
	}
	return nil
}

// AddMessage appends a message and refreshes the chat's preview, count
// and activity timestamp.
func (s *Service) AddMessage(ctx context.Context, userID, chatID, role, content string) (*Message, error) {
	if role != RoleUser && role != RoleAssistant {
		return nil, fmt.Errorf("invalid message role %q", role)
	}
	if _, err := s.Get(ctx, userID, chatID); err != nil {
		return nil, err
	}

	m := &Message{
		ID:        uuid.New().String(),
		ChatID:    chatID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	const insert = `
INSERT INTO chat_messages (id, chat_id, role, content, created_at)
VALUES (?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, insert, m.ID, m.ChatID, m.Role, m.Content, m.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to add message: %w", err)
	}

	const update = `
UPDATE chats SET preview = ?, message_count = message_count + 1, updated_at = ?
WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, update, preview(content), m.CreatedAt, chatID); err != nil {
		return nil, fmt.Errorf("failed to update chat preview: %w", err)
	}
	return m, nil
}

// Messages returns a chat's messages in chronological order.
func (s *Service) Messages(ctx context.Context, userID, chatID string) ([]*Message, error) {
	if _, err := s.Get(ctx, userID, chatID); err != nil {
		return nil, err
	}
	const query = `
SELECT id, chat_id, role, content, created_at
FROM chat_messages WHERE chat_id = ? ORDER BY created_at ASC`
	rows, err := s.db.QueryContext(ctx, query, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		messages = append(messages, &m)
	}
	return messages, rows.Err()
}

// preview truncates message content for chat listings.
func preview(content string) string {
	content = strings.TrimSpace(content)
	runes := []rune(content)
	if len(runes) <= previewLength {
		return content
	}
	return string(runes[:previewLength]) + "..."
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChat(row rowScanner) (*Chat, error) {
	var c Chat
	err := row.Scan(&c.ID, &c.UserID, &c.Title, &c.Preview, &c.MessageCount,
		&c.SessionID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
