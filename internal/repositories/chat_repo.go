package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tradebridge/backend/internal/models"
)

type ChatRepository interface {
	CreateChat(ctx context.Context, c *models.Chat) error
	GetChat(ctx context.Context, id uuid.UUID) (*models.Chat, error)
	ListChatsForUser(ctx context.Context, userID uuid.UUID) ([]models.Chat, error)
	TouchChat(ctx context.Context, id uuid.UUID, at time.Time) error

	AddParticipant(ctx context.Context, p *models.ChatParticipant) error
	GetParticipant(ctx context.Context, chatID, userID uuid.UUID) (*models.ChatParticipant, error)
	ListParticipants(ctx context.Context, chatID uuid.UUID) ([]models.ChatParticipant, error)
	FindParticipantByRole(ctx context.Context, chatID uuid.UUID, role string) (*models.ChatParticipant, error)
	SetLastRead(ctx context.Context, chatID, userID, messageID uuid.UUID) error

	CreateMessage(ctx context.Context, m *models.ChatMessage) error
	GetMessage(ctx context.Context, id uuid.UUID) (*models.ChatMessage, error)
	UpdateMessageContent(ctx context.Context, id uuid.UUID, content string) error
	ListMessages(ctx context.Context, chatID uuid.UUID, limit int, before *time.Time) ([]models.ChatMessage, error)
}

type PgChatRepo struct {
	db DB
}

func (r *PgChatRepo) CreateChat(ctx context.Context, c *models.Chat) error {
	metaBytes, _ := json.Marshal(c.Metadata)
	return r.db.QueryRow(ctx, `
		INSERT INTO chats (name, type, status, created_by, metadata)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, c.Name, c.Type, c.Status, c.CreatedBy, metaBytes).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (r *PgChatRepo) GetChat(ctx context.Context, id uuid.UUID) (*models.Chat, error) {
	var c models.Chat
	var metaBytes []byte
	err := r.db.QueryRow(ctx, `
		SELECT id, name, type, status, created_by, metadata, created_at, updated_at
		FROM chats WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Type, &c.Status, &c.CreatedBy, &metaBytes, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	_ = json.Unmarshal(metaBytes, &c.Metadata)
	return &c, nil
}

func (r *PgChatRepo) ListChatsForUser(ctx context.Context, userID uuid.UUID) ([]models.Chat, error) {
	rows, err := r.db.Query(ctx, `
		SELECT c.id, c.name, c.type, c.status, c.created_by, c.metadata, c.created_at, c.updated_at
		FROM chats c
		JOIN chat_participants cp ON cp.chat_id = c.id
		WHERE cp.user_id = $1
		ORDER BY c.updated_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chats []models.Chat
	for rows.Next() {
		var c models.Chat
		var metaBytes []byte
		if err := rows.Scan(&c.ID, &c.Name, &c.Type, &c.Status, &c.CreatedBy, &metaBytes, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(metaBytes, &c.Metadata)
		chats = append(chats, c)
	}
	return chats, nil
}

func (r *PgChatRepo) TouchChat(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE chats SET updated_at = $1 WHERE id = $2`, at, id)
	return err
}

func (r *PgChatRepo) AddParticipant(ctx context.Context, p *models.ChatParticipant) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO chat_participants (chat_id, user_id, role)
		VALUES ($1, $2, $3)
		RETURNING id, joined_at
	`, p.ChatID, p.UserID, p.Role).Scan(&p.ID, &p.JoinedAt)
}

func (r *PgChatRepo) GetParticipant(ctx context.Context, chatID, userID uuid.UUID) (*models.ChatParticipant, error) {
	var p models.ChatParticipant
	err := r.db.QueryRow(ctx, `
		SELECT id, chat_id, user_id, role, joined_at, last_read_message_id
		FROM chat_participants WHERE chat_id = $1 AND user_id = $2
	`, chatID, userID).Scan(&p.ID, &p.ChatID, &p.UserID, &p.Role, &p.JoinedAt, &p.LastReadMessageID)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *PgChatRepo) ListParticipants(ctx context.Context, chatID uuid.UUID) ([]models.ChatParticipant, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, chat_id, user_id, role, joined_at, last_read_message_id
		FROM chat_participants WHERE chat_id = $1 ORDER BY joined_at ASC
	`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var parts []models.ChatParticipant
	for rows.Next() {
		var p models.ChatParticipant
		if err := rows.Scan(&p.ID, &p.ChatID, &p.UserID, &p.Role, &p.JoinedAt, &p.LastReadMessageID); err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	return parts, nil
}

func (r *PgChatRepo) FindParticipantByRole(ctx context.Context, chatID uuid.UUID, role string) (*models.ChatParticipant, error) {
	var p models.ChatParticipant
	err := r.db.QueryRow(ctx, `
		SELECT id, chat_id, user_id, role, joined_at, last_read_message_id
		FROM chat_participants WHERE chat_id = $1 AND role = $2
		ORDER BY joined_at ASC LIMIT 1
	`, chatID, role).Scan(&p.ID, &p.ChatID, &p.UserID, &p.Role, &p.JoinedAt, &p.LastReadMessageID)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *PgChatRepo) SetLastRead(ctx context.Context, chatID, userID, messageID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
		UPDATE chat_participants SET last_read_message_id = $1
		WHERE chat_id = $2 AND user_id = $3
	`, messageID, chatID, userID)
	return err
}

func (r *PgChatRepo) CreateMessage(ctx context.Context, m *models.ChatMessage) error {
	metaBytes, _ := json.Marshal(m.Metadata)
	return r.db.QueryRow(ctx, `
		INSERT INTO chat_messages (chat_id, sender_id, content, message_type, metadata, reply_to_message_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, is_edited, created_at
	`, m.ChatID, m.SenderID, m.Content, m.MessageType, metaBytes, m.ReplyToMessageID).
		Scan(&m.ID, &m.IsEdited, &m.CreatedAt)
}

func (r *PgChatRepo) GetMessage(ctx context.Context, id uuid.UUID) (*models.ChatMessage, error) {
	var m models.ChatMessage
	var metaBytes []byte
	err := r.db.QueryRow(ctx, `
		SELECT id, chat_id, sender_id, content, message_type, metadata, is_edited, reply_to_message_id, created_at
		FROM chat_messages WHERE id = $1
	`, id).Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Content, &m.MessageType, &metaBytes, &m.IsEdited, &m.ReplyToMessageID, &m.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	_ = json.Unmarshal(metaBytes, &m.Metadata)
	return &m, nil
}

func (r *PgChatRepo) UpdateMessageContent(ctx context.Context, id uuid.UUID, content string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE chat_messages SET content = $1, is_edited = true WHERE id = $2
	`, content, id)
	return err
}

// ListMessages returns messages ascending by creation time. With a cursor it
// returns the page of messages strictly older than the cursor timestamp, still
// ascending within the page (the feed renders oldest-first).
func (r *PgChatRepo) ListMessages(ctx context.Context, chatID uuid.UUID, limit int, before *time.Time) ([]models.ChatMessage, error) {
	inner := `
		SELECT id, chat_id, sender_id, content, message_type, metadata, is_edited, reply_to_message_id, created_at
		FROM chat_messages WHERE chat_id = $1
	`
	args := []any{chatID}
	argIdx := 2
	if before != nil {
		inner += fmt.Sprintf(" AND created_at < $%d", argIdx)
		args = append(args, *before)
		argIdx++
	}

	query := inner + " ORDER BY created_at ASC, id ASC"
	if limit > 0 {
		inner += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", argIdx)
		args = append(args, limit)
		query = "SELECT * FROM (" + inner + ") page ORDER BY created_at ASC, id ASC"
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		var metaBytes []byte
		if err := rows.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Content, &m.MessageType, &metaBytes, &m.IsEdited, &m.ReplyToMessageID, &m.CreatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(metaBytes, &m.Metadata)
		msgs = append(msgs, m)
	}
	return msgs, nil
}
