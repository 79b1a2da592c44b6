package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tradebridge/backend/internal/apperr"
	"github.com/tradebridge/backend/internal/config"
	"github.com/tradebridge/backend/internal/events"
	"github.com/tradebridge/backend/internal/models"
	"github.com/tradebridge/backend/internal/rbac"
	"github.com/tradebridge/backend/internal/repositories"
	"go.uber.org/zap"
)

type ChatService struct {
	store     repositories.Store
	publisher events.Publisher
	cfg       *config.Config
	log       *zap.Logger
}

func NewChatService(store repositories.Store, publisher events.Publisher, cfg *config.Config, log *zap.Logger) *ChatService {
	return &ChatService{store: store, publisher: publisher, cfg: cfg, log: log}
}

type ParticipantInput struct {
	UserID uuid.UUID
	Role   string
}

type CreateChatInput struct {
	Name         string
	Type         string
	Metadata     map[string]any
	Participants []ParticipantInput
}

func (s *ChatService) CreateChat(ctx context.Context, creatorID uuid.UUID, input CreateChatInput) (*models.ChatWithParticipants, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, apperr.Validation("name is required")
	}
	if input.Type == "" {
		input.Type = models.ChatTypeDirect
	}
	if !models.IsValidChatType(input.Type) {
		return nil, apperr.Validation("invalid chat type, must be one of: direct, group, trade_negotiation")
	}
	seen := make(map[uuid.UUID]bool, len(input.Participants))
	for _, p := range input.Participants {
		if !models.IsValidParticipantRole(p.Role) {
			return nil, apperr.Validation("invalid participant role: " + p.Role)
		}
		if seen[p.UserID] {
			return nil, apperr.Validation("duplicate participant: " + p.UserID.String())
		}
		seen[p.UserID] = true
	}

	chat := &models.Chat{
		Name:      input.Name,
		Type:      input.Type,
		Status:    models.ChatStatusActive,
		CreatedBy: creatorID,
		Metadata:  input.Metadata,
	}

	var participants []models.ChatParticipant
	err := s.store.WithTx(ctx, func(tx repositories.Store) error {
		if err := tx.Chats().CreateChat(ctx, chat); err != nil {
			return err
		}

		creatorIncluded := false
		for _, in := range input.Participants {
			if in.UserID == creatorID {
				creatorIncluded = true
			}
			p := models.ChatParticipant{ChatID: chat.ID, UserID: in.UserID, Role: in.Role}
			if err := tx.Chats().AddParticipant(ctx, &p); err != nil {
				return err
			}
			participants = append(participants, p)
		}
		if !creatorIncluded {
			p := models.ChatParticipant{ChatID: chat.ID, UserID: creatorID, Role: models.RoleAdmin}
			if err := tx.Chats().AddParticipant(ctx, &p); err != nil {
				return err
			}
			participants = append(participants, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	_ = s.store.Audit().Log(ctx, models.AuditLog{
		ActorUserID: &creatorID,
		ActorType:   "user",
		Action:      "chat_created",
		EntityType:  "chat",
		EntityID:    &chat.ID,
		Meta:        map[string]any{"type": chat.Type, "participants": len(participants)},
	})

	return &models.ChatWithParticipants{Chat: *chat, Participants: participants}, nil
}

func (s *ChatService) GetChat(ctx context.Context, chatID, actorID uuid.UUID) (*models.ChatWithParticipants, error) {
	chat, err := s.store.Chats().GetChat(ctx, chatID)
	if err != nil {
		if err == repositories.ErrNotFound {
			return nil, apperr.NotFound("chat")
		}
		return nil, err
	}
	if _, err := s.requireParticipant(ctx, chatID, actorID); err != nil {
		return nil, err
	}
	participants, err := s.store.Chats().ListParticipants(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return &models.ChatWithParticipants{Chat: *chat, Participants: participants}, nil
}

func (s *ChatService) ListChats(ctx context.Context, userID uuid.UUID) ([]models.Chat, error) {
	return s.store.Chats().ListChatsForUser(ctx, userID)
}

func (s *ChatService) AddParticipant(ctx context.Context, chatID, actorID, userID uuid.UUID, role string) (*models.ChatParticipant, error) {
	if !models.IsValidParticipantRole(role) {
		return nil, apperr.Validation("invalid participant role: " + role)
	}

	chat, err := s.store.Chats().GetChat(ctx, chatID)
	if err != nil {
		if err == repositories.ErrNotFound {
			return nil, apperr.NotFound("chat")
		}
		return nil, err
	}

	actor, err := s.requireParticipant(ctx, chatID, actorID)
	if err != nil {
		return nil, err
	}
	if !rbac.HasPermission(actor.Role, rbac.PermManageParticipants) && chat.CreatedBy != actorID {
		return nil, apperr.Forbidden("only a chat admin can add participants")
	}

	if _, err := s.store.Chats().GetParticipant(ctx, chatID, userID); err == nil {
		return nil, apperr.Conflict("user is already a participant")
	}

	p := &models.ChatParticipant{ChatID: chatID, UserID: userID, Role: role}
	if err := s.store.Chats().AddParticipant(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

type PostMessageInput struct {
	Content          string
	MessageType      string
	Metadata         map[string]any
	ReplyToMessageID *uuid.UUID
}

func (s *ChatService) PostMessage(ctx context.Context, chatID, senderID uuid.UUID, input PostMessageInput) (*models.ChatMessage, error) {
	if strings.TrimSpace(input.Content) == "" {
		return nil, apperr.Validation("content is required")
	}
	if input.MessageType == "" {
		input.MessageType = models.MessageTypeText
	}
	if !models.IsValidMessageType(input.MessageType) {
		return nil, apperr.Validation("invalid message type: " + input.MessageType)
	}

	if _, err := s.store.Chats().GetChat(ctx, chatID); err != nil {
		if err == repositories.ErrNotFound {
			return nil, apperr.NotFound("chat")
		}
		return nil, err
	}
	if _, err := s.requireParticipant(ctx, chatID, senderID); err != nil {
		return nil, err
	}

	if input.ReplyToMessageID != nil {
		parent, err := s.store.Chats().GetMessage(ctx, *input.ReplyToMessageID)
		if err != nil || parent.ChatID != chatID {
			return nil, apperr.Validation("reply_to_message_id does not reference a message in this chat")
		}
	}

	msg := &models.ChatMessage{
		ChatID:           chatID,
		SenderID:         senderID,
		Content:          input.Content,
		MessageType:      input.MessageType,
		Metadata:         input.Metadata,
		ReplyToMessageID: input.ReplyToMessageID,
	}
	if err := s.store.Chats().CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	// The chat surfaces its latest activity through updated_at.
	if err := s.store.Chats().TouchChat(ctx, chatID, msg.CreatedAt); err != nil {
		s.log.Warn("failed to bump chat updated_at", zap.Error(err))
	}

	_ = s.publisher.Publish(ctx, events.ChannelChat, events.Event{
		Type: events.EventChatMessagePosted,
		Payload: map[string]any{
			"chat_id":      chatID.String(),
			"message_id":   msg.ID.String(),
			"sender_id":    senderID.String(),
			"message_type": msg.MessageType,
		},
	})

	return msg, nil
}

// PostSystemMessage appends a lifecycle announcement to the chat thread on
// behalf of the acting user. Callers treat failures as non-fatal.
func (s *ChatService) PostSystemMessage(ctx context.Context, chatID, actorID uuid.UUID, content, messageType string, metadata map[string]any) {
	msg := &models.ChatMessage{
		ChatID:      chatID,
		SenderID:    actorID,
		Content:     content,
		MessageType: messageType,
		Metadata:    metadata,
	}
	if err := s.store.Chats().CreateMessage(ctx, msg); err != nil {
		s.log.Warn("failed to post system message", zap.String("chat_id", chatID.String()), zap.Error(err))
		return
	}
	if err := s.store.Chats().TouchChat(ctx, chatID, msg.CreatedAt); err != nil {
		s.log.Warn("failed to bump chat updated_at", zap.Error(err))
	}
}

func (s *ChatService) EditMessage(ctx context.Context, messageID, actorID uuid.UUID, content string) (*models.ChatMessage, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperr.Validation("content is required")
	}

	msg, err := s.store.Chats().GetMessage(ctx, messageID)
	if err != nil {
		if err == repositories.ErrNotFound {
			return nil, apperr.NotFound("message")
		}
		return nil, err
	}
	if msg.SenderID != actorID {
		return nil, apperr.Forbidden("only the author can edit a message")
	}

	if err := s.store.Chats().UpdateMessageContent(ctx, messageID, content); err != nil {
		return nil, err
	}
	msg.Content = content
	msg.IsEdited = true
	return msg, nil
}

// ListMessages returns the chat feed ascending by creation time. before, when
// set, is a message id resolved to its timestamp; only strictly older messages
// are returned.
func (s *ChatService) ListMessages(ctx context.Context, chatID, actorID uuid.UUID, limit int, beforeMessageID *uuid.UUID) ([]models.ChatMessage, error) {
	if _, err := s.store.Chats().GetChat(ctx, chatID); err != nil {
		if err == repositories.ErrNotFound {
			return nil, apperr.NotFound("chat")
		}
		return nil, err
	}
	if _, err := s.requireParticipant(ctx, chatID, actorID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = s.cfg.MessagePageLimit
	}
	if limit > s.cfg.MessagePageMax {
		limit = s.cfg.MessagePageMax
	}

	var before *time.Time
	if beforeMessageID != nil {
		ref, err := s.store.Chats().GetMessage(ctx, *beforeMessageID)
		if err != nil || ref.ChatID != chatID {
			return nil, apperr.Validation("before does not reference a message in this chat")
		}
		before = &ref.CreatedAt
	}

	return s.store.Chats().ListMessages(ctx, chatID, limit, before)
}

func (s *ChatService) MarkRead(ctx context.Context, chatID, actorID, messageID uuid.UUID) error {
	if _, err := s.requireParticipant(ctx, chatID, actorID); err != nil {
		return err
	}
	msg, err := s.store.Chats().GetMessage(ctx, messageID)
	if err != nil {
		if err == repositories.ErrNotFound {
			return apperr.NotFound("message")
		}
		return err
	}
	if msg.ChatID != chatID {
		return apperr.Validation("message does not belong to this chat")
	}
	return s.store.Chats().SetLastRead(ctx, chatID, actorID, messageID)
}

func (s *ChatService) requireParticipant(ctx context.Context, chatID, userID uuid.UUID) (*models.ChatParticipant, error) {
	p, err := s.store.Chats().GetParticipant(ctx, chatID, userID)
	if err != nil {
		if err == repositories.ErrNotFound {
			return nil, apperr.Forbidden("user is not a participant of this chat")
		}
		return nil, err
	}
	return p, nil
}
