package models

import (
	"time"

	"github.com/google/uuid"
)

// Chat types
const (
	ChatTypeDirect           = "direct"
	ChatTypeGroup            = "group"
	ChatTypeTradeNegotiation = "trade_negotiation"
)

// Chat statuses
const (
	ChatStatusActive   = "active"
	ChatStatusArchived = "archived"
	ChatStatusClosed   = "closed"
)

func IsValidChatType(t string) bool {
	return t == ChatTypeDirect || t == ChatTypeGroup || t == ChatTypeTradeNegotiation
}

type Chat struct {
	ID        uuid.UUID      `json:"id"`
	Name      string         `json:"name"`
	Type      string         `json:"type"`
	Status    string         `json:"status"`
	CreatedBy uuid.UUID      `json:"created_by"`
	Metadata  map[string]any `json:"metadata,omitempty"` // free-form trade context: product, amount, delivery date
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"` // bumped on every new message
}

// Participant roles
const (
	RoleMember    = "member"
	RoleAdmin     = "admin"
	RoleImporter  = "importer"
	RoleExporter  = "exporter"
	RoleModerator = "moderator"
)

func IsValidParticipantRole(role string) bool {
	switch role {
	case RoleMember, RoleAdmin, RoleImporter, RoleExporter, RoleModerator:
		return true
	}
	return false
}

type ChatParticipant struct {
	ID                uuid.UUID  `json:"id"`
	ChatID            uuid.UUID  `json:"chat_id"`
	UserID            uuid.UUID  `json:"user_id"`
	Role              string     `json:"role"`
	JoinedAt          time.Time  `json:"joined_at"`
	LastReadMessageID *uuid.UUID `json:"last_read_message_id,omitempty"`
}

// Message types
const (
	MessageTypeText       = "text"
	MessageTypeFile       = "file"
	MessageTypeTradeOffer = "trade_offer"
	MessageTypeDispute    = "dispute"
	MessageTypeEscrow     = "escrow"
	MessageTypeSystem     = "system"
)

func IsValidMessageType(t string) bool {
	switch t {
	case MessageTypeText, MessageTypeFile, MessageTypeTradeOffer, MessageTypeDispute, MessageTypeEscrow, MessageTypeSystem:
		return true
	}
	return false
}

type ChatMessage struct {
	ID               uuid.UUID      `json:"id"`
	ChatID           uuid.UUID      `json:"chat_id"`
	SenderID         uuid.UUID      `json:"sender_id"`
	Content          string         `json:"content"`
	MessageType      string         `json:"message_type"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	IsEdited         bool           `json:"is_edited"`
	ReplyToMessageID *uuid.UUID     `json:"reply_to_message_id,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

// ChatWithParticipants embeds Chat and adds the participant list to avoid N+1 reads.
type ChatWithParticipants struct {
	Chat
	Participants []ChatParticipant `json:"participants"`
}
