package dto

import "time"

type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Chats

type ParticipantRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

type CreateChatRequest struct {
	Name         string               `json:"name"`
	Type         string               `json:"type,omitempty"`
	Metadata     map[string]any       `json:"metadata,omitempty"`
	Participants []ParticipantRequest `json:"participants,omitempty"`
}

type AddParticipantRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

type PostMessageRequest struct {
	Content          string         `json:"content"`
	MessageType      string         `json:"message_type,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	ReplyToMessageID *string        `json:"reply_to_message_id,omitempty"`
}

type EditMessageRequest struct {
	Content string `json:"content"`
}

type MarkReadRequest struct {
	MessageID string `json:"message_id"`
}

// Escrows

type CreateEscrowRequest struct {
	ChatID            string     `json:"chat_id"`
	Amount            string     `json:"amount"`
	Currency          string     `json:"currency"`
	TradeDescription  string     `json:"trade_description"`
	ReleaseConditions *string    `json:"release_conditions,omitempty"`
	ReleaseDate       *time.Time `json:"release_date,omitempty"`
	ExporterID        *string    `json:"exporter_id,omitempty"`
}

// Disputes

type FileDisputeRequest struct {
	EscrowID     string   `json:"escrow_id"`
	Reason       string   `json:"reason"`
	Details      string   `json:"details,omitempty"`
	EvidenceURLs []string `json:"evidence_urls,omitempty"`
}

type ResolveDisputeRequest struct {
	Outcome string `json:"outcome"` // release / refund
	Notes   string `json:"notes,omitempty"`
}
