package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification kinds
const (
	NotificationEscrowStatus  = "escrow_status"
	NotificationDisputeStatus = "dispute_status"
)

type Notification struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	Kind       string     `json:"kind"`
	Title      string     `json:"title"`
	Body       string     `json:"body"`
	EntityType string     `json:"entity_type"`
	EntityID   *uuid.UUID `json:"entity_id,omitempty"`
	Read       bool       `json:"read"`
	CreatedAt  time.Time  `json:"created_at"`
}
