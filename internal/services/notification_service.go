package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/tradebridge/backend/internal/apperr"
	"github.com/tradebridge/backend/internal/events"
	"github.com/tradebridge/backend/internal/models"
	"github.com/tradebridge/backend/internal/repositories"
	"go.uber.org/zap"
)

// NotificationService fans lifecycle events out into per-user notification
// rows. Clients poll GET /notifications; nothing is pushed.
type NotificationService struct {
	store      repositories.Store
	subscriber events.Subscriber
	log        *zap.Logger
}

func NewNotificationService(store repositories.Store, subscriber events.Subscriber, log *zap.Logger) *NotificationService {
	return &NotificationService{store: store, subscriber: subscriber, log: log}
}

// Start subscribes to the escrow and dispute channels for the lifetime of ctx.
func (s *NotificationService) Start(ctx context.Context) error {
	if err := s.subscriber.Subscribe(ctx, events.ChannelEscrow, s.onEscrowEvent); err != nil {
		return err
	}
	return s.subscriber.Subscribe(ctx, events.ChannelDispute, s.onDisputeEvent)
}

func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Notification, error) {
	return s.store.Notifications().ListByUser(ctx, userID, limit, offset)
}

func (s *NotificationService) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	ok, err := s.store.Notifications().MarkRead(ctx, id, userID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("notification")
	}
	return nil
}

func (s *NotificationService) onEscrowEvent(event events.Event) {
	if event.Type != events.EventEscrowStatusChanged {
		return
	}
	escrowID := parseID(event.Payload, "escrow_id")
	newStatus, _ := event.Payload["new_status"].(string)
	amount, _ := event.Payload["amount"].(string)
	currency, _ := event.Payload["currency"].(string)

	title := "Escrow " + newStatus
	body := fmt.Sprintf("Escrow of %s %s is now %s", amount, currency, newStatus)
	s.notifyBoth(event.Payload, "importer_id", "exporter_id",
		models.NotificationEscrowStatus, title, body, "escrow", escrowID)
}

func (s *NotificationService) onDisputeEvent(event events.Event) {
	if event.Type != events.EventDisputeStatusChanged {
		return
	}
	disputeID := parseID(event.Payload, "dispute_id")
	newStatus, _ := event.Payload["new_status"].(string)

	title := "Dispute " + newStatus
	body := "A dispute on your escrow is now " + newStatus
	s.notifyBoth(event.Payload, "initiator_id", "respondent_id",
		models.NotificationDisputeStatus, title, body, "dispute", disputeID)
}

func (s *NotificationService) notifyBoth(payload map[string]any, keyA, keyB, kind, title, body, entityType string, entityID *uuid.UUID) {
	ctx := context.Background()
	seen := map[uuid.UUID]bool{}
	for _, key := range []string{keyA, keyB} {
		userID := parseID(payload, key)
		if userID == nil || seen[*userID] {
			continue
		}
		seen[*userID] = true

		n := &models.Notification{
			UserID:     *userID,
			Kind:       kind,
			Title:      title,
			Body:       body,
			EntityType: entityType,
			EntityID:   entityID,
		}
		if err := s.store.Notifications().Create(ctx, n); err != nil {
			s.log.Error("failed to create notification", zap.String("kind", kind), zap.Error(err))
		}
	}
}

func parseID(payload map[string]any, key string) *uuid.UUID {
	raw, _ := payload[key].(string)
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}
