package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/tradebridge/backend/internal/apperr"
	"github.com/tradebridge/backend/internal/events"
	"go.uber.org/zap"
)

// stubSubscriber hands the registered handlers back to the test so events can
// be dispatched synchronously.
type stubSubscriber struct {
	handlers map[string]func(events.Event)
}

func (s *stubSubscriber) Subscribe(ctx context.Context, channel string, handler func(events.Event)) error {
	if s.handlers == nil {
		s.handlers = make(map[string]func(events.Event))
	}
	s.handlers[channel] = handler
	return nil
}

func TestNotificationFanout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	importer := env.newUser(t, "importer@example.com")
	exporter := env.newUser(t, "exporter@example.com")
	chatID := env.newTradeChat(t, importer, exporter)
	escrow := env.newEscrow(t, chatID, importer, "1000")

	sub := &stubSubscriber{}
	notifs := NewNotificationService(env.store, sub, zap.NewNop())
	if err := notifs.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	sub.handlers[events.ChannelEscrow](events.Event{
		Type: events.EventEscrowStatusChanged,
		Payload: map[string]any{
			"escrow_id":   escrow.ID.String(),
			"importer_id": importer.String(),
			"exporter_id": exporter.String(),
			"old_status":  "pending",
			"new_status":  "funded",
			"amount":      "1000",
			"currency":    "USD",
		},
	})

	for _, userID := range []uuid.UUID{importer, exporter} {
		items, err := notifs.List(ctx, userID, 0, 0)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(items) != 1 {
			t.Fatalf("user %s has %d notifications, want 1", userID, len(items))
		}
		if items[0].Kind != "escrow_status" || items[0].Read {
			t.Fatalf("unexpected notification: %+v", items[0])
		}
	}
}

func TestNotificationMarkRead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	store := env.store

	user := env.newUser(t, "user@example.com")
	other := env.newUser(t, "other@example.com")

	sub := &stubSubscriber{}
	notifs := NewNotificationService(store, sub, zap.NewNop())
	if err := notifs.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	sub.handlers[events.ChannelDispute](events.Event{
		Type: events.EventDisputeStatusChanged,
		Payload: map[string]any{
			"dispute_id":    "not-a-uuid", // entity id is optional
			"initiator_id":  user.String(),
			"respondent_id": user.String(), // self-dispute payload: one row, not two
			"new_status":    "open",
		},
	})

	items, err := notifs.List(ctx, user, 0, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d notifications, want 1 (deduplicated)", len(items))
	}

	if err := notifs.MarkRead(ctx, items[0].ID, other); !apperr.Is(err, apperr.CodeNotFound) {
		t.Fatalf("foreign mark read: got %v, want NOT_FOUND", err)
	}
	if err := notifs.MarkRead(ctx, items[0].ID, user); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	items, _ = notifs.List(ctx, user, 0, 0)
	if !items[0].Read {
		t.Fatal("notification still unread")
	}
}
