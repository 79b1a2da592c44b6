package services

import (
	"context"
	"testing"

	"github.com/tradebridge/backend/internal/apperr"
	"github.com/tradebridge/backend/internal/events"
	"github.com/tradebridge/backend/internal/models"
)

func TestEscrowHappyPath(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	importer := env.newUser(t, "importer@example.com")
	exporter := env.newUser(t, "exporter@example.com")
	chatID := env.newTradeChat(t, importer, exporter)

	escrow := env.newEscrow(t, chatID, importer, "1000")
	if escrow.Status != models.EscrowStatusPending {
		t.Fatalf("status = %s, want pending", escrow.Status)
	}
	if escrow.ExporterID != exporter {
		t.Fatalf("exporter resolved to %s, want %s", escrow.ExporterID, exporter)
	}

	escrow, err := env.escrows.Fund(ctx, escrow.ID, importer)
	if err != nil {
		t.Fatalf("fund: %v", err)
	}
	if escrow.Status != models.EscrowStatusFunded {
		t.Fatalf("status = %s, want funded", escrow.Status)
	}
	if escrow.TransactionID == nil {
		t.Fatal("fund did not record a transaction id")
	}

	available, inEscrow := env.balance(t, importer, "USD")
	if available != "-1000" || inEscrow != "1000" {
		t.Fatalf("importer balance after fund = %s/%s, want -1000/1000", available, inEscrow)
	}

	escrow, err = env.escrows.Release(ctx, escrow.ID, importer)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if escrow.Status != models.EscrowStatusReleased {
		t.Fatalf("status = %s, want released", escrow.Status)
	}

	_, inEscrow = env.balance(t, importer, "USD")
	if inEscrow != "0" {
		t.Fatalf("importer in_escrow after release = %s, want 0", inEscrow)
	}
	available, _ = env.balance(t, exporter, "USD")
	if available != "1000" {
		t.Fatalf("exporter available after release = %s, want 1000", available)
	}

	// Three status changes, three events.
	if got := len(env.pub.byType(events.EventEscrowStatusChanged)); got != 3 {
		t.Fatalf("escrow events = %d, want 3", got)
	}
}

func TestEscrowInvalidTransitions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	importer := env.newUser(t, "importer@example.com")
	exporter := env.newUser(t, "exporter@example.com")
	chatID := env.newTradeChat(t, importer, exporter)
	escrow := env.newEscrow(t, chatID, importer, "500")

	// Cannot release before funding.
	if _, err := env.escrows.Release(ctx, escrow.ID, importer); !apperr.Is(err, apperr.CodeInvalidTransition) {
		t.Fatalf("release pending: got %v, want INVALID_TRANSITION", err)
	}

	if _, err := env.escrows.Fund(ctx, escrow.ID, importer); err != nil {
		t.Fatalf("fund: %v", err)
	}

	// Double fund is rejected.
	if _, err := env.escrows.Fund(ctx, escrow.ID, importer); !apperr.Is(err, apperr.CodeInvalidTransition) {
		t.Fatalf("double fund: got %v, want INVALID_TRANSITION", err)
	}

	if _, err := env.escrows.Release(ctx, escrow.ID, importer); err != nil {
		t.Fatalf("release: %v", err)
	}

	// Terminal: no way out of released.
	if _, err := env.escrows.Release(ctx, escrow.ID, importer); !apperr.Is(err, apperr.CodeInvalidTransition) {
		t.Fatalf("release released: got %v, want INVALID_TRANSITION", err)
	}
}

func TestEscrowAuthorization(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	importer := env.newUser(t, "importer@example.com")
	exporter := env.newUser(t, "exporter@example.com")
	outsider := env.newUser(t, "outsider@example.com")
	chatID := env.newTradeChat(t, importer, exporter)

	// Only the importer creates escrows.
	_, err := env.escrows.Create(ctx, exporter, CreateEscrowInput{
		ChatID: chatID, Amount: "100", Currency: "USD", TradeDescription: "x",
	})
	if !apperr.Is(err, apperr.CodeForbidden) {
		t.Fatalf("exporter create: got %v, want FORBIDDEN", err)
	}

	escrow := env.newEscrow(t, chatID, importer, "100")

	if _, err := env.escrows.Fund(ctx, escrow.ID, exporter); !apperr.Is(err, apperr.CodeForbidden) {
		t.Fatalf("exporter fund: got %v, want FORBIDDEN", err)
	}
	if _, err := env.escrows.GetByID(ctx, escrow.ID, outsider); !apperr.Is(err, apperr.CodeForbidden) {
		t.Fatalf("outsider read: got %v, want FORBIDDEN", err)
	}
	if _, err := env.escrows.GetByID(ctx, escrow.ID, exporter); err != nil {
		t.Fatalf("exporter read: %v", err)
	}
}

func TestEscrowCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	importer := env.newUser(t, "importer@example.com")
	exporter := env.newUser(t, "exporter@example.com")
	chatID := env.newTradeChat(t, importer, exporter)

	tests := []struct {
		name  string
		input CreateEscrowInput
		code  string
	}{
		{"zero amount", CreateEscrowInput{ChatID: chatID, Amount: "0", Currency: "USD", TradeDescription: "x"}, apperr.CodeValidation},
		{"negative amount", CreateEscrowInput{ChatID: chatID, Amount: "-5", Currency: "USD", TradeDescription: "x"}, apperr.CodeValidation},
		{"non-numeric amount", CreateEscrowInput{ChatID: chatID, Amount: "abc", Currency: "USD", TradeDescription: "x"}, apperr.CodeValidation},
		{"NaN amount", CreateEscrowInput{ChatID: chatID, Amount: "NaN", Currency: "USD", TradeDescription: "x"}, apperr.CodeValidation},
		{"infinite amount", CreateEscrowInput{ChatID: chatID, Amount: "+Inf", Currency: "USD", TradeDescription: "x"}, apperr.CodeValidation},
		{"spelled-out infinity", CreateEscrowInput{ChatID: chatID, Amount: "Infinity", Currency: "USD", TradeDescription: "x"}, apperr.CodeValidation},
		{"missing description", CreateEscrowInput{ChatID: chatID, Amount: "10", Currency: "USD", TradeDescription: " "}, apperr.CodeValidation},
		{"unsupported currency", CreateEscrowInput{ChatID: chatID, Amount: "10", Currency: "XXX", TradeDescription: "x"}, apperr.CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.escrows.Create(ctx, importer, tt.input); !apperr.Is(err, tt.code) {
				t.Fatalf("got %v, want %s", err, tt.code)
			}
		})
	}
}

// An escrow is never created in a chat without an exporter counterparty.
func TestEscrowRequiresExporter(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	importer := env.newUser(t, "importer@example.com")
	other := env.newUser(t, "member@example.com")

	chat, err := env.chats.CreateChat(ctx, importer, CreateChatInput{
		Name: "no exporter here",
		Type: models.ChatTypeGroup,
		Participants: []ParticipantInput{
			{UserID: importer, Role: models.RoleImporter},
			{UserID: other, Role: models.RoleMember},
		},
	})
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}

	_, err = env.escrows.Create(ctx, importer, CreateEscrowInput{
		ChatID: chat.ID, Amount: "100", Currency: "USD", TradeDescription: "x",
	})
	if !apperr.Is(err, apperr.CodePreconditionFailed) {
		t.Fatalf("got %v, want PRECONDITION_FAILED", err)
	}

	// Nothing was written.
	escrows, err := env.store.Escrows().ListByChat(ctx, chat.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(escrows) != 0 {
		t.Fatalf("orphan escrow created: %d rows", len(escrows))
	}
}

func TestReleaseDisputedEscrowIsRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	importer := env.newUser(t, "importer@example.com")
	exporter := env.newUser(t, "exporter@example.com")
	chatID := env.newTradeChat(t, importer, exporter)
	escrow := env.newEscrow(t, chatID, importer, "250")

	if _, err := env.escrows.Fund(ctx, escrow.ID, importer); err != nil {
		t.Fatalf("fund: %v", err)
	}
	if _, err := env.disputes.File(ctx, exporter, FileDisputeInput{
		EscrowID: escrow.ID, Reason: "non_delivery", Details: "nothing arrived",
	}); err != nil {
		t.Fatalf("file dispute: %v", err)
	}

	if _, err := env.escrows.Release(ctx, escrow.ID, importer); !apperr.Is(err, apperr.CodeInvalidTransition) {
		t.Fatalf("release disputed: got %v, want INVALID_TRANSITION", err)
	}
}
