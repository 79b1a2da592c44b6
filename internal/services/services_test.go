package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/tradebridge/backend/internal/config"
	"github.com/tradebridge/backend/internal/events"
	"github.com/tradebridge/backend/internal/models"
	"github.com/tradebridge/backend/internal/repositories/memory"
	"go.uber.org/zap"
)

type publishedEvent struct {
	channel string
	event   events.Event
}

// capturePublisher records published events for assertions.
type capturePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *capturePublisher) Publish(ctx context.Context, channel string, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{channel: channel, event: event})
	return nil
}

func (p *capturePublisher) byType(eventType string) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedEvent
	for _, e := range p.events {
		if e.event.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type testEnv struct {
	store    *memory.Store
	pub      *capturePublisher
	cfg      *config.Config
	chats    *ChatService
	escrows  *EscrowService
	disputes *DisputeService
	wallets  *WalletService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewStore()
	pub := &capturePublisher{}
	cfg := &config.Config{
		SupportedCurrencies: []string{"USD", "EUR"},
		DisputeReasons:      []string{"non_delivery", "quality_issue", "other"},
		MessagePageLimit:    50,
		MessagePageMax:      200,
	}
	log := zap.NewNop()

	chats := NewChatService(store, pub, cfg, log)
	escrows := NewEscrowService(store, chats, pub, cfg, log)
	disputes := NewDisputeService(store, escrows, chats, pub, cfg, log)

	return &testEnv{
		store:    store,
		pub:      pub,
		cfg:      cfg,
		chats:    chats,
		escrows:  escrows,
		disputes: disputes,
		wallets:  NewWalletService(store),
	}
}

func (e *testEnv) newUser(t *testing.T, email string) uuid.UUID {
	t.Helper()
	u := &models.User{Email: email, DisplayName: email, PasswordHash: "x"}
	if err := e.store.Users().Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u.ID
}

// newTradeChat creates a trade_negotiation chat with one importer and one
// exporter, created by the importer.
func (e *testEnv) newTradeChat(t *testing.T, importerID, exporterID uuid.UUID) uuid.UUID {
	t.Helper()
	chat, err := e.chats.CreateChat(context.Background(), importerID, CreateChatInput{
		Name: "Steel coils Q3",
		Type: models.ChatTypeTradeNegotiation,
		Participants: []ParticipantInput{
			{UserID: importerID, Role: models.RoleImporter},
			{UserID: exporterID, Role: models.RoleExporter},
		},
	})
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}
	return chat.ID
}

func (e *testEnv) newEscrow(t *testing.T, chatID, importerID uuid.UUID, amount string) *models.Escrow {
	t.Helper()
	escrow, err := e.escrows.Create(context.Background(), importerID, CreateEscrowInput{
		ChatID:           chatID,
		Amount:           amount,
		Currency:         "USD",
		TradeDescription: "1000 tons of steel coils",
	})
	if err != nil {
		t.Fatalf("create escrow: %v", err)
	}
	return escrow
}

func (e *testEnv) balance(t *testing.T, userID uuid.UUID, currency string) (available, inEscrow string) {
	t.Helper()
	balances, err := e.wallets.Balances(context.Background(), userID)
	if err != nil {
		t.Fatalf("balances: %v", err)
	}
	for _, b := range balances {
		if b.Currency == currency {
			return b.Available, b.InEscrow
		}
	}
	return "0", "0"
}
