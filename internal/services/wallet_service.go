package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/tradebridge/backend/internal/models"
	"github.com/tradebridge/backend/internal/repositories"
)

// WalletService is a read surface over the notional ledger. All writes happen
// inside escrow transitions.
type WalletService struct {
	store repositories.Store
}

func NewWalletService(store repositories.Store) *WalletService {
	return &WalletService{store: store}
}

func (s *WalletService) Balances(ctx context.Context, userID uuid.UUID) ([]models.WalletBalance, error) {
	return s.store.Wallets().Balances(ctx, userID)
}

func (s *WalletService) Transactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, error) {
	return s.store.Transactions().ListByUser(ctx, userID, limit, offset)
}
