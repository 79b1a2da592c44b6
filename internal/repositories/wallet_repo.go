package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/tradebridge/backend/internal/models"
)

// WalletRepository tracks the notional per-currency position of each user.
// Deltas are signed numeric strings; balances may go negative because no real
// funds check exists anywhere in the platform.
type WalletRepository interface {
	Adjust(ctx context.Context, userID uuid.UUID, currency, availableDelta, inEscrowDelta string) error
	Balances(ctx context.Context, userID uuid.UUID) ([]models.WalletBalance, error)
}

type PgWalletRepo struct {
	db DB
}

func (r *PgWalletRepo) Adjust(ctx context.Context, userID uuid.UUID, currency, availableDelta, inEscrowDelta string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO wallet_balances (user_id, currency, available, in_escrow)
		VALUES ($1, $2, $3::numeric, $4::numeric)
		ON CONFLICT (user_id, currency) DO UPDATE SET
			available = wallet_balances.available + $3::numeric,
			in_escrow = wallet_balances.in_escrow + $4::numeric,
			updated_at = now()
	`, userID, currency, availableDelta, inEscrowDelta)
	return err
}

func (r *PgWalletRepo) Balances(ctx context.Context, userID uuid.UUID) ([]models.WalletBalance, error) {
	rows, err := r.db.Query(ctx, `
		SELECT user_id, currency, available::text, in_escrow::text, updated_at
		FROM wallet_balances WHERE user_id = $1 ORDER BY currency ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var balances []models.WalletBalance
	for rows.Next() {
		var b models.WalletBalance
		if err := rows.Scan(&b.UserID, &b.Currency, &b.Available, &b.InEscrow, &b.UpdatedAt); err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	return balances, nil
}
