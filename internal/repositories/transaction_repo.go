package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/tradebridge/backend/internal/models"
)

type TransactionRepository interface {
	Create(ctx context.Context, t *models.Transaction) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, error)
}

type PgTransactionRepo struct {
	db DB
}

func (r *PgTransactionRepo) Create(ctx context.Context, t *models.Transaction) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO transactions (user_id, escrow_id, kind, direction, amount, currency, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, t.UserID, t.EscrowID, t.Kind, t.Direction, t.Amount, t.Currency, t.Description,
	).Scan(&t.ID, &t.CreatedAt)
}

func (r *PgTransactionRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, escrow_id, kind, direction, amount, currency, description, created_at
		FROM transactions WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.EscrowID, &t.Kind, &t.Direction, &t.Amount, &t.Currency, &t.Description, &t.CreatedAt); err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, nil
}
