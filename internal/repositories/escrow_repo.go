package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/tradebridge/backend/internal/models"
)

// EscrowRepository persists escrows. Status updates are guarded by the expected
// current status and report whether a row changed, so a lost race against a
// concurrent transition surfaces as an invalid transition instead of a silent
// overwrite.
type EscrowRepository interface {
	Create(ctx context.Context, e *models.Escrow) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Escrow, error)
	ListByChat(ctx context.Context, chatID uuid.UUID) ([]models.Escrow, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error)
	MarkDisputed(ctx context.Context, id uuid.UUID, reason string) (bool, error)
	SetResolution(ctx context.Context, id uuid.UUID, to, notes string) (bool, error)
	SetTransactionID(ctx context.Context, id, transactionID uuid.UUID) error
}

type PgEscrowRepo struct {
	db DB
}

const escrowColumns = `
	id, chat_id, importer_id, exporter_id, amount, currency, status, trade_description,
	release_conditions, release_date, dispute_reason, resolution_notes, transaction_id,
	created_at, updated_at
`

func scanEscrow(row interface{ Scan(...any) error }, e *models.Escrow) error {
	return row.Scan(&e.ID, &e.ChatID, &e.ImporterID, &e.ExporterID, &e.Amount, &e.Currency,
		&e.Status, &e.TradeDescription, &e.ReleaseConditions, &e.ReleaseDate,
		&e.DisputeReason, &e.ResolutionNotes, &e.TransactionID, &e.CreatedAt, &e.UpdatedAt)
}

func (r *PgEscrowRepo) Create(ctx context.Context, e *models.Escrow) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO escrows (chat_id, importer_id, exporter_id, amount, currency, status,
		                     trade_description, release_conditions, release_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`, e.ChatID, e.ImporterID, e.ExporterID, e.Amount, e.Currency, e.Status,
		e.TradeDescription, e.ReleaseConditions, e.ReleaseDate,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

func (r *PgEscrowRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Escrow, error) {
	var e models.Escrow
	err := scanEscrow(r.db.QueryRow(ctx, `SELECT `+escrowColumns+` FROM escrows WHERE id = $1`, id), &e)
	if err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}

func (r *PgEscrowRepo) ListByChat(ctx context.Context, chatID uuid.UUID) ([]models.Escrow, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+escrowColumns+` FROM escrows WHERE chat_id = $1 ORDER BY created_at DESC
	`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var escrows []models.Escrow
	for rows.Next() {
		var e models.Escrow
		if err := scanEscrow(rows, &e); err != nil {
			return nil, err
		}
		escrows = append(escrows, e)
	}
	return escrows, nil
}

func (r *PgEscrowRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE escrows SET status = $1, updated_at = now() WHERE id = $2 AND status = $3
	`, to, id, from)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PgEscrowRepo) MarkDisputed(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE escrows SET status = $1, dispute_reason = $2, updated_at = now()
		WHERE id = $3 AND status = $4
	`, models.EscrowStatusDisputed, reason, id, models.EscrowStatusFunded)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PgEscrowRepo) SetResolution(ctx context.Context, id uuid.UUID, to, notes string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE escrows SET status = $1, resolution_notes = $2, updated_at = now()
		WHERE id = $3 AND status = $4
	`, to, notes, id, models.EscrowStatusDisputed)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PgEscrowRepo) SetTransactionID(ctx context.Context, id, transactionID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
		UPDATE escrows SET transaction_id = $1, updated_at = now() WHERE id = $2
	`, transactionID, id)
	return err
}
