package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tradebridge/backend/internal/models"
)

type DisputeRepository interface {
	Create(ctx context.Context, d *models.Dispute) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	ListByEscrow(ctx context.Context, escrowID uuid.UUID) ([]models.Dispute, error)
	StartReview(ctx context.Context, id, moderatorID uuid.UUID) (bool, error)
	Resolve(ctx context.Context, id uuid.UUID, to, resolution string, moderatorID uuid.UUID, notes string, resolvedAt time.Time) (bool, error)
}

type PgDisputeRepo struct {
	db DB
}

const disputeColumns = `
	id, escrow_id, chat_id, initiator_id, respondent_id, status, reason, details,
	evidence_urls, moderator_id, moderator_notes, resolution, created_at, updated_at, resolved_at
`

func scanDispute(row interface{ Scan(...any) error }, d *models.Dispute) error {
	return row.Scan(&d.ID, &d.EscrowID, &d.ChatID, &d.InitiatorID, &d.RespondentID,
		&d.Status, &d.Reason, &d.Details, &d.EvidenceURLs, &d.ModeratorID,
		&d.ModeratorNotes, &d.Resolution, &d.CreatedAt, &d.UpdatedAt, &d.ResolvedAt)
}

func (r *PgDisputeRepo) Create(ctx context.Context, d *models.Dispute) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO disputes (escrow_id, chat_id, initiator_id, respondent_id, status, reason, details, evidence_urls)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`, d.EscrowID, d.ChatID, d.InitiatorID, d.RespondentID, d.Status, d.Reason, d.Details, d.EvidenceURLs,
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
}

func (r *PgDisputeRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	var d models.Dispute
	err := scanDispute(r.db.QueryRow(ctx, `SELECT `+disputeColumns+` FROM disputes WHERE id = $1`, id), &d)
	if err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

func (r *PgDisputeRepo) ListByEscrow(ctx context.Context, escrowID uuid.UUID) ([]models.Dispute, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+disputeColumns+` FROM disputes WHERE escrow_id = $1 ORDER BY created_at DESC
	`, escrowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var disputes []models.Dispute
	for rows.Next() {
		var d models.Dispute
		if err := scanDispute(rows, &d); err != nil {
			return nil, err
		}
		disputes = append(disputes, d)
	}
	return disputes, nil
}

func (r *PgDisputeRepo) StartReview(ctx context.Context, id, moderatorID uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE disputes SET status = $1, moderator_id = $2, updated_at = now()
		WHERE id = $3 AND status = $4
	`, models.DisputeStatusUnderReview, moderatorID, id, models.DisputeStatusOpen)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PgDisputeRepo) Resolve(ctx context.Context, id uuid.UUID, to, resolution string, moderatorID uuid.UUID, notes string, resolvedAt time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE disputes
		SET status = $1, resolution = $2, moderator_id = $3, moderator_notes = $4,
		    resolved_at = $5, updated_at = now()
		WHERE id = $6 AND status IN ($7, $8)
	`, to, resolution, moderatorID, notes, resolvedAt, id,
		models.DisputeStatusOpen, models.DisputeStatusUnderReview)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
