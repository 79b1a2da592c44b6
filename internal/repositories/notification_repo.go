package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/tradebridge/backend/internal/models"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) (bool, error)
}

type PgNotificationRepo struct {
	db DB
}

func (r *PgNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO notifications (user_id, kind, title, body, entity_type, entity_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, read, created_at
	`, n.UserID, n.Kind, n.Title, n.Body, n.EntityType, n.EntityID,
	).Scan(&n.ID, &n.Read, &n.CreatedAt)
}

func (r *PgNotificationRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, kind, title, body, entity_type, entity_id, read, created_at
		FROM notifications WHERE user_id = $1
		ORDER BY read ASC, created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Title, &n.Body, &n.EntityType, &n.EntityID, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return items, nil
}

func (r *PgNotificationRepo) MarkRead(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE notifications SET read = true WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
