package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/tradebridge/backend/internal/models"
)

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateLastActive(ctx context.Context, id uuid.UUID) error
}

type PgUserRepo struct {
	db DB
}

func (r *PgUserRepo) Create(ctx context.Context, u *models.User) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, display_name)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, last_active_at
	`, u.Email, u.PasswordHash, u.DisplayName).Scan(&u.ID, &u.CreatedAt, &u.LastActiveAt)
}

func (r *PgUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	err := r.db.QueryRow(ctx, `
		SELECT id, email, password_hash, display_name, created_at, last_active_at
		FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.CreatedAt, &u.LastActiveAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *PgUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := r.db.QueryRow(ctx, `
		SELECT id, email, password_hash, display_name, created_at, last_active_at
		FROM users WHERE email = $1
	`, email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.CreatedAt, &u.LastActiveAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *PgUserRepo) UpdateLastActive(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET last_active_at = now() WHERE id = $1`, id)
	return err
}
