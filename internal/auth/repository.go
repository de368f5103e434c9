package auth

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moltspaces/backend/internal/models"
)

// Repository handles user persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a user repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Upsert inserts the user or refreshes their profile fields on conflict.
func (r *Repository) Upsert(ctx context.Context, u *models.User) error {
	const q = `INSERT INTO users (fid, username, display_name, pfp_url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (fid) DO UPDATE SET
			username = EXCLUDED.username,
			display_name = EXCLUDED.display_name,
			pfp_url = EXCLUDED.pfp_url,
			updated_at = NOW()
		RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, q, u.Fid, u.Username, u.DisplayName, u.PfpURL).
		Scan(&u.CreatedAt, &u.UpdatedAt)
}

// GetByFid returns a user by fid, or nil when absent.
func (r *Repository) GetByFid(ctx context.Context, fid string) (*models.User, error) {
	const q = `SELECT fid, username, display_name, pfp_url, created_at, updated_at FROM users WHERE fid = $1`
	var u models.User
	err := r.pool.QueryRow(ctx, q, fid).
		Scan(&u.Fid, &u.Username, &u.DisplayName, &u.PfpURL, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}
