package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/bitbond/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNonceNotFound = errors.New("auth nonce not found or already used")

type NonceRepo struct {
	pool *pgxpool.Pool
}

func NewNonceRepo(pool *pgxpool.Pool) *NonceRepo {
	return &NonceRepo{pool: pool}
}

func (r *NonceRepo) Create(ctx context.Context, nonce string, ttl time.Duration) (*models.AuthNonce, error) {
	var n models.AuthNonce
	err := r.pool.QueryRow(ctx, `
		INSERT INTO auth_nonces (nonce, expires_at)
		VALUES ($1, $2)
		RETURNING id, nonce, address, created_at, expires_at, used
	`, nonce, time.Now().Add(ttl)).Scan(&n.ID, &n.Nonce, &n.Address, &n.CreatedAt, &n.ExpiresAt, &n.Used)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// Consume marks a nonce as spent and records which address proved it. A nonce
// is single use; a second Consume for the same value fails.
func (r *NonceRepo) Consume(ctx context.Context, nonce, address string) error {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
		UPDATE auth_nonces SET used = true, address = $1
		WHERE nonce = $2 AND used = false AND expires_at > now()
		RETURNING id
	`, address, nonce).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNonceNotFound
	}
	return err
}

func (r *NonceRepo) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM auth_nonces WHERE expires_at < now()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
