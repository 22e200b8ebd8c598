package repositories

import (
	"context"
	"strings"
	"time"

	"github.com/bitbond/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AccountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

// UpsertByAddress registers a wallet on first sight and bumps last_active_at
// on every later login. Addresses are stored lowercased.
func (r *AccountRepo) UpsertByAddress(ctx context.Context, address string) (*models.Account, error) {
	var a models.Account
	err := r.pool.QueryRow(ctx, `
		INSERT INTO accounts (address)
		VALUES ($1)
		ON CONFLICT (address) DO UPDATE SET last_active_at = now()
		RETURNING id, address, created_at, last_active_at
	`, strings.ToLower(address)).Scan(&a.ID, &a.Address, &a.CreatedAt, &a.LastActiveAt)
	return &a, err
}

func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var a models.Account
	err := r.pool.QueryRow(ctx, `
		SELECT id, address, created_at, last_active_at FROM accounts WHERE id = $1
	`, id).Scan(&a.ID, &a.Address, &a.CreatedAt, &a.LastActiveAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) GetByAddress(ctx context.Context, address string) (*models.Account, error) {
	var a models.Account
	err := r.pool.QueryRow(ctx, `
		SELECT id, address, created_at, last_active_at FROM accounts WHERE address = $1
	`, strings.ToLower(address)).Scan(&a.ID, &a.Address, &a.CreatedAt, &a.LastActiveAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) UpdateLastActive(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE accounts SET last_active_at = $1 WHERE id = $2`, time.Now(), id)
	return err
}
