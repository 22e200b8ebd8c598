package repositories

import (
	"context"
	"errors"

	"github.com/bitbond/backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const escrowColumns = `id, client, freelancer, amount_wei, description, deadline, status, created_at, tx_hash`

// EscrowRepo is the demo-mode ledger: it stands in for the chain when no
// contract is deployed, and mirrors on-chain records when the indexer runs.
type EscrowRepo struct {
	pool *pgxpool.Pool
}

func NewEscrowRepo(pool *pgxpool.Pool) *EscrowRepo {
	return &EscrowRepo{pool: pool}
}

// Create inserts a new record and assigns the next sequential id.
func (r *EscrowRepo) Create(ctx context.Context, e *models.Escrow) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO escrows (client, freelancer, amount_wei, description, deadline, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, e.Client, e.Freelancer, e.AmountWei, e.Description, e.Deadline, e.Status).Scan(&e.ID, &e.CreatedAt)
}

// Upsert writes a record under an explicit id. Used by the chain indexer to
// mirror on-chain state; ids come from the contract, never from the sequence.
func (r *EscrowRepo) Upsert(ctx context.Context, e *models.Escrow) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO escrows (id, client, freelancer, amount_wei, description, deadline, status, created_at, tx_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			tx_hash = COALESCE(EXCLUDED.tx_hash, escrows.tx_hash)
	`, e.ID, e.Client, e.Freelancer, e.AmountWei, e.Description, e.Deadline, e.Status, e.CreatedAt, e.TxHash)
	return err
}

func (r *EscrowRepo) GetByID(ctx context.Context, id uint64) (*models.Escrow, error) {
	var e models.Escrow
	err := r.pool.QueryRow(ctx, `
		SELECT `+escrowColumns+` FROM escrows WHERE id = $1
	`, id).Scan(&e.ID, &e.Client, &e.Freelancer, &e.AmountWei, &e.Description,
		&e.Deadline, &e.Status, &e.CreatedAt, &e.TxHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrEscrowNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EscrowRepo) ListByClient(ctx context.Context, address string) ([]models.Escrow, error) {
	return r.list(ctx, `SELECT `+escrowColumns+` FROM escrows WHERE client = $1 ORDER BY id`, address)
}

func (r *EscrowRepo) ListByFreelancer(ctx context.Context, address string) ([]models.Escrow, error) {
	return r.list(ctx, `SELECT `+escrowColumns+` FROM escrows WHERE freelancer = $1 ORDER BY id`, address)
}

// ListExpiredActive returns active escrows whose deadline has passed; the
// worker uses it to surface refund eligibility.
func (r *EscrowRepo) ListExpiredActive(ctx context.Context) ([]models.Escrow, error) {
	return r.list(ctx, `
		SELECT `+escrowColumns+` FROM escrows
		WHERE status = $1 AND deadline < now() ORDER BY id
	`, models.EscrowStatusActive)
}

func (r *EscrowRepo) list(ctx context.Context, query string, args ...any) ([]models.Escrow, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var escrows []models.Escrow
	for rows.Next() {
		var e models.Escrow
		if err := rows.Scan(&e.ID, &e.Client, &e.Freelancer, &e.AmountWei, &e.Description,
			&e.Deadline, &e.Status, &e.CreatedAt, &e.TxHash); err != nil {
			return nil, err
		}
		escrows = append(escrows, e)
	}
	return escrows, rows.Err()
}

func (r *EscrowRepo) Count(ctx context.Context) (uint64, error) {
	var n uint64
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM escrows`).Scan(&n)
	return n, err
}

// UpdateStatus transitions a record from one status to another. The guard on
// the current status makes concurrent transitions lose cleanly instead of
// overwriting each other.
func (r *EscrowRepo) UpdateStatus(ctx context.Context, id uint64, from, to string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE escrows SET status = $1 WHERE id = $2 AND status = $3
	`, to, id, from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrEscrowNotActive
	}
	return nil
}

func (r *EscrowRepo) SetTxHash(ctx context.Context, id uint64, txHash string) error {
	_, err := r.pool.Exec(ctx, `UPDATE escrows SET tx_hash = $1 WHERE id = $2`, txHash, id)
	return err
}
