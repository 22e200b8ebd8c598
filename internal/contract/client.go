package contract

import (
	"context"

	"github.com/bitbond/backend/internal/models"
)

// Reader exposes the contract's view functions decoded into typed records.
type Reader interface {
	GetEscrow(ctx context.Context, id uint64) (*models.Escrow, error)
	GetClientEscrows(ctx context.Context, address string) ([]uint64, error)
	GetFreelancerEscrows(ctx context.Context, address string) ([]uint64, error)
	GetEscrowCount(ctx context.Context) (uint64, error)
}

// TxResult identifies a submitted state-changing transaction.
type TxResult struct {
	TxHash string `json:"tx_hash"`
}

// Writer submits state-changing calls with a locally held relayer key. The
// browser-wallet path goes through the orchestrator instead.
type Writer interface {
	CreateEscrow(ctx context.Context, freelancer, description string, deadline int64, amountWei string) (*TxResult, error)
	ReleaseFunds(ctx context.Context, escrowID uint64) (*TxResult, error)
	RaiseDispute(ctx context.Context, escrowID uint64) (*TxResult, error)
	RefundAfterDeadline(ctx context.Context, escrowID uint64) (*TxResult, error)
}
