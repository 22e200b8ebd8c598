package bridge

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/bitbond/backend/internal/contract"
	"github.com/bitbond/backend/internal/models"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EscrowApplier is the slice of the escrow service the demo bridge drives.
type EscrowApplier interface {
	CreateEscrow(ctx context.Context, client, freelancer, amountWei, description string, deadline time.Time) (*models.Escrow, error)
	ReleaseFunds(ctx context.Context, escrowID uint64, actor string) error
	RaiseDispute(ctx context.Context, escrowID uint64, actor string) error
	RefundAfterDeadline(ctx context.Context, escrowID uint64, actor string) error
	AttachTxHash(ctx context.Context, escrowID uint64, txHash string) error
}

// DemoBridge stands in for the wallet/bridge daemon when no chain is
// available. Finalize and Sign produce synthetic payloads; Broadcast decodes
// the queued calldata and applies it to the local ledger.
type DemoBridge struct {
	applier EscrowApplier
	parsed  abi.ABI
	log     *zap.Logger

	mu        sync.Mutex
	finalized map[string]*demoFlow // keyed by tx hex
	confirmed map[string]bool      // keyed by tx id
}

type demoFlow struct {
	txID       string
	intentions []Intention
}

func NewDemoBridge(applier EscrowApplier, log *zap.Logger) *DemoBridge {
	return &DemoBridge{
		applier:   applier,
		parsed:    contract.MustParseABI(),
		log:       log,
		finalized: make(map[string]*demoFlow),
		confirmed: make(map[string]bool),
	}
}

func (b *DemoBridge) Finalize(ctx context.Context, intentions []Intention) (*FinalizeResult, error) {
	if len(intentions) == 0 {
		return nil, fmt.Errorf("no intentions queued")
	}

	txID := uuid.NewString()
	seed := []byte(txID)
	for _, in := range intentions {
		seed = append(seed, in.Calldata...)
	}
	txHex := "0x" + hex.EncodeToString(crypto.Keccak256(seed))

	b.mu.Lock()
	b.finalized[txHex] = &demoFlow{txID: txID, intentions: intentions}
	b.mu.Unlock()

	return &FinalizeResult{TxID: txID, TxHex: txHex}, nil
}

// Sign returns a synthetic signature binding the intention to the finalized
// transaction id, mirroring the shape of a real wallet response.
func (b *DemoBridge) Sign(ctx context.Context, intention Intention, txID string) ([]byte, error) {
	return crypto.Keccak256(append([]byte(txID), intention.Calldata...)), nil
}

// Broadcast applies the finalized intentions to the demo ledger in queue
// order. Failures surface as broadcast errors, the same way a node would
// reject a reverting transaction.
func (b *DemoBridge) Broadcast(ctx context.Context, signed [][]byte, txHex string) error {
	b.mu.Lock()
	flow, ok := b.finalized[txHex]
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown transaction %s, finalize first", txHex)
	}
	if len(signed) != len(flow.intentions) {
		return fmt.Errorf("signed payload count %d does not match %d queued intentions", len(signed), len(flow.intentions))
	}

	for _, in := range flow.intentions {
		if err := b.apply(ctx, in, txHex); err != nil {
			return err
		}
	}

	b.mu.Lock()
	b.confirmed[flow.txID] = true
	delete(b.finalized, txHex)
	b.mu.Unlock()

	b.log.Info("demo broadcast applied",
		zap.String("tx_id", flow.txID),
		zap.Int("intentions", len(flow.intentions)),
	)
	return nil
}

func (b *DemoBridge) apply(ctx context.Context, in Intention, txHash string) error {
	call, err := contract.UnpackCall(b.parsed, in.Calldata)
	if err != nil {
		return err
	}

	switch call.Method {
	case "createEscrow":
		escrow, err := b.applier.CreateEscrow(ctx, in.From, call.Freelancer.Hex(), in.ValueWei, call.Description, time.Unix(call.Deadline.Int64(), 0))
		if err != nil {
			return err
		}
		return b.applier.AttachTxHash(ctx, escrow.ID, txHash)
	case "releaseFunds":
		return b.applier.ReleaseFunds(ctx, call.EscrowID, in.From)
	case "raiseDispute":
		return b.applier.RaiseDispute(ctx, call.EscrowID, in.From)
	case "refundAfterDeadline":
		return b.applier.RefundAfterDeadline(ctx, call.EscrowID, in.From)
	default:
		return fmt.Errorf("unsupported method %s", call.Method)
	}
}

// AwaitConfirmation resolves as soon as the broadcast applied. The ticker
// only matters when callers race Broadcast and AwaitConfirmation.
func (b *DemoBridge) AwaitConfirmation(ctx context.Context, txID string) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		b.mu.Lock()
		done := b.confirmed[txID]
		b.mu.Unlock()
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
