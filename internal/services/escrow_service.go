package services

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/bitbond/backend/internal/contract"
	"github.com/bitbond/backend/internal/events"
	"github.com/bitbond/backend/internal/models"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// EscrowStore is the persistence surface the service writes through. The
// Postgres repo and the in-memory store both satisfy it.
type EscrowStore interface {
	Create(ctx context.Context, e *models.Escrow) error
	Upsert(ctx context.Context, e *models.Escrow) error
	GetByID(ctx context.Context, id uint64) (*models.Escrow, error)
	ListByClient(ctx context.Context, address string) ([]models.Escrow, error)
	ListByFreelancer(ctx context.Context, address string) ([]models.Escrow, error)
	ListExpiredActive(ctx context.Context) ([]models.Escrow, error)
	Count(ctx context.Context) (uint64, error)
	UpdateStatus(ctx context.Context, id uint64, from, to string) error
	SetTxHash(ctx context.Context, id uint64, txHash string) error
}

type AuditLogger interface {
	Log(ctx context.Context, entry models.AuditLog) error
	GetByEntity(ctx context.Context, entityType, entityID string, limit, offset int) ([]models.AuditLog, error)
}

// EscrowService enforces the escrow rules over a local store. In chain mode
// reads are served from the contract instead; writes then go through the
// transaction orchestrator, never through this service.
type EscrowService struct {
	store     EscrowStore
	chain     contract.Reader
	audit     AuditLogger
	publisher events.Publisher
	log       *zap.Logger
}

func NewEscrowService(store EscrowStore, chain contract.Reader, audit AuditLogger, publisher events.Publisher, log *zap.Logger) *EscrowService {
	return &EscrowService{store: store, chain: chain, audit: audit, publisher: publisher, log: log}
}

// transition validates and performs a status transition with audit logging.
func (s *EscrowService) transition(ctx context.Context, escrow *models.Escrow, newStatus string, actor *string, actorType string) error {
	if !models.IsValidEscrowTransition(escrow.Status, newStatus) {
		return fmt.Errorf("invalid transition from %s to %s", escrow.Status, newStatus)
	}

	oldStatus := escrow.Status
	if err := s.store.UpdateStatus(ctx, escrow.ID, oldStatus, newStatus); err != nil {
		return err
	}
	escrow.Status = newStatus

	entityID := fmt.Sprintf("%d", escrow.ID)
	if s.audit != nil {
		_ = s.audit.Log(ctx, models.AuditLog{
			ActorAddress: actor,
			ActorType:    actorType,
			Action:       fmt.Sprintf("escrow_status_%s_to_%s", oldStatus, newStatus),
			EntityType:   "escrow",
			EntityID:     &entityID,
			Meta:         map[string]any{"old_status": oldStatus, "new_status": newStatus},
		})
	}

	if s.publisher != nil {
		_ = s.publisher.Publish(ctx, "events:escrow", events.Event{
			Type: events.EventEscrowStatusChanged,
			Payload: map[string]any{
				"escrow_id":  escrow.ID,
				"old_status": oldStatus,
				"new_status": newStatus,
			},
		})
	}

	return nil
}

// CreateEscrow locks funds for a freelancer. Creation and funding are one
// step, so a new escrow is immediately active.
func (s *EscrowService) CreateEscrow(ctx context.Context, client, freelancer, amountWei, description string, deadline time.Time) (*models.Escrow, error) {
	if !common.IsHexAddress(client) || !common.IsHexAddress(freelancer) {
		return nil, models.ErrInvalidAddress
	}
	amount, ok := new(big.Int).SetString(amountWei, 10)
	if !ok || amount.Sign() <= 0 {
		return nil, models.ErrInvalidAmount
	}
	if !deadline.After(time.Now()) {
		return nil, models.ErrDeadlineMustBeFuture
	}

	escrow := &models.Escrow{
		Client:      strings.ToLower(client),
		Freelancer:  strings.ToLower(freelancer),
		AmountWei:   amount.String(),
		Description: description,
		Deadline:    deadline,
		Status:      models.EscrowStatusActive,
	}
	if err := s.store.Create(ctx, escrow); err != nil {
		return nil, err
	}

	entityID := fmt.Sprintf("%d", escrow.ID)
	if s.audit != nil {
		_ = s.audit.Log(ctx, models.AuditLog{
			ActorAddress: &escrow.Client,
			ActorType:    "user",
			Action:       "escrow_created",
			EntityType:   "escrow",
			EntityID:     &entityID,
			Meta:         map[string]any{"freelancer": escrow.Freelancer, "amount_wei": escrow.AmountWei},
		})
	}
	if s.publisher != nil {
		_ = s.publisher.Publish(ctx, "events:escrow", events.Event{
			Type: events.EventEscrowCreated,
			Payload: map[string]any{
				"escrow_id":  escrow.ID,
				"client":     escrow.Client,
				"freelancer": escrow.Freelancer,
				"amount_wei": escrow.AmountWei,
			},
		})
	}

	return escrow, nil
}

// ReleaseFunds pays the freelancer. Only the client may release, and only
// while the escrow is active.
func (s *EscrowService) ReleaseFunds(ctx context.Context, escrowID uint64, actor string) error {
	escrow, err := s.store.GetByID(ctx, escrowID)
	if err != nil {
		return err
	}
	if !escrow.IsClient(actor) {
		return models.ErrOnlyClient
	}
	if escrow.Status == models.EscrowStatusReleased {
		return models.ErrAlreadyReleased
	}
	if escrow.Status != models.EscrowStatusActive {
		return models.ErrEscrowNotActive
	}
	lower := strings.ToLower(actor)
	return s.transition(ctx, escrow, models.EscrowStatusReleased, &lower, "user")
}

// RaiseDispute freezes an active escrow. Either participant may raise it;
// resolution happens off-chain, so disputed has no modeled exit.
func (s *EscrowService) RaiseDispute(ctx context.Context, escrowID uint64, actor string) error {
	escrow, err := s.store.GetByID(ctx, escrowID)
	if err != nil {
		return err
	}
	if !escrow.IsParticipant(actor) {
		return models.ErrOnlyParticipant
	}
	if escrow.Status != models.EscrowStatusActive {
		return models.ErrEscrowNotActive
	}
	lower := strings.ToLower(actor)
	return s.transition(ctx, escrow, models.EscrowStatusDisputed, &lower, "user")
}

// RefundAfterDeadline returns funds to the client once the deadline passed
// without release.
func (s *EscrowService) RefundAfterDeadline(ctx context.Context, escrowID uint64, actor string) error {
	escrow, err := s.store.GetByID(ctx, escrowID)
	if err != nil {
		return err
	}
	if !escrow.IsClient(actor) {
		return models.ErrOnlyClient
	}
	if escrow.Status != models.EscrowStatusActive {
		return models.ErrEscrowNotActive
	}
	if !escrow.Deadline.Before(time.Now()) {
		return models.ErrDeadlineNotPassed
	}
	lower := strings.ToLower(actor)
	return s.transition(ctx, escrow, models.EscrowStatusRefunded, &lower, "user")
}

func (s *EscrowService) GetEscrow(ctx context.Context, id uint64) (*models.Escrow, error) {
	if s.chain != nil {
		return s.chain.GetEscrow(ctx, id)
	}
	return s.store.GetByID(ctx, id)
}

func (s *EscrowService) ListByClient(ctx context.Context, address string) ([]models.Escrow, error) {
	if s.chain != nil {
		ids, err := s.chain.GetClientEscrows(ctx, address)
		if err != nil {
			return nil, err
		}
		return s.resolveIDs(ctx, ids)
	}
	return s.store.ListByClient(ctx, address)
}

func (s *EscrowService) ListByFreelancer(ctx context.Context, address string) ([]models.Escrow, error) {
	if s.chain != nil {
		ids, err := s.chain.GetFreelancerEscrows(ctx, address)
		if err != nil {
			return nil, err
		}
		return s.resolveIDs(ctx, ids)
	}
	return s.store.ListByFreelancer(ctx, address)
}

func (s *EscrowService) resolveIDs(ctx context.Context, ids []uint64) ([]models.Escrow, error) {
	escrows := make([]models.Escrow, 0, len(ids))
	for _, id := range ids {
		e, err := s.chain.GetEscrow(ctx, id)
		if err != nil {
			return nil, err
		}
		escrows = append(escrows, *e)
	}
	return escrows, nil
}

func (s *EscrowService) Count(ctx context.Context) (uint64, error) {
	if s.chain != nil {
		return s.chain.GetEscrowCount(ctx)
	}
	return s.store.Count(ctx)
}

// ListRefundEligible returns active escrows whose deadline has passed. The
// worker surfaces these to clients; it never refunds on its own.
func (s *EscrowService) ListRefundEligible(ctx context.Context) ([]models.Escrow, error) {
	return s.store.ListExpiredActive(ctx)
}

// AttachTxHash records the transaction that created or mutated the escrow.
func (s *EscrowService) AttachTxHash(ctx context.Context, id uint64, txHash string) error {
	return s.store.SetTxHash(ctx, id, txHash)
}

func (s *EscrowService) GetEscrowEvents(ctx context.Context, id uint64) ([]models.AuditLog, error) {
	if s.audit == nil {
		return nil, nil
	}
	return s.audit.GetByEntity(ctx, "escrow", fmt.Sprintf("%d", id), 100, 0)
}
