package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bitbond/backend/internal/models"
)

// MemoryEscrowStore keeps escrows in process memory. It backs demo mode when
// no Postgres is available and the service tests.
type MemoryEscrowStore struct {
	mu      sync.RWMutex
	escrows map[uint64]*models.Escrow
	nextID  uint64
}

func NewMemoryEscrowStore() *MemoryEscrowStore {
	return &MemoryEscrowStore{escrows: make(map[uint64]*models.Escrow), nextID: 1}
}

func (s *MemoryEscrowStore) Create(ctx context.Context, e *models.Escrow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.ID = s.nextID
	s.nextID++
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	cp := *e
	s.escrows[e.ID] = &cp
	return nil
}

func (s *MemoryEscrowStore) Upsert(ctx context.Context, e *models.Escrow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *e
	s.escrows[e.ID] = &cp
	if e.ID >= s.nextID {
		s.nextID = e.ID + 1
	}
	return nil
}

func (s *MemoryEscrowStore) GetByID(ctx context.Context, id uint64) (*models.Escrow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.escrows[id]
	if !ok {
		return nil, models.ErrEscrowNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *MemoryEscrowStore) ListByClient(ctx context.Context, address string) ([]models.Escrow, error) {
	return s.filter(func(e *models.Escrow) bool { return e.IsClient(address) }), nil
}

func (s *MemoryEscrowStore) ListByFreelancer(ctx context.Context, address string) ([]models.Escrow, error) {
	return s.filter(func(e *models.Escrow) bool { return e.IsFreelancer(address) }), nil
}

func (s *MemoryEscrowStore) ListExpiredActive(ctx context.Context) ([]models.Escrow, error) {
	now := time.Now()
	return s.filter(func(e *models.Escrow) bool {
		return e.Status == models.EscrowStatusActive && e.Deadline.Before(now)
	}), nil
}

func (s *MemoryEscrowStore) filter(keep func(*models.Escrow) bool) []models.Escrow {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Escrow
	for _, e := range s.escrows {
		if keep(e) {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *MemoryEscrowStore) Count(ctx context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.escrows)), nil
}

func (s *MemoryEscrowStore) UpdateStatus(ctx context.Context, id uint64, from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.escrows[id]
	if !ok {
		return models.ErrEscrowNotFound
	}
	if e.Status != from {
		return models.ErrEscrowNotActive
	}
	e.Status = to
	return nil
}

func (s *MemoryEscrowStore) SetTxHash(ctx context.Context, id uint64, txHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.escrows[id]
	if !ok {
		return models.ErrEscrowNotFound
	}
	e.TxHash = &txHash
	return nil
}
