package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bitbond/backend/internal/models"
	"github.com/bitbond/backend/internal/repositories"
	"go.uber.org/zap"
)

const (
	testClient     = "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B"
	testFreelancer = "0x00000000219ab540356cBB839Cbe05303d7705Fa"
	testOutsider   = "0xdAC17F958D2ee523a2206206994597C13D831ec7"
)

func newTestService() *EscrowService {
	return NewEscrowService(repositories.NewMemoryEscrowStore(), nil, nil, nil, zap.NewNop())
}

func mustCreate(t *testing.T, s *EscrowService, deadline time.Time) *models.Escrow {
	t.Helper()
	escrow, err := s.CreateEscrow(context.Background(), testClient, testFreelancer, "1000000000000000000", "landing page", deadline)
	if err != nil {
		t.Fatalf("CreateEscrow: %v", err)
	}
	return escrow
}

func TestCreateEscrow(t *testing.T) {
	s := newTestService()
	deadline := time.Now().Add(72 * time.Hour)
	escrow := mustCreate(t, s, deadline)

	if escrow.ID != 1 {
		t.Errorf("expected first id 1, got %d", escrow.ID)
	}
	if escrow.Status != models.EscrowStatusActive {
		t.Errorf("new escrow must be active, got %s", escrow.Status)
	}
	if escrow.Client != strings.ToLower(testClient) {
		t.Errorf("client address not lowercased: %s", escrow.Client)
	}

	second := mustCreate(t, s, deadline)
	if second.ID != 2 {
		t.Errorf("ids must be sequential, got %d", second.ID)
	}
}

func TestCreateEscrowValidation(t *testing.T) {
	s := newTestService()
	future := time.Now().Add(time.Hour)
	ctx := context.Background()

	tests := []struct {
		name       string
		client     string
		freelancer string
		amount     string
		deadline   time.Time
		wantErr    error
	}{
		{"bad freelancer address", testClient, "not-an-address", "100", future, models.ErrInvalidAddress},
		{"bad client address", "0x123", testFreelancer, "100", future, models.ErrInvalidAddress},
		{"zero amount", testClient, testFreelancer, "0", future, models.ErrInvalidAmount},
		{"negative amount", testClient, testFreelancer, "-5", future, models.ErrInvalidAmount},
		{"garbage amount", testClient, testFreelancer, "1.5 eth", future, models.ErrInvalidAmount},
		{"past deadline", testClient, testFreelancer, "100", time.Now().Add(-time.Minute), models.ErrDeadlineMustBeFuture},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateEscrow(ctx, tt.client, tt.freelancer, tt.amount, "work", tt.deadline)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestReleaseFunds(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	escrow := mustCreate(t, s, time.Now().Add(time.Hour))

	if err := s.ReleaseFunds(ctx, escrow.ID, testOutsider); !errors.Is(err, models.ErrOnlyClient) {
		t.Errorf("outsider release: got %v, want ErrOnlyClient", err)
	}
	if err := s.ReleaseFunds(ctx, escrow.ID, testFreelancer); !errors.Is(err, models.ErrOnlyClient) {
		t.Errorf("freelancer release: got %v, want ErrOnlyClient", err)
	}

	// Mixed-case caller must still match the stored lowercase address.
	if err := s.ReleaseFunds(ctx, escrow.ID, testClient); err != nil {
		t.Fatalf("client release: %v", err)
	}

	got, err := s.GetEscrow(ctx, escrow.ID)
	if err != nil {
		t.Fatalf("GetEscrow: %v", err)
	}
	if got.Status != models.EscrowStatusReleased {
		t.Errorf("status after release: %s", got.Status)
	}

	if err := s.ReleaseFunds(ctx, escrow.ID, testClient); !errors.Is(err, models.ErrAlreadyReleased) {
		t.Errorf("double release: got %v, want ErrAlreadyReleased", err)
	}
}

func TestRaiseDispute(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	escrow := mustCreate(t, s, time.Now().Add(time.Hour))
	if err := s.RaiseDispute(ctx, escrow.ID, testOutsider); !errors.Is(err, models.ErrOnlyParticipant) {
		t.Errorf("outsider dispute: got %v, want ErrOnlyParticipant", err)
	}
	if err := s.RaiseDispute(ctx, escrow.ID, testFreelancer); err != nil {
		t.Fatalf("freelancer dispute: %v", err)
	}

	// Disputed is stable: no release, no refund, no second dispute.
	if err := s.ReleaseFunds(ctx, escrow.ID, testClient); !errors.Is(err, models.ErrEscrowNotActive) {
		t.Errorf("release after dispute: got %v, want ErrEscrowNotActive", err)
	}
	if err := s.RaiseDispute(ctx, escrow.ID, testClient); !errors.Is(err, models.ErrEscrowNotActive) {
		t.Errorf("second dispute: got %v, want ErrEscrowNotActive", err)
	}
}

func TestRefundAfterDeadline(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	live := mustCreate(t, s, time.Now().Add(time.Hour))
	if err := s.RefundAfterDeadline(ctx, live.ID, testClient); !errors.Is(err, models.ErrDeadlineNotPassed) {
		t.Errorf("refund before deadline: got %v, want ErrDeadlineNotPassed", err)
	}

	// Expired escrow: create slightly in the future, then wait it out.
	expired := mustCreate(t, s, time.Now().Add(10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	if err := s.RefundAfterDeadline(ctx, expired.ID, testFreelancer); !errors.Is(err, models.ErrOnlyClient) {
		t.Errorf("freelancer refund: got %v, want ErrOnlyClient", err)
	}
	if err := s.RefundAfterDeadline(ctx, expired.ID, testClient); err != nil {
		t.Fatalf("client refund: %v", err)
	}

	got, _ := s.GetEscrow(ctx, expired.ID)
	if got.Status != models.EscrowStatusRefunded {
		t.Errorf("status after refund: %s", got.Status)
	}
	if err := s.RefundAfterDeadline(ctx, expired.ID, testClient); !errors.Is(err, models.ErrEscrowNotActive) {
		t.Errorf("double refund: got %v, want ErrEscrowNotActive", err)
	}
}

func TestEscrowNotFound(t *testing.T) {
	s := newTestService()
	if _, err := s.GetEscrow(context.Background(), 99); !errors.Is(err, models.ErrEscrowNotFound) {
		t.Errorf("got %v, want ErrEscrowNotFound", err)
	}
	if err := s.ReleaseFunds(context.Background(), 99, testClient); !errors.Is(err, models.ErrEscrowNotFound) {
		t.Errorf("got %v, want ErrEscrowNotFound", err)
	}
}

func TestListByParty(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	deadline := time.Now().Add(time.Hour)

	mustCreate(t, s, deadline)
	mustCreate(t, s, deadline)
	if _, err := s.CreateEscrow(ctx, testOutsider, testFreelancer, "500", "logo", deadline); err != nil {
		t.Fatalf("CreateEscrow: %v", err)
	}

	byClient, err := s.ListByClient(ctx, testClient)
	if err != nil {
		t.Fatalf("ListByClient: %v", err)
	}
	if len(byClient) != 2 {
		t.Errorf("client escrows: got %d, want 2", len(byClient))
	}
	if len(byClient) == 2 && byClient[0].ID > byClient[1].ID {
		t.Error("client escrows not in creation order")
	}

	byFreelancer, err := s.ListByFreelancer(ctx, testFreelancer)
	if err != nil {
		t.Fatalf("ListByFreelancer: %v", err)
	}
	if len(byFreelancer) != 3 {
		t.Errorf("freelancer escrows: got %d, want 3", len(byFreelancer))
	}

	n, err := s.Count(ctx)
	if err != nil || n != 3 {
		t.Errorf("Count: got %d (%v), want 3", n, err)
	}
}

func TestListRefundEligible(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	mustCreate(t, s, time.Now().Add(time.Hour))
	expired := mustCreate(t, s, time.Now().Add(10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	eligible, err := s.ListRefundEligible(ctx)
	if err != nil {
		t.Fatalf("ListRefundEligible: %v", err)
	}
	if len(eligible) != 1 || eligible[0].ID != expired.ID {
		t.Errorf("eligible: %+v", eligible)
	}
}
