package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bitbond/backend/internal/bridge"
	"github.com/bitbond/backend/internal/events"
	"github.com/bitbond/backend/internal/models"
	"github.com/bitbond/backend/internal/orchestrator"
	"github.com/bitbond/backend/internal/repositories"
	"go.uber.org/zap"
)

const demoContract = "0x5FbDB2315678afecb367f032d93F642f64180aa3"

type capturePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *capturePublisher) Publish(ctx context.Context, stream string, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) find(eventType string) (events.Event, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.events {
		if e.Type == eventType {
			return e, true
		}
	}
	return events.Event{}, false
}

func newDemoStack(t *testing.T) (*EscrowService, *OrchestrationService, *capturePublisher) {
	t.Helper()
	pub := &capturePublisher{}
	escrows := NewEscrowService(repositories.NewMemoryEscrowStore(), nil, nil, pub, zap.NewNop())
	demo := bridge.NewDemoBridge(escrows, zap.NewNop())
	orch := NewOrchestrationService(demo, escrows, pub, demoContract, 5*time.Second, zap.NewNop())
	return escrows, orch, pub
}

func runFlow(t *testing.T, orch *OrchestrationService, account string, req orchestrator.BuildRequest) {
	t.Helper()
	ctx := context.Background()

	if _, err := orch.Build(account, req); err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, err := orch.Finalize(ctx, account); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if _, err := orch.Sign(ctx, account); err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := orch.Broadcast(ctx, account); err != nil {
		t.Fatalf("broadcast: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if orch.Status(account).State == orchestrator.StateConfirmed {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("flow never confirmed, state = %s", orch.Status(account).State)
}

func TestDemoFlowCreateEscrow(t *testing.T) {
	escrows, orch, _ := newDemoStack(t)

	runFlow(t, orch, testClient, orchestrator.BuildRequest{
		Action:      orchestrator.ActionCreate,
		Freelancer:  testFreelancer,
		AmountWei:   "100000000000000000",
		Description: "logo design",
		Deadline:    time.Now().Add(7 * 24 * time.Hour),
	})

	escrow, err := escrows.GetEscrow(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetEscrow: %v", err)
	}
	if escrow.Status != models.EscrowStatusActive {
		t.Errorf("status = %s", escrow.Status)
	}
	if escrow.AmountWei != "100000000000000000" {
		t.Errorf("amount = %s", escrow.AmountWei)
	}
	if escrow.TxHash == nil || *escrow.TxHash == "" {
		t.Error("tx hash not recorded after confirmation")
	}
}

func TestDemoFlowReleaseCelebrates(t *testing.T) {
	escrows, orch, pub := newDemoStack(t)

	escrow, err := escrows.CreateEscrow(context.Background(), testClient, testFreelancer, "500", "banner", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("CreateEscrow: %v", err)
	}

	runFlow(t, orch, testClient, orchestrator.BuildRequest{
		Action:   orchestrator.ActionRelease,
		EscrowID: escrow.ID,
	})

	got, _ := escrows.GetEscrow(context.Background(), escrow.ID)
	if got.Status != models.EscrowStatusReleased {
		t.Fatalf("status = %s", got.Status)
	}

	confirmed, ok := pub.find(events.EventTxConfirmed)
	if !ok {
		t.Fatal("no tx_confirmed event published")
	}
	if celebrate, _ := confirmed.Payload["celebrate"].(bool); !celebrate {
		t.Error("release confirmation must carry the celebration flag")
	}
}

func TestDemoFlowBroadcastRevertStaysRetryable(t *testing.T) {
	escrows, orch, _ := newDemoStack(t)
	ctx := context.Background()

	escrow, err := escrows.CreateEscrow(ctx, testClient, testFreelancer, "500", "banner", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}

	// The freelancer cannot release; the demo ledger rejects at broadcast,
	// the same step a reverting node call would fail.
	if _, err := orch.Build(testFreelancer, orchestrator.BuildRequest{
		Action:   orchestrator.ActionRelease,
		EscrowID: escrow.ID,
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := orch.Finalize(ctx, testFreelancer); err != nil {
		t.Fatal(err)
	}
	if _, err := orch.Sign(ctx, testFreelancer); err != nil {
		t.Fatal(err)
	}

	_, err = orch.Broadcast(ctx, testFreelancer)
	if !errors.Is(err, models.ErrOnlyClient) {
		t.Fatalf("got %v, want ErrOnlyClient", err)
	}
	if st := orch.Status(testFreelancer); st.State != orchestrator.StateSigned {
		t.Fatalf("state = %s", st.State)
	}

	got, _ := escrows.GetEscrow(ctx, escrow.ID)
	if got.Status != models.EscrowStatusActive {
		t.Fatalf("failed broadcast must not change state: %s", got.Status)
	}
}

func TestOneFlowPerAccount(t *testing.T) {
	_, orch, _ := newDemoStack(t)

	if _, err := orch.Build(testClient, orchestrator.BuildRequest{
		Action:   orchestrator.ActionDispute,
		EscrowID: 1,
	}); err != nil {
		t.Fatal(err)
	}
	if st := orch.Status(testClient); st.State != orchestrator.StateIntentionBuilt {
		t.Fatalf("state = %s", st.State)
	}
	// A different account gets its own idle flow.
	if st := orch.Status(testFreelancer); st.State != orchestrator.StateIdle {
		t.Fatalf("other account state = %s", st.State)
	}

	orch.Cancel(testClient)
	if st := orch.Status(testClient); st.State != orchestrator.StateIdle {
		t.Fatalf("after cancel: %s", st.State)
	}
}

func TestExpireStale(t *testing.T) {
	_, orch, _ := newDemoStack(t)

	orch.Status(testClient) // materializes a flow
	time.Sleep(20 * time.Millisecond)

	if n := orch.ExpireStale(time.Hour); n != 0 {
		t.Errorf("fresh flow expired: %d", n)
	}
	if n := orch.ExpireStale(10 * time.Millisecond); n != 1 {
		t.Errorf("stale flow not expired: %d", n)
	}
}
