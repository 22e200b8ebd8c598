package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bitbond/backend/internal/bridge"
	"github.com/bitbond/backend/internal/events"
	"github.com/bitbond/backend/internal/orchestrator"
	"go.uber.org/zap"
)

// OrchestrationService owns transaction flows, one active flow per
// authenticated account. Confirmation watchers run here so a flow keeps
// progressing after the HTTP request that broadcast it returns.
type OrchestrationService struct {
	bridge         bridge.Bridge
	escrows        *EscrowService
	publisher      events.Publisher
	contractAddr   string
	confirmTimeout time.Duration
	log            *zap.Logger

	mu    sync.Mutex
	flows map[string]*orchestrator.Flow
}

func NewOrchestrationService(b bridge.Bridge, escrows *EscrowService, publisher events.Publisher, contractAddr string, confirmTimeout time.Duration, log *zap.Logger) *OrchestrationService {
	return &OrchestrationService{
		bridge:         b,
		escrows:        escrows,
		publisher:      publisher,
		contractAddr:   contractAddr,
		confirmTimeout: confirmTimeout,
		log:            log,
		flows:          make(map[string]*orchestrator.Flow),
	}
}

func (s *OrchestrationService) flowFor(account string) *orchestrator.Flow {
	key := strings.ToLower(account)

	s.mu.Lock()
	defer s.mu.Unlock()
	flow, ok := s.flows[key]
	if !ok || flow.Status().State == orchestrator.StateConfirmed {
		flow = orchestrator.NewFlow(key, s.contractAddr, s.bridge, s.log)
		s.flows[key] = flow
	}
	return flow
}

func (s *OrchestrationService) Build(account string, req orchestrator.BuildRequest) (orchestrator.Status, error) {
	flow := s.flowFor(account)
	err := flow.BuildIntention(req)
	s.publishState(flow)
	return flow.Status(), err
}

func (s *OrchestrationService) Finalize(ctx context.Context, account string) (orchestrator.Status, error) {
	flow := s.flowFor(account)
	err := flow.Finalize(ctx)
	s.publishState(flow)
	return flow.Status(), err
}

func (s *OrchestrationService) Sign(ctx context.Context, account string) (orchestrator.Status, error) {
	flow := s.flowFor(account)
	err := flow.Sign(ctx)
	s.publishState(flow)
	return flow.Status(), err
}

// Broadcast submits the flow and, on success, registers the bounded
// confirmation watcher.
func (s *OrchestrationService) Broadcast(ctx context.Context, account string) (orchestrator.Status, error) {
	flow := s.flowFor(account)
	err := flow.Broadcast(ctx)
	s.publishState(flow)
	if err != nil {
		return flow.Status(), err
	}

	go s.watchConfirmation(flow)
	return flow.Status(), nil
}

func (s *OrchestrationService) Cancel(account string) orchestrator.Status {
	flow := s.flowFor(account)
	flow.Cancel()
	s.publishState(flow)
	return flow.Status()
}

func (s *OrchestrationService) Status(account string) orchestrator.Status {
	return s.flowFor(account).Status()
}

func (s *OrchestrationService) watchConfirmation(flow *orchestrator.Flow) {
	ctx, cancel := context.WithTimeout(context.Background(), s.confirmTimeout)
	defer cancel()

	if err := flow.AwaitConfirmation(ctx); err != nil {
		s.publishState(flow)
		return
	}

	st := flow.Status()
	payload := map[string]any{
		"account": st.Account,
		"action":  st.Action,
		"tx_id":   st.TxID,
	}

	// Re-read the affected record so subscribers get fresh state.
	if st.EscrowID != 0 {
		payload["escrow_id"] = st.EscrowID
		if escrow, err := s.escrows.GetEscrow(ctx, st.EscrowID); err == nil {
			payload["escrow"] = escrow
		} else {
			s.log.Warn("post-confirmation re-read failed",
				zap.Uint64("escrow_id", st.EscrowID), zap.Error(err))
		}
	}

	// A confirmed release gets the celebratory effect in the UI.
	if st.Action == orchestrator.ActionRelease {
		payload["celebrate"] = true
	}

	if s.publisher != nil {
		_ = s.publisher.Publish(ctx, "events:flow", events.Event{
			Type:    events.EventTxConfirmed,
			Payload: payload,
		})
	}
	s.publishState(flow)
}

func (s *OrchestrationService) publishState(flow *orchestrator.Flow) {
	if s.publisher == nil {
		return
	}
	st := flow.Status()
	_ = s.publisher.Publish(context.Background(), "events:flow", events.Event{
		Type: events.EventFlowStateChanged,
		Payload: map[string]any{
			"account": st.Account,
			"state":   st.State,
			"action":  st.Action,
			"error":   st.Error,
		},
	})
}

// Sweep periodically expires stale flows until ctx is cancelled.
func (s *OrchestrationService) Sweep(ctx context.Context, maxAge time.Duration) {
	ticker := time.NewTicker(maxAge / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.ExpireStale(maxAge); n > 0 {
				s.log.Info("expired stale flows", zap.Int("count", n))
			}
		}
	}
}

// ExpireStale drops flows that have not moved for longer than maxAge. Flows
// mid-broadcast are left alone; active accounts simply get a fresh flow on
// their next command.
func (s *OrchestrationService) ExpireStale(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()
	expired := 0
	for key, flow := range s.flows {
		st := flow.Status()
		if st.UpdatedAt.Before(cutoff) && st.State != orchestrator.StateBroadcast {
			delete(s.flows, key)
			expired++
		}
	}
	return expired
}
