package orchestrator

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/bitbond/backend/internal/bridge"
	"github.com/bitbond/backend/internal/contract"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Flow states.
const (
	StateIdle           = "idle"
	StateIntentionBuilt = "intention_built"
	StateFinalized      = "finalized"
	StateSigned         = "signed"
	StateBroadcast      = "broadcast"
	StateConfirmed      = "confirmed"
)

// Escrow actions a flow can submit.
const (
	ActionCreate  = "create"
	ActionRelease = "release"
	ActionDispute = "dispute"
	ActionRefund  = "refund"
)

// BuildRequest describes the intention to queue. Freelancer, AmountWei,
// Description and Deadline apply to create; EscrowID to the other actions.
type BuildRequest struct {
	Action      string
	Freelancer  string
	AmountWei   string
	Description string
	Deadline    time.Time
	EscrowID    uint64
}

// Status is a read-only snapshot of a flow for the API.
type Status struct {
	State      string     `json:"state"`
	Action     string     `json:"action"`
	Account    string     `json:"account"`
	TxID       string     `json:"tx_id,omitempty"`
	TxHex      string     `json:"tx_hex,omitempty"`
	EscrowID   uint64     `json:"escrow_id,omitempty"`
	Error      *StepError `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Flow sequences one state-changing escrow call through the bridge: build
// the intention, finalize the anchoring transaction, sign, broadcast, await
// confirmation. Each step is an explicit command; a failed step records the
// error and leaves the flow paused there for retry. At most one intention is
// queued at a time.
type Flow struct {
	account      string
	contractAddr string
	bridge       bridge.Bridge
	parsed       abi.ABI
	log          *zap.Logger

	mu        sync.Mutex
	state     string
	action    string
	escrowID  uint64
	queue     []bridge.Intention
	finalized *bridge.FinalizeResult
	signed    [][]byte
	lastErr   *StepError
	startedAt time.Time
	updatedAt time.Time
}

func NewFlow(account, contractAddr string, b bridge.Bridge, log *zap.Logger) *Flow {
	return &Flow{
		account:      strings.ToLower(account),
		contractAddr: contractAddr,
		bridge:       b,
		parsed:       contract.MustParseABI(),
		log:          log,
		state:        StateIdle,
		startedAt:    time.Now(),
		updatedAt:    time.Now(),
	}
}

func (f *Flow) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := Status{
		State:     f.state,
		Action:    f.action,
		Account:   f.account,
		EscrowID:  f.escrowID,
		Error:     f.lastErr,
		StartedAt: f.startedAt,
		UpdatedAt: f.updatedAt,
	}
	if f.finalized != nil {
		s.TxID = f.finalized.TxID
		s.TxHex = f.finalized.TxHex
	}
	return s
}

// BuildIntention validates the request, packs the calldata and queues the
// intention, discarding any previously queued one.
func (f *Flow) BuildIntention(req BuildRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateIdle && f.state != StateIntentionBuilt {
		return f.fail(StepBuild, &FlowStateError{Current: f.state, Wanted: StateIdle})
	}

	intention, err := f.buildIntention(req)
	if err != nil {
		return f.fail(StepBuild, err)
	}

	// Reset: exactly one intention in flight per flow.
	f.queue = []bridge.Intention{*intention}
	f.action = req.Action
	f.escrowID = req.EscrowID
	f.finalized = nil
	f.signed = nil
	f.advance(StateIntentionBuilt)
	return nil
}

func (f *Flow) buildIntention(req BuildRequest) (*bridge.Intention, error) {
	switch req.Action {
	case ActionCreate:
		return f.buildCreate(req)
	case ActionRelease, ActionDispute, ActionRefund:
		return f.buildByID(req)
	default:
		return nil, &ValidationError{Field: "action", Reason: "must be create, release, dispute or refund"}
	}
}

func (f *Flow) buildCreate(req BuildRequest) (*bridge.Intention, error) {
	if !common.IsHexAddress(req.Freelancer) {
		return nil, &ValidationError{Field: "freelancer", Reason: "must be a well-formed 0x address"}
	}
	amount, ok := new(big.Int).SetString(req.AmountWei, 10)
	if !ok || amount.Sign() <= 0 {
		return nil, &ValidationError{Field: "amount_wei", Reason: "must parse as a positive integer"}
	}
	if strings.TrimSpace(req.Description) == "" {
		return nil, &ValidationError{Field: "description", Reason: "must be non-empty"}
	}
	if !req.Deadline.After(time.Now()) {
		return nil, &ValidationError{Field: "deadline", Reason: "must be strictly in the future"}
	}

	data, err := contract.PackCreateEscrow(f.parsed, common.HexToAddress(req.Freelancer), req.Description, big.NewInt(req.Deadline.Unix()))
	if err != nil {
		return nil, err
	}
	return &bridge.Intention{
		From:       f.account,
		To:         f.contractAddr,
		Calldata:   data,
		ValueWei:   amount.String(),
		ActionType: ActionCreate,
	}, nil
}

func (f *Flow) buildByID(req BuildRequest) (*bridge.Intention, error) {
	if req.EscrowID == 0 {
		return nil, &ValidationError{Field: "escrow_id", Reason: "must reference an existing escrow"}
	}

	var (
		data []byte
		err  error
	)
	switch req.Action {
	case ActionRelease:
		data, err = contract.PackReleaseFunds(f.parsed, req.EscrowID)
	case ActionDispute:
		data, err = contract.PackRaiseDispute(f.parsed, req.EscrowID)
	case ActionRefund:
		data, err = contract.PackRefundAfterDeadline(f.parsed, req.EscrowID)
	}
	if err != nil {
		return nil, err
	}
	return &bridge.Intention{
		From:       f.account,
		To:         f.contractAddr,
		Calldata:   data,
		ValueWei:   "0",
		ActionType: req.Action,
	}, nil
}

// Finalize asks the bridge for the anchoring transaction over the queue.
func (f *Flow) Finalize(ctx context.Context) error {
	f.mu.Lock()
	if f.state != StateIntentionBuilt {
		defer f.mu.Unlock()
		return f.fail(StepFinalize, &FlowStateError{Current: f.state, Wanted: StateIntentionBuilt})
	}
	queue := f.queue
	f.mu.Unlock()

	result, err := f.bridge.Finalize(ctx, queue)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		return f.fail(StepFinalize, err)
	}
	f.finalized = result
	f.advance(StateFinalized)
	return nil
}

// Sign requests a signature for every queued intention, in queue order.
func (f *Flow) Sign(ctx context.Context) error {
	f.mu.Lock()
	if f.state != StateFinalized {
		defer f.mu.Unlock()
		return f.fail(StepSign, &FlowStateError{Current: f.state, Wanted: StateFinalized})
	}
	queue := f.queue
	txID := f.finalized.TxID
	f.mu.Unlock()

	signed := make([][]byte, 0, len(queue))
	for _, in := range queue {
		payload, err := f.bridge.Sign(ctx, in, txID)
		if err != nil {
			f.mu.Lock()
			defer f.mu.Unlock()
			return f.fail(StepSign, err)
		}
		signed = append(signed, payload)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.signed = signed
	f.advance(StateSigned)
	return nil
}

// Broadcast submits the signed payloads with the finalized transaction. On
// failure the queue and signatures are untouched, so retry needs no rebuild.
func (f *Flow) Broadcast(ctx context.Context) error {
	f.mu.Lock()
	if f.state != StateSigned {
		defer f.mu.Unlock()
		return f.fail(StepBroadcast, &FlowStateError{Current: f.state, Wanted: StateSigned})
	}
	signed := f.signed
	txHex := f.finalized.TxHex
	f.mu.Unlock()

	err := f.bridge.Broadcast(ctx, signed, txHex)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		return f.fail(StepBroadcast, err)
	}
	f.advance(StateBroadcast)
	return nil
}

// AwaitConfirmation blocks until the bridge reports the transaction
// confirmed. The caller bounds the wait through ctx; a deadline or cancel
// surfaces as a confirm-step error with the flow still at broadcast.
func (f *Flow) AwaitConfirmation(ctx context.Context) error {
	f.mu.Lock()
	if f.state != StateBroadcast {
		defer f.mu.Unlock()
		return f.fail(StepConfirm, &FlowStateError{Current: f.state, Wanted: StateBroadcast})
	}
	txID := f.finalized.TxID
	f.mu.Unlock()

	err := f.bridge.AwaitConfirmation(ctx, txID)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		return f.fail(StepConfirm, err)
	}
	f.advance(StateConfirmed)
	f.log.Info("flow confirmed",
		zap.String("account", f.account),
		zap.String("action", f.action),
		zap.String("tx_id", txID),
	)
	return nil
}

// Cancel discards the queue and returns to idle. It never touches chain
// state, so cancelling before broadcast is always safe; after confirmation
// it is a no-op.
func (f *Flow) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == StateConfirmed {
		return
	}
	f.queue = nil
	f.finalized = nil
	f.signed = nil
	f.action = ""
	f.escrowID = 0
	f.lastErr = nil
	f.advance(StateIdle)
}

// advance and fail assume f.mu is held.

func (f *Flow) advance(state string) {
	f.state = state
	f.lastErr = nil
	f.updatedAt = time.Now()
}

func (f *Flow) fail(step string, err error) error {
	stepErr := &StepError{Step: step, Err: err}
	f.lastErr = stepErr
	f.updatedAt = time.Now()
	f.log.Warn("flow step failed",
		zap.String("account", f.account),
		zap.String("step", step),
		zap.Error(err),
	)
	return stepErr
}
