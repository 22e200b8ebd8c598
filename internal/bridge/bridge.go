package bridge

import (
	"context"
	"errors"
)

// Sign failures the UI must tell apart from generic transport errors.
var (
	ErrUserRejected    = errors.New("signature rejected by user")
	ErrNetworkMismatch = errors.New("wallet is connected to a different network")
)

// Intention is a queued, not-yet-signed state-changing call to submit
// through the bridge.
type Intention struct {
	From       string `json:"from"`
	To         string `json:"to"`
	Calldata   []byte `json:"calldata"`
	ValueWei   string `json:"value_wei"`
	ActionType string `json:"action_type"` // create, release, dispute, refund
}

// FinalizeResult is the anchoring transaction computed for the queued
// intentions: its id and the unsigned payload hex.
type FinalizeResult struct {
	TxID  string `json:"tx_id"`
	TxHex string `json:"tx_hex"`
}

// Bridge is the external wallet/bridge SDK boundary. Implementations: the
// HTTP client talking to a bridge daemon, and the demo bridge that applies
// calls to the local ledger.
type Bridge interface {
	// Finalize computes the anchoring transaction for the queued intentions.
	Finalize(ctx context.Context, intentions []Intention) (*FinalizeResult, error)
	// Sign requests a signature over one intention bound to the finalized
	// transaction id. Returns ErrUserRejected or ErrNetworkMismatch when the
	// wallet refuses.
	Sign(ctx context.Context, intention Intention, txID string) ([]byte, error)
	// Broadcast submits all signed payloads with the finalized transaction.
	Broadcast(ctx context.Context, signed [][]byte, txHex string) error
	// AwaitConfirmation blocks until the transaction confirms or ctx is done.
	AwaitConfirmation(ctx context.Context, txID string) error
}
