package events

import "context"

// Event types
const (
	EventEscrowCreated       = "escrow_created"
	EventEscrowStatusChanged = "escrow_status_changed"
	EventFlowStateChanged    = "flow_state_changed"
	EventTxConfirmed         = "tx_confirmed"
)

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}
