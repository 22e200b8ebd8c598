package dto

import "time"

type AuthVerifyRequest struct {
	Address   string `json:"address"`
	Nonce     string `json:"nonce"`
	Signature string `json:"signature"`
}

type CreateEscrowRequest struct {
	Freelancer  string    `json:"freelancer"`
	AmountWei   string    `json:"amount_wei"`
	Description string    `json:"description"`
	Deadline    time.Time `json:"deadline"`
}

// BuildIntentionRequest starts an orchestration flow. Freelancer, AmountWei,
// Description and Deadline are required for create; EscrowID for the rest.
type BuildIntentionRequest struct {
	Action      string     `json:"action"` // create, release, dispute, refund
	Freelancer  string     `json:"freelancer,omitempty"`
	AmountWei   string     `json:"amount_wei,omitempty"`
	Description string     `json:"description,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	EscrowID    uint64     `json:"escrow_id,omitempty"`
}
