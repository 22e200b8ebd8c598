package dto

import (
	"time"

	"github.com/bitbond/backend/internal/models"
)

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

type NonceResponse struct {
	Nonce     string    `json:"nonce"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}

type AuthResponse struct {
	Token   string `json:"token"`
	Account any    `json:"account"`
}

// EscrowResponse is an escrow record plus its explorer links.
type EscrowResponse struct {
	models.Escrow
	TxURL         string `json:"tx_url,omitempty"`
	ClientURL     string `json:"client_url,omitempty"`
	FreelancerURL string `json:"freelancer_url,omitempty"`
}

type ContractMetaResponse struct {
	Address     string `json:"address"`
	ChainID     int64  `json:"chain_id"`
	DemoMode    bool   `json:"demo_mode"`
	ExplorerURL string `json:"explorer_url"`
}
