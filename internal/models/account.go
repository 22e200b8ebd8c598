package models

import (
	"time"

	"github.com/google/uuid"
)

type Account struct {
	ID           uuid.UUID `json:"id"`
	Address      string    `json:"address"` // EVM address, 0x-prefixed, stored lowercase
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}

// AuthNonce is a one-shot challenge the wallet signs to prove ownership of
// an address. Consumed on first use, expired nonces are swept by the worker.
type AuthNonce struct {
	ID        uuid.UUID `json:"id"`
	Nonce     string    `json:"nonce"`
	Address   *string   `json:"-"`
	CreatedAt time.Time `json:"-"`
	ExpiresAt time.Time `json:"-"`
	Used      bool      `json:"-"`
}
