package models

import (
	"errors"
	"time"
)

// Escrow statuses
const (
	EscrowStatusPending  = "pending"
	EscrowStatusActive   = "active"
	EscrowStatusReleased = "released"
	EscrowStatusDisputed = "disputed"
	EscrowStatusRefunded = "refunded"
)

// Valid state transitions: from -> []to.
// Creation is atomic with funding, so new escrows land directly in active;
// pending exists only so the enum stays aligned with the contract's uint8
// codes. Disputed has no modeled exit — resolution happens off-chain.
var ValidEscrowTransitions = map[string][]string{
	EscrowStatusPending:  {EscrowStatusActive},
	EscrowStatusActive:   {EscrowStatusReleased, EscrowStatusDisputed, EscrowStatusRefunded},
	EscrowStatusReleased: {},
	EscrowStatusDisputed: {},
	EscrowStatusRefunded: {},
}

func IsValidEscrowTransition(from, to string) bool {
	allowed, ok := ValidEscrowTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Status codes as encoded in the BitBondEscrow contract's uint8 field.
const (
	EscrowStatusCodePending  uint8 = 0
	EscrowStatusCodeActive   uint8 = 1
	EscrowStatusCodeReleased uint8 = 2
	EscrowStatusCodeDisputed uint8 = 3
	EscrowStatusCodeRefunded uint8 = 4
)

var statusByCode = map[uint8]string{
	EscrowStatusCodePending:  EscrowStatusPending,
	EscrowStatusCodeActive:   EscrowStatusActive,
	EscrowStatusCodeReleased: EscrowStatusReleased,
	EscrowStatusCodeDisputed: EscrowStatusDisputed,
	EscrowStatusCodeRefunded: EscrowStatusRefunded,
}

var codeByStatus = map[string]uint8{
	EscrowStatusPending:  EscrowStatusCodePending,
	EscrowStatusActive:   EscrowStatusCodeActive,
	EscrowStatusReleased: EscrowStatusCodeReleased,
	EscrowStatusDisputed: EscrowStatusCodeDisputed,
	EscrowStatusRefunded: EscrowStatusCodeRefunded,
}

// EscrowStatusFromCode maps the on-chain uint8 to the string status.
func EscrowStatusFromCode(code uint8) (string, bool) {
	s, ok := statusByCode[code]
	return s, ok
}

// EscrowStatusCode maps the string status back to the on-chain uint8.
func EscrowStatusCode(status string) (uint8, bool) {
	c, ok := codeByStatus[status]
	return c, ok
}

// Domain errors shared by the demo service and the contract client, named
// after the contract's custom errors so both paths fail the same way.
var (
	ErrEscrowNotFound      = errors.New("escrow not found")
	ErrEscrowNotActive     = errors.New("escrow is not active")
	ErrOnlyClient          = errors.New("only the client can perform this action")
	ErrOnlyParticipant     = errors.New("only the client or freelancer can perform this action")
	ErrAlreadyReleased     = errors.New("funds already released")
	ErrDeadlineNotPassed   = errors.New("deadline has not passed yet")
	ErrDeadlineMustBeFuture = errors.New("deadline must be in the future")
	ErrInvalidAddress      = errors.New("invalid address")
	ErrInvalidAmount       = errors.New("invalid amount")
)

// Escrow is one client/freelancer fund-lock agreement. Every field except
// Status and TxHash is immutable after creation.
type Escrow struct {
	ID          uint64    `json:"id"`
	Client      string    `json:"client"`
	Freelancer  string    `json:"freelancer"`
	AmountWei   string    `json:"amount_wei"` // numeric as string
	Description string    `json:"description"`
	Deadline    time.Time `json:"deadline"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	TxHash      *string   `json:"tx_hash,omitempty"`
}

// IsParticipant reports whether addr is the client or the freelancer.
// Addresses are compared case-insensitively (EIP-55 checksums vary).
func (e *Escrow) IsParticipant(addr string) bool {
	return equalAddress(e.Client, addr) || equalAddress(e.Freelancer, addr)
}

func (e *Escrow) IsClient(addr string) bool {
	return equalAddress(e.Client, addr)
}

func (e *Escrow) IsFreelancer(addr string) bool {
	return equalAddress(e.Freelancer, addr)
}

func equalAddress(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return len(a) > 0
}
