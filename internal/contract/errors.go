package contract

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/bitbond/backend/internal/models"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Contract error names as declared in the ABI.
const (
	ErrNameAlreadyReleased      = "AlreadyReleased"
	ErrNameDeadlineMustBeFuture = "DeadlineMustBeFuture"
	ErrNameDeadlineNotPassed    = "DeadlineNotPassed"
	ErrNameEscrowNotActive      = "EscrowNotActive"
	ErrNameInvalidAddress       = "InvalidAddress"
	ErrNameInvalidAmount        = "InvalidAmount"
	ErrNameOnlyClient           = "OnlyClient"
	ErrNameOnlyFreelancer       = "OnlyFreelancer"
	ErrNameReentrantCall        = "ReentrantCall"
)

// ErrReentrantCall has no domain-level counterpart; the other eight map onto
// the shared sentinels in models so callers handle demo and chain failures
// identically.
var ErrReentrantCall = errors.New("reentrant call rejected")

var domainErrByName = map[string]error{
	ErrNameAlreadyReleased:      models.ErrAlreadyReleased,
	ErrNameDeadlineMustBeFuture: models.ErrDeadlineMustBeFuture,
	ErrNameDeadlineNotPassed:    models.ErrDeadlineNotPassed,
	ErrNameEscrowNotActive:      models.ErrEscrowNotActive,
	ErrNameInvalidAddress:       models.ErrInvalidAddress,
	ErrNameInvalidAmount:        models.ErrInvalidAmount,
	ErrNameOnlyClient:           models.ErrOnlyClient,
	ErrNameOnlyFreelancer:       models.ErrOnlyParticipant,
	ErrNameReentrantCall:        ErrReentrantCall,
}

// DecodeRevert matches 4-byte revert data against the contract's custom
// error selectors and returns the corresponding domain error. Returns false
// when the data does not correspond to a known error.
func DecodeRevert(parsed abi.ABI, data []byte) (error, bool) {
	if len(data) < 4 {
		return nil, false
	}
	for name, abiErr := range parsed.Errors {
		if bytes.Equal(abiErr.ID.Bytes()[:4], data[:4]) {
			if mapped, ok := domainErrByName[name]; ok {
				return mapped, true
			}
			return fmt.Errorf("contract reverted: %s", name), true
		}
	}
	return nil, false
}

// dataError is implemented by go-ethereum RPC errors carrying revert data.
type dataError interface {
	Error() string
	ErrorData() interface{}
}

// mapRevertError translates an RPC error into a domain error when the node
// returned decodable revert data; otherwise the original error is kept.
func mapRevertError(parsed abi.ABI, err error) error {
	if err == nil {
		return nil
	}
	var de dataError
	if !errors.As(err, &de) {
		return err
	}
	hexData, ok := de.ErrorData().(string)
	if !ok {
		return err
	}
	raw, decodeErr := hexutil.Decode(hexData)
	if decodeErr != nil {
		return err
	}
	if mapped, ok := DecodeRevert(parsed, raw); ok {
		return mapped
	}
	return err
}
