package contract

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Calldata packing for the four state-changing functions. The orchestrator
// uses these to build call intentions without touching the chain.

func PackCreateEscrow(parsed abi.ABI, freelancer common.Address, description string, deadline *big.Int) ([]byte, error) {
	return parsed.Pack("createEscrow", freelancer, description, deadline)
}

func PackReleaseFunds(parsed abi.ABI, escrowID uint64) ([]byte, error) {
	return parsed.Pack("releaseFunds", new(big.Int).SetUint64(escrowID))
}

func PackRaiseDispute(parsed abi.ABI, escrowID uint64) ([]byte, error) {
	return parsed.Pack("raiseDispute", new(big.Int).SetUint64(escrowID))
}

func PackRefundAfterDeadline(parsed abi.ABI, escrowID uint64) ([]byte, error) {
	return parsed.Pack("refundAfterDeadline", new(big.Int).SetUint64(escrowID))
}

// Call is a decoded state-changing invocation, recovered from raw calldata.
// The demo bridge uses it to apply a signed intention to the local ledger.
type Call struct {
	Method      string
	EscrowID    uint64
	Freelancer  common.Address
	Description string
	Deadline    *big.Int
}

// UnpackCall decodes calldata into the matching contract method and args.
func UnpackCall(parsed abi.ABI, data []byte) (*Call, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("calldata too short: %d bytes", len(data))
	}
	method, err := parsed.MethodById(data[:4])
	if err != nil {
		return nil, fmt.Errorf("unknown method selector: %w", err)
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, fmt.Errorf("unpack %s args: %w", method.Name, err)
	}

	call := &Call{Method: method.Name}
	switch method.Name {
	case "createEscrow":
		call.Freelancer = args[0].(common.Address)
		call.Description = args[1].(string)
		call.Deadline = args[2].(*big.Int)
	case "releaseFunds", "raiseDispute", "refundAfterDeadline":
		call.EscrowID = args[0].(*big.Int).Uint64()
	default:
		return nil, fmt.Errorf("method %s is not state-changing", method.Name)
	}
	return call, nil
}
