package contract

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Contract event names as declared in the ABI.
const (
	EventNameEscrowCreated  = "EscrowCreated"
	EventNameFundsReleased  = "FundsReleased"
	EventNameDisputeRaised  = "DisputeRaised"
	EventNameEscrowRefunded = "EscrowRefunded"
)

// LogEvent is one decoded contract event. Fields are populated according to
// the event: EscrowCreated fills everything, the others carry the id, the
// acting address and (except DisputeRaised) the amount.
type LogEvent struct {
	Name        string
	EscrowID    uint64
	Client      common.Address
	Freelancer  common.Address
	RaisedBy    common.Address
	Amount      *big.Int
	Deadline    *big.Int
	Description string
	TxHash      string
	BlockNumber uint64
}

// DecodeLog matches a raw log against the contract's events and decodes it.
func DecodeLog(parsed abi.ABI, lg types.Log) (*LogEvent, error) {
	if len(lg.Topics) == 0 {
		return nil, fmt.Errorf("log has no topics")
	}

	var event *abi.Event
	for name := range parsed.Events {
		e := parsed.Events[name]
		if e.ID == lg.Topics[0] {
			event = &e
			break
		}
	}
	if event == nil {
		return nil, fmt.Errorf("unknown event topic %s", lg.Topics[0].Hex())
	}

	out := &LogEvent{
		Name:        event.Name,
		TxHash:      lg.TxHash.Hex(),
		BlockNumber: lg.BlockNumber,
	}

	// Indexed args live in topics: id first, then the addresses.
	if len(lg.Topics) < 2 {
		return nil, fmt.Errorf("%s log missing indexed id", event.Name)
	}
	out.EscrowID = new(big.Int).SetBytes(lg.Topics[1].Bytes()).Uint64()

	switch event.Name {
	case EventNameEscrowCreated:
		if len(lg.Topics) < 4 {
			return nil, fmt.Errorf("EscrowCreated log missing indexed addresses")
		}
		out.Client = common.BytesToAddress(lg.Topics[2].Bytes())
		out.Freelancer = common.BytesToAddress(lg.Topics[3].Bytes())

		vals, err := event.Inputs.NonIndexed().Unpack(lg.Data)
		if err != nil {
			return nil, fmt.Errorf("unpack EscrowCreated data: %w", err)
		}
		out.Amount = vals[0].(*big.Int)
		out.Deadline = vals[1].(*big.Int)
		out.Description = vals[2].(string)

	case EventNameFundsReleased:
		if len(lg.Topics) < 3 {
			return nil, fmt.Errorf("FundsReleased log missing indexed freelancer")
		}
		out.Freelancer = common.BytesToAddress(lg.Topics[2].Bytes())
		if err := unpackAmount(event, lg.Data, out); err != nil {
			return nil, err
		}

	case EventNameEscrowRefunded:
		if len(lg.Topics) < 3 {
			return nil, fmt.Errorf("EscrowRefunded log missing indexed client")
		}
		out.Client = common.BytesToAddress(lg.Topics[2].Bytes())
		if err := unpackAmount(event, lg.Data, out); err != nil {
			return nil, err
		}

	case EventNameDisputeRaised:
		if len(lg.Topics) < 3 {
			return nil, fmt.Errorf("DisputeRaised log missing indexed raisedBy")
		}
		out.RaisedBy = common.BytesToAddress(lg.Topics[2].Bytes())
	}

	return out, nil
}

func unpackAmount(event *abi.Event, data []byte, out *LogEvent) error {
	vals, err := event.Inputs.NonIndexed().Unpack(data)
	if err != nil {
		return fmt.Errorf("unpack %s data: %w", event.Name, err)
	}
	out.Amount = vals[0].(*big.Int)
	return nil
}
