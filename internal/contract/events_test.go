package contract

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

func topicForID(id uint64) common.Hash {
	return common.BigToHash(new(big.Int).SetUint64(id))
}

func topicForAddr(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

func TestDecodeLogEscrowCreated(t *testing.T) {
	parsed := MustParseABI()
	event := parsed.Events[EventNameEscrowCreated]

	client := common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	freelancer := common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	amount := big.NewInt(1e15)
	deadline := big.NewInt(1767225600)

	data, err := event.Inputs.NonIndexed().Pack(amount, deadline, "logo design")
	if err != nil {
		t.Fatalf("pack data: %v", err)
	}

	lg := types.Log{
		Topics:      []common.Hash{event.ID, topicForID(7), topicForAddr(client), topicForAddr(freelancer)},
		Data:        data,
		TxHash:      common.HexToHash("0xabc1"),
		BlockNumber: 42,
	}

	decoded, err := DecodeLog(parsed, lg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Name != EventNameEscrowCreated {
		t.Fatalf("name = %s", decoded.Name)
	}
	if decoded.EscrowID != 7 {
		t.Fatalf("escrow id = %d", decoded.EscrowID)
	}
	if decoded.Client != client || decoded.Freelancer != freelancer {
		t.Fatalf("addresses mismatch: %s / %s", decoded.Client, decoded.Freelancer)
	}
	if decoded.Amount.Cmp(amount) != 0 {
		t.Fatalf("amount = %s", decoded.Amount)
	}
	if decoded.Description != "logo design" {
		t.Fatalf("description = %q", decoded.Description)
	}
	if decoded.BlockNumber != 42 {
		t.Fatalf("block = %d", decoded.BlockNumber)
	}
}

func TestDecodeLogFundsReleased(t *testing.T) {
	parsed := MustParseABI()
	event := parsed.Events[EventNameFundsReleased]

	freelancer := common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	amount := big.NewInt(5e14)

	data, err := event.Inputs.NonIndexed().Pack(amount)
	if err != nil {
		t.Fatalf("pack data: %v", err)
	}

	decoded, err := DecodeLog(parsed, types.Log{
		Topics: []common.Hash{event.ID, topicForID(3), topicForAddr(freelancer)},
		Data:   data,
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Name != EventNameFundsReleased || decoded.EscrowID != 3 {
		t.Fatalf("decoded = %+v", decoded)
	}
	if decoded.Freelancer != freelancer || decoded.Amount.Cmp(amount) != 0 {
		t.Fatalf("decoded = %+v", decoded)
	}
}

func TestDecodeLogDisputeRaised(t *testing.T) {
	parsed := MustParseABI()
	event := parsed.Events[EventNameDisputeRaised]

	raisedBy := common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	decoded, err := DecodeLog(parsed, types.Log{
		Topics: []common.Hash{event.ID, topicForID(9), topicForAddr(raisedBy)},
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Name != EventNameDisputeRaised || decoded.EscrowID != 9 || decoded.RaisedBy != raisedBy {
		t.Fatalf("decoded = %+v", decoded)
	}
}

func TestDecodeLogUnknownTopic(t *testing.T) {
	parsed := MustParseABI()
	_, err := DecodeLog(parsed, types.Log{Topics: []common.Hash{common.HexToHash("0xdead")}})
	if err == nil {
		t.Fatal("expected error for unknown topic")
	}
}
