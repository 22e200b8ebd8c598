package contract

import (
	"errors"
	"math/big"
	"testing"

	"github.com/bitbond/backend/internal/models"
	"github.com/ethereum/go-ethereum/common"
)

func TestPackUnpackCreateEscrow(t *testing.T) {
	parsed := MustParseABI()

	freelancer := common.HexToAddress("0xAAAA000000000000000000000000000000000002")
	deadline := big.NewInt(1767225600)

	data, err := PackCreateEscrow(parsed, freelancer, "logo design", deadline)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}

	call, err := UnpackCall(parsed, data)
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if call.Method != "createEscrow" {
		t.Errorf("method = %q, want createEscrow", call.Method)
	}
	if call.Freelancer != freelancer {
		t.Errorf("freelancer = %s, want %s", call.Freelancer.Hex(), freelancer.Hex())
	}
	if call.Description != "logo design" {
		t.Errorf("description = %q", call.Description)
	}
	if call.Deadline.Cmp(deadline) != 0 {
		t.Errorf("deadline = %s, want %s", call.Deadline, deadline)
	}
}

func TestPackUnpackByID(t *testing.T) {
	parsed := MustParseABI()

	packs := map[string]func() ([]byte, error){
		"releaseFunds":        func() ([]byte, error) { return PackReleaseFunds(parsed, 7) },
		"raiseDispute":        func() ([]byte, error) { return PackRaiseDispute(parsed, 7) },
		"refundAfterDeadline": func() ([]byte, error) { return PackRefundAfterDeadline(parsed, 7) },
	}

	for method, pack := range packs {
		data, err := pack()
		if err != nil {
			t.Fatalf("%s pack: %v", method, err)
		}
		call, err := UnpackCall(parsed, data)
		if err != nil {
			t.Fatalf("%s unpack: %v", method, err)
		}
		if call.Method != method {
			t.Errorf("method = %q, want %q", call.Method, method)
		}
		if call.EscrowID != 7 {
			t.Errorf("%s escrow id = %d, want 7", method, call.EscrowID)
		}
	}
}

func TestUnpackCallRejectsGarbage(t *testing.T) {
	parsed := MustParseABI()

	if _, err := UnpackCall(parsed, []byte{0x01, 0x02}); err == nil {
		t.Error("short calldata should fail")
	}
	if _, err := UnpackCall(parsed, []byte{0xde, 0xad, 0xbe, 0xef}); err == nil {
		t.Error("unknown selector should fail")
	}
}

func TestUnpackCallRejectsViewMethods(t *testing.T) {
	parsed := MustParseABI()

	data, err := parsed.Pack("getEscrow", big.NewInt(1))
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if _, err := UnpackCall(parsed, data); err == nil {
		t.Error("view method calldata should be rejected")
	}
}

func TestDecodeRevert(t *testing.T) {
	parsed := MustParseABI()

	tests := []struct {
		name string
		want error
	}{
		{ErrNameEscrowNotActive, models.ErrEscrowNotActive},
		{ErrNameOnlyClient, models.ErrOnlyClient},
		{ErrNameOnlyFreelancer, models.ErrOnlyParticipant},
		{ErrNameDeadlineNotPassed, models.ErrDeadlineNotPassed},
		{ErrNameDeadlineMustBeFuture, models.ErrDeadlineMustBeFuture},
		{ErrNameInvalidAddress, models.ErrInvalidAddress},
		{ErrNameInvalidAmount, models.ErrInvalidAmount},
		{ErrNameAlreadyReleased, models.ErrAlreadyReleased},
		{ErrNameReentrantCall, ErrReentrantCall},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			abiErr, ok := parsed.Errors[tt.name]
			if !ok {
				t.Fatalf("error %s missing from ABI", tt.name)
			}
			got, ok := DecodeRevert(parsed, abiErr.ID.Bytes()[:4])
			if !ok {
				t.Fatalf("selector for %s not recognized", tt.name)
			}
			if !errors.Is(got, tt.want) {
				t.Errorf("DecodeRevert(%s) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}

	if _, ok := DecodeRevert(parsed, []byte{0xde, 0xad, 0xbe, 0xef}); ok {
		t.Error("unknown selector should not decode")
	}
	if _, ok := DecodeRevert(parsed, []byte{0x01}); ok {
		t.Error("short data should not decode")
	}
}
