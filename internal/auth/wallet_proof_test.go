package auth

import (
	"fmt"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

const testDomain = "bitbond.example"

func signProof(t *testing.T, domain, address, nonce string, keyHex string) string {
	t.Helper()
	key, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		t.Fatalf("bad key: %v", err)
	}
	message := ProofMessage(domain, address, nonce)
	digest := crypto.Keccak256([]byte(fmt.Sprintf("%s%d%s", personalSignPrefix, len(message), message)))
	sig, err := crypto.Sign(digest, key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return hexutil.Encode(sig)
}

func TestVerifyWalletProof(t *testing.T) {
	// Well-known hardhat dev account #0.
	const keyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	const address = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	const nonce = "c1e8b1f0-demo-nonce"

	sig := signProof(t, testDomain, address, nonce, keyHex)

	if err := VerifyWalletProof(testDomain, address, nonce, sig); err != nil {
		t.Fatalf("valid proof rejected: %v", err)
	}

	// Lowercased address must verify the same.
	if err := VerifyWalletProof(testDomain, strings.ToLower(address), nonce, sig); err != nil {
		t.Fatalf("lowercase address rejected: %v", err)
	}

	// Wallets report v as 27/28; both encodings must verify.
	raw, _ := hexutil.Decode(sig)
	raw[crypto.RecoveryIDOffset] += 27
	if err := VerifyWalletProof(testDomain, address, nonce, hexutil.Encode(raw)); err != nil {
		t.Fatalf("v=27 encoding rejected: %v", err)
	}
}

func TestVerifyWalletProofRejections(t *testing.T) {
	const keyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	const address = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	const otherAddress = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
	const nonce = "one-shot-nonce"

	sig := signProof(t, testDomain, address, nonce, keyHex)

	tests := []struct {
		name                           string
		domain, address, nonce, sigHex string
	}{
		{"wrong nonce", testDomain, address, "some-other-nonce", sig},
		{"replayed for other address", testDomain, otherAddress, nonce, sig},
		{"wrong domain", "evil.example", address, nonce, sig},
		{"malformed address", testDomain, "f39Fd6e51aad", nonce, sig},
		{"malformed signature", testDomain, address, nonce, "0x1234"},
		{"not hex signature", testDomain, address, nonce, "zz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := VerifyWalletProof(tt.domain, tt.address, tt.nonce, tt.sigHex); err == nil {
				t.Error("expected verification failure")
			}
		})
	}
}
