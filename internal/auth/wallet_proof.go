package auth

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// personalSignPrefix is the EIP-191 prefix wallets prepend for personal_sign.
const personalSignPrefix = "\x19Ethereum Signed Message:\n"

// ProofMessage is the exact text the wallet signs to prove address
// ownership. The server-issued nonce makes it single use; the domain binds
// it to this deployment.
func ProofMessage(domain, address, nonce string) string {
	return fmt.Sprintf("%s wants you to sign in with your wallet\nAddress: %s\nNonce: %s", domain, strings.ToLower(address), nonce)
}

// VerifyWalletProof checks that signatureHex is a valid personal_sign
// signature over ProofMessage(domain, address, nonce) made by address.
func VerifyWalletProof(domain, address, nonce, signatureHex string) error {
	if !common.IsHexAddress(address) {
		return fmt.Errorf("invalid address %q", address)
	}

	sig, err := hexutil.Decode(signatureHex)
	if err != nil {
		return fmt.Errorf("invalid signature hex: %w", err)
	}
	if len(sig) != crypto.SignatureLength {
		return fmt.Errorf("invalid signature length: %d", len(sig))
	}

	// Wallets return the recovery id as 27/28, Ecrecover wants 0/1.
	recovery := sig[crypto.RecoveryIDOffset]
	if recovery >= 27 {
		recovery -= 27
	}
	if recovery > 1 {
		return fmt.Errorf("invalid recovery id: %d", sig[crypto.RecoveryIDOffset])
	}
	normalized := make([]byte, len(sig))
	copy(normalized, sig)
	normalized[crypto.RecoveryIDOffset] = recovery

	message := ProofMessage(domain, address, nonce)
	digest := crypto.Keccak256([]byte(fmt.Sprintf("%s%d%s", personalSignPrefix, len(message), message)))

	pubKey, err := crypto.SigToPub(digest, normalized)
	if err != nil {
		return fmt.Errorf("signature recovery failed: %w", err)
	}

	recovered := crypto.PubkeyToAddress(*pubKey)
	if recovered != common.HexToAddress(address) {
		return fmt.Errorf("signature does not match address")
	}
	return nil
}
