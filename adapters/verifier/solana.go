package verifier

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"

	"github.com/mr-tron/base58"

	"github.com/layer-3/walletauth/core"
)

// SolanaVerifier checks ed25519 signatures from base58 public key addresses
type SolanaVerifier struct{}

// NewSolanaVerifier creates a Solana verifier
func NewSolanaVerifier() *SolanaVerifier {
	return &SolanaVerifier{}
}

// NormalizeAddress validates the base58 public key; the address is returned as-is
func (SolanaVerifier) NormalizeAddress(address string) (string, error) {
	if _, err := base58ToPublicKey(address); err != nil {
		return "", err
	}
	return address, nil
}

// Verify checks an ed25519 signature given as hex or base58
func (SolanaVerifier) Verify(address, message, signature string) bool {
	pubKey, err := base58ToPublicKey(address)
	if err != nil {
		return false
	}

	sig, err := decodeSolanaSignature(signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}

	return ed25519.Verify(pubKey, []byte(message), sig)
}

func base58ToPublicKey(address string) (ed25519.PublicKey, error) {
	decoded, err := base58.Decode(address)
	if err != nil || len(decoded) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: invalid solana address", core.ErrInvalidInput)
	}
	return ed25519.PublicKey(decoded), nil
}

func decodeSolanaSignature(signature string) ([]byte, error) {
	if stripped := strip0x(signature); len(stripped) == 2*ed25519.SignatureSize {
		if sig, err := hex.DecodeString(stripped); err == nil {
			return sig, nil
		}
	}
	return base58.Decode(signature)
}
