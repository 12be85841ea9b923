package verifier

import (
	"fmt"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
)

// MultiChainVerifier dispatches to the first chain scheme that accepts the address format
type MultiChainVerifier struct {
	schemes []ports.SignatureVerifier
}

// NewMultiChainVerifier creates a verifier over the given schemes, tried in order
func NewMultiChainVerifier(schemes ...ports.SignatureVerifier) *MultiChainVerifier {
	return &MultiChainVerifier{schemes: schemes}
}

// Default returns the Ethereum, Substrate and Solana schemes
func Default() *MultiChainVerifier {
	return NewMultiChainVerifier(NewEthereumVerifier(), NewSubstrateVerifier(), NewSolanaVerifier())
}

var _ ports.SignatureVerifier = (*MultiChainVerifier)(nil)

// NormalizeAddress returns the canonical form from the first scheme accepting address
func (m *MultiChainVerifier) NormalizeAddress(address string) (string, error) {
	for _, scheme := range m.schemes {
		if normalized, err := scheme.NormalizeAddress(address); err == nil {
			return normalized, nil
		}
	}
	return "", fmt.Errorf("%w: unsupported wallet address", core.ErrInvalidInput)
}

// Verify delegates to the scheme owning address
func (m *MultiChainVerifier) Verify(address, message, signature string) bool {
	for _, scheme := range m.schemes {
		if normalized, err := scheme.NormalizeAddress(address); err == nil {
			return scheme.Verify(normalized, message, signature)
		}
	}
	return false
}
