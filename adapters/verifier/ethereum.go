package verifier

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/layer-3/walletauth/core"
)

// EthereumVerifier checks EIP-191 personal_sign signatures
type EthereumVerifier struct{}

// NewEthereumVerifier creates an Ethereum verifier
func NewEthereumVerifier() *EthereumVerifier {
	return &EthereumVerifier{}
}

// NormalizeAddress accepts 0x-prefixed 20-byte hex addresses and lower-cases them
func (EthereumVerifier) NormalizeAddress(address string) (string, error) {
	if !strings.HasPrefix(address, "0x") && !strings.HasPrefix(address, "0X") {
		return "", fmt.Errorf("%w: address must be 0x-prefixed", core.ErrInvalidInput)
	}
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("%w: not an ethereum address", core.ErrInvalidInput)
	}
	return "0x" + strings.ToLower(address[2:]), nil
}

// Verify recovers the signer of message and compares it to address
func (v EthereumVerifier) Verify(address, message, signature string) bool {
	expected, err := v.NormalizeAddress(address)
	if err != nil {
		return false
	}

	if !strings.HasPrefix(signature, "0x") {
		signature = "0x" + signature
	}
	decodedSig, err := hexutil.Decode(signature)
	if err != nil || len(decodedSig) != crypto.SignatureLength {
		return false
	}

	// Wallets emit v as 27/28, crypto expects 0/1
	sig := make([]byte, crypto.SignatureLength)
	copy(sig, decodedSig)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	if sig[crypto.RecoveryIDOffset] > 1 {
		return false
	}

	pubKey, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return false
	}

	recovered := crypto.PubkeyToAddress(*pubKey)
	return strings.EqualFold(recovered.Hex(), expected)
}
