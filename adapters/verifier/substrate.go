package verifier

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	schnorrkel "github.com/ChainSafe/go-schnorrkel"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"

	"github.com/layer-3/walletauth/core"
)

const (
	ss58Length     = 35 // 1-byte prefix, 32-byte key, 2-byte checksum
	ss58MaxPrefix  = 63 // larger prefixes use the two-byte encoding
	sr25519SigSize = 64
)

var ss58Preamble = []byte("SS58PRE")

// SubstrateVerifier checks sr25519 signatures from SS58 addresses,
// as produced by polkadot.js signRaw
type SubstrateVerifier struct{}

// NewSubstrateVerifier creates a Substrate verifier
func NewSubstrateVerifier() *SubstrateVerifier {
	return &SubstrateVerifier{}
}

// NormalizeAddress validates the SS58 checksum; base58 is case-sensitive so the address is returned as-is
func (SubstrateVerifier) NormalizeAddress(address string) (string, error) {
	if _, err := decodeSS58(address); err != nil {
		return "", err
	}
	return address, nil
}

// Verify checks signature over message, accepting the <Bytes> wrapping polkadot.js applies
func (SubstrateVerifier) Verify(address, message, signature string) bool {
	pubKeyBytes, err := decodeSS58(address)
	if err != nil {
		return false
	}

	sigBytes, err := hex.DecodeString(strip0x(signature))
	if err != nil || len(sigBytes) != sr25519SigSize {
		return false
	}

	var pkRaw [32]byte
	copy(pkRaw[:], pubKeyBytes)
	var sigRaw [64]byte
	copy(sigRaw[:], sigBytes)

	var pk schnorrkel.PublicKey
	if err := pk.Decode(pkRaw); err != nil {
		return false
	}
	var sig schnorrkel.Signature
	if err := sig.Decode(sigRaw); err != nil {
		return false
	}

	for _, candidate := range []string{message, "<Bytes>" + message + "</Bytes>"} {
		ctx := schnorrkel.NewSigningContext([]byte("substrate"), []byte(candidate))
		if ok, err := pk.Verify(&sig, ctx); err == nil && ok {
			return true
		}
	}
	return false
}

// decodeSS58 converts an SS58 address to the raw 32-byte public key
func decodeSS58(address string) ([]byte, error) {
	raw, err := base58.Decode(address)
	if err != nil || len(raw) != ss58Length {
		return nil, fmt.Errorf("%w: invalid ss58 address", core.ErrInvalidInput)
	}
	if raw[0] > ss58MaxPrefix {
		return nil, fmt.Errorf("%w: unsupported ss58 prefix %d", core.ErrInvalidInput, raw[0])
	}
	if !bytes.Equal(ss58Checksum(raw[:33]), raw[33:]) {
		return nil, fmt.Errorf("%w: ss58 checksum mismatch", core.ErrInvalidInput)
	}
	return raw[1:33], nil
}

// EncodeSS58 renders a public key as an SS58 address with a single-byte network prefix
func EncodeSS58(prefix byte, pubKey []byte) (string, error) {
	if prefix > ss58MaxPrefix || len(pubKey) != 32 {
		return "", fmt.Errorf("%w: cannot encode ss58 address", core.ErrInvalidInput)
	}
	payload := append([]byte{prefix}, pubKey...)
	return base58.Encode(append(payload, ss58Checksum(payload)...)), nil
}

func ss58Checksum(payload []byte) []byte {
	sum := blake2b.Sum512(append(append([]byte{}, ss58Preamble...), payload...))
	return sum[:2]
}

func strip0x(s string) string {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s[2:]
	}
	return s
}
