package verifier

import (
	"crypto/ed25519"
	"encoding/hex"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/walletauth/core"
)

func TestSolanaVerifier(t *testing.T) {
	v := NewSolanaVerifier()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	address := base58.Encode(pub)

	normalized, err := v.NormalizeAddress(address)
	require.NoError(t, err)
	assert.Equal(t, address, normalized)

	message := core.RenderChallenge(address, "abcd")
	sig := ed25519.Sign(priv, []byte(message))

	assert.True(t, v.Verify(address, message, base58.Encode(sig)))
	assert.True(t, v.Verify(address, message, hex.EncodeToString(sig)))
	assert.True(t, v.Verify(address, message, "0x"+hex.EncodeToString(sig)))

	mutated := append([]byte(nil), sig...)
	mutated[10] ^= 0x01
	assert.False(t, v.Verify(address, message, base58.Encode(mutated)))
	assert.False(t, v.Verify(address, message+" ", base58.Encode(sig)))
	assert.False(t, v.Verify(address, message, base58.Encode(sig[:63])))

	_, err = v.NormalizeAddress("SP123")
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}
