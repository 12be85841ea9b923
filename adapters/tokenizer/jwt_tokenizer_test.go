package tokenizer

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/walletauth/core"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestTokenizer(t *testing.T) *JWTTokenizer {
	t.Helper()
	tk, err := NewJWTTokenizer(testSecret, "walletauth", time.Hour)
	require.NoError(t, err)
	return tk
}

func TestNewJWTTokenizer_RejectsShortSecret(t *testing.T) {
	_, err := NewJWTTokenizer([]byte("short"), "walletauth", time.Hour)
	assert.Error(t, err)
}

func TestJWTTokenizer_RoundTrip(t *testing.T) {
	tk := newTestTokenizer(t)
	identity := core.Identity{UserID: "u1", Address: "0xabc"}

	token, session, err := tk.Issue(identity)
	require.NoError(t, err)
	assert.Equal(t, identity, session.Identity())

	parsed, err := tk.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, identity, parsed.Identity())
	assert.Equal(t, session.ID, parsed.ID)
	assert.True(t, parsed.ExpiresAt.Equal(session.ExpiresAt))
}

func TestJWTTokenizer_DistinctUsersNeverCross(t *testing.T) {
	tk := newTestTokenizer(t)

	tokenA, _, err := tk.Issue(core.Identity{UserID: "u1", Address: "0xaaa"})
	require.NoError(t, err)
	tokenB, _, err := tk.Issue(core.Identity{UserID: "u2", Address: "0xbbb"})
	require.NoError(t, err)

	a, err := tk.Parse(tokenA)
	require.NoError(t, err)
	b, err := tk.Parse(tokenB)
	require.NoError(t, err)
	assert.Equal(t, "u1", a.UserID)
	assert.Equal(t, "u2", b.UserID)
}

func TestJWTTokenizer_Expired(t *testing.T) {
	tk := newTestTokenizer(t)
	token, _, err := tk.Issue(core.Identity{UserID: "u1", Address: "0xabc"})
	require.NoError(t, err)

	tk.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = tk.Parse(token)
	assert.ErrorIs(t, err, core.ErrTokenExpired)
}

func TestJWTTokenizer_Invalid(t *testing.T) {
	tk := newTestTokenizer(t)
	token, _, err := tk.Issue(core.Identity{UserID: "u1", Address: "0xabc"})
	require.NoError(t, err)

	other, err := NewJWTTokenizer([]byte("ffffffffffffffffffffffffffffffff"), "walletauth", time.Hour)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "walletauth",
			Subject:   "u1",
			ID:        "jti",
			Audience:  jwt.ClaimStrings{AudienceAccess},
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Address: "0xabc",
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	missingAddr, err := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "walletauth",
			Subject:   "u1",
			ID:        "jti",
			Audience:  jwt.ClaimStrings{AudienceAccess},
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(testSecret)
	require.NoError(t, err)

	for name, tc := range map[string]string{
		"garbage":      "not-a-token",
		"tampered":     tampered,
		"none alg":     noneToken,
		"missing addr": missingAddr,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := tk.Parse(tc)
			assert.ErrorIs(t, err, core.ErrTokenInvalid)
		})
	}

	_, err = other.Parse(token)
	assert.ErrorIs(t, err, core.ErrTokenInvalid)

	_, err = tk.Parse("")
	assert.ErrorIs(t, err, core.ErrTokenMissing)
}
