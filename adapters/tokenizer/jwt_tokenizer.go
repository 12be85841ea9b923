package tokenizer

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
)

const AudienceAccess = "session:access"

// MinSecretLength is the shortest accepted HMAC signing secret
const MinSecretLength = 32

// JWTTokenizer implements the Tokenizer interface using HS256 JWTs
type JWTTokenizer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTTokenizer creates a new JWT tokenizer
func NewJWTTokenizer(secret []byte, issuer string, ttl time.Duration) (*JWTTokenizer, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("signing secret must be at least %d bytes", MinSecretLength)
	}
	if ttl <= 0 {
		return nil, errors.New("session ttl must be positive")
	}
	return &JWTTokenizer{
		secret: append([]byte(nil), secret...),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

var _ ports.Tokenizer = (*JWTTokenizer)(nil)

// TTL returns the lifetime of issued tokens
func (j *JWTTokenizer) TTL() time.Duration {
	return j.ttl
}

// Issue converts an identity to a signed access token
func (j *JWTTokenizer) Issue(identity core.Identity) (string, *core.Session, error) {
	if identity.UserID == "" || identity.Address == "" {
		return "", nil, fmt.Errorf("%w: incomplete identity", core.ErrInvalidInput)
	}

	now := j.now().Truncate(time.Second)
	session := &core.Session{
		ID:        uuid.New().String(),
		UserID:    identity.UserID,
		Address:   identity.Address,
		IssuedAt:  now,
		ExpiresAt: now.Add(j.ttl),
	}

	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.issuer,
			Subject:   session.UserID,
			ID:        session.ID,
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			Audience:  jwt.ClaimStrings{AudienceAccess},
		},
		Address: session.Address,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(j.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	return signedToken, session, nil
}

// Parse verifies an access token and returns the session it carries
func (j *JWTTokenizer) Parse(tokenStr string) (*core.Session, error) {
	if tokenStr == "" {
		return nil, core.ErrTokenMissing
	}

	token, err := jwt.ParseWithClaims(tokenStr, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(AudienceAccess),
		jwt.WithIssuer(j.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, core.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", core.ErrTokenInvalid, err)
	}

	if !token.Valid {
		return nil, core.ErrTokenInvalid
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected claims type", core.ErrTokenInvalid)
	}
	if claims.Subject == "" || claims.Address == "" || claims.ID == "" || claims.IssuedAt == nil {
		return nil, fmt.Errorf("%w: missing claims", core.ErrTokenInvalid)
	}

	return &core.Session{
		ID:        claims.ID,
		UserID:    claims.Subject,
		Address:   claims.Address,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
