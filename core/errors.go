package core

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")

	ErrNoSuchChallenge      = errors.New("no such challenge")
	ErrChallengeExpired     = errors.New("challenge expired")
	ErrChallengeMismatch    = errors.New("challenge message mismatch")
	ErrChallengeAlreadyUsed = errors.New("challenge already used")
	ErrSignatureInvalid     = errors.New("invalid signature")

	ErrTokenMissing = errors.New("token missing")
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenRevoked = errors.New("token has been revoked")

	ErrUserNotFound          = errors.New("user not found")
	ErrUserExists            = errors.New("user already exists")
	ErrRepositoryUnavailable = errors.New("repository unavailable")
)

// IsAuthenticationFailure reports whether err means the login proof was rejected.
// Callers must not tell these apart in client-facing responses.
func IsAuthenticationFailure(err error) bool {
	return errors.Is(err, ErrNoSuchChallenge) ||
		errors.Is(err, ErrChallengeExpired) ||
		errors.Is(err, ErrChallengeMismatch) ||
		errors.Is(err, ErrChallengeAlreadyUsed) ||
		errors.Is(err, ErrSignatureInvalid)
}

// IsTokenFailure reports whether err is a rejected session credential
func IsTokenFailure(err error) bool {
	return errors.Is(err, ErrTokenMissing) ||
		errors.Is(err, ErrTokenInvalid) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenRevoked)
}
