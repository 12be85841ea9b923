package core

import "time"

// Challenge represents an issued nonce challenge for a wallet address
type Challenge struct {
	ID        string    // Unique identifier for the challenge
	Address   string    // Normalized wallet address the challenge is bound to
	Nonce     string    // Random nonce embedded in the message
	Message   string    // Exact text the wallet is expected to sign
	IssuedAt  time.Time // When the challenge was created
	ExpiresAt time.Time // After this instant the challenge can no longer be consumed
	Consumed  bool      // Set once, on the successful consumption
}

// Expired reports whether the challenge is past its expiry at now
func (c *Challenge) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Identity is the authenticated principal carried by a session credential
type Identity struct {
	UserID  string
	Address string
}

// Session represents a minted session credential
type Session struct {
	ID        string    // Token identifier (jti)
	UserID    string    // Owning user
	Address   string    // Wallet address of the user
	IssuedAt  time.Time // When the credential was minted
	ExpiresAt time.Time // When the credential stops validating
}

// Identity returns the identity the session asserts
func (s *Session) Identity() Identity {
	return Identity{UserID: s.UserID, Address: s.Address}
}
