package core

import "time"

// MaxConnectionHistory bounds User.ConnectionHistory
const MaxConnectionHistory = 10

// ConnectionMetadata is the opaque, already sanitized attribute set recorded with a login
type ConnectionMetadata map[string]string

// ConnectionEvent is one entry of a user's connection history
type ConnectionEvent struct {
	At         time.Time          `json:"at"`
	Attributes ConnectionMetadata `json:"attributes,omitempty"`
}

// User is a wallet owner known to the service
type User struct {
	ID                string
	WalletAddress     string
	LastLoginAt       *time.Time
	LoginCount        int64
	ConnectionHistory []ConnectionEvent
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Identity returns the session identity of the user
func (u *User) Identity() Identity {
	return Identity{UserID: u.ID, Address: u.WalletAddress}
}

// LoginStats describes the counter and timestamp update applied on a successful login
type LoginStats struct {
	At        time.Time
	Increment int64
}

// AppendConnectionHistory appends entry to history and keeps only the max most recent entries,
// oldest first. The input slice is never modified.
func AppendConnectionHistory(history []ConnectionEvent, entry ConnectionEvent, max int) []ConnectionEvent {
	merged := make([]ConnectionEvent, 0, len(history)+1)
	merged = append(merged, history...)
	merged = append(merged, entry)
	if max > 0 && len(merged) > max {
		merged = merged[len(merged)-max:]
	}
	return merged
}
