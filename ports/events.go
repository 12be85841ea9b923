package ports

import (
	"context"
	"time"
)

// LoginEvent describes a successful login
type LoginEvent struct {
	UserID     string    `json:"user_id"`
	Address    string    `json:"address"`
	LoginCount int64     `json:"login_count"`
	At         time.Time `json:"at"`
}

// EventPublisher publishes events to notify other instances
type EventPublisher interface {
	PublishLogin(ctx context.Context, event LoginEvent) error
	PublishLogout(ctx context.Context, address string, tokenID string) error
}
