package repository

import (
	"time"

	"github.com/layer-3/walletauth/core"
)

// userRecord maps the users table
type userRecord struct {
	ID                string `gorm:"primaryKey;size:36"`
	WalletAddress     string `gorm:"size:128;not null;uniqueIndex"`
	LastLoginAt       *time.Time
	LoginCount        int64                  `gorm:"not null;default:0"`
	ConnectionHistory []core.ConnectionEvent `gorm:"serializer:json;type:text"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (userRecord) TableName() string {
	return "users"
}

func (rec *userRecord) toUser() *core.User {
	user := &core.User{
		ID:                rec.ID,
		WalletAddress:     rec.WalletAddress,
		LoginCount:        rec.LoginCount,
		ConnectionHistory: rec.ConnectionHistory,
		CreatedAt:         rec.CreatedAt,
		UpdatedAt:         rec.UpdatedAt,
	}
	if rec.LastLoginAt != nil {
		at := *rec.LastLoginAt
		user.LastLoginAt = &at
	}
	return user
}
