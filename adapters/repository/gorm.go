package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
)

// OpenGorm opens a gorm handle for the mysql or sqlite driver
func OpenGorm(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "mysql":
		dialector = mysql.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported gorm driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	if driver == "sqlite" {
		// one writer at a time; a single connection also keeps :memory: databases shared
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}

	return db, nil
}

// GormUserRepository implements UserRepository on gorm
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a gorm-backed repository
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

var _ ports.UserRepository = (*GormUserRepository)(nil)

// Migrate creates or updates the users table
func (r *GormUserRepository) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&userRecord{})
}

func (r *GormUserRepository) FindByWalletAddress(ctx context.Context, address string) (*core.User, error) {
	var rec userRecord
	err := r.db.WithContext(ctx).Where("wallet_address = ?", address).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, core.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user by address: %w", err)
	}
	return rec.toUser(), nil
}

func (r *GormUserRepository) FindByID(ctx context.Context, id string) (*core.User, error) {
	var rec userRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, core.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return rec.toUser(), nil
}

// Create inserts the user unless the wallet address is taken; the unique index settles races
func (r *GormUserRepository) Create(ctx context.Context, address string) (*core.User, error) {
	now := time.Now().UTC()
	rec := userRecord{
		ID:                uuid.New().String(),
		WalletAddress:     address,
		ConnectionHistory: []core.ConnectionEvent{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "wallet_address"}}, DoNothing: true}).
		Create(&rec)
	if res.Error != nil {
		return nil, fmt.Errorf("create user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, core.ErrUserExists
	}
	return rec.toUser(), nil
}

func (r *GormUserRepository) UpdateLoginStats(ctx context.Context, id string, stats core.LoginStats) error {
	res := r.db.WithContext(ctx).Model(&userRecord{}).Where("id = ?", id).Updates(map[string]interface{}{
		"login_count":   gorm.Expr("login_count + ?", stats.Increment),
		"last_login_at": stats.At,
		"updated_at":    time.Now().UTC(),
	})
	if res.Error != nil {
		return fmt.Errorf("update login stats: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return core.ErrUserNotFound
	}
	return nil
}

// AppendConnectionHistory locks the row, merges the entry and trims in one transaction
func (r *GormUserRepository) AppendConnectionHistory(ctx context.Context, id string, entry core.ConnectionEvent, maxEntries int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec userRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&rec).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return core.ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("lock user: %w", err)
		}

		rec.ConnectionHistory = core.AppendConnectionHistory(rec.ConnectionHistory, entry, maxEntries)
		rec.UpdatedAt = time.Now().UTC()
		if err := tx.Model(&rec).Select("connection_history", "updated_at").Updates(&rec).Error; err != nil {
			return fmt.Errorf("append connection history: %w", err)
		}
		return nil
	})
}

func (r *GormUserRepository) Transact(ctx context.Context, fn func(tx ports.UserRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormUserRepository{db: tx})
	})
}
