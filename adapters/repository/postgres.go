package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
	id                 TEXT PRIMARY KEY,
	wallet_address     TEXT NOT NULL UNIQUE,
	last_login_at      TIMESTAMPTZ,
	login_count        BIGINT NOT NULL DEFAULT 0,
	connection_history JSONB NOT NULL DEFAULT '[]'::jsonb,
	created_at         TIMESTAMPTZ NOT NULL,
	updated_at         TIMESTAMPTZ NOT NULL
)`

const selectUserColumns = `id, wallet_address, last_login_at, login_count, connection_history, created_at, updated_at`

// queryer is satisfied by both *sql.DB and *sql.Tx
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// OpenPostgres opens and pings a PostgreSQL connection pool
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// PostgresUserRepository implements UserRepository with plain SQL over lib/pq
type PostgresUserRepository struct {
	db *sql.DB
	q  queryer
	tx *sql.Tx
}

// NewPostgresUserRepository creates a repository on an open pool
func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db, q: db}
}

var _ ports.UserRepository = (*PostgresUserRepository)(nil)

// Migrate creates the users table
func (r *PostgresUserRepository) Migrate(ctx context.Context) error {
	if _, err := r.q.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}

func (r *PostgresUserRepository) FindByWalletAddress(ctx context.Context, address string) (*core.User, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+selectUserColumns+` FROM users WHERE wallet_address = $1`, address)
	return scanUser(row)
}

func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (*core.User, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+selectUserColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *PostgresUserRepository) Create(ctx context.Context, address string) (*core.User, error) {
	now := time.Now().UTC()
	user := &core.User{
		ID:            uuid.New().String(),
		WalletAddress: address,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var id string
	err := r.q.QueryRowContext(ctx, `
		INSERT INTO users (id, wallet_address, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (wallet_address) DO NOTHING
		RETURNING id`,
		user.ID, user.WalletAddress, user.CreatedAt, user.UpdatedAt,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrUserExists
	}
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepository) UpdateLoginStats(ctx context.Context, id string, stats core.LoginStats) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE users
		SET login_count = login_count + $2, last_login_at = $3, updated_at = NOW()
		WHERE id = $1`,
		id, stats.Increment, stats.At,
	)
	if err != nil {
		return fmt.Errorf("update login stats: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update login stats: %w", err)
	}
	if n == 0 {
		return core.ErrUserNotFound
	}
	return nil
}

func (r *PostgresUserRepository) AppendConnectionHistory(ctx context.Context, id string, entry core.ConnectionEvent, maxEntries int) error {
	return r.Transact(ctx, func(tx ports.UserRepository) error {
		pg := tx.(*PostgresUserRepository)

		var raw []byte
		err := pg.q.QueryRowContext(ctx, `SELECT connection_history FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&raw)
		if errors.Is(err, sql.ErrNoRows) {
			return core.ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("lock user: %w", err)
		}

		var history []core.ConnectionEvent
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &history); err != nil {
				return fmt.Errorf("decode connection history: %w", err)
			}
		}
		history = core.AppendConnectionHistory(history, entry, maxEntries)

		encoded, err := json.Marshal(history)
		if err != nil {
			return fmt.Errorf("encode connection history: %w", err)
		}
		if _, err := pg.q.ExecContext(ctx,
			`UPDATE users SET connection_history = $2, updated_at = NOW() WHERE id = $1`,
			id, string(encoded),
		); err != nil {
			return fmt.Errorf("append connection history: %w", err)
		}
		return nil
	})
}

// Transact runs fn inside a transaction; nested calls reuse the open one
func (r *PostgresUserRepository) Transact(ctx context.Context, fn func(tx ports.UserRepository) error) error {
	if r.tx != nil {
		return fn(r)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&PostgresUserRepository{db: r.db, q: tx, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*core.User, error) {
	var (
		user    core.User
		last    sql.NullTime
		history []byte
	)
	err := row.Scan(&user.ID, &user.WalletAddress, &last, &user.LoginCount, &history, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}

	if last.Valid {
		at := last.Time
		user.LastLoginAt = &at
	}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &user.ConnectionHistory); err != nil {
			return nil, fmt.Errorf("decode connection history: %w", err)
		}
	}
	return &user, nil
}
