// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-kit/kit/log"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// SQLRepository is a Repository over database/sql. Every query binds its
// values as parameters.
type SQLRepository struct {
	db      *sql.DB
	dialect Dialect
	logger  log.Logger
}

// NewSQLRepository wraps an already migrated database.
func NewSQLRepository(db *sql.DB, dialect Dialect, logger log.Logger) *SQLRepository {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &SQLRepository{db: db, dialect: dialect, logger: logger}
}

// Open connects to dsn, checks the connection and runs migrations. Any
// failure is returned as a *StorageInitError.
func Open(ctx context.Context, logger log.Logger, dialect Dialect, dsn string) (*SQLRepository, error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, &StorageInitError{Err: fmt.Errorf("problem opening %s: %w", dialect, err)}
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, &StorageInitError{Err: fmt.Errorf("ping %s: %w", dialect, err)}
	}

	if err := Migrate(ctx, logger, db, dialect); err != nil {
		db.Close()
		return nil, &StorageInitError{Err: err}
	}
	if dialect == SQLite {
		// sqlite allows a single writer; serialise on one connection
		// instead of surfacing SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}
	return NewSQLRepository(db, dialect, logger), nil
}

// DB exposes the underlying handle, e.g. for connection stats.
func (r *SQLRepository) DB() *sql.DB {
	return r.db
}

const accountColumns = `id, username, password_hash, secret_key, created_at`

func (r *SQLRepository) FindByUsername(ctx context.Context, username string) (*Account, error) {
	return r.queryOne(ctx, `select `+accountColumns+` from accounts where username = ?`, username)
}

func (r *SQLRepository) FindBySecretKey(ctx context.Context, secretKey string) (*Account, error) {
	return r.queryOne(ctx, `select `+accountColumns+` from accounts where secret_key = ?`, secretKey)
}

func (r *SQLRepository) FindByUsernameAndKey(ctx context.Context, username, secretKey string) (*Account, error) {
	return r.queryOne(ctx, `select `+accountColumns+` from accounts where username = ? and secret_key = ?`, username, secretKey)
}

func (r *SQLRepository) queryOne(ctx context.Context, query string, args ...interface{}) (*Account, error) {
	var a Account
	err := r.db.QueryRowContext(ctx, r.dialect.rebind(query), args...).Scan(
		&a.ID,
		&a.Username,
		&a.PasswordHash,
		&a.SecretKey,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &a, nil
}

func (r *SQLRepository) Insert(ctx context.Context, username, passwordHash, secretKey string) (*Account, error) {
	a := &Account{
		Username:     username,
		PasswordHash: passwordHash,
		SecretKey:    secretKey,
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
	query := r.dialect.rebind(`insert into accounts (username, password_hash, secret_key, created_at) values (?, ?, ?, ?) returning id`)
	err := r.db.QueryRowContext(ctx, query, username, passwordHash, secretKey, a.CreatedAt).Scan(&a.ID)
	if err != nil {
		if cv := r.dialect.constraintViolation(err); cv != nil {
			return nil, cv
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLRepository) Close() error {
	return r.db.Close()
}
