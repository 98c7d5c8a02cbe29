// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

// Package accounts holds the Account model and the relational Credential Store
// backing it. Supported dialects are sqlite3 and postgres.
package accounts

import (
	"context"
	"fmt"
	"time"
)

// Account is a registered user. PasswordHash is a bcrypt hash, SecretKey is
// the bearer token issued at registration and is stored as-is.
type Account struct {
	ID           int64
	Username     string
	PasswordHash string
	SecretKey    string
	CreatedAt    time.Time
}

// Repository is the Credential Store.
//
// Lookups return (nil, nil) when no row matches.
type Repository interface {
	FindByUsername(ctx context.Context, username string) (*Account, error)
	FindBySecretKey(ctx context.Context, secretKey string) (*Account, error)

	// FindByUsernameAndKey matches both columns on the same row.
	FindByUsernameAndKey(ctx context.Context, username, secretKey string) (*Account, error)

	// Insert returns a *ConstraintViolation when username or secret key
	// already exist, even if a caller's pre-check raced with another insert.
	Insert(ctx context.Context, username, passwordHash, secretKey string) (*Account, error)

	Ping(ctx context.Context) error
	Close() error
}

const (
	ColumnUsername  = "username"
	ColumnSecretKey = "secret_key"
)

// ConstraintViolation is returned by Insert when a unique column already
// holds the value. Column is empty if the store couldn't tell which one.
type ConstraintViolation struct {
	Column string
	Err    error
}

func (e *ConstraintViolation) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("unique constraint violated: %v", e.Err)
	}
	return fmt.Sprintf("unique constraint violated on %s: %v", e.Column, e.Err)
}

func (e *ConstraintViolation) Unwrap() error {
	return e.Err
}

// StorageInitError means the store couldn't be reached or its schema couldn't
// be created. The process must not serve requests after one.
type StorageInitError struct {
	Err error
}

func (e *StorageInitError) Error() string {
	return fmt.Sprintf("storage init: %v", e.Err)
}

func (e *StorageInitError) Unwrap() error {
	return e.Err
}
