// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

// buntdbstore implements accounts.Repository using BuntDB
// (https://github.com/tidwall/buntdb).
//
// Each account is a JSON document under "account:<username>" and its secret
// key is indexed under "secret:<key>". Uniqueness is checked inside a single
// write transaction; BuntDB allows one writer at a time.
package buntdbstore

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/moov-io/keys/pkg/accounts"

	"github.com/tidwall/buntdb"
)

const seqKey = "seq:accounts"

var errExists = errors.New("key exists")

func accountKey(username string) string {
	return "account:" + username
}

func secretKey(key string) string {
	return "secret:" + key
}

type record struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	SecretKey    string    `json:"secret_key"`
	CreatedAt    time.Time `json:"created_at"`
}

func (r record) account() *accounts.Account {
	return &accounts.Account{
		ID:           r.ID,
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		SecretKey:    r.SecretKey,
		CreatedAt:    r.CreatedAt,
	}
}

// Repository is an accounts.Repository kept in a BuntDB file.
type Repository struct {
	db *buntdb.DB
}

// New opens (or creates) the BuntDB file at path. ":memory:" keeps
// everything in memory. Writes are fsync'd on every commit.
func New(path string) (*Repository, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, &accounts.StorageInitError{Err: fmt.Errorf("problem opening buntdb %s: %w", path, err)}
	}

	var cfg buntdb.Config
	if err := db.ReadConfig(&cfg); err != nil {
		db.Close()
		return nil, &accounts.StorageInitError{Err: err}
	}
	cfg.SyncPolicy = buntdb.Always
	if err := db.SetConfig(cfg); err != nil {
		db.Close()
		return nil, &accounts.StorageInitError{Err: err}
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) Ping(_ context.Context) error {
	return r.db.View(func(tx *buntdb.Tx) error { return nil })
}

func (r *Repository) FindByUsername(_ context.Context, username string) (*accounts.Account, error) {
	var out *accounts.Account
	err := r.db.View(func(tx *buntdb.Tx) error {
		rec, err := getRecord(tx, username)
		if err != nil || rec == nil {
			return err
		}
		out = rec.account()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("problem reading %s: %w", username, err)
	}
	return out, nil
}

func (r *Repository) FindBySecretKey(_ context.Context, key string) (*accounts.Account, error) {
	var out *accounts.Account
	err := r.db.View(func(tx *buntdb.Tx) error {
		username, err := tx.Get(secretKey(key))
		if err != nil {
			if errors.Is(err, buntdb.ErrNotFound) {
				return nil
			}
			return err
		}
		rec, err := getRecord(tx, username)
		if err != nil || rec == nil {
			return err
		}
		out = rec.account()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("problem reading secret key: %w", err)
	}
	return out, nil
}

func (r *Repository) FindByUsernameAndKey(ctx context.Context, username, key string) (*accounts.Account, error) {
	a, err := r.FindByUsername(ctx, username)
	if err != nil || a == nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(a.SecretKey), []byte(key)) != 1 {
		return nil, nil
	}
	return a, nil
}

func (r *Repository) Insert(_ context.Context, username, passwordHash, key string) (*accounts.Account, error) {
	rec := record{
		Username:     username,
		PasswordHash: passwordHash,
		SecretKey:    key,
		CreatedAt:    time.Now().UTC(),
	}
	err := r.db.Update(func(tx *buntdb.Tx) error {
		if err := mustNotExist(tx, accountKey(username), accounts.ColumnUsername); err != nil {
			return err
		}
		if err := mustNotExist(tx, secretKey(key), accounts.ColumnSecretKey); err != nil {
			return err
		}

		id, err := nextID(tx)
		if err != nil {
			return err
		}
		rec.ID = id

		bs, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if _, _, err := tx.Set(accountKey(username), string(bs), nil); err != nil {
			return err
		}
		_, _, err = tx.Set(secretKey(key), username, nil)
		return err
	})
	if err != nil {
		var cv *accounts.ConstraintViolation
		if errors.As(err, &cv) {
			return nil, cv
		}
		return nil, fmt.Errorf("problem inserting %s: %w", username, err)
	}
	return rec.account(), nil
}

func getRecord(tx *buntdb.Tx, username string) (*record, error) {
	v, err := tx.Get(accountKey(username))
	if err != nil {
		if errors.Is(err, buntdb.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var rec record
	if err := json.Unmarshal([]byte(v), &rec); err != nil {
		return nil, fmt.Errorf("corrupt account %s: %w", username, err)
	}
	return &rec, nil
}

func mustNotExist(tx *buntdb.Tx, key, column string) error {
	_, err := tx.Get(key)
	switch {
	case err == nil:
		return &accounts.ConstraintViolation{Column: column, Err: errExists}
	case errors.Is(err, buntdb.ErrNotFound):
		return nil
	default:
		return err
	}
}

func nextID(tx *buntdb.Tx) (int64, error) {
	var id int64
	v, err := tx.Get(seqKey)
	switch {
	case err == nil:
		id, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("corrupt sequence %q: %w", v, err)
		}
	case !errors.Is(err, buntdb.ErrNotFound):
		return 0, err
	}
	id++
	if _, _, err := tx.Set(seqKey, strconv.FormatInt(id, 10), nil); err != nil {
		return 0, err
	}
	return id, nil
}
