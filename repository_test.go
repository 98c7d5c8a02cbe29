// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/moov-io/keys/pkg/accounts"
)

// testRepository is an in-memory accounts.Repository whose methods can be
// overridden per test.
type testRepository struct {
	mu       sync.Mutex
	accounts []*accounts.Account
	inserts  int

	findByUsername func(username string) (*accounts.Account, error)
	findBySecret   func(key string) (*accounts.Account, error)
	findByBoth     func(username, key string) (*accounts.Account, error)
	insert         func(username, hash, key string) (*accounts.Account, error)
}

func (r *testRepository) FindByUsername(_ context.Context, username string) (*accounts.Account, error) {
	if r.findByUsername != nil {
		return r.findByUsername(username)
	}
	return r.find(func(a *accounts.Account) bool { return a.Username == username }), nil
}

func (r *testRepository) FindBySecretKey(_ context.Context, key string) (*accounts.Account, error) {
	if r.findBySecret != nil {
		return r.findBySecret(key)
	}
	return r.find(func(a *accounts.Account) bool { return a.SecretKey == key }), nil
}

func (r *testRepository) FindByUsernameAndKey(_ context.Context, username, key string) (*accounts.Account, error) {
	if r.findByBoth != nil {
		return r.findByBoth(username, key)
	}
	return r.find(func(a *accounts.Account) bool { return a.Username == username && a.SecretKey == key }), nil
}

func (r *testRepository) Insert(_ context.Context, username, hash, key string) (*accounts.Account, error) {
	if r.insert != nil {
		return r.insert(username, hash, key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.accounts {
		if a.Username == username {
			return nil, &accounts.ConstraintViolation{Column: accounts.ColumnUsername, Err: errors.New("exists")}
		}
		if a.SecretKey == key {
			return nil, &accounts.ConstraintViolation{Column: accounts.ColumnSecretKey, Err: errors.New("exists")}
		}
	}
	r.inserts++
	a := &accounts.Account{
		ID:           int64(len(r.accounts) + 1),
		Username:     username,
		PasswordHash: hash,
		SecretKey:    key,
		CreatedAt:    time.Now(),
	}
	r.accounts = append(r.accounts, a)
	return a, nil
}

func (r *testRepository) find(match func(*accounts.Account) bool) *accounts.Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if match(a) {
			return a
		}
	}
	return nil
}

func (r *testRepository) Ping(context.Context) error { return nil }
func (r *testRepository) Close() error               { return nil }
