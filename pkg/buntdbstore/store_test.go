// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package buntdbstore

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/moov-io/keys/pkg/accounts"
)

func makeRepo(t *testing.T) *Repository {
	t.Helper()

	repo, err := New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestRepository(t *testing.T) {
	repo := makeRepo(t)
	ctx := context.Background()

	// get nothing
	a, err := repo.FindByUsername(ctx, "alice")
	if a != nil || err != nil {
		t.Errorf("got a=%v, err=%#v", a, err)
	}

	// write something
	inserted, err := repo.Insert(ctx, "alice", "hash", "key")
	if err != nil {
		t.Fatal(err)
	}
	if inserted.ID != 1 {
		t.Errorf("got id %d", inserted.ID)
	}

	// get something
	a, err = repo.FindByUsername(ctx, "alice")
	if err != nil || a == nil {
		t.Fatalf("got a=%v, err=%#v", a, err)
	}
	if a.PasswordHash != "hash" || a.SecretKey != "key" {
		t.Errorf("got %#v", a)
	}
	if !a.CreatedAt.Equal(inserted.CreatedAt) {
		t.Errorf("created_at: got %v, expected %v", a.CreatedAt, inserted.CreatedAt)
	}

	a, err = repo.FindBySecretKey(ctx, "key")
	if err != nil || a == nil || a.Username != "alice" {
		t.Errorf("got a=%v, err=%#v", a, err)
	}

	a, err = repo.FindByUsernameAndKey(ctx, "alice", "key")
	if err != nil || a == nil {
		t.Errorf("got a=%v, err=%#v", a, err)
	}

	// wrong key
	a, err = repo.FindByUsernameAndKey(ctx, "alice", "hash")
	if a != nil || err != nil {
		t.Errorf("got a=%v, err=%#v", a, err)
	}
}

func TestRepository__sequence(t *testing.T) {
	repo := makeRepo(t)
	ctx := context.Background()

	for i, name := range []string{"a", "b", "c"} {
		a, err := repo.Insert(ctx, name, "hash", "key-"+name)
		if err != nil {
			t.Fatal(err)
		}
		if a.ID != int64(i+1) {
			t.Errorf("%s: got id %d", name, a.ID)
		}
	}
}

func TestRepository__constraints(t *testing.T) {
	repo := makeRepo(t)
	ctx := context.Background()

	if _, err := repo.Insert(ctx, "alice", "hash", "key"); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		username, key string
		column        string
	}{
		{"alice", "other-key", accounts.ColumnUsername},
		{"bob", "key", accounts.ColumnSecretKey},
	}
	for i := range cases {
		_, err := repo.Insert(ctx, cases[i].username, "hash", cases[i].key)
		var cv *accounts.ConstraintViolation
		if !errors.As(err, &cv) {
			t.Errorf("%s: got %#v", cases[i].username, err)
			continue
		}
		if cv.Column != cases[i].column {
			t.Errorf("%s: got column %q", cases[i].username, cv.Column)
		}
	}

	// failed inserts leave nothing behind
	if a, _ := repo.FindBySecretKey(ctx, "other-key"); a != nil {
		t.Errorf("got %#v", a)
	}
	if a, _ := repo.FindByUsername(ctx, "bob"); a != nil {
		t.Errorf("got %#v", a)
	}
}

func TestRepository__concurrentInserts(t *testing.T) {
	repo := makeRepo(t)
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := repo.Insert(ctx, "alice", "hash", string(rune('a'+i))); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if successes != 1 {
		t.Errorf("got %d successful inserts", successes)
	}
}

func TestRepository__durable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.buntdb")
	ctx := context.Background()

	repo, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Insert(ctx, "alice", "hash", "key"); err != nil {
		t.Fatal(err)
	}
	repo.Close()

	repo, err = New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer repo.Close()

	a, err := repo.FindByUsernameAndKey(ctx, "alice", "key")
	if err != nil || a == nil {
		t.Fatalf("got a=%v, err=%#v", a, err)
	}

	// sequence continues after reopen
	b, err := repo.Insert(ctx, "bob", "hash", "key-2")
	if err != nil {
		t.Fatal(err)
	}
	if b.ID != 2 {
		t.Errorf("got id %d", b.ID)
	}
}

func TestRepository__ping(t *testing.T) {
	repo, err := New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.Ping(context.Background()); err != nil {
		t.Errorf("got %v", err)
	}
	repo.Close()
	if err := repo.Ping(context.Background()); err == nil {
		t.Error("expected error after close")
	}
}
