// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/moov-io/keys/pkg/accounts"
	"github.com/moov-io/keys/pkg/buntdbstore"

	"github.com/go-kit/kit/log"
)

// openRepository initialises the configured Credential Store. Every error
// is an *accounts.StorageInitError and must stop the process.
func openRepository(ctx context.Context, logger log.Logger, cfg *Config) (accounts.Repository, error) {
	switch cfg.DatabaseType {
	case databaseSqlite:
		logger.Log("database", fmt.Sprintf("opening sqlite %s", cfg.SqlitePath))
		repo, err := accounts.Open(ctx, logger, accounts.SQLite, cfg.SqlitePath)
		if err != nil {
			return nil, err
		}
		go promMetricCollector{}.run(ctx, repo.DB())
		return repo, nil

	case databasePostgres:
		logger.Log("database", "opening postgres")
		repo, err := accounts.Open(ctx, logger, accounts.Postgres, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		go promMetricCollector{}.run(ctx, repo.DB())
		return repo, nil

	case databaseBuntDB:
		logger.Log("database", fmt.Sprintf("opening buntdb %s", cfg.BuntDBPath))
		repo, err := buntdbstore.New(cfg.BuntDBPath)
		if err != nil {
			return nil, err
		}
		return repo, nil
	}
	return nil, &accounts.StorageInitError{Err: fmt.Errorf("unknown database type %q", cfg.DatabaseType)}
}

// promMetricCollector exports database/sql pool stats until ctx is done.
type promMetricCollector struct{}

func (promMetricCollector) run(ctx context.Context, db *sql.DB) {
	if db == nil {
		return
	}

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		stats := db.Stats()
		connections.With("state", "idle").Set(float64(stats.Idle))
		connections.With("state", "inuse").Set(float64(stats.InUse))
		connections.With("state", "open").Set(float64(stats.OpenConnections))

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
