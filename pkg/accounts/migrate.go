// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package accounts

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/go-kit/kit/log"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/sqlite3/*.sql migrations/postgres/*.sql
var migrations embed.FS

// goose keeps its dialect and filesystem in package globals
var migrateMu sync.Mutex

// gooseUpContext is a seam for tests.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Migrate creates the accounts table if it's missing. Running it on every
// startup is safe.
func Migrate(ctx context.Context, logger log.Logger, db *sql.DB, dialect Dialect) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	sub, err := fs.Sub(migrations, "migrations/"+string(dialect))
	if err != nil {
		return fmt.Errorf("migrations for %s: %w", dialect, err)
	}
	goose.SetBaseFS(sub)
	goose.SetLogger(gooseLogger{logger})
	if err := goose.SetDialect(string(dialect)); err != nil {
		return fmt.Errorf("goose dialect %s: %w", dialect, err)
	}

	logger.Log("migrate", fmt.Sprintf("migrating %s schema", dialect))
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migrate %s: %w", dialect, err)
	}
	logger.Log("migrate", "finished migrations")
	return nil
}

// gooseLogger adapts a go-kit logger to goose.Logger.
type gooseLogger struct {
	logger log.Logger
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Log("goose", fmt.Sprintf(format, v...))
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Log("goose", fmt.Sprintf(format, v...), "level", "fatal")
	os.Exit(1)
}
