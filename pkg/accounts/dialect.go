// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package accounts

import (
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

// Dialect selects the SQL driver and migrations. Its value doubles as the
// goose dialect name.
type Dialect string

const (
	SQLite   Dialect = "sqlite3"
	Postgres Dialect = "postgres"
)

// driverName is the database/sql driver registered for d.
func (d Dialect) driverName() string {
	switch d {
	case Postgres:
		return "pgx"
	default:
		return "sqlite3"
	}
}

// rebind rewrites ? placeholders into $n for postgres. Queries in this
// package never contain a literal '?'.
func (d Dialect) rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// constraintViolation inspects a driver error for a unique violation.
// It returns nil for any other error.
func (d Dialect) constraintViolation(err error) *ConstraintViolation {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return &ConstraintViolation{
			Column: columnFromText(pgErr.ConstraintName),
			Err:    err,
		}
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		if sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return &ConstraintViolation{
				Column: columnFromText(sqliteErr.Error()),
				Err:    err,
			}
		}
	}
	return nil
}

// columnFromText finds which unique column a driver message refers to.
// sqlite: "UNIQUE constraint failed: accounts.username"
// postgres: constraint "accounts_username_key"
func columnFromText(s string) string {
	switch {
	case strings.Contains(s, ColumnSecretKey):
		return ColumnSecretKey
	case strings.Contains(s, ColumnUsername):
		return ColumnUsername
	}
	return ""
}
