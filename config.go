// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"strings"
)

const (
	databaseSqlite   = "sqlite"
	databasePostgres = "postgres"
	databaseBuntDB   = "buntdb"
)

// Config is read once at startup from flags, falling back to
// environment variables and then defaults.
type Config struct {
	HTTPAddr  string
	AdminAddr string

	DatabaseType string
	SqlitePath   string
	DatabaseURL  string
	BuntDBPath   string

	AllowedOrigins []string
}

func loadConfig(fs *flag.FlagSet, args []string, getenv func(string) string) (*Config, error) {
	env := func(key, zero string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return zero
	}

	cfg := &Config{}
	fs.StringVar(&cfg.HTTPAddr, "http.addr", env("HTTP_BIND_ADDRESS", ":3001"), "HTTP listen address")
	fs.StringVar(&cfg.AdminAddr, "admin.addr", env("HTTP_ADMIN_BIND_ADDRESS", ":9090"), "Admin HTTP listen address")
	fs.StringVar(&cfg.DatabaseType, "database.type", env("DATABASE_TYPE", databaseSqlite), "Credential store: sqlite, postgres or buntdb")
	origins := fs.String("cors.origins", env("CORS_ALLOWED_ORIGINS", "*"), "Comma separated CORS origins")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.SqlitePath = sqlitePath(getenv("SQLITE_DB_PATH"))
	cfg.DatabaseURL = getenv("DATABASE_URL")
	cfg.BuntDBPath = env("BUNTDB_PATH", "keys.buntdb")

	for _, o := range strings.Split(*origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	switch cfg.DatabaseType {
	case databaseSqlite, databaseBuntDB:
	case databasePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for %s", databasePostgres)
		}
	default:
		return nil, fmt.Errorf("unknown database type %q", cfg.DatabaseType)
	}
	return cfg, nil
}

// sqlitePath returns the given path or the default when empty
// or trying to escape the working directory.
func sqlitePath(path string) string {
	if path == "" || strings.Contains(path, "..") {
		// don't filepath.Abs to avoid full-fs reads
		return "local.db"
	}
	return path
}
