// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/moov-io/keys/admin"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

var (
	// Metrics
	accountsRegistered = prometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Name: "accounts_registered",
		Help: "Count of accounts created",
	}, nil)
	registrationFailures = prometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Name: "registration_failures",
		Help: "Count of rejected registrations",
	}, []string{"reason"})
	keyValidations = prometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Name: "key_validations",
		Help: "Count of secret key validations",
	}, []string{"result"})
	secretKeyCollisions = prometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Name: "secret_key_collisions",
		Help: "Count of generated secret keys which were already taken",
	}, nil)
	internalServerErrors = prometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Name: "internal_server_errors",
		Help: "Count of how many 5xx errors we send out",
	}, nil)
	connections = prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
		Name: "db_connections",
		Help: "How many database connections and what status they're in.",
	}, []string{"state"})
)

const Version = "0.1.0-dev"

func main() {
	cfg, err := loadConfig(flag.CommandLine, os.Args[1:], os.Getenv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Setup logging, default to stderr
	var logger log.Logger
	logger = log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)
	logger = log.With(logger, "caller", log.DefaultCaller)
	logger.Log("startup", fmt.Sprintf("Starting keys server version %s", Version))

	if err := admin.Init(); err != nil {
		logger.Log("admin", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The store must be ready before we serve anything.
	repo, err := openRepository(ctx, logger, cfg)
	if err != nil {
		logger.Log("startup", "FATAL: storage initialization failed", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	// Listen for application termination.
	errs := make(chan error, 3)
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errs <- fmt.Errorf("%s", <-c)
	}()

	handler := newRouter(
		logger,
		newRegistrationService(repo, logger),
		newValidationService(repo, logger),
		cfg.AllowedOrigins,
	)
	serve := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	adminServer := admin.SetupServer(cfg.AdminAddr, repo.Ping)
	go func() {
		logger.Log("admin", fmt.Sprintf("Starting admin service on %s", adminServer.BindAddress()))
		if err := adminServer.Listen(); err != nil && err != http.ErrServerClosed {
			errs <- fmt.Errorf("admin: %v", err)
		}
	}()

	go func() {
		logger.Log("transport", "HTTP", "addr", cfg.HTTPAddr)
		if err := serve.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errs <- err
		}
	}()

	err = <-errs
	logger.Log("exit", err)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := serve.Shutdown(shutdownCtx); err != nil {
		logger.Log("shutdown", err)
	}
	adminServer.Shutdown(shutdownCtx)
}
