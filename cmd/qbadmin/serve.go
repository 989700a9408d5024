// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"qbadmin/internal/api"
	"qbadmin/internal/cache"
	"qbadmin/internal/catalog"
	"qbadmin/internal/database"
	"qbadmin/internal/handlers"
	"qbadmin/internal/middleware"
	"qbadmin/internal/render"
	"qbadmin/internal/router"
	"qbadmin/internal/session"
	"qbadmin/internal/storage"
	"qbadmin/internal/store"
)

// catalogMemoSize is how many distinct category tree payloads are kept
// parsed in memory.
const catalogMemoSize = 8

// serve connects to every backing service, wires the handlers and runs the
// HTTP server until SIGINT or SIGTERM.
func serve(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// PostgreSQL keeps the audit trail and second-factor enrolments.
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	// Valkey holds sessions and, when enabled, cached upstream responses.
	valkeyClient, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		return fmt.Errorf("connect valkey: %w", err)
	}
	defer valkeyClient.Close()

	sealer, err := session.NewSealer(cfg.Secret)
	if err != nil {
		return err
	}
	secureCookies := !cfg.IsDev()
	sessionStore := session.NewStore(valkeyClient, secureCookies, sealer)

	renderer, err := render.New(cfg.IsDev())
	if err != nil {
		return fmt.Errorf("initialize template renderer: %w", err)
	}

	client := api.New(cfg.APIBaseURL, cfg.APITimeout)
	auditStore := store.NewAuditStore(db)

	deps := handlers.Deps{
		Renderer:      renderer,
		Sessions:      sessionStore,
		API:           client,
		Memo:          catalog.NewMemo(catalogMemoSize),
		Audit:         auditStore,
		ImageMaxWidth: cfg.ImageMaxWidth,
	}
	if cfg.CacheTTL > 0 {
		deps.Cache = cache.NewResponses(valkeyClient, cfg.CacheTTL)
		slog.Info("response cache enabled", "ttl", cfg.CacheTTL)
	}

	// The image archive is optional; the dashboard works without it.
	archive, err := storage.New(cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3PublicURL)
	if err != nil {
		return fmt.Errorf("initialize image archive: %w", err)
	}
	if archive != nil {
		deps.Archive = archive
		slog.Info("image archive connected", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)
	} else {
		slog.Warn("image archive not configured")
	}

	var twoFactor handlers.TwoFactorStore
	if cfg.TwoFactor {
		twoFactor = store.NewTwoFactorStore(db)
		slog.Info("two-factor authentication enabled")
	}

	adminHandlers := handlers.NewAdmin(deps)
	authHandlers := handlers.NewAuth(renderer, sessionStore, client, twoFactor, auditStore)

	loginLimiter := middleware.NewRateLimiter(10, time.Minute)
	defer loginLimiter.Stop()

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: router.New(sessionStore, adminHandlers, authHandlers, loginLimiter, secureCookies),
		// Uploads of two images can take a while on slow links.
		ReadTimeout:  60 * time.Second,
		WriteTimeout: cfg.APITimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		slog.Info("shutdown signal received", "signal", sig)
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
