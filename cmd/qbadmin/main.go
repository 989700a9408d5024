// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package main is the entry point for the question-bank admin dashboard.
// The root command serves the dashboard; "migrate" only applies the
// database migrations and exits, or lists them with --status.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"qbadmin/internal/config"
	"qbadmin/internal/database"
)

var rootCmd = &cobra.Command{
	Use:           "qbadmin",
	Short:         "Admin dashboard for the question bank",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard HTTP server (default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		db, err := database.Connect(cfg.DSN())
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer db.Close()
		if status, _ := cmd.Flags().GetBool("status"); status {
			return database.Status(db)
		}
		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		slog.Info("migrations applied")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.AddCommand(serveCmd)
	migrateCmd.Flags().Bool("status", false, "list applied and pending migrations without applying any")
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("qbadmin failed", "error", err)
		os.Exit(1)
	}
}

// loadConfig reads the dotenv file, loads the configuration and installs
// the default logger: colored text in development, JSON otherwise.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	var handler slog.Handler
	if cfg.IsDev() {
		handler = tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelDebug, AddSource: true})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"api", cfg.APIBaseURL,
	)
	return cfg, nil
}
