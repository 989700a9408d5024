// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package main

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"qbadmin/internal/database"
	"qbadmin/internal/store"
)

// resetTwoFACmd drops a user's TOTP enrolment so they enrol again at the
// next sign-in. Used when an admin loses their authenticator.
var resetTwoFACmd = &cobra.Command{
	Use:   "reset-2fa <user-id>",
	Short: "Remove a user's two-factor enrolment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := strconv.Atoi(args[0])
		if err != nil || userID <= 0 {
			return fmt.Errorf("invalid user id %q", args[0])
		}
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		db, err := database.Connect(cfg.DSN())
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer db.Close()

		if err := store.NewTwoFactorStore(db).Reset(cmd.Context(), userID); err != nil {
			return err
		}
		slog.Info("two-factor enrolment reset", "user_id", userID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resetTwoFACmd)
}
