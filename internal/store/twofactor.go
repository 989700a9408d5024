// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// TwoFactor is the TOTP enrolment of one upstream user.
type TwoFactor struct {
	UserID    int
	Username  string
	Secret    string
	Enabled   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TwoFactorStore persists TOTP secrets.
type TwoFactorStore struct {
	db *sql.DB
}

// NewTwoFactorStore creates a new TwoFactorStore.
func NewTwoFactorStore(db *sql.DB) *TwoFactorStore {
	return &TwoFactorStore{db: db}
}

// Get returns the enrolment for userID, or nil if there is none.
func (s *TwoFactorStore) Get(ctx context.Context, userID int) (*TwoFactor, error) {
	var tf TwoFactor
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, username, secret, enabled, created_at, updated_at
		FROM two_factor WHERE user_id = $1
	`, userID).Scan(&tf.UserID, &tf.Username, &tf.Secret, &tf.Enabled, &tf.CreatedAt, &tf.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get two factor: %w", err)
	}
	return &tf, nil
}

// SaveSecret stores a fresh, not yet enabled secret for userID, replacing
// any earlier one.
func (s *TwoFactorStore) SaveSecret(ctx context.Context, userID int, username, secret string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO two_factor (user_id, username, secret, enabled)
		VALUES ($1, $2, $3, FALSE)
		ON CONFLICT (user_id) DO UPDATE
		SET username = EXCLUDED.username, secret = EXCLUDED.secret, enabled = FALSE, updated_at = NOW()
	`, userID, username, secret)
	if err != nil {
		return fmt.Errorf("save two factor secret: %w", err)
	}
	return nil
}

// Enable marks the enrolment as active after a successful code check.
func (s *TwoFactorStore) Enable(ctx context.Context, userID int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE two_factor SET enabled = TRUE, updated_at = NOW() WHERE user_id = $1
	`, userID)
	if err != nil {
		return fmt.Errorf("enable two factor: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("enable two factor: no secret for user %d", userID)
	}
	return nil
}

// Reset removes the enrolment so the user sets up a new authenticator.
func (s *TwoFactorStore) Reset(ctx context.Context, userID int) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM two_factor WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("reset two factor: %w", err)
	}
	return nil
}
