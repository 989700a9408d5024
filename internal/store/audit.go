// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// audit.go records admin mutations made through the dashboard. Each entry
// captures who did what to which upstream entity, and under which request.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// AuditEntry is one recorded admin action.
type AuditEntry struct {
	ID            uuid.UUID
	ActorID       int
	ActorUsername string
	Action        string // create, update, delete, add_role, remove_role, login, logout
	EntityType    string // main_category, sub_category, category, question, publisher, user, profile, session
	EntityID      string
	Detail        string
	RequestID     string
	CreatedAt     time.Time
}

// AuditStore handles audit log operations.
type AuditStore struct {
	db *sql.DB
}

// NewAuditStore creates a new AuditStore.
func NewAuditStore(db *sql.DB) *AuditStore {
	return &AuditStore{db: db}
}

// Record writes an entry. Failures are logged and swallowed: an upstream
// change that already happened must not be reported as failed.
func (s *AuditStore) Record(ctx context.Context, e AuditEntry) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, actor_id, actor_username, action, entity_type, entity_id, detail, request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, e.ID, e.ActorID, e.ActorUsername, e.Action, e.EntityType, e.EntityID, e.Detail, e.RequestID)
	if err != nil {
		slog.Warn("failed to record audit entry",
			"action", e.Action,
			"entity_type", e.EntityType,
			"entity_id", e.EntityID,
			"error", err,
		)
		return
	}
	slog.Debug("audit entry recorded",
		"actor", e.ActorUsername,
		"action", e.Action,
		"entity_type", e.EntityType,
		"entity_id", e.EntityID,
	)
}

// Recent returns the newest entries first, at most limit of them.
func (s *AuditStore) Recent(ctx context.Context, limit int) ([]AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_id, actor_username, action, entity_type, entity_id, detail, request_id, created_at
		FROM audit_log
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.ActorUsername, &e.Action, &e.EntityType,
			&e.EntityID, &e.Detail, &e.RequestID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
