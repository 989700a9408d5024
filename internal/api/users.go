// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package api

import (
	"context"
	"fmt"
	"net/http"

	"qbadmin/internal/models"
)

const usersPath = "/admin/users"

type roleRequest struct {
	RoleName string `json:"role_name"`
}

// Users lists every platform user.
func (c *Client) Users(ctx context.Context) ([]models.User, error) {
	var us []models.User
	if err := c.get(ctx, usersPath, &us); err != nil {
		return nil, err
	}
	return us, nil
}

// Roles lists the roles that exist on the platform.
func (c *Client) Roles(ctx context.Context) ([]models.Role, error) {
	var rs []models.Role
	if err := c.get(ctx, "/admin/roles", &rs); err != nil {
		return nil, err
	}
	return rs, nil
}

// AddRole grants a role to a user.
func (c *Client) AddRole(ctx context.Context, userID int, role string) error {
	return c.send(ctx, http.MethodPost, fmt.Sprintf("%s/%d/roles", usersPath, userID), roleRequest{RoleName: role}, nil, usersPath)
}

// RemoveRole revokes a role. The baseline role is refused here, before any
// request is made.
func (c *Client) RemoveRole(ctx context.Context, userID int, role string) error {
	if !models.IsRemovable(role) {
		return ErrBaselineRole
	}
	return c.send(ctx, http.MethodDelete, fmt.Sprintf("%s/%d/roles", usersPath, userID), roleRequest{RoleName: role}, nil, usersPath)
}
