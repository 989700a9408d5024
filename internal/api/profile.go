// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package api

import (
	"context"
	"net/http"

	"qbadmin/internal/models"
)

// UpdateProfile changes the signed-in user's name, surname and email.
func (c *Client) UpdateProfile(ctx context.Context, in models.ProfileInput) error {
	return c.send(ctx, http.MethodPut, "/profile", in, nil, usersPath)
}

// ChangePassword changes the signed-in user's password.
func (c *Client) ChangePassword(ctx context.Context, in models.PasswordInput) error {
	return c.send(ctx, http.MethodPut, "/profile/password", in, nil, "")
}
