// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package api

import (
	"context"
	"net/http"

	"qbadmin/internal/models"
)

// LoginResult is the data returned by POST /login.
type LoginResult struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login exchanges credentials for a bearer token. It does not check roles;
// callers decide who may proceed.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	var res LoginResult
	if err := c.send(ctx, http.MethodPost, "/login", loginRequest{Username: username, Password: password}, &res, ""); err != nil {
		return nil, err
	}
	if res.Token == "" {
		return nil, &Error{Status: http.StatusOK, Message: "login response did not include a token"}
	}
	return &res, nil
}
