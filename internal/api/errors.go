// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrBaselineRole is returned when removing the role every user holds.
var ErrBaselineRole = errors.New("the User role cannot be removed")

// Error is a failure reported by the upstream API, either through a non-2xx
// status or a success=false envelope.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}

// IsUnauthorized reports whether err means the bearer token was rejected.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// Message returns the server's message for err, or fallback when err is a
// transport failure or the server sent no message.
func Message(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
