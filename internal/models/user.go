// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "strings"

const (
	// RoleAdmin is required to sign in to the dashboard.
	RoleAdmin = "Admin"

	// BaselineRole is held by every user and cannot be removed.
	BaselineRole = "User"
)

// User is a platform account as listed by GET /admin/users.
type User struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	Surname  string   `json:"surname"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Age      string   `json:"age"`
	Roles    []string `json:"roles"`
}

// FullName joins name and surname.
func (u User) FullName() string {
	return strings.TrimSpace(u.Name + " " + u.Surname)
}

// HasRole reports whether the user holds the named role.
func (u User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the user may use the dashboard.
func (u User) IsAdmin() bool {
	return u.HasRole(RoleAdmin)
}

// Role is an assignable permission grouping.
type Role struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// IsRemovable reports whether a role may be taken away from a user.
func IsRemovable(role string) bool {
	return role != BaselineRole
}

// AssignableRoles returns the roles that can still be added to u: never the
// baseline role, never one u already holds.
func AssignableRoles(all []Role, u User) []Role {
	out := make([]Role, 0, len(all))
	for _, r := range all {
		if r.Name == BaselineRole || u.HasRole(r.Name) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// ProfileInput is the PUT /profile payload.
type ProfileInput struct {
	Name    string `json:"name" validate:"required"`
	Surname string `json:"surname" validate:"required"`
	Email   string `json:"email" validate:"required"`
}

// PasswordInput is the PUT /profile/password payload.
type PasswordInput struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}
