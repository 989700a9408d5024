// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import "strings"

// splitNames turns a one-per-line textarea into trimmed, non-empty names.
// The result is never nil so it encodes as an empty JSON array.
func splitNames(text string) []string {
	names := []string{}
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			names = append(names, line)
		}
	}
	return names
}

// validateName checks that a category or publisher name is not blank.
func validateName(label, name string) string {
	if strings.TrimSpace(name) == "" {
		return label + " is required."
	}
	return ""
}

// validateNames checks every name of a leaf list.
func validateNames(label string, names []string) string {
	for _, n := range names {
		if msg := validateName(label, n); msg != "" {
			return msg
		}
	}
	return ""
}

// validatePasswords checks a password change before it is sent upstream.
func validatePasswords(current, next, confirm string) string {
	if current == "" {
		return "Current password is required."
	}
	if next == "" {
		return "New password is required."
	}
	if next != confirm {
		return "New password and confirmation do not match."
	}
	return ""
}
