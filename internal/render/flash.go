// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package render

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
)

// flashCookie carries notifications across a post/redirect/get cycle.
const flashCookie = "qb_flash"

// flashMaxAge bounds how long an unread flash survives.
const flashMaxAge = 60

// Flash represents a one-time notification message displayed to the user.
type Flash struct {
	Type    string `json:"type"` // "success", "error", "warning", "info"
	Message string `json:"message"`
}

// Success and Failure build the two flash kinds handlers use most.
func Success(msg string) Flash { return Flash{Type: "success", Message: msg} }

func Failure(msg string) Flash { return Flash{Type: "error", Message: msg} }

// SetFlash stores flashes for the next rendered page, replacing any that
// are still pending.
func SetFlash(w http.ResponseWriter, flashes ...Flash) {
	payload, err := json.Marshal(flashes)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(payload),
		Path:     "/",
		MaxAge:   flashMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// PopFlashes returns the pending flashes and clears the cookie. A
// malformed cookie is cleared and yields nothing.
func PopFlashes(w http.ResponseWriter, r *http.Request) []Flash {
	c, err := r.Cookie(flashCookie)
	if err != nil || c.Value == "" {
		return nil
	}

	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	var flashes []Flash
	if err := json.Unmarshal(raw, &flashes); err != nil {
		return nil
	}
	return flashes
}
