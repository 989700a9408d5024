// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package session provides Valkey-backed HTTP session management.
// Sessions are identified by a secure cookie and stored as JSON in Valkey
// with automatic TTL expiry. The upstream bearer token is sealed before it
// is written, and a session never outlives the token it carries.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// CookieName is the name of the session cookie sent to the browser.
	CookieName = "qb_session"

	// DefaultTTL is how long a session lives in Valkey before automatic expiry.
	DefaultTTL = 12 * time.Hour

	// keyPrefix namespaces session keys in Valkey to avoid collisions.
	keyPrefix = "session:"

	// idLength is the byte length of the random session ID (32 bytes = 64 hex chars).
	idLength = 32
)

// ErrTokenExpired is returned by Create when the token is already past its
// expiry.
var ErrTokenExpired = errors.New("session: token already expired")

// Data holds the session payload. It carries the signed-in admin's identity
// as reported by the upstream API at login, the bearer token used for every
// upstream call, and 2FA completion status.
type Data struct {
	UserID    int       `json:"user_id"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Surname   string    `json:"surname"`
	Email     string    `json:"email"`
	Roles     []string  `json:"roles"`
	Token     string    `json:"token"`
	TwoFADone bool      `json:"two_fa_done"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// FullName joins name and surname, falling back to the username.
func (d *Data) FullName() string {
	if n := strings.TrimSpace(d.Name + " " + d.Surname); n != "" {
		return n
	}
	return d.Username
}

// HasRole reports whether the session user holds role.
func (d *Data) HasRole(role string) bool {
	for _, r := range d.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Store manages session lifecycle in Valkey.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	secure bool
	sealer *Sealer
}

// NewStore creates a session store backed by the given Valkey client.
// secure sets the Secure flag on the cookie; sealer encrypts tokens at rest.
func NewStore(client *redis.Client, secure bool, sealer *Sealer) *Store {
	return &Store{
		client: client,
		ttl:    DefaultTTL,
		secure: secure,
		sealer: sealer,
	}
}

// Create generates a new session, stores it in Valkey, and sets the
// session cookie on the response. Returns the session ID.
func (s *Store) Create(ctx context.Context, w http.ResponseWriter, data *Data) (string, error) {
	now := time.Now()
	ttl := TokenTTL(data.Token, s.ttl, now)
	if ttl <= 0 {
		return "", ErrTokenExpired
	}

	id, err := generateID()
	if err != nil {
		return "", fmt.Errorf("session create: %w", err)
	}

	data.CreatedAt = now
	data.ExpiresAt = now.Add(ttl)

	payload, err := s.encode(data)
	if err != nil {
		return "", err
	}

	if err := s.client.Set(ctx, keyPrefix+id, payload, ttl).Err(); err != nil {
		return "", fmt.Errorf("session store: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl.Seconds()),
	})

	return id, nil
}

// Get retrieves session data from Valkey using the session ID from the
// request cookie. Returns nil if no valid session exists.
func (s *Store) Get(ctx context.Context, r *http.Request) (*Data, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil, nil // No cookie = no session (not an error)
	}

	payload, err := s.client.Get(ctx, keyPrefix+cookie.Value).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil // Session expired or doesn't exist
	}
	if err != nil {
		return nil, fmt.Errorf("session get: %w", err)
	}

	return s.decode(payload)
}

// Update replaces the session data in Valkey without changing the session
// ID, cookie or remaining lifetime.
func (s *Store) Update(ctx context.Context, r *http.Request, data *Data) error {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return fmt.Errorf("session update: no cookie")
	}

	payload, err := s.encode(data)
	if err != nil {
		return err
	}

	if err := s.client.Set(ctx, keyPrefix+cookie.Value, payload, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("session update: %w", err)
	}

	return nil
}

// Destroy removes the session from Valkey and clears the cookie.
func (s *Store) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil // No cookie, nothing to destroy
	}

	s.client.Del(ctx, keyPrefix+cookie.Value)

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		MaxAge:   -1,
	})

	return nil
}

// encode marshals data with the token sealed.
func (s *Store) encode(data *Data) ([]byte, error) {
	stored := *data
	if stored.Token != "" {
		sealed, err := s.sealer.Seal(stored.Token)
		if err != nil {
			return nil, fmt.Errorf("session seal: %w", err)
		}
		stored.Token = sealed
	}
	payload, err := json.Marshal(&stored)
	if err != nil {
		return nil, fmt.Errorf("session marshal: %w", err)
	}
	return payload, nil
}

func (s *Store) decode(payload []byte) (*Data, error) {
	var data Data
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("session unmarshal: %w", err)
	}
	if data.Token != "" {
		token, err := s.sealer.Open(data.Token)
		if err != nil {
			return nil, fmt.Errorf("session open: %w", err)
		}
		data.Token = token
	}
	return &data, nil
}

// generateID creates a cryptographically random session identifier.
func generateID() (string, error) {
	b := make([]byte, idLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
