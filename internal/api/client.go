// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package api is the client for the question-bank REST API. Every response
// arrives in a {success, message, data} envelope; failures come back as
// *Error so handlers can show the server's message to the admin.
package api

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout applies when the configured timeout is zero.
const DefaultTimeout = 30 * time.Second

// maxResponseSize caps how much of a response body is read.
const maxResponseSize = 10 << 20

// Cache stores raw GET response data per credential scope and path.
// Invalidate drops every scope's entries under the path prefix.
// Implementations must be safe for concurrent use. A nil Cache disables
// caching.
type Cache interface {
	Get(ctx context.Context, scope, path string) ([]byte, bool)
	Set(ctx context.Context, scope, path string, data []byte)
	Invalidate(ctx context.Context, prefix string)
}

// Client talks to the upstream API. The zero value is not usable; create
// one with New. A Client is safe for concurrent use; WithToken and
// WithCache return copies.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	cache   Cache
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// WithToken returns a copy of c that sends token as a bearer credential.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// WithCache returns a copy of c that caches GET responses in cache.
func (c *Client) WithCache(cache Cache) *Client {
	cp := *c
	cp.cache = cache
	return &cp
}

// envelope is the wrapper around every upstream response.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// do performs one request and returns the envelope's data. Non-2xx
// statuses and success=false both become *Error.
func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("api: %s %s: read body: %w", method, path, err)
	}
	slog.Debug("api request", "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(start))

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := env.Message
		if decodeErr != nil || msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &Error{Status: resp.StatusCode, Message: msg}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("api: %s %s: decode response: %w", method, path, decodeErr)
	}
	if !env.Success {
		return nil, &Error{Status: resp.StatusCode, Message: env.Message}
	}
	return env.Data, nil
}

// get fetches path and decodes the data into out, going through the cache
// when one is configured.
func (c *Client) get(ctx context.Context, path string, out any) error {
	data, err := c.getRaw(ctx, path)
	if err != nil {
		return err
	}
	return decode(path, data, out)
}

func (c *Client) getRaw(ctx context.Context, path string) (json.RawMessage, error) {
	if c.cache == nil {
		return c.do(ctx, http.MethodGet, path, "", nil)
	}
	scope := c.cacheScope()
	if data, ok := c.cache.Get(ctx, scope, path); ok {
		return data, nil
	}
	data, err := c.do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return nil, err
	}
	if len(data) > 0 {
		c.cache.Set(ctx, scope, path, data)
	}
	return data, nil
}

// cacheScope identifies the credential a cached response was fetched
// with, so one session never reads another's data.
func (c *Client) cacheScope() string {
	sum := sha256.Sum256([]byte(c.token))
	return hex.EncodeToString(sum[:8])
}

// send performs a JSON request and decodes the data into out when out is
// non-nil. On success, cached responses under invalidate are dropped.
func (c *Client) send(ctx context.Context, method, path string, in, out any, invalidate string) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("api: %s %s: encode request: %w", method, path, err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}

	data, err := c.do(ctx, method, path, contentType, body)
	if err != nil {
		return err
	}
	c.invalidate(ctx, invalidate)
	if out == nil {
		return nil
	}
	return decode(path, data, out)
}

func (c *Client) invalidate(ctx context.Context, prefix string) {
	if c.cache != nil && prefix != "" {
		c.cache.Invalidate(ctx, prefix)
	}
}

func decode(path string, data json.RawMessage, out any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("api: decode %s: %w", path, err)
	}
	return nil
}
