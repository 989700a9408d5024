// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import "net/http"

// contentSecurityPolicy allows the dashboard's own assets plus the HTMX
// and Tailwind CDNs used in development. Inline styles are needed by the
// Tailwind play script.
const contentSecurityPolicy = "default-src 'self'; " +
	"script-src 'self' https://unpkg.com https://cdn.tailwindcss.com; " +
	"style-src 'self' 'unsafe-inline'; " +
	"img-src 'self' data: https: http:; " +
	"frame-ancestors 'none'; form-action 'self'; base-uri 'self'"

// SecureHeaders adds security headers to every response.
func SecureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()

		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-XSS-Protection", "0")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
		h.Set("Content-Security-Policy", contentSecurityPolicy)

		// Dashboard pages carry bearer-backed data; never cache them.
		h.Set("Cache-Control", "no-store")

		next.ServeHTTP(w, r)
	})
}
