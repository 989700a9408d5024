// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up all HTTP routes and middleware chains for the
// question-bank dashboard. Auth pages are public, second-factor pages need
// a signed-in session, and every other screen needs a fully verified admin.
package router

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"qbadmin/internal/handlers"
	"qbadmin/internal/imaging"
	"qbadmin/internal/middleware"
	"qbadmin/internal/session"
	"qbadmin/web"
)

// maxBodySize bounds every request body: two image uploads plus the form
// fields of the question editor.
const maxBodySize = 2*imaging.MaxUploadSize + 1<<20

// New creates and returns the configured Chi router with all middleware
// and route groups wired up. loginLimiter may be nil to disable login
// throttling.
func New(sessionStore *session.Store, admin *handlers.Admin, auth *handlers.Auth, loginLimiter *middleware.RateLimiter, secureCookies bool) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request. The body limit must come
	// before CSRF, which may parse the form.
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)
	r.Use(chimw.RequestSize(maxBodySize))

	// Health check and assets: no session, no CSRF.
	r.Get("/health", healthHandler)
	r.Handle("/static/*", http.StripPrefix("/static/", staticHandler()))

	r.Group(func(r chi.Router) {
		r.Use(middleware.LoadSession(sessionStore))
		r.Use(middleware.NewCSRF(secureCookies))

		// Auth pages, accessible without a session.
		r.Get(middleware.LoginPath, auth.LoginPage)
		r.With(limit(loginLimiter)).Post(middleware.LoginPath, auth.LoginSubmit)
		r.Post("/logout", auth.Logout)

		// Second factor: requires a session but not a completed 2FA step.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Get("/2fa/setup", auth.TwoFASetupPage)
			r.Post("/2fa/setup", auth.TwoFASetupSubmit)
			r.Get("/2fa/verify", auth.TwoFAVerifyPage)
			r.Post("/2fa/verify", auth.TwoFAVerifySubmit)
		})

		// Authenticated, 2FA-verified admin area.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Use(middleware.Require2FA)
			r.Use(middleware.RequireAdmin)

			r.Get("/", admin.Dashboard)

			r.Route("/categories", func(r chi.Router) {
				r.Get("/", admin.Categories)
				r.Get("/new", admin.CategoryNew)
				r.Post("/", admin.CategoryCreate)

				r.Get("/main/{id}/edit", admin.MainEdit)
				r.Post("/main/{id}/edit", admin.MainUpdate)
				r.Get("/main/{id}/delete", admin.MainDelete)
				r.Post("/main/{id}/delete", admin.MainDelete)
				r.Get("/main/{id}/sub/new", admin.SubNew)
				r.Post("/main/{id}/sub/new", admin.SubCreate)

				r.Get("/sub/{id}/edit", admin.SubEdit)
				r.Post("/sub/{id}/edit", admin.SubUpdate)
				r.Get("/sub/{id}/delete", admin.SubDelete)
				r.Post("/sub/{id}/delete", admin.SubDelete)
				r.Get("/sub/{id}/leaves/new", admin.LeavesNew)
				r.Post("/sub/{id}/leaves/new", admin.LeavesCreate)

				r.Get("/sub/{sid}/leaves/{id}/edit", admin.LeafEdit)
				r.Post("/sub/{sid}/leaves/{id}/edit", admin.LeafUpdate)
				r.Get("/sub/{sid}/leaves/{id}/delete", admin.LeafDelete)
				r.Post("/sub/{sid}/leaves/{id}/delete", admin.LeafDelete)
			})

			r.Route("/questions", func(r chi.Router) {
				r.Get("/", admin.Questions)
				r.Get("/new", admin.QuestionNew)
				r.Post("/", admin.QuestionCreate)
				r.Get("/{id}", admin.QuestionDetail)
				r.Get("/{id}/edit", admin.QuestionEdit)
				r.Post("/{id}/edit", admin.QuestionUpdate)
				r.Get("/{id}/delete", admin.QuestionDelete)
				r.Post("/{id}/delete", admin.QuestionDelete)
			})

			r.Route("/publishers", func(r chi.Router) {
				r.Get("/", admin.Publishers)
				r.Get("/new", admin.PublisherNew)
				r.Post("/", admin.PublisherCreate)
				r.Get("/{id}/edit", admin.PublisherEdit)
				r.Post("/{id}/edit", admin.PublisherUpdate)
				r.Get("/{id}/delete", admin.PublisherDelete)
				r.Post("/{id}/delete", admin.PublisherDelete)
			})

			r.Route("/users", func(r chi.Router) {
				r.Get("/", admin.Users)
				r.Get("/{id}/roles/new", admin.RoleNew)
				r.Post("/{id}/roles/new", admin.RoleAdd)
				r.Get("/{id}/roles/{role}/delete", admin.RoleRemove)
				r.Post("/{id}/roles/{role}/delete", admin.RoleRemove)
			})

			r.Get("/profile", admin.Profile)
			r.Post("/profile", admin.ProfileUpdate)
			r.Post("/profile/password", admin.PasswordChange)
		})
	})

	return r
}

func limit(rl *middleware.RateLimiter) func(http.Handler) http.Handler {
	if rl == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return rl.Middleware
}

func staticHandler() http.Handler {
	static, err := fs.Sub(web.StaticFS, "static")
	if err != nil {
		panic("router: embedded static assets missing: " + err.Error())
	}
	return http.FileServerFS(static)
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
