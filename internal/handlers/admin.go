// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the HTTP handlers of the question-bank dashboard.
// Handlers are grouped by concern (admin screens, auth) and receive their
// dependencies through the handler struct. Every screen is rendered from
// upstream data fetched within the same request.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"qbadmin/internal/api"
	"qbadmin/internal/catalog"
	"qbadmin/internal/forms"
	"qbadmin/internal/middleware"
	"qbadmin/internal/models"
	"qbadmin/internal/render"
	"qbadmin/internal/session"
	"qbadmin/internal/store"
)

// transportFailure is shown when the upstream API cannot be reached or
// answers without a message.
const transportFailure = "The question bank server could not be reached. Please try again."

// SessionStore is the part of session.Store the handlers use.
type SessionStore interface {
	Create(ctx context.Context, w http.ResponseWriter, data *session.Data) (string, error)
	Update(ctx context.Context, r *http.Request, data *session.Data) error
	Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error
}

// AuditLog records dashboard actions. Implemented by store.AuditStore.
type AuditLog interface {
	Record(ctx context.Context, e store.AuditEntry)
	Recent(ctx context.Context, limit int) ([]store.AuditEntry, error)
}

// Archive keeps copies of uploaded images. Implemented by storage.Client.
type Archive interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
}

// Deps wires an Admin. Cache, Audit and Archive are optional and must be
// left as nil interfaces when the backing service is not configured.
type Deps struct {
	Renderer      *render.Renderer
	Sessions      SessionStore
	API           *api.Client
	Cache         api.Cache
	Memo          *catalog.Memo
	Audit         AuditLog
	Archive       Archive
	ImageMaxWidth int
}

// Admin groups all dashboard screen handlers and their dependencies.
type Admin struct {
	renderer      *render.Renderer
	sessions      SessionStore
	api           *api.Client
	cache         api.Cache
	memo          *catalog.Memo
	audit         AuditLog
	archive       Archive
	imageMaxWidth int
}

// NewAdmin creates the Admin handler group.
func NewAdmin(d Deps) *Admin {
	memo := d.Memo
	if memo == nil {
		memo = catalog.NewMemo(4)
	}
	return &Admin{
		renderer:      d.Renderer,
		sessions:      d.Sessions,
		api:           d.API,
		cache:         d.Cache,
		memo:          memo,
		audit:         d.Audit,
		archive:       d.Archive,
		imageMaxWidth: d.ImageMaxWidth,
	}
}

// client returns an upstream client authorised as the session user.
func (a *Admin) client(r *http.Request) *api.Client {
	var token string
	if sess := middleware.SessionFromCtx(r.Context()); sess != nil {
		token = sess.Token
	}
	c := a.api.WithToken(token)
	if a.cache != nil {
		c = c.WithCache(a.cache)
	}
	return c
}

// tree fetches the category tree and flattens it, reusing the flattened
// form when the payload has not changed.
func (a *Admin) tree(ctx context.Context, c *api.Client) ([]models.MainCategory, []catalog.Record, error) {
	raw, err := c.CategoryTreeJSON(ctx)
	if err != nil {
		return nil, nil, err
	}
	return a.memo.Tree(raw)
}

// expired ends the session when the upstream API rejected its token and
// sends the browser to the login page. It reports whether it did so.
func (a *Admin) expired(w http.ResponseWriter, r *http.Request, err error) bool {
	if !api.IsUnauthorized(err) {
		return false
	}
	slog.Info("upstream token rejected", "request_id", middleware.RequestIDFromCtx(r.Context()))
	if err := a.sessions.Destroy(r.Context(), w, r); err != nil {
		slog.Warn("session destroy failed", "error", err)
	}
	render.SetFlash(w, render.Failure("Your session has expired. Please sign in again."))
	hxRedirect(w, r, middleware.LoginPath)
	return true
}

// failure logs err and returns the message to show the user: the form's
// field error, the server's own message, or a generic transport notice.
func failure(r *http.Request, action string, err error) string {
	var fe *forms.FieldError
	if errors.As(err, &fe) {
		return fe.Message
	}
	slog.Error(action+" failed", "error", err, "request_id", middleware.RequestIDFromCtx(r.Context()))
	return api.Message(err, transportFailure)
}

// record writes an audit entry when an audit log is configured.
func (a *Admin) record(r *http.Request, action, entityType, entityID, detail string) {
	if a.audit == nil {
		return
	}
	e := store.AuditEntry{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Detail:     detail,
		RequestID:  middleware.RequestIDFromCtx(r.Context()),
	}
	if sess := middleware.SessionFromCtx(r.Context()); sess != nil {
		e.ActorID = sess.UserID
		e.ActorUsername = sess.Username
	}
	a.audit.Record(r.Context(), e)
}

// done flashes msg and sends the browser back to a list screen.
func done(w http.ResponseWriter, r *http.Request, to, msg string) {
	render.SetFlash(w, render.Success(msg))
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// bounce flashes an error and sends the browser to to without rendering.
func bounce(w http.ResponseWriter, r *http.Request, to, msg string) {
	render.SetFlash(w, render.Failure(msg))
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// hxRedirect navigates the whole page, through HX-Redirect for HTMX.
func hxRedirect(w http.ResponseWriter, r *http.Request, to string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", to)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// form renders f on the generic form page.
func (a *Admin) form(w http.ResponseWriter, r *http.Request, section string, f *forms.Form) {
	a.renderer.Page(w, r, "form", &render.PageData{
		Title:   f.Title,
		Section: section,
		Form:    f,
	})
}

// confirmed reports whether a delete form carried the explicit confirmation.
func confirmed(r *http.Request) bool {
	return r.Method == http.MethodPost && r.PostFormValue("confirm") == "yes"
}

// confirm renders the delete confirmation page.
func (a *Admin) confirm(w http.ResponseWriter, r *http.Request, section, title, message, cancel string) {
	a.renderer.Page(w, r, "confirm", &render.PageData{
		Title:   title,
		Section: section,
		Data: map[string]any{
			"Message": message,
			"Action":  r.URL.Path,
			"Cancel":  cancel,
		},
	})
}

// intParam parses a positive integer URL parameter.
func intParam(r *http.Request, name string) (int, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// deletion describes one confirmed delete.
type deletion struct {
	section string
	title   string
	message string
	back    string // list screen to return to
	entity  string
	id      string
	detail  string
	success string
	run     func(ctx context.Context, c *api.Client) error
}

// remove shows the confirmation page until the form carries confirm=yes,
// then performs d and returns to its list screen.
func (a *Admin) remove(w http.ResponseWriter, r *http.Request, d deletion) {
	if !confirmed(r) {
		a.confirm(w, r, d.section, d.title, d.message, d.back)
		return
	}
	if err := d.run(r.Context(), a.client(r)); err != nil {
		if a.expired(w, r, err) {
			return
		}
		bounce(w, r, d.back, failure(r, "delete "+d.entity, err))
		return
	}
	a.record(r, "delete", d.entity, d.id, d.detail)
	done(w, r, d.back, d.success)
}
