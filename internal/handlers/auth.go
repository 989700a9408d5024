// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"encoding/base64"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"

	"qbadmin/internal/api"
	"qbadmin/internal/forms"
	"qbadmin/internal/middleware"
	"qbadmin/internal/render"
	"qbadmin/internal/session"
	"qbadmin/internal/store"
)

// totpIssuer names the dashboard in authenticator apps.
const totpIssuer = "qbadmin"

// notAdminMessage is shown to users who sign in without the Admin role.
const notAdminMessage = "Only admin users can sign in to this panel."

// TwoFactorStore persists TOTP enrolments. Implemented by store.TwoFactorStore.
type TwoFactorStore interface {
	Get(ctx context.Context, userID int) (*store.TwoFactor, error)
	SaveSecret(ctx context.Context, userID int, username, secret string) error
	Enable(ctx context.Context, userID int) error
}

// Auth groups all authentication-related HTTP handlers.
type Auth struct {
	renderer  *render.Renderer
	sessions  SessionStore
	api       *api.Client
	twoFactor TwoFactorStore
	audit     AuditLog
}

// NewAuth creates the Auth handler group. twoFactor and audit may be nil;
// without a two-factor store sessions are complete right after login.
func NewAuth(renderer *render.Renderer, sessions SessionStore, client *api.Client, twoFactor TwoFactorStore, audit AuditLog) *Auth {
	return &Auth{
		renderer:  renderer,
		sessions:  sessions,
		api:       client,
		twoFactor: twoFactor,
		audit:     audit,
	}
}

// loginForm describes the sign-in fields for presence checks.
func loginForm() *forms.Form {
	return forms.New("Sign In", "/login", "Sign in",
		forms.Field{Name: "username", Label: "Username", Type: forms.Text, Required: true},
		forms.Field{Name: "password", Label: "Password", Type: forms.Password, Required: true},
	)
}

// LoginPage renders the login form.
func (a *Auth) LoginPage(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess != nil && sess.TwoFADone {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	a.renderer.Page(w, r, "login", &render.PageData{Title: "Sign In"})
}

// LoginSubmit exchanges the credentials for an upstream token and opens a
// session for admins.
func (a *Auth) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	f := loginForm()
	if err := f.Bind(r); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	fail := func(msg string) {
		a.renderer.Page(w, r, "login", &render.PageData{
			Title: "Sign In",
			Data:  map[string]any{"Error": msg, "Username": f.Value("username")},
		})
	}

	if err := f.Validate(); err != nil {
		fail(err.Error())
		return
	}

	res, err := a.api.Login(r.Context(), f.Value("username"), f.Value("password"))
	if err != nil {
		fail(failure(r, "login", err))
		return
	}
	if !res.User.IsAdmin() {
		slog.Info("non-admin login refused", "username", res.User.Username)
		fail(notAdminMessage)
		return
	}

	data := &session.Data{
		UserID:    res.User.ID,
		Username:  res.User.Username,
		Name:      res.User.Name,
		Surname:   res.User.Surname,
		Email:     res.User.Email,
		Roles:     res.User.Roles,
		Token:     res.Token,
		TwoFADone: a.twoFactor == nil,
	}
	if _, err := a.sessions.Create(r.Context(), w, data); err != nil {
		if errors.Is(err, session.ErrTokenExpired) {
			fail("The server issued an expired token. Check the server clock and try again.")
			return
		}
		slog.Error("session create failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	a.record(r, data, "login", "")
	slog.Info("admin signed in", "user_id", data.UserID, "username", data.Username)

	if a.twoFactor == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	tf, err := a.twoFactor.Get(r.Context(), data.UserID)
	if err != nil {
		slog.Error("two-factor lookup failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if tf != nil && tf.Enabled {
		http.Redirect(w, r, "/2fa/verify", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, middleware.TwoFactorSetupPath, http.StatusSeeOther)
}

// TwoFASetupPage shows the QR code for a pending enrolment, creating the
// secret on first visit and reusing it afterwards.
func (a *Auth) TwoFASetupPage(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if a.twoFactor == nil || sess == nil || sess.TwoFADone {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	tf, err := a.twoFactor.Get(r.Context(), sess.UserID)
	if err != nil {
		slog.Error("two-factor lookup failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if tf != nil && tf.Enabled {
		http.Redirect(w, r, "/2fa/verify", http.StatusSeeOther)
		return
	}

	var secret string
	if tf != nil {
		secret = tf.Secret
	} else {
		key, err := totp.Generate(totp.GenerateOpts{Issuer: totpIssuer, AccountName: sess.Username})
		if err != nil {
			slog.Error("totp generate failed", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		secret = key.Secret()
		if err := a.twoFactor.SaveSecret(r.Context(), sess.UserID, sess.Username, secret); err != nil {
			slog.Error("save totp secret failed", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
	}

	a.setupPage(w, r, sess, secret, "")
}

// TwoFASetupSubmit confirms the enrolment with a first valid code.
func (a *Auth) TwoFASetupSubmit(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if a.twoFactor == nil || sess == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	tf, err := a.twoFactor.Get(r.Context(), sess.UserID)
	if err != nil || tf == nil {
		http.Redirect(w, r, middleware.TwoFactorSetupPath, http.StatusSeeOther)
		return
	}

	if !totp.Validate(r.FormValue("code"), tf.Secret) {
		a.setupPage(w, r, sess, tf.Secret, "Invalid code. Please try again.")
		return
	}

	if err := a.twoFactor.Enable(r.Context(), sess.UserID); err != nil {
		slog.Error("enable two-factor failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	a.complete(w, r, sess, "2fa_enable")
}

// TwoFAVerifyPage renders the code prompt for enrolled users.
func (a *Auth) TwoFAVerifyPage(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if a.twoFactor == nil || sess == nil || sess.TwoFADone {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	a.renderer.Page(w, r, "2fa_verify", &render.PageData{Title: "Two-Factor Verification"})
}

// TwoFAVerifySubmit checks the code against the enrolled secret.
func (a *Auth) TwoFAVerifySubmit(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if a.twoFactor == nil || sess == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	tf, err := a.twoFactor.Get(r.Context(), sess.UserID)
	if err != nil || tf == nil || !tf.Enabled {
		http.Redirect(w, r, middleware.TwoFactorSetupPath, http.StatusSeeOther)
		return
	}

	if !totp.Validate(r.FormValue("code"), tf.Secret) {
		a.renderer.Page(w, r, "2fa_verify", &render.PageData{
			Title: "Two-Factor Verification",
			Data:  map[string]any{"Error": "Invalid code. Please try again."},
		})
		return
	}

	a.complete(w, r, sess, "2fa_verify")
}

// Logout destroys the session and returns to the login page.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	if sess := middleware.SessionFromCtx(r.Context()); sess != nil {
		a.record(r, sess, "logout", "")
	}
	if err := a.sessions.Destroy(r.Context(), w, r); err != nil {
		slog.Error("session destroy failed", "error", err)
	}
	hxRedirect(w, r, middleware.LoginPath)
}

// complete marks the second factor as done for the session.
func (a *Auth) complete(w http.ResponseWriter, r *http.Request, sess *session.Data, action string) {
	sess.TwoFADone = true
	if err := a.sessions.Update(r.Context(), r, sess); err != nil {
		slog.Error("session update failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	a.record(r, sess, action, "")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (a *Auth) setupPage(w http.ResponseWriter, r *http.Request, sess *session.Data, secret, errMsg string) {
	key, err := setupKey(secret, sess.Username)
	if err != nil {
		slog.Error("totp key build failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	qrPNG, err := qrcode.Encode(key.URL(), qrcode.Medium, 256)
	if err != nil {
		slog.Error("qr code generation failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	data := map[string]any{
		"QRCode": template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(qrPNG)),
		"Secret": secret,
	}
	if errMsg != "" {
		data["Error"] = errMsg
	}

	a.renderer.Page(w, r, "2fa_setup", &render.PageData{
		Title: "Set Up Two-Factor Authentication",
		Data:  data,
	})
}

// setupKey rebuilds the otpauth key for an existing secret.
func setupKey(secret, account string) (*otp.Key, error) {
	q := url.Values{}
	q.Set("secret", secret)
	q.Set("issuer", totpIssuer)
	q.Set("algorithm", "SHA1")
	q.Set("digits", "6")
	q.Set("period", "30")
	u := url.URL{
		Scheme:   "otpauth",
		Host:     "totp",
		Path:     "/" + totpIssuer + ":" + account,
		RawQuery: q.Encode(),
	}
	return otp.NewKeyFromURL(u.String())
}

func (a *Auth) record(r *http.Request, sess *session.Data, action, detail string) {
	if a.audit == nil {
		return
	}
	a.audit.Record(r.Context(), store.AuditEntry{
		ActorID:       sess.UserID,
		ActorUsername: sess.Username,
		Action:        action,
		EntityType:    "session",
		EntityID:      strconv.Itoa(sess.UserID),
		Detail:        detail,
		RequestID:     middleware.RequestIDFromCtx(r.Context()),
	})
}
