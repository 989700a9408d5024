// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"log/slog"
	"net/http"

	"qbadmin/internal/forms"
	"qbadmin/internal/middleware"
	"qbadmin/internal/models"
	"qbadmin/internal/render"
)

const profilePath = "/profile"

func profileForm() *forms.Form {
	return forms.New("Personal details", profilePath, "Save",
		forms.Field{Name: "name", Label: "Name", Type: forms.Text, Required: true},
		forms.Field{Name: "surname", Label: "Surname", Type: forms.Text, Required: true},
		forms.Field{Name: "email", Label: "Email", Type: forms.Email, Required: true},
	)
}

func passwordForm() *forms.Form {
	return forms.New("Change password", profilePath+"/password", "Change password",
		forms.Field{Name: "current_password", Label: "Current password", Type: forms.Password, Required: true},
		forms.Field{Name: "new_password", Label: "New password", Type: forms.Password, Required: true},
		forms.Field{Name: "confirm_password", Label: "Confirm new password", Type: forms.Password, Required: true},
	)
}

// Profile renders the signed-in admin's details and the password form.
func (a *Admin) Profile(w http.ResponseWriter, r *http.Request) {
	pf := profileForm()
	if sess := middleware.SessionFromCtx(r.Context()); sess != nil {
		pf.Set("name", sess.Name).Set("surname", sess.Surname).Set("email", sess.Email)
	}
	a.profilePage(w, r, pf, passwordForm())
}

// ProfileUpdate saves the admin's details and refreshes the session copy.
func (a *Admin) ProfileUpdate(w http.ResponseWriter, r *http.Request) {
	f := profileForm()
	if err := f.Bind(r); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	in := models.ProfileInput{Name: f.Value("name"), Surname: f.Value("surname"), Email: f.Value("email")}

	if err := forms.Check(in); err != nil {
		f.Error = err.Error()
		a.profilePage(w, r, f, passwordForm())
		return
	}

	if err := a.client(r).UpdateProfile(r.Context(), in); err != nil {
		if a.expired(w, r, err) {
			return
		}
		f.Error = failure(r, "update profile", err)
		a.profilePage(w, r, f, passwordForm())
		return
	}

	if sess := middleware.SessionFromCtx(r.Context()); sess != nil {
		sess.Name, sess.Surname, sess.Email = in.Name, in.Surname, in.Email
		if err := a.sessions.Update(r.Context(), r, sess); err != nil {
			slog.Warn("session refresh failed", "error", err)
		}
	}

	a.record(r, "update", "profile", "", in.Email)
	done(w, r, profilePath, "Profile updated.")
}

// PasswordChange changes the admin's password once the confirmation
// matches.
func (a *Admin) PasswordChange(w http.ResponseWriter, r *http.Request) {
	f := passwordForm()
	if err := f.Bind(r); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	pf := profileForm()
	if sess := middleware.SessionFromCtx(r.Context()); sess != nil {
		pf.Set("name", sess.Name).Set("surname", sess.Surname).Set("email", sess.Email)
	}

	if msg := validatePasswords(f.Value("current_password"), f.Value("new_password"), f.Value("confirm_password")); msg != "" {
		f.Error = msg
		a.profilePage(w, r, pf, f)
		return
	}

	in := models.PasswordInput{CurrentPassword: f.Value("current_password"), NewPassword: f.Value("new_password")}
	if err := a.client(r).ChangePassword(r.Context(), in); err != nil {
		if a.expired(w, r, err) {
			return
		}
		f.Error = failure(r, "change password", err)
		a.profilePage(w, r, pf, f)
		return
	}

	a.record(r, "change_password", "profile", "", "")
	done(w, r, profilePath, "Password changed.")
}

// profilePage renders both profile forms. Password values are never sent
// back to the browser.
func (a *Admin) profilePage(w http.ResponseWriter, r *http.Request, pf, pw *forms.Form) {
	for _, name := range []string{"current_password", "new_password", "confirm_password"} {
		delete(pw.Values, name)
	}
	a.renderer.Page(w, r, "profile", &render.PageData{
		Title:   "Profile",
		Section: "profile",
		Data: map[string]any{
			"ProfileForm":  pf,
			"PasswordForm": pw,
		},
	})
}
