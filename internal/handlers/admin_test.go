// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"qbadmin/internal/store"
)

// --------------------------------------------------------------------------
// Dashboard
// --------------------------------------------------------------------------

func TestDashboard_Counts(t *testing.T) {
	env := newTestEnv(t)
	env.Audit.Record(context.Background(), store.AuditEntry{ActorUsername: "admin", Action: "create", EntityType: "publisher", Detail: "Acme"})

	rec := serve(env.Admin.Dashboard, newRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusOK)
	}
	assertBody(t, rec,
		`<span class="value">2</span><span class="label">Questions</span>`,
		`<span class="value">2</span><span class="label">Main categories</span>`,
		`<span class="value">2</span><span class="label">Sub-categories</span>`,
		`<span class="value">12</span><span class="label">Users</span>`,
		`<span class="value">3</span><span class="label">Publishers</span>`,
		"Recent activity", "Acme",
	)
}

func TestDashboard_PartialFailure(t *testing.T) {
	env := newTestEnv(t)
	env.Upstream.set("GET /admin/users", fail(http.StatusForbidden, "Yetkisiz erisim"))

	rec := serve(env.Admin.Dashboard, newRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusOK)
	}
	assertBody(t, rec, "Yetkisiz erisim")
	if strings.Contains(rec.Body.String(), `class="stats"`) {
		t.Error("counters should be hidden when a fetch failed")
	}
}

func TestDashboard_ExpiredTokenHTMX(t *testing.T) {
	env := newTestEnv(t)
	env.Upstream.set("GET /questions", fail(http.StatusUnauthorized, "jwt expired"))

	req := newRequest(http.MethodGet, "/", nil)
	req.Header.Set("HX-Request", "true")
	rec := serve(env.Admin.Dashboard, req)

	if got := rec.Header().Get("HX-Redirect"); got != "/login" {
		t.Errorf("HX-Redirect: got %q, want /login", got)
	}
	if env.Sessions.destroyed != 1 {
		t.Errorf("destroyed: got %d, want 1", env.Sessions.destroyed)
	}
}

// --------------------------------------------------------------------------
// Publishers
// --------------------------------------------------------------------------

func TestPublishers_ProtectedHaveNoActions(t *testing.T) {
	env := newTestEnv(t)

	rec := serve(env.Admin.Publishers, newRequest(http.MethodGet, "/publishers", nil))

	assertBody(t, rec, "Acme Yayin", `/publishers/5/edit`, "System publisher")
	body := rec.Body.String()
	for _, id := range []string{"1", "2"} {
		if strings.Contains(body, "/publishers/"+id+"/edit") || strings.Contains(body, "/publishers/"+id+"/delete") {
			t.Errorf("protected publisher %s offers actions", id)
		}
	}
}

func TestPublisherEdit_ProtectedRefused(t *testing.T) {
	for _, h := range []struct {
		name string
		fn   func(*Admin) http.HandlerFunc
	}{
		{"edit", func(a *Admin) http.HandlerFunc { return a.PublisherEdit }},
		{"update", func(a *Admin) http.HandlerFunc { return a.PublisherUpdate }},
		{"delete", func(a *Admin) http.HandlerFunc { return a.PublisherDelete }},
	} {
		t.Run(h.name, func(t *testing.T) {
			env := newTestEnv(t)

			form := url.Values{"name": {"Renamed"}, "confirm": {"yes"}}
			rec := serve(h.fn(env.Admin), newRequest(http.MethodPost, "/publishers/2/x", form, "id", "2"))

			assertRedirect(t, rec, "/publishers")
			assertFlash(t, rec, "error", "Admin is a system publisher and cannot be changed.")
			if len(env.Upstream.writes()) != 0 {
				t.Error("protected publisher reached the upstream")
			}
		})
	}
}

func TestPublisherCreate(t *testing.T) {
	env := newTestEnv(t)
	env.Upstream.set("POST /admin/publishers", ok("null"))

	rec := serve(env.Admin.PublisherCreate, newRequest(http.MethodPost, "/publishers",
		url.Values{"name": {"Yeni Yayin"}, "website_url": {""}}))

	assertRedirect(t, rec, "/publishers")
	if w := env.Upstream.lastWrite(t); w.Body != `{"name":"Yeni Yayin","website_url":null}` {
		t.Errorf("body: %s", w.Body)
	}
}

func TestPublisherCreate_Validation(t *testing.T) {
	tests := []struct {
		name string
		form url.Values
		want string
	}{
		{"no name", url.Values{"website_url": {"https://x.example"}}, "Name is required."},
		{"blank name", url.Values{"name": {"   "}}, "Name is required."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			rec := serve(env.Admin.PublisherCreate, newRequest(http.MethodPost, "/publishers", tt.form))

			assertBody(t, rec, tt.want)
			if len(env.Upstream.writes()) != 0 {
				t.Error("invalid publisher reached the upstream")
			}
		})
	}
}

func TestPublisherCreate_WebsiteSentAsTyped(t *testing.T) {
	env := newTestEnv(t)
	env.Upstream.set("POST /admin/publishers", ok("null"))

	rec := serve(env.Admin.PublisherCreate, newRequest(http.MethodPost, "/publishers",
		url.Values{"name": {"X"}, "website_url": {"acme.com.tr"}}))

	assertRedirect(t, rec, "/publishers")
	if w := env.Upstream.lastWrite(t); w.Body != `{"name":"X","website_url":"acme.com.tr"}` {
		t.Errorf("body: %s", w.Body)
	}
}

func TestPublisherUpdate(t *testing.T) {
	env := newTestEnv(t)
	env.Upstream.set("PUT /admin/publishers/5", ok("null"))

	rec := serve(env.Admin.PublisherUpdate, newRequest(http.MethodPost, "/publishers/5/edit",
		url.Values{"name": {"Acme"}, "website_url": {"https://acme.example/tr"}}, "id", "5"))

	assertRedirect(t, rec, "/publishers")
	if w := env.Upstream.lastWrite(t); w.Body != `{"name":"Acme","website_url":"https://acme.example/tr"}` {
		t.Errorf("body: %s", w.Body)
	}
}

// --------------------------------------------------------------------------
// Users and roles
// --------------------------------------------------------------------------

func TestPaginate(t *testing.T) {
	tests := []struct {
		name          string
		total         int
		page, perPage string
		want          Pager
	}{
		{"defaults", 12, "", "", Pager{Page: 1, Pages: 2, PerPage: 10, Total: 12, From: 1, To: 10}},
		{"last page", 12, "3", "5", Pager{Page: 3, Pages: 3, PerPage: 5, Total: 12, From: 11, To: 12}},
		{"page past end", 12, "9", "25", Pager{Page: 1, Pages: 1, PerPage: 25, Total: 12, From: 1, To: 12}},
		{"odd size", 12, "2", "7", Pager{Page: 2, Pages: 2, PerPage: 10, Total: 12, From: 11, To: 12}},
		{"garbage", 12, "x", "y", Pager{Page: 1, Pages: 2, PerPage: 10, Total: 12, From: 1, To: 10}},
		{"empty", 0, "2", "5", Pager{Page: 1, Pages: 1, PerPage: 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := paginate(tt.total, tt.page, tt.perPage)
			got.Sizes = nil
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("paginate: got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestUsers_Page(t *testing.T) {
	env := newTestEnv(t)

	rec := serve(env.Admin.Users, newRequest(http.MethodGet, "/users?page=3&per_page=5", nil))

	assertBody(t, rec, "user11", "user12", "11–12 of 12", "Page 3 of 3")
	if strings.Contains(rec.Body.String(), "user10") {
		t.Error("page 3 should not list user10")
	}
}

func TestUsers_BaselineRoleNotRemovable(t *testing.T) {
	env := newTestEnv(t)

	rec := serve(env.Admin.Users, newRequest(http.MethodGet, "/users", nil))

	body := rec.Body.String()
	if strings.Contains(body, "/roles/User/delete") {
		t.Error("the User role must not offer a remove link")
	}
	assertBody(t, rec, "/users/1/roles/Admin/delete")
}

func TestRoleNew_OffersOnlyAssignable(t *testing.T) {
	env := newTestEnv(t)

	rec := serve(env.Admin.RoleNew, newRequest(http.MethodGet, "/users/1/roles/new", nil, "id", "1"))

	assertBody(t, rec, `<option value="Editor">Editor</option>`)
	body := rec.Body.String()
	if strings.Contains(body, `<option value="User"`) || strings.Contains(body, `<option value="Admin"`) {
		t.Error("held and baseline roles must not be offered")
	}
}

func TestRoleNew_NothingLeft(t *testing.T) {
	env := newTestEnv(t)
	env.Upstream.set("GET /admin/roles", ok(`[{"id":1,"name":"User"},{"id":2,"name":"Admin"}]`))

	rec := serve(env.Admin.RoleNew, newRequest(http.MethodGet, "/users/1/roles/new", nil, "id", "1"))

	assertRedirect(t, rec, "/users")
	assertFlash(t, rec, "error", "user01 already has every role.")
}

func TestRoleAdd(t *testing.T) {
	env := newTestEnv(t)
	env.Upstream.set("POST /admin/users/4/roles", ok("null"))

	rec := serve(env.Admin.RoleAdd, newRequest(http.MethodPost, "/users/4/roles/new", url.Values{"role": {"Editor"}}, "id", "4"))

	assertRedirect(t, rec, "/users")
	if w := env.Upstream.lastWrite(t); w.Body != `{"role_name":"Editor"}` {
		t.Errorf("body: %s", w.Body)
	}
}

func TestRoleAdd_HeldRoleRefused(t *testing.T) {
	env := newTestEnv(t)

	rec := serve(env.Admin.RoleAdd, newRequest(http.MethodPost, "/users/1/roles/new", url.Values{"role": {"Admin"}}, "id", "1"))

	assertBody(t, rec, "cannot be added to user01.")
	if len(env.Upstream.writes()) != 0 {
		t.Error("refused role reached the upstream")
	}
}

func TestRoleRemove_BaselineNeverSent(t *testing.T) {
	env := newTestEnv(t)

	req := newRequest(http.MethodPost, "/users/4/roles/User/delete", url.Values{"confirm": {"yes"}}, "id", "4", "role", "User")
	rec := serve(env.Admin.RoleRemove, req)

	assertRedirect(t, rec, "/users")
	assertFlash(t, rec, "error", "The User role cannot be removed.")
	if n := env.Upstream.count(); n != 0 {
		t.Errorf("upstream calls: got %d, want 0", n)
	}
}

func TestRoleRemove(t *testing.T) {
	env := newTestEnv(t)
	env.Upstream.set("DELETE /admin/users/1/roles", ok("null"))

	req := newRequest(http.MethodGet, "/users/1/roles/Admin/delete", nil, "id", "1", "role", "Admin")
	rec := serve(env.Admin.RoleRemove, req)
	assertBody(t, rec, "Remove role")
	if env.Upstream.count() != 0 {
		t.Fatal("confirmation page must not call the upstream")
	}

	req = newRequest(http.MethodPost, "/users/1/roles/Admin/delete", url.Values{"confirm": {"yes"}}, "id", "1", "role", "Admin")
	rec = serve(env.Admin.RoleRemove, req)

	assertRedirect(t, rec, "/users")
	if w := env.Upstream.lastWrite(t); w.Method != http.MethodDelete || w.Body != `{"role_name":"Admin"}` {
		t.Errorf("request: %s %s", w.Method, w.Body)
	}
}

// --------------------------------------------------------------------------
// Profile
// --------------------------------------------------------------------------

func TestProfile_Prefilled(t *testing.T) {
	env := newTestEnv(t)

	rec := serve(env.Admin.Profile, newRequest(http.MethodGet, "/profile", nil))

	assertBody(t, rec, `value="Ayse"`, `value="admin@example.com"`, `action="/profile/password"`)
}

func TestProfileUpdate_RefreshesSession(t *testing.T) {
	env := newTestEnv(t)
	env.Upstream.set("PUT /profile", ok("null"))

	form := url.Values{"name": {"Ayse"}, "surname": {"Kaya"}, "email": {"ayse@example.com"}}
	rec := serve(env.Admin.ProfileUpdate, newRequest(http.MethodPost, "/profile", form))

	assertRedirect(t, rec, "/profile")
	if len(env.Sessions.updated) != 1 {
		t.Fatalf("session updates: got %d, want 1", len(env.Sessions.updated))
	}
	if s := env.Sessions.updated[0]; s.Surname != "Kaya" || s.Email != "ayse@example.com" || s.Token != "tok" {
		t.Errorf("session: got %+v", s)
	}
}

func TestProfileUpdate_Required(t *testing.T) {
	env := newTestEnv(t)

	form := url.Values{"name": {"Ayse"}, "surname": {""}, "email": {"ayse@example.com"}}
	rec := serve(env.Admin.ProfileUpdate, newRequest(http.MethodPost, "/profile", form))

	assertBody(t, rec, "Surname is required.")
	if env.Upstream.count() != 0 {
		t.Error("incomplete profile reached the upstream")
	}
}

func TestPasswordChange_Mismatch(t *testing.T) {
	env := newTestEnv(t)

	form := url.Values{"current_password": {"old"}, "new_password": {"new-one"}, "confirm_password": {"new-two"}}
	rec := serve(env.Admin.PasswordChange, newRequest(http.MethodPost, "/profile/password", form))

	assertBody(t, rec, "New password and confirmation do not match.")
	if strings.Contains(rec.Body.String(), "new-one") {
		t.Error("password values must not be echoed")
	}
	if env.Upstream.count() != 0 {
		t.Error("mismatched passwords reached the upstream")
	}
}

func TestPasswordChange(t *testing.T) {
	env := newTestEnv(t)
	env.Upstream.set("PUT /profile/password", ok("null"))

	form := url.Values{"current_password": {"old"}, "new_password": {"new"}, "confirm_password": {"new"}}
	rec := serve(env.Admin.PasswordChange, newRequest(http.MethodPost, "/profile/password", form))

	assertRedirect(t, rec, "/profile")
	assertFlash(t, rec, "success", "Password changed.")
	if w := env.Upstream.lastWrite(t); w.Body != `{"current_password":"old","new_password":"new"}` {
		t.Errorf("body: %s", w.Body)
	}
}

func TestPasswordChange_WrongCurrent(t *testing.T) {
	env := newTestEnv(t)
	env.Upstream.set("PUT /profile/password", fail(http.StatusBadRequest, "Mevcut sifre yanlis"))

	form := url.Values{"current_password": {"bad"}, "new_password": {"new"}, "confirm_password": {"new"}}
	rec := serve(env.Admin.PasswordChange, newRequest(http.MethodPost, "/profile/password", form))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusOK)
	}
	assertBody(t, rec, "Mevcut sifre yanlis")
}
