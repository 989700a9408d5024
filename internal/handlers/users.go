// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"qbadmin/internal/api"
	"qbadmin/internal/forms"
	"qbadmin/internal/models"
	"qbadmin/internal/render"
)

const usersPath = "/users"

// pageSizes are the rows-per-page choices of the users table.
var pageSizes = []int{5, 10, 25}

const defaultPageSize = 10

// Pager describes one page of a client-side paginated table. From and To
// are 1-based and inclusive; both are zero for an empty table.
type Pager struct {
	Page    int
	Pages   int
	PerPage int
	Total   int
	From    int
	To      int
	Sizes   []int
}

// paginate clamps the requested page and size to valid values.
func paginate(total int, page, perPage string) Pager {
	p := Pager{PerPage: defaultPageSize, Total: total, Sizes: pageSizes}
	if n, err := strconv.Atoi(perPage); err == nil {
		for _, s := range pageSizes {
			if s == n {
				p.PerPage = n
			}
		}
	}

	p.Pages = (total + p.PerPage - 1) / p.PerPage
	if p.Pages < 1 {
		p.Pages = 1
	}
	p.Page = 1
	if n, err := strconv.Atoi(page); err == nil && n > 1 {
		p.Page = min(n, p.Pages)
	}

	if total > 0 {
		p.From = (p.Page-1)*p.PerPage + 1
		p.To = min(p.Page*p.PerPage, total)
	}
	return p
}

// Users renders one page of the users table.
func (a *Admin) Users(w http.ResponseWriter, r *http.Request) {
	users, err := a.client(r).Users(r.Context())
	var flashes []render.Flash
	if err != nil {
		if a.expired(w, r, err) {
			return
		}
		flashes = append(flashes, render.Failure(failure(r, "list users", err)))
	}

	p := paginate(len(users), r.URL.Query().Get("page"), r.URL.Query().Get("per_page"))
	var page []models.User
	if p.Total > 0 {
		page = users[p.From-1 : p.To]
	}

	a.renderer.Page(w, r, "users", &render.PageData{
		Title:   "Users",
		Section: "users",
		Flashes: flashes,
		Data: map[string]any{
			"Users": page,
			"Pager": p,
		},
	})
}

func roleForm(u models.User, roles []models.Role, action string) *forms.Form {
	opts := make([]forms.Option, len(roles))
	for i, r := range roles {
		opts[i] = forms.Option{Value: r.Name, Label: r.Name}
	}
	f := forms.New("Add role to "+u.Username, action, "Add role",
		forms.Field{Name: "role", Label: "Role", Type: forms.Select, Required: true, Options: opts},
	)
	f.Cancel = usersPath
	return f
}

// roleTarget loads the user named by {id} with the roles it can still
// receive. On failure the browser is sent back to the list.
func (a *Admin) roleTarget(w http.ResponseWriter, r *http.Request) (models.User, []models.Role, bool) {
	id, ok := intParam(r, "id")
	if !ok {
		http.NotFound(w, r)
		return models.User{}, nil, false
	}

	c := a.client(r)
	var (
		users []models.User
		roles []models.Role
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		users, err = c.Users(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		roles, err = c.Roles(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		if !a.expired(w, r, err) {
			bounce(w, r, usersPath, failure(r, "load roles", err))
		}
		return models.User{}, nil, false
	}

	for _, u := range users {
		if u.ID == id {
			return u, models.AssignableRoles(roles, u), true
		}
	}
	bounce(w, r, usersPath, "User not found.")
	return models.User{}, nil, false
}

// RoleNew renders the add-role form with only the roles the user lacks.
func (a *Admin) RoleNew(w http.ResponseWriter, r *http.Request) {
	u, roles, ok := a.roleTarget(w, r)
	if !ok {
		return
	}
	if len(roles) == 0 {
		bounce(w, r, usersPath, fmt.Sprintf("%s already has every role.", u.Username))
		return
	}
	a.form(w, r, "users", roleForm(u, roles, r.URL.Path))
}

// RoleAdd grants a role to a user.
func (a *Admin) RoleAdd(w http.ResponseWriter, r *http.Request) {
	u, roles, ok := a.roleTarget(w, r)
	if !ok {
		return
	}
	f := roleForm(u, roles, r.URL.Path)
	if err := f.Bind(r); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if err := f.Validate(); err != nil {
		f.Error = err.Error()
		a.form(w, r, "users", f)
		return
	}
	role := f.Value("role")
	fd, _ := f.Field("role")
	assignable := false
	for _, o := range fd.Options {
		assignable = assignable || o.Value == role
	}
	if !assignable {
		f.Error = fmt.Sprintf("Role %q cannot be added to %s.", role, u.Username)
		a.form(w, r, "users", f)
		return
	}

	if err := a.client(r).AddRole(r.Context(), u.ID, role); err != nil {
		if a.expired(w, r, err) {
			return
		}
		f.Error = failure(r, "add role", err)
		a.form(w, r, "users", f)
		return
	}

	a.record(r, "add_role", "user", strconv.Itoa(u.ID), role)
	done(w, r, usersPath, fmt.Sprintf("Role %q added to %s.", role, u.Username))
}

// RoleRemove takes a role away after confirmation. The baseline role is
// refused without contacting the server.
func (a *Admin) RoleRemove(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	role, err := url.PathUnescape(chi.URLParam(r, "role"))
	if err != nil || role == "" {
		http.NotFound(w, r)
		return
	}
	if !models.IsRemovable(role) {
		bounce(w, r, usersPath, fmt.Sprintf("The %s role cannot be removed.", role))
		return
	}

	a.remove(w, r, deletion{
		section: "users",
		title:   "Remove role",
		message: fmt.Sprintf("Remove the %q role from user #%d?", role, id),
		back:    usersPath,
		entity:  "user",
		id:      strconv.Itoa(id),
		detail:  "remove role " + role,
		success: fmt.Sprintf("Role %q removed.", role),
		run: func(ctx context.Context, c *api.Client) error {
			err := c.RemoveRole(ctx, id, role)
			if errors.Is(err, api.ErrBaselineRole) {
				return &forms.FieldError{Field: "role", Message: "The User role cannot be removed."}
			}
			return err
		},
	})
}
