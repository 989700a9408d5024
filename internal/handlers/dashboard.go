// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"qbadmin/internal/models"
	"qbadmin/internal/render"
)

// activityLimit is how many audit entries the dashboard shows.
const activityLimit = 10

// Stats are the dashboard counters.
type Stats struct {
	Questions      int
	MainCategories int
	SubCategories  int
	Users          int
	Publishers     int
}

// Dashboard renders the counters, fetched from the upstream API in
// parallel, and the latest audit entries.
func (a *Admin) Dashboard(w http.ResponseWriter, r *http.Request) {
	c := a.client(r)
	var st Stats

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		qs, err := c.Questions(ctx)
		st.Questions = len(qs)
		return err
	})
	g.Go(func() error {
		mains, _, err := a.tree(ctx, c)
		st.MainCategories = len(mains)
		st.SubCategories = models.SubCategoryCount(mains)
		return err
	})
	g.Go(func() error {
		us, err := c.Users(ctx)
		st.Users = len(us)
		return err
	})
	g.Go(func() error {
		ps, err := c.Publishers(ctx)
		st.Publishers = len(ps)
		return err
	})

	data := map[string]any{}
	var flashes []render.Flash
	if err := g.Wait(); err != nil {
		if a.expired(w, r, err) {
			return
		}
		flashes = append(flashes, render.Failure(failure(r, "load dashboard", err)))
	} else {
		data["Stats"] = st
	}

	if a.audit != nil {
		entries, err := a.audit.Recent(r.Context(), activityLimit)
		if err != nil {
			slog.Warn("load recent activity failed", "error", err)
		} else if len(entries) > 0 {
			data["Activity"] = entries
		}
	}

	a.renderer.Page(w, r, "dashboard", &render.PageData{
		Title:   "Dashboard",
		Section: "dashboard",
		Data:    data,
		Flashes: flashes,
	})
}
