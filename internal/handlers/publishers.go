// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"qbadmin/internal/api"
	"qbadmin/internal/forms"
	"qbadmin/internal/models"
	"qbadmin/internal/render"
)

const publishersPath = "/publishers"

func publisherForm(title, action string) *forms.Form {
	f := forms.New(title, action, "Save",
		forms.Field{Name: "name", Label: "Name", Type: forms.Text, Required: true},
		forms.Field{Name: "website_url", Label: "Website", Type: forms.URL, Placeholder: "https://"},
	)
	f.Cancel = publishersPath
	return f
}

// Publishers renders the publisher grid.
func (a *Admin) Publishers(w http.ResponseWriter, r *http.Request) {
	ps, err := a.client(r).Publishers(r.Context())
	var flashes []render.Flash
	if err != nil {
		if a.expired(w, r, err) {
			return
		}
		flashes = append(flashes, render.Failure(failure(r, "list publishers", err)))
	}

	a.renderer.Page(w, r, "publishers", &render.PageData{
		Title:   "Publishers",
		Section: "publishers",
		Flashes: flashes,
		Data:    map[string]any{"Publishers": ps},
	})
}

// PublisherNew renders the create form.
func (a *Admin) PublisherNew(w http.ResponseWriter, r *http.Request) {
	a.form(w, r, "publishers", publisherForm("New Publisher", publishersPath))
}

// PublisherCreate creates a publisher.
func (a *Admin) PublisherCreate(w http.ResponseWriter, r *http.Request) {
	f := publisherForm("New Publisher", publishersPath)
	in, ok := a.bindPublisher(w, r, f)
	if !ok {
		return
	}

	if err := a.client(r).CreatePublisher(r.Context(), in); err != nil {
		if a.expired(w, r, err) {
			return
		}
		f.Error = failure(r, "create publisher", err)
		a.form(w, r, "publishers", f)
		return
	}

	a.record(r, "create", "publisher", "", in.Name)
	done(w, r, publishersPath, fmt.Sprintf("Publisher %q created.", in.Name))
}

// PublisherEdit renders the edit form. Protected publishers are refused.
func (a *Admin) PublisherEdit(w http.ResponseWriter, r *http.Request) {
	p, ok := a.publisher(w, r)
	if !ok {
		return
	}
	f := publisherForm("Edit "+p.Name, r.URL.Path).Set("name", p.Name).Set("website_url", p.Website())
	a.form(w, r, "publishers", f)
}

// PublisherUpdate saves an edited publisher.
func (a *Admin) PublisherUpdate(w http.ResponseWriter, r *http.Request) {
	p, ok := a.publisher(w, r)
	if !ok {
		return
	}
	f := publisherForm("Edit "+p.Name, r.URL.Path)
	in, ok := a.bindPublisher(w, r, f)
	if !ok {
		return
	}

	if err := a.client(r).UpdatePublisher(r.Context(), p.ID, in); err != nil {
		if a.expired(w, r, err) {
			return
		}
		f.Error = failure(r, "update publisher", err)
		a.form(w, r, "publishers", f)
		return
	}

	a.record(r, "update", "publisher", strconv.Itoa(p.ID), in.Name)
	done(w, r, publishersPath, fmt.Sprintf("Publisher %q updated.", in.Name))
}

// PublisherDelete deletes a publisher after confirmation.
func (a *Admin) PublisherDelete(w http.ResponseWriter, r *http.Request) {
	p, ok := a.publisher(w, r)
	if !ok {
		return
	}
	a.remove(w, r, deletion{
		section: "publishers",
		title:   "Delete publisher",
		message: fmt.Sprintf("Delete publisher %q?", p.Name),
		back:    publishersPath,
		entity:  "publisher",
		id:      strconv.Itoa(p.ID),
		detail:  p.Name,
		success: fmt.Sprintf("Publisher %q deleted.", p.Name),
		run:     func(ctx context.Context, c *api.Client) error { return c.DeletePublisher(ctx, p.ID) },
	})
}

// publisher resolves the {id} URL parameter to an editable publisher.
func (a *Admin) publisher(w http.ResponseWriter, r *http.Request) (models.Publisher, bool) {
	id, ok := intParam(r, "id")
	if !ok {
		http.NotFound(w, r)
		return models.Publisher{}, false
	}
	ps, err := a.client(r).Publishers(r.Context())
	if err != nil {
		if !a.expired(w, r, err) {
			bounce(w, r, publishersPath, failure(r, "load publisher", err))
		}
		return models.Publisher{}, false
	}
	p, ok := models.FindPublisher(ps, id)
	if !ok {
		bounce(w, r, publishersPath, "Publisher not found.")
		return models.Publisher{}, false
	}
	if p.IsProtected() {
		bounce(w, r, publishersPath, fmt.Sprintf("%s is a system publisher and cannot be changed.", p.Name))
		return models.Publisher{}, false
	}
	return p, true
}

// bindPublisher reads and checks the form. On failure the form has been
// rendered again and ok is false.
func (a *Admin) bindPublisher(w http.ResponseWriter, r *http.Request, f *forms.Form) (models.PublisherInput, bool) {
	if err := f.Bind(r); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return models.PublisherInput{}, false
	}
	in := models.NewPublisherInput(f.Value("name"), f.Value("website_url"))

	msg := ""
	if err := forms.Check(in); err != nil {
		msg = err.Error()
	} else {
		msg = validateName("Name", in.Name)
	}
	if msg != "" {
		f.Error = msg
		a.form(w, r, "publishers", f)
		return models.PublisherInput{}, false
	}
	return in, true
}
