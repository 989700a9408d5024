// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package render provides HTML template rendering for the dashboard.
// It supports full-page and HTMX partial rendering, automatically detecting
// the request type via the HX-Request header.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"qbadmin/internal/forms"
	"qbadmin/internal/middleware"
	"qbadmin/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

// partialsFile holds blocks shared by every page (flashes, form card).
const partialsFile = "_partials.html"

// PageData holds all data passed to templates.
type PageData struct {
	Title     string         // Page title for <title> tag
	Section   string         // Active sidebar section (e.g., "dashboard", "questions")
	Session   *session.Data  // Current user session (nil if unauthenticated)
	CSRFToken string         // CSRF token for forms and HTMX headers
	Form      *forms.Form    // Form rendered by the "form" page
	Data      map[string]any // Page-specific data
	Flashes   []Flash        // One-time notification messages
}

// FormView pairs a form with the CSRF token its card must post.
type FormView struct {
	Form      *forms.Form
	CSRFToken string
}

// Renderer handles template parsing and execution.
type Renderer struct {
	templates map[string]*template.Template
	funcMap   template.FuncMap
}

// standaloneTemplates lists templates that render as full HTML pages
// without the base layout (they have their own <html>, <head>, etc.).
var standaloneTemplates = map[string]bool{
	"login":      true,
	"2fa_setup":  true,
	"2fa_verify": true,
}

// New creates a Renderer by parsing all templates from the embedded
// filesystem. Each page template is paired with the base layout and the
// shared partials.
func New(devMode bool) (*Renderer, error) {
	r := &Renderer{
		templates: make(map[string]*template.Template),
		funcMap: template.FuncMap{
			"activeClass": func(current, target string) string {
				if current == target {
					return "active"
				}
				return ""
			},
			"isDev": func() bool {
				return devMode
			},
			"formView": func(f *forms.Form, csrf string) FormView {
				return FormView{Form: f, CSRFToken: csrf}
			},
			"add": func(a, b int) int { return a + b },
			"sub": func(a, b int) int { return a - b },
			"join": func(items []string, sep string) string {
				return strings.Join(items, sep)
			},
			"fieldID": func(name string) string {
				return "f-" + strings.NewReplacer("[", "-", "]", "", "_", "-").Replace(name)
			},
			"when": func(t time.Time) string {
				if t.IsZero() {
					return "-"
				}
				return t.Local().Format("02.01.2006 15:04")
			},
		},
	}

	entries, err := templateFS.ReadDir("templates")
	if err != nil {
		return nil, fmt.Errorf("read embedded templates: %w", err)
	}

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == "base.html" || strings.HasPrefix(name, "_") {
			continue
		}

		tmplName := strings.TrimSuffix(name, ".html")

		var tmpl *template.Template
		var parseErr error

		if standaloneTemplates[tmplName] {
			tmpl, parseErr = template.New(name).Funcs(r.funcMap).ParseFS(
				templateFS, "templates/"+name, "templates/"+partialsFile,
			)
		} else {
			tmpl, parseErr = template.New("base.html").Funcs(r.funcMap).ParseFS(
				templateFS, "templates/base.html", "templates/"+partialsFile, "templates/"+name,
			)
		}

		if parseErr != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, parseErr)
		}

		r.templates[tmplName] = tmpl
	}

	return r, nil
}

// Has reports whether a page template named name was parsed.
func (rn *Renderer) Has(name string) bool {
	_, ok := rn.templates[name]
	return ok
}

// Page renders a full page or an HTMX partial, depending on the request
// headers. For HTMX requests only the "content" block is sent. Pending
// flashes are moved from the cookie into data.
func (rn *Renderer) Page(w http.ResponseWriter, r *http.Request, name string, data *PageData) {
	tmpl, ok := rn.templates[name]
	if !ok {
		http.Error(w, fmt.Sprintf("template %q not found", name), http.StatusInternalServerError)
		return
	}

	data.CSRFToken = middleware.CSRFTokenFromCtx(r.Context())
	if data.Session == nil {
		data.Session = middleware.SessionFromCtx(r.Context())
	}
	data.Flashes = append(PopFlashes(w, r), data.Flashes...)

	execName := "base.html"
	if standaloneTemplates[name] {
		execName = name + ".html"
	}
	if isHTMX(r) {
		execName = "content"
	}

	// Render into a buffer so a failing template never leaves half a page.
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, execName, data); err != nil {
		slog.Error("template execute failed", "template", name, "error", err,
			"request_id", middleware.RequestIDFromCtx(r.Context()))
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// isHTMX returns true if the request was made by HTMX (has HX-Request header).
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
