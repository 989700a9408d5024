// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"qbadmin/internal/api"
	"qbadmin/internal/forms"
	"qbadmin/internal/models"
	"qbadmin/internal/render"
)

const categoriesPath = "/categories"

// categoryRow is one sub-category row of the hierarchy form.
type categoryRow struct {
	Sub    string
	Leaves string
}

// Categories renders the main → sub → leaf accordion.
func (a *Admin) Categories(w http.ResponseWriter, r *http.Request) {
	mains, _, err := a.tree(r.Context(), a.client(r))
	var flashes []render.Flash
	if err != nil {
		if a.expired(w, r, err) {
			return
		}
		flashes = append(flashes, render.Failure(failure(r, "list categories", err)))
	}

	a.renderer.Page(w, r, "categories", &render.PageData{
		Title:   "Categories",
		Section: "categories",
		Flashes: flashes,
		Data: map[string]any{
			"Mains":     mains,
			"MainCount": len(mains),
			"SubCount":  models.SubCategoryCount(mains),
		},
	})
}

// CategoryNew renders the hierarchy form. With add=1 the current values
// come back with one more empty sub-category row.
func (a *Admin) CategoryNew(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rows := categoryRows(q["sub_category"], q["leaves"])
	if q.Get("add") == "1" || len(rows) == 0 {
		rows = append(rows, categoryRow{})
	}
	a.categoryForm(w, r, strings.TrimSpace(q.Get("main_category")), rows, "")
}

// CategoryCreate creates a main category with its sub-categories and
// leaves in one request.
func (a *Admin) CategoryCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	mainName := strings.TrimSpace(r.PostFormValue("main_category"))
	rows := categoryRows(r.PostForm["sub_category"], r.PostForm["leaves"])
	if len(rows) == 0 {
		rows = append(rows, categoryRow{})
	}

	h := models.CategoryHierarchy{MainCategory: mainName}
	for _, row := range rows {
		h.SubCategories = append(h.SubCategories, models.SubCategoryGroup{
			SubCategory: row.Sub,
			Categories:  splitNames(row.Leaves),
		})
	}

	if msg := validateHierarchy(h); msg != "" {
		a.categoryForm(w, r, mainName, rows, msg)
		return
	}

	if err := a.client(r).CreateCategoryHierarchy(r.Context(), h); err != nil {
		if a.expired(w, r, err) {
			return
		}
		a.categoryForm(w, r, mainName, rows, failure(r, "create category", err))
		return
	}

	a.record(r, "create", "main_category", "", mainName)
	done(w, r, categoriesPath, fmt.Sprintf("Category %q created.", mainName))
}

func (a *Admin) categoryForm(w http.ResponseWriter, r *http.Request, main string, rows []categoryRow, errMsg string) {
	a.renderer.Page(w, r, "category_new", &render.PageData{
		Title:   "New Category",
		Section: "categories",
		Data: map[string]any{
			"Main":  main,
			"Rows":  rows,
			"Error": errMsg,
		},
	})
}

// categoryRows pairs the repeated sub-category and leaves inputs.
func categoryRows(subs, leaves []string) []categoryRow {
	rows := make([]categoryRow, 0, len(subs))
	for i, s := range subs {
		row := categoryRow{Sub: strings.TrimSpace(s)}
		if i < len(leaves) {
			row.Leaves = leaves[i]
		}
		rows = append(rows, row)
	}
	return rows
}

// validateHierarchy runs the presence checks and then the name limits.
func validateHierarchy(h models.CategoryHierarchy) string {
	if err := forms.Check(h); err != nil {
		return err.Error()
	}
	if msg := validateName("Main category name", h.MainCategory); msg != "" {
		return msg
	}
	for _, g := range h.SubCategories {
		if msg := validateName("Sub-category name", g.SubCategory); msg != "" {
			return msg
		}
		if msg := validateNames("Leaf category names", g.Categories); msg != "" {
			return msg
		}
	}
	return ""
}

// nameForm is the single-field rename form.
func nameForm(title, action string) *forms.Form {
	f := forms.New(title, action, "Save",
		forms.Field{Name: "name", Label: "Name", Type: forms.Text, Required: true},
	)
	f.Cancel = categoriesPath
	return f
}

// leavesForm collects leaf names, one per line.
func leavesForm(title, action string, withSub bool) *forms.Form {
	leaves := forms.Field{Name: "leaves", Label: "Leaf categories", Type: forms.Textarea, Help: "One per line."}
	fields := []forms.Field{leaves}
	if withSub {
		fields = []forms.Field{
			{Name: "sub_category", Label: "Sub-category name", Type: forms.Text, Required: true},
			leaves,
		}
	} else {
		fields[0].Required = true
	}
	f := forms.New(title, action, "Add", fields...)
	f.Cancel = categoriesPath
	return f
}

// lookup fetches the tree for an edit or delete screen. On failure the
// browser is sent back to the list and ok is false.
func (a *Admin) lookup(w http.ResponseWriter, r *http.Request) ([]models.MainCategory, bool) {
	mains, _, err := a.tree(r.Context(), a.client(r))
	if err != nil {
		if !a.expired(w, r, err) {
			bounce(w, r, categoriesPath, failure(r, "load categories", err))
		}
		return nil, false
	}
	return mains, true
}

func findMain(mains []models.MainCategory, id int) (models.MainCategory, bool) {
	for _, m := range mains {
		if m.ID == id {
			return m, true
		}
	}
	return models.MainCategory{}, false
}

func findSub(mains []models.MainCategory, id int) (models.SubCategory, bool) {
	for _, m := range mains {
		for _, s := range m.SubCategories {
			if s.ID == id {
				return s, true
			}
		}
	}
	return models.SubCategory{}, false
}

func findLeaf(sub models.SubCategory, id int) (models.Category, bool) {
	for _, c := range sub.Categories {
		if c.ID == id {
			return c, true
		}
	}
	return models.Category{}, false
}

// MainEdit renders the rename form of a main category.
func (a *Admin) MainEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	mains, ok := a.lookup(w, r)
	if !ok {
		return
	}
	m, ok := findMain(mains, id)
	if !ok {
		bounce(w, r, categoriesPath, "Main category not found.")
		return
	}
	a.form(w, r, "categories", nameForm("Rename "+m.Name, r.URL.Path).Set("name", m.Name))
}

// MainUpdate renames a main category.
func (a *Admin) MainUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	a.rename(w, r, nameForm("Rename main category", r.URL.Path), "main_category", id, "Main category name",
		func(ctx context.Context, c *api.Client, name string) error { return c.UpdateMainCategory(ctx, id, name) })
}

// MainDelete deletes a main category with everything under it.
func (a *Admin) MainDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	mains, ok := a.lookup(w, r)
	if !ok {
		return
	}
	m, ok := findMain(mains, id)
	if !ok {
		bounce(w, r, categoriesPath, "Main category not found.")
		return
	}
	a.remove(w, r, deletion{
		section: "categories",
		title:   "Delete main category",
		message: fmt.Sprintf("Delete %q with its %d sub-categories and their leaf categories?", m.Name, len(m.SubCategories)),
		back:    categoriesPath,
		entity:  "main_category",
		id:      strconv.Itoa(id),
		detail:  m.Name,
		success: fmt.Sprintf("Main category %q deleted.", m.Name),
		run:     func(ctx context.Context, c *api.Client) error { return c.DeleteMainCategory(ctx, id) },
	})
}

// SubNew renders the add-sub-category form of a main category.
func (a *Admin) SubNew(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	mains, ok := a.lookup(w, r)
	if !ok {
		return
	}
	m, ok := findMain(mains, id)
	if !ok {
		bounce(w, r, categoriesPath, "Main category not found.")
		return
	}
	a.form(w, r, "categories", leavesForm("Add sub-category to "+m.Name, r.URL.Path, true))
}

// SubCreate adds a sub-category with optional leaves to a main category.
func (a *Admin) SubCreate(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	f := leavesForm("Add sub-category", r.URL.Path, true)
	if err := f.Bind(r); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	g := models.SubCategoryGroup{
		SubCategory: f.Value("sub_category"),
		Categories:  splitNames(f.Value("leaves")),
	}
	msg := ""
	if err := f.Validate(); err != nil {
		msg = err.Error()
	} else if msg = validateName("Sub-category name", g.SubCategory); msg == "" {
		msg = validateNames("Leaf category names", g.Categories)
	}
	if msg != "" {
		f.Error = msg
		a.form(w, r, "categories", f)
		return
	}

	if err := a.client(r).AddSubCategory(r.Context(), id, g); err != nil {
		if a.expired(w, r, err) {
			return
		}
		f.Error = failure(r, "add sub-category", err)
		a.form(w, r, "categories", f)
		return
	}

	a.record(r, "create", "sub_category", "", g.SubCategory)
	done(w, r, categoriesPath, fmt.Sprintf("Sub-category %q added.", g.SubCategory))
}

// SubEdit renders the rename form of a sub-category.
func (a *Admin) SubEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	mains, ok := a.lookup(w, r)
	if !ok {
		return
	}
	s, ok := findSub(mains, id)
	if !ok {
		bounce(w, r, categoriesPath, "Sub-category not found.")
		return
	}
	a.form(w, r, "categories", nameForm("Rename "+s.Name, r.URL.Path).Set("name", s.Name))
}

// SubUpdate renames a sub-category.
func (a *Admin) SubUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	a.rename(w, r, nameForm("Rename sub-category", r.URL.Path), "sub_category", id, "Sub-category name",
		func(ctx context.Context, c *api.Client, name string) error { return c.UpdateSubCategory(ctx, id, name) })
}

// SubDelete deletes a sub-category with its leaves.
func (a *Admin) SubDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	mains, ok := a.lookup(w, r)
	if !ok {
		return
	}
	s, ok := findSub(mains, id)
	if !ok {
		bounce(w, r, categoriesPath, "Sub-category not found.")
		return
	}
	a.remove(w, r, deletion{
		section: "categories",
		title:   "Delete sub-category",
		message: fmt.Sprintf("Delete %q with its %d leaf categories?", s.Name, len(s.Categories)),
		back:    categoriesPath,
		entity:  "sub_category",
		id:      strconv.Itoa(id),
		detail:  s.Name,
		success: fmt.Sprintf("Sub-category %q deleted.", s.Name),
		run:     func(ctx context.Context, c *api.Client) error { return c.DeleteSubCategory(ctx, id) },
	})
}

// LeavesNew renders the add-leaves form of a sub-category.
func (a *Admin) LeavesNew(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	mains, ok := a.lookup(w, r)
	if !ok {
		return
	}
	s, ok := findSub(mains, id)
	if !ok {
		bounce(w, r, categoriesPath, "Sub-category not found.")
		return
	}
	a.form(w, r, "categories", leavesForm("Add leaf categories to "+s.Name, r.URL.Path, false))
}

// LeavesCreate adds leaf categories to a sub-category.
func (a *Admin) LeavesCreate(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	f := leavesForm("Add leaf categories", r.URL.Path, false)
	if err := f.Bind(r); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	names := splitNames(f.Value("leaves"))
	msg := ""
	if err := f.Validate(); err != nil {
		msg = err.Error()
	} else if len(names) == 0 {
		msg = "Leaf categories is required."
	} else {
		msg = validateNames("Leaf category names", names)
	}
	if msg != "" {
		f.Error = msg
		a.form(w, r, "categories", f)
		return
	}

	if err := a.client(r).AddLeafCategories(r.Context(), id, names); err != nil {
		if a.expired(w, r, err) {
			return
		}
		f.Error = failure(r, "add leaf categories", err)
		a.form(w, r, "categories", f)
		return
	}

	a.record(r, "create", "leaf_category", "", strings.Join(names, ", "))
	done(w, r, categoriesPath, fmt.Sprintf("%d leaf categories added.", len(names)))
}

// LeafEdit renders the rename form of a leaf category.
func (a *Admin) LeafEdit(w http.ResponseWriter, r *http.Request) {
	sub, leaf, ok := a.leaf(w, r)
	if !ok {
		return
	}
	f := nameForm("Rename "+leaf.Name, r.URL.Path).Set("name", leaf.Name)
	f.Fields[0].Help = "Leaf of " + sub.Name
	a.form(w, r, "categories", f)
}

// LeafUpdate renames a leaf category.
func (a *Admin) LeafUpdate(w http.ResponseWriter, r *http.Request) {
	subID, ok1 := intParam(r, "sid")
	id, ok2 := intParam(r, "id")
	if !ok1 || !ok2 {
		http.NotFound(w, r)
		return
	}
	a.rename(w, r, nameForm("Rename leaf category", r.URL.Path), "leaf_category", id, "Leaf category name",
		func(ctx context.Context, c *api.Client, name string) error {
			return c.UpdateLeafCategory(ctx, subID, id, name)
		})
}

// LeafDelete deletes one leaf category.
func (a *Admin) LeafDelete(w http.ResponseWriter, r *http.Request) {
	sub, leaf, ok := a.leaf(w, r)
	if !ok {
		return
	}
	a.remove(w, r, deletion{
		section: "categories",
		title:   "Delete leaf category",
		message: fmt.Sprintf("Delete %q from %q? Questions tagged with it keep the stale tag until edited.", leaf.Name, sub.Name),
		back:    categoriesPath,
		entity:  "leaf_category",
		id:      strconv.Itoa(leaf.ID),
		detail:  leaf.Name,
		success: fmt.Sprintf("Leaf category %q deleted.", leaf.Name),
		run: func(ctx context.Context, c *api.Client) error {
			return c.DeleteLeafCategory(ctx, sub.ID, leaf.ID)
		},
	})
}

// leaf resolves the {sid}/{id} pair of a leaf route.
func (a *Admin) leaf(w http.ResponseWriter, r *http.Request) (models.SubCategory, models.Category, bool) {
	subID, ok1 := intParam(r, "sid")
	id, ok2 := intParam(r, "id")
	if !ok1 || !ok2 {
		http.NotFound(w, r)
		return models.SubCategory{}, models.Category{}, false
	}
	mains, ok := a.lookup(w, r)
	if !ok {
		return models.SubCategory{}, models.Category{}, false
	}
	sub, ok := findSub(mains, subID)
	if ok {
		var leaf models.Category
		if leaf, ok = findLeaf(sub, id); ok {
			return sub, leaf, true
		}
	}
	bounce(w, r, categoriesPath, "Leaf category not found.")
	return models.SubCategory{}, models.Category{}, false
}

// rename handles the shared submit flow of the three rename forms.
func (a *Admin) rename(w http.ResponseWriter, r *http.Request, f *forms.Form, entity string, id int, label string,
	run func(ctx context.Context, c *api.Client, name string) error) {
	if err := f.Bind(r); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	name := f.Value("name")
	if msg := validateName(label, name); msg != "" {
		f.Error = msg
		a.form(w, r, "categories", f)
		return
	}

	if err := run(r.Context(), a.client(r), name); err != nil {
		if a.expired(w, r, err) {
			return
		}
		f.Error = failure(r, "rename "+entity, err)
		a.form(w, r, "categories", f)
		return
	}

	a.record(r, "update", entity, strconv.Itoa(id), name)
	done(w, r, categoriesPath, fmt.Sprintf("Renamed to %q.", name))
}
