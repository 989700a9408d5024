// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"qbadmin/internal/api"
	"qbadmin/internal/catalog"
	"qbadmin/internal/forms"
	"qbadmin/internal/imaging"
	"qbadmin/internal/middleware"
	"qbadmin/internal/models"
	"qbadmin/internal/render"
	"qbadmin/internal/storage"
)

const questionsPath = "/questions"

// answerChoices are the options of the answer radio group.
var answerChoices = []string{"A", "B", "C", "D", "E"}

// questionForm builds the create or edit form. Main and sub-category
// selects reload the form so the next select narrows to their children.
func questionForm(title, action, reloadURL string, create bool) *forms.Form {
	answers := make([]forms.Option, len(answerChoices))
	for i, a := range answerChoices {
		answers[i] = forms.Option{Value: a, Label: a}
	}
	difficulties := make([]forms.Option, len(models.Difficulties))
	for i, d := range models.Difficulties {
		difficulties[i] = forms.Option{Value: string(d), Label: d.Label()}
	}

	imageHelp := "Leave empty to keep the current image."
	if create {
		imageHelp = ""
	}

	f := forms.New(title, action, "Save",
		forms.Field{Name: "main", Label: "Main category", Type: forms.Select, Required: true, Reload: true},
		forms.Field{Name: "sub", Label: "Sub-category", Type: forms.Select, Required: true, Reload: true},
		forms.Field{Name: "categories", Label: "Categories", Type: forms.MultiSelect, Required: true,
			Help: "Pick at least one category."},
		forms.Field{Name: "answer", Label: "Correct answer", Type: forms.Radio, Required: true, Options: answers},
		forms.Field{Name: "difficulty", Label: "Difficulty", Type: forms.Select, Required: true, Options: difficulties},
		forms.Field{Name: "publisher_id", Label: "Publisher", Type: forms.Select, Required: true},
		forms.Field{Name: "question_image", Label: "Question image", Type: forms.File, Required: create, Help: imageHelp},
		forms.Field{Name: "solution_image", Label: "Solution image", Type: forms.File, Help: imageHelp},
	)
	if !create {
		// Tags outside the edited sub-category ride along unchanged until
		// the main or sub-category is switched.
		f.Fields = append(f.Fields,
			forms.Field{Name: "keep_sub", Type: forms.Hidden},
			forms.Field{Name: "keep_categories", Type: forms.Hidden},
		)
	}
	f.ReloadURL = reloadURL
	f.Cancel = questionsPath
	return f
}

// questionOptions fills the select options from the catalog and drops
// selections that no longer belong to the chosen parent.
func questionOptions(f *forms.Form, records []catalog.Record, publishers []models.Publisher) {
	mains := catalog.SortStrings(catalog.MainNames(records))
	opts := make([]forms.Option, len(mains))
	for i, m := range mains {
		opts[i] = forms.Option{Value: m, Label: m}
	}
	f.SetOptions("main", opts)

	main := f.Value("main")
	if len(catalog.ForMain(records, main)) == 0 {
		delete(f.Values, "main")
		main = ""
	}

	var subOpts []forms.Option
	for _, name := range catalog.SortStrings(catalog.SubNames(records, main)) {
		if rec, ok := catalog.FindRecord(records, main, name); ok {
			subOpts = append(subOpts, forms.Option{Value: strconv.Itoa(rec.SubCategoryID), Label: name})
		}
	}
	f.SetOptions("sub", subOpts)

	var rec catalog.Record
	if subID, err := strconv.Atoi(f.Value("sub")); err == nil {
		if found, ok := catalog.RecordBySubID(records, subID); ok && found.MainCategoryName == main {
			rec = found
		}
	}
	if rec.SubCategoryID == 0 {
		delete(f.Values, "sub")
	}
	if f.Value("keep_sub") != strconv.Itoa(rec.SubCategoryID) {
		delete(f.Values, "keep_sub")
		delete(f.Values, "keep_categories")
	}

	leaves := catalog.SortCategories(rec.LeafCategories)
	leafOpts := make([]forms.Option, len(leaves))
	valid := make(map[string]bool, len(leaves))
	for i, l := range leaves {
		v := strconv.Itoa(l.ID)
		leafOpts[i] = forms.Option{Value: v, Label: l.Name}
		valid[v] = true
	}
	f.SetOptions("categories", leafOpts)

	var kept []string
	for _, v := range f.List("categories") {
		if valid[v] {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		delete(f.Values, "categories")
	} else {
		f.Set("categories", kept...)
	}

	pubOpts := make([]forms.Option, len(publishers))
	for i, p := range publishers {
		pubOpts[i] = forms.Option{Value: strconv.Itoa(p.ID), Label: p.Name}
	}
	f.SetOptions("publisher_id", pubOpts)
}

// questionData converts the bound form into the upstream payload.
func questionData(f *forms.Form) (models.QuestionData, error) {
	var data models.QuestionData
	if err := f.Validate(); err != nil {
		return data, err
	}

	if !validAnswer(f.Value("answer")) {
		return data, errors.New("Correct answer must be one of A, B, C, D or E.")
	}
	data.Answer = f.Value("answer")

	d := models.Difficulty(f.Value("difficulty"))
	if !d.Valid() {
		return data, errors.New("Difficulty must be easy, medium or hard.")
	}
	data.DifficultyLevel = d.Label()

	pid, err := strconv.Atoi(f.Value("publisher_id"))
	if err != nil || pid <= 0 {
		return data, errors.New("Publisher is required.")
	}
	data.PublisherID = pid

	for _, v := range f.List("categories") {
		id, err := strconv.Atoi(v)
		if err != nil || id <= 0 {
			return data, fmt.Errorf("Category %q is not valid.", v)
		}
		data.CategoryIDs = append(data.CategoryIDs, id)
	}
	if len(data.CategoryIDs) == 0 {
		return data, errors.New("Pick at least one category.")
	}
	if f.Value("keep_sub") != "" && f.Value("keep_sub") == f.Value("sub") {
		data.CategoryIDs = appendMissing(data.CategoryIDs, keptCategories(f.Value("keep_categories")))
	}
	return data, nil
}

// keptCategories parses the comma-separated ids carried through an edit.
// Malformed entries are skipped.
func keptCategories(raw string) []int {
	var ids []int
	for _, v := range strings.Split(raw, ",") {
		if id, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && id > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

func appendMissing(ids, extra []int) []int {
	for _, id := range extra {
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	return ids
}

func validAnswer(a string) bool {
	for _, c := range answerChoices {
		if c == a {
			return true
		}
	}
	return false
}

// catalogAndPublishers fetches what the question screens need besides the
// question list.
func (a *Admin) catalogAndPublishers(r *http.Request, c *api.Client) ([]catalog.Record, []models.Publisher, error) {
	var (
		records    []catalog.Record
		publishers []models.Publisher
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		_, records, err = a.tree(ctx, c)
		return err
	})
	g.Go(func() error {
		var err error
		publishers, err = c.Publishers(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return records, publishers, nil
}

// Questions renders the question browser grouped by main and sub-category.
func (a *Admin) Questions(w http.ResponseWriter, r *http.Request) {
	c := a.client(r)

	var (
		questions  []models.Question
		records    []catalog.Record
		publishers []models.Publisher
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		questions, err = c.Questions(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		records, publishers, err = a.catalogAndPublishers(r.WithContext(ctx), c)
		return err
	})

	var flashes []render.Flash
	if err := g.Wait(); err != nil {
		if a.expired(w, r, err) {
			return
		}
		flashes = append(flashes, render.Failure(failure(r, "list questions", err)))
	}

	pubNames := make(map[int]string, len(publishers))
	for _, p := range publishers {
		pubNames[p.ID] = p.Name
	}
	leafNames := make(map[int]string)
	for _, rec := range records {
		for _, l := range rec.LeafCategories {
			leafNames[l.ID] = l.Name
		}
	}

	questions = catalog.SortByID(questions)
	a.renderer.Page(w, r, "questions", &render.PageData{
		Title:   "Questions",
		Section: "questions",
		Flashes: flashes,
		Data: map[string]any{
			"Total":      len(questions),
			"Sections":   catalog.Sections(questions, records, catalog.SortStrings(catalog.MainNames(records))),
			"Publishers": pubNames,
			"Leaves":     leafNames,
		},
	})
}

// question fetches the question named by the {id} URL parameter. On
// failure the browser is sent back to the list and ok is false.
func (a *Admin) question(w http.ResponseWriter, r *http.Request, c *api.Client) (models.Question, bool) {
	id, ok := intParam(r, "id")
	if !ok {
		http.NotFound(w, r)
		return models.Question{}, false
	}
	qs, err := c.Questions(r.Context())
	if err != nil {
		if !a.expired(w, r, err) {
			bounce(w, r, questionsPath, failure(r, "load question", err))
		}
		return models.Question{}, false
	}
	for _, q := range qs {
		if q.ID == id {
			return q, true
		}
	}
	bounce(w, r, questionsPath, "Question not found.")
	return models.Question{}, false
}

// QuestionDetail renders one question with its images.
func (a *Admin) QuestionDetail(w http.ResponseWriter, r *http.Request) {
	c := a.client(r)
	q, ok := a.question(w, r, c)
	if !ok {
		return
	}

	var flashes []render.Flash
	records, publishers, err := a.catalogAndPublishers(r, c)
	if err != nil {
		if a.expired(w, r, err) {
			return
		}
		flashes = append(flashes, render.Failure(failure(r, "load question details", err)))
	}

	publisher := fmt.Sprintf("#%d", q.PublisherID)
	if p, ok := models.FindPublisher(publishers, q.PublisherID); ok {
		publisher = p.Name
	}
	names := make([]string, 0, len(q.Categories))
	for _, id := range q.Categories {
		if n, ok := catalog.LeafName(records, id); ok {
			names = append(names, n)
		} else {
			names = append(names, fmt.Sprintf("#%d", id))
		}
	}

	a.renderer.Page(w, r, "question_detail", &render.PageData{
		Title:   fmt.Sprintf("Question #%d", q.ID),
		Section: "questions",
		Flashes: flashes,
		Data: map[string]any{
			"Question":   q,
			"Publisher":  publisher,
			"Categories": names,
		},
	})
}

// QuestionNew renders the create form. With reload=1 the submitted values
// are kept and the dependent selects are narrowed.
func (a *Admin) QuestionNew(w http.ResponseWriter, r *http.Request) {
	f := questionForm("New Question", questionsPath, questionsPath+"/new", true)
	if r.URL.Query().Get("reload") == "1" {
		if err := f.Bind(r); err != nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
	} else {
		f.Set("difficulty", string(models.DifficultyMedium))
	}
	a.questionPage(w, r, f, r.URL.Query().Get("reload") != "1")
}

// QuestionCreate uploads a new question.
func (a *Admin) QuestionCreate(w http.ResponseWriter, r *http.Request) {
	f := questionForm("New Question", questionsPath, questionsPath+"/new", true)
	if err := f.Bind(r); err != nil {
		a.uploadFailed(w, r, f, err)
		return
	}

	data, err := questionData(f)
	if err != nil {
		a.questionPage(w, r, f.Fail(err), false)
		return
	}
	image, solution, err := a.uploads(r, f)
	if err != nil {
		a.questionPage(w, r, f.Fail(err), false)
		return
	}

	if err := a.client(r).CreateQuestion(r.Context(), data, image, solution); err != nil {
		if a.expired(w, r, err) {
			return
		}
		f.Error = failure(r, "create question", err)
		a.questionPage(w, r, f, false)
		return
	}

	a.archiveUploads(r, 0, image, solution)
	a.record(r, "create", "question", "", fmt.Sprintf("answer %s, %d categories", data.Answer, len(data.CategoryIDs)))
	done(w, r, questionsPath, "Question created.")
}

// QuestionEdit renders the edit form with the owner main and sub-category
// preselected.
func (a *Admin) QuestionEdit(w http.ResponseWriter, r *http.Request) {
	c := a.client(r)
	q, ok := a.question(w, r, c)
	if !ok {
		return
	}

	path := fmt.Sprintf("%s/%d/edit", questionsPath, q.ID)
	f := questionForm(fmt.Sprintf("Edit Question #%d", q.ID), path, path, false)
	f.Cancel = fmt.Sprintf("%s/%d", questionsPath, q.ID)

	if r.URL.Query().Get("reload") == "1" {
		if err := f.Bind(r); err != nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		a.questionPage(w, r, f, false)
		return
	}

	records, publishers, err := a.catalogAndPublishers(r, c)
	if err != nil {
		if !a.expired(w, r, err) {
			bounce(w, r, questionsPath, failure(r, "load question form", err))
		}
		return
	}

	cats := make([]string, len(q.Categories))
	for i, id := range q.Categories {
		cats[i] = strconv.Itoa(id)
	}
	f.Set("categories", cats...)
	if owner, ok := catalog.OwnerRecord(records, q); ok {
		f.Set("main", owner.MainCategoryName)
		f.Set("sub", strconv.Itoa(owner.SubCategoryID))

		own := catalog.LeafIDs(owner.LeafCategories)
		var others []string
		for _, id := range q.Categories {
			if _, ok := own[id]; !ok {
				others = append(others, strconv.Itoa(id))
			}
		}
		if len(others) > 0 {
			f.Set("keep_sub", strconv.Itoa(owner.SubCategoryID))
			f.Set("keep_categories", strings.Join(others, ","))
		}
	}
	f.Set("answer", q.Answer)
	f.Set("difficulty", string(q.DifficultyCode()))
	f.Set("publisher_id", strconv.Itoa(q.PublisherID))

	questionOptions(f, records, publishers)
	a.form(w, r, "questions", f)
}

// QuestionUpdate saves an edited question. Images are only replaced when
// a new file is chosen.
func (a *Admin) QuestionUpdate(w http.ResponseWriter, r *http.Request) {
	c := a.client(r)
	q, ok := a.question(w, r, c)
	if !ok {
		return
	}

	path := fmt.Sprintf("%s/%d/edit", questionsPath, q.ID)
	f := questionForm(fmt.Sprintf("Edit Question #%d", q.ID), path, path, false)
	f.Cancel = fmt.Sprintf("%s/%d", questionsPath, q.ID)
	if err := f.Bind(r); err != nil {
		a.uploadFailed(w, r, f, err)
		return
	}

	data, err := questionData(f)
	if err != nil {
		a.questionPage(w, r, f.Fail(err), false)
		return
	}
	image, solution, err := a.uploads(r, f)
	if err != nil {
		a.questionPage(w, r, f.Fail(err), false)
		return
	}

	update := models.NewQuestionUpdate(data, q, image != nil, solution != nil)
	if err := c.UpdateQuestion(r.Context(), q.ID, update, image, solution); err != nil {
		if a.expired(w, r, err) {
			return
		}
		f.Error = failure(r, "update question", err)
		a.questionPage(w, r, f, false)
		return
	}

	a.archiveUploads(r, q.ID, image, solution)
	a.record(r, "update", "question", strconv.Itoa(q.ID), "")
	done(w, r, fmt.Sprintf("%s/%d", questionsPath, q.ID), "Question updated.")
}

// QuestionDelete deletes a question after confirmation.
func (a *Admin) QuestionDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	a.remove(w, r, deletion{
		section: "questions",
		title:   "Delete question",
		message: fmt.Sprintf("Delete question #%d with its images?", id),
		back:    questionsPath,
		entity:  "question",
		id:      strconv.Itoa(id),
		success: fmt.Sprintf("Question #%d deleted.", id),
		run:     func(ctx context.Context, c *api.Client) error { return c.DeleteQuestion(ctx, id) },
	})
}

// questionPage fetches the catalog and publishers, fills the selects and
// renders f. defaults preselects the default publisher.
func (a *Admin) questionPage(w http.ResponseWriter, r *http.Request, f *forms.Form, defaults bool) {
	records, publishers, err := a.catalogAndPublishers(r, a.client(r))
	if err != nil {
		if a.expired(w, r, err) {
			return
		}
		if f.Error == "" {
			f.Error = failure(r, "load question form", err)
		}
	}
	if defaults {
		if _, ok := models.FindPublisher(publishers, models.DefaultPublisherID); ok {
			f.Set("publisher_id", strconv.Itoa(models.DefaultPublisherID))
		}
	}
	questionOptions(f, records, publishers)
	a.form(w, r, "questions", f)
}

// uploadFailed answers a request whose body could not be parsed.
func (a *Admin) uploadFailed(w http.ResponseWriter, r *http.Request, f *forms.Form, err error) {
	var tooBig *http.MaxBytesError
	if !errors.As(err, &tooBig) {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	f.Error = fmt.Sprintf("Uploads are limited to %d MB per image.", imaging.MaxUploadSize>>20)
	a.questionPage(w, r, f, false)
}

// uploads reads and prepares the two image inputs. Absent files are nil.
func (a *Admin) uploads(r *http.Request, f *forms.Form) (image, solution *api.File, err error) {
	if image, err = a.upload(r, f, "question_image", "Question image"); err != nil {
		return nil, nil, err
	}
	if solution, err = a.upload(r, f, "solution_image", "Solution image"); err != nil {
		return nil, nil, err
	}
	return image, solution, nil
}

func (a *Admin) upload(r *http.Request, f *forms.Form, field, label string) (*api.File, error) {
	if !f.HasFile(field) {
		return nil, nil
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("%s could not be read.", label)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, imaging.MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("%s could not be read.", label)
	}

	img, err := imaging.Prepare(header.Filename, data, a.imageMaxWidth)
	switch {
	case errors.Is(err, imaging.ErrTooLarge):
		return nil, fmt.Errorf("%s is too large (max %d MB and %d megapixels).", label, imaging.MaxUploadSize>>20, imaging.MaxPixels/1_000_000)
	case errors.Is(err, imaging.ErrUnsupported):
		return nil, fmt.Errorf("%s must be a PNG, JPEG, GIF or WebP image.", label)
	case err != nil:
		slog.Error("prepare image failed", "field", field, "error", err)
		return nil, fmt.Errorf("%s could not be processed.", label)
	}
	if img.Resized {
		slog.Info("image downscaled", "field", field, "width", img.Width, "height", img.Height,
			"request_id", middleware.RequestIDFromCtx(r.Context()))
	}
	return &api.File{Filename: img.Filename, ContentType: img.ContentType, Data: img.Data}, nil
}

// archiveUploads copies accepted uploads to the archive bucket. Failures
// are only logged since the upstream write has already succeeded.
func (a *Admin) archiveUploads(r *http.Request, questionID int, image, solution *api.File) {
	if a.archive == nil {
		return
	}
	now := time.Now()
	for field, file := range map[string]*api.File{"question_image": image, "solution_image": solution} {
		if file == nil {
			continue
		}
		key := storage.QuestionKey(questionID, field, file.Filename, now)
		if err := a.archive.Put(r.Context(), key, file.ContentType, file.Data); err != nil {
			slog.Warn("archive image failed", "key", key, "error", err,
				"request_id", middleware.RequestIDFromCtx(r.Context()))
		}
	}
}
