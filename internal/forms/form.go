// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package forms describes dashboard forms as data. A single template renders
// any Form, so create and edit dialogs differ only in their field schema and
// the handler that receives the submission.
package forms

import (
	"net/http"
	"net/url"
	"strings"
)

// FieldType selects the input control rendered for a field.
type FieldType string

const (
	Text        FieldType = "text"
	Email       FieldType = "email"
	Password    FieldType = "password"
	URL         FieldType = "url"
	Textarea    FieldType = "textarea"
	File        FieldType = "file"
	Hidden      FieldType = "hidden"
	Radio       FieldType = "radio"
	Select      FieldType = "select"
	MultiSelect FieldType = "multiselect"
)

// Option is one choice of a select, multiselect or radio field.
type Option struct {
	Value string
	Label string
}

// Field is one input of a form.
type Field struct {
	Name        string
	Label       string
	Type        FieldType
	Required    bool
	Placeholder string
	Help        string
	Options     []Option

	// Reload re-renders the form with the current values when the field
	// changes. Cascading selects use it to narrow the next field's options.
	Reload bool
}

// Form is a titled set of fields posted to Action.
type Form struct {
	Title  string
	Action string
	Submit string
	Cancel string
	Fields []Field
	Values url.Values
	Error  string

	// ReloadURL receives the current values as a GET query when a Reload
	// field changes and answers with the re-rendered form.
	ReloadURL string

	files map[string]bool
}

// New creates a form with empty values.
func New(title, action, submit string, fields ...Field) *Form {
	if submit == "" {
		submit = "Save"
	}
	return &Form{
		Title:  title,
		Action: action,
		Submit: submit,
		Fields: fields,
		Values: url.Values{},
		files:  map[string]bool{},
	}
}

// Multipart reports whether the form carries a file input.
func (f *Form) Multipart() bool {
	for _, fd := range f.Fields {
		if fd.Type == File {
			return true
		}
	}
	return false
}

// Field returns the field named name.
func (f *Form) Field(name string) (*Field, bool) {
	for i := range f.Fields {
		if f.Fields[i].Name == name {
			return &f.Fields[i], true
		}
	}
	return nil, false
}

// SetOptions replaces the options of a select-like field.
func (f *Form) SetOptions(name string, opts []Option) {
	if fd, ok := f.Field(name); ok {
		fd.Options = opts
	}
}

// Set stores the value of a field, replacing any previous value.
func (f *Form) Set(name string, values ...string) *Form {
	f.Values[name] = values
	return f
}

// Value returns the first value of a field.
func (f *Form) Value(name string) string {
	return f.Values.Get(name)
}

// List returns every value of a field.
func (f *Form) List(name string) []string {
	return f.Values[name]
}

// Selected reports whether value is among the field's values.
func (f *Form) Selected(name, value string) bool {
	for _, v := range f.Values[name] {
		if v == value {
			return true
		}
	}
	return false
}

// HasFile reports whether a file was submitted for a file field.
func (f *Form) HasFile(name string) bool {
	return f.files[name]
}

// Bind copies the submitted values of the form's fields from r. Text values
// are trimmed; empty entries of multi-valued fields are dropped.
func (f *Form) Bind(r *http.Request) error {
	if err := parse(r); err != nil {
		return err
	}
	for _, fd := range f.Fields {
		if fd.Type == File {
			if r.MultipartForm != nil {
				if hs := r.MultipartForm.File[fd.Name]; len(hs) > 0 && hs[0].Size > 0 {
					f.files[fd.Name] = true
				}
			}
			continue
		}

		var vals []string
		for _, v := range r.Form[fd.Name] {
			if fd.Type != Password && fd.Type != Textarea {
				v = strings.TrimSpace(v)
			}
			if fd.Type == MultiSelect && v == "" {
				continue
			}
			vals = append(vals, v)
		}
		if len(vals) == 0 {
			delete(f.Values, fd.Name)
			continue
		}
		f.Values[fd.Name] = vals
	}
	return nil
}

// Validate checks that every required field has a value and returns the
// first missing one as a *FieldError.
func (f *Form) Validate() error {
	for _, fd := range f.Fields {
		if !fd.Required {
			continue
		}
		missing := false
		switch fd.Type {
		case File:
			missing = !f.files[fd.Name]
		case MultiSelect:
			missing = len(f.Values[fd.Name]) == 0
		default:
			missing = strings.TrimSpace(f.Value(fd.Name)) == ""
		}
		if missing {
			return required(fd.Name, fd.Label)
		}
	}
	return nil
}

// Fail records err as the form's error message and returns the form.
func (f *Form) Fail(err error) *Form {
	if err != nil {
		f.Error = err.Error()
	}
	return f
}

func parse(r *http.Request) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if r.MultipartForm != nil {
			return nil
		}
		return r.ParseMultipartForm(maxMemory)
	}
	return r.ParseForm()
}

// maxMemory is how much of a multipart body is held in memory before
// spilling file parts to disk.
const maxMemory = 16 << 20
