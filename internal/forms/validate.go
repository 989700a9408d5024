// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package forms

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ErrRequired is wrapped by every presence failure.
var ErrRequired = errors.New("required field missing")

// FieldError names the field that failed validation.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string { return e.Message }

func (e *FieldError) Unwrap() error { return ErrRequired }

func required(field, label string) *FieldError {
	if label == "" {
		label = humanize(field)
	}
	return &FieldError{Field: field, Message: label + " is required."}
}

// labels overrides the generated label for payload fields whose JSON name
// reads badly.
var labels = map[string]string{
	"main_category":    "Main category name",
	"sub_category":     "Sub-category name",
	"sub_categories":   "At least one sub-category",
	"categories":       "Every leaf category name",
	"current_password": "Current password",
	"new_password":     "New password",
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Check validates a typed payload by its `validate` tags and reports the
// first failure as a *FieldError.
func Check(v any) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validating %T: %w", v, err)
	}
	fe := verrs[0]
	name := fe.Field()
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	return required(name, labels[name])
}

func humanize(name string) string {
	s := strings.ReplaceAll(name, "_", " ")
	if s == "" {
		return "Field"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
