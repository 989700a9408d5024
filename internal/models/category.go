// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package models defines the question-bank entities as the upstream API
// serves them. The dashboard only ever holds transient copies.
package models

import "encoding/json"

// MainCategory is the top level of the taxonomy (usually an exam name).
type MainCategory struct {
	ID            int           `json:"id"`
	Name          string        `json:"name"`
	SubCategories []SubCategory `json:"sub_categories"`
}

// UnmarshalJSON accepts the name under either "name" or "main_category";
// the listing and the tree endpoints disagree on the key.
func (m *MainCategory) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID            int           `json:"id"`
		Name          string        `json:"name"`
		MainCategory  string        `json:"main_category"`
		SubCategories []SubCategory `json:"sub_categories"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	m.ID = raw.ID
	m.Name = raw.Name
	if m.Name == "" {
		m.Name = raw.MainCategory
	}
	m.SubCategories = raw.SubCategories
	return nil
}

// SubCategory groups leaf topics under one main category.
type SubCategory struct {
	ID         int        `json:"id"`
	Name       string     `json:"sub_category"`
	Categories []Category `json:"categories"`
}

// UnmarshalJSON accepts the name under either "sub_category" or "name".
func (s *SubCategory) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID          int        `json:"id"`
		Name        string     `json:"name"`
		SubCategory string     `json:"sub_category"`
		Categories  []Category `json:"categories"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	s.ID = raw.ID
	s.Name = raw.SubCategory
	if s.Name == "" {
		s.Name = raw.Name
	}
	s.Categories = raw.Categories
	return nil
}

// Category is a leaf topic. Questions reference leaves by ID.
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// CategoryHierarchy is the create payload for a whole main category with
// its sub-categories and leaf names.
type CategoryHierarchy struct {
	MainCategory  string             `json:"main_category" validate:"required"`
	SubCategories []SubCategoryGroup `json:"sub_categories" validate:"required,min=1,dive"`
}

// SubCategoryGroup is one sub-category with its leaf names, as sent on create.
type SubCategoryGroup struct {
	SubCategory string   `json:"sub_category" validate:"required"`
	Categories  []string `json:"categories" validate:"dive,required"`
}

// SubCategoryCount returns the number of sub-categories across mains.
func SubCategoryCount(mains []MainCategory) int {
	n := 0
	for _, m := range mains {
		n += len(m.SubCategories)
	}
	return n
}
