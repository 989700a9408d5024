// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package catalog

import (
	"sort"

	"qbadmin/internal/models"
)

// IDSet is a set of leaf category IDs.
type IDSet map[int]struct{}

// LeafIDs builds the ID set of a leaf list.
func LeafIDs(leaves []models.Category) IDSet {
	set := make(IDSet, len(leaves))
	for _, c := range leaves {
		set[c.ID] = struct{}{}
	}
	return set
}

// Intersects reports whether any of ids is in the set.
func (s IDSet) Intersects(ids []int) bool {
	for _, id := range ids {
		if _, ok := s[id]; ok {
			return true
		}
	}
	return false
}

// FilterBySubCategory returns the questions tagged with at least one of the
// given leaves, preserving input order. A question tagged under several
// sub-categories is returned for each of them.
func FilterBySubCategory(questions []models.Question, leaves []models.Category) []models.Question {
	return filterBySet(questions, LeafIDs(leaves))
}

func filterBySet(questions []models.Question, ids IDSet) []models.Question {
	out := []models.Question{}
	if len(ids) == 0 {
		return out
	}
	for _, q := range questions {
		if ids.Intersects(q.Categories) {
			out = append(out, q)
		}
	}
	return out
}

// MainLeafIDs unions the leaf IDs of every sub-category under main.
func MainLeafIDs(records []Record, main string) IDSet {
	set := make(IDSet)
	for _, r := range records {
		if r.MainCategoryName != main {
			continue
		}
		for _, c := range r.LeafCategories {
			set[c.ID] = struct{}{}
		}
	}
	return set
}

// CountForMain counts the distinct questions tagged anywhere under main.
// A question matching several sibling sub-categories is counted once.
func CountForMain(questions []models.Question, records []Record, main string) int {
	return len(filterBySet(questions, MainLeafIDs(records, main)))
}

// OwnerRecord returns the first record whose leaves intersect the
// question's tags. Edit forms use it to preselect main and sub.
func OwnerRecord(records []Record, q models.Question) (Record, bool) {
	for _, r := range records {
		if LeafIDs(r.LeafCategories).Intersects(q.Categories) {
			return r, true
		}
	}
	return Record{}, false
}

// SortByID returns a copy of questions ordered by ascending ID.
func SortByID(questions []models.Question) []models.Question {
	out := make([]models.Question, len(questions))
	copy(out, questions)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Group is a sub-category and the questions filed under it.
type Group struct {
	Record
	Questions []models.Question
}

// Section is a main category with its distinct question count and the
// per-sub-category groups.
type Section struct {
	Name   string
	Count  int
	Groups []Group
}

// Sections builds the question browser: one section per main category in
// the order of names, each group's questions sorted by ID.
func Sections(questions []models.Question, records []Record, names []string) []Section {
	sections := make([]Section, 0, len(names))
	for _, name := range names {
		sec := Section{Name: name, Count: CountForMain(questions, records, name)}
		for _, r := range ForMain(records, name) {
			sec.Groups = append(sec.Groups, Group{
				Record:    r,
				Questions: SortByID(FilterBySubCategory(questions, r.LeafCategories)),
			})
		}
		sections = append(sections, sec)
	}
	return sections
}
