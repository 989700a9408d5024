// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package catalog derives lookup structures from the category tree and the
// question list after they have been fetched. Every function is pure and
// synchronous; none of them talk to the network.
package catalog

import "qbadmin/internal/models"

// Record is one (main category, sub-category) pair with the sub-category's
// leaf topics. It is the unit selection controls and filters work on.
type Record struct {
	MainCategoryID   int
	MainCategoryName string
	SubCategoryID    int
	SubCategoryName  string
	LeafCategories   []models.Category
}

// Flatten turns the nested category payload into one Record per
// (main, sub) pair, in input order. A sub-category without leaves still
// gets a record, with an empty leaf list.
func Flatten(mains []models.MainCategory) []Record {
	records := make([]Record, 0, models.SubCategoryCount(mains))
	for _, m := range mains {
		for _, s := range m.SubCategories {
			leaves := make([]models.Category, len(s.Categories))
			copy(leaves, s.Categories)
			records = append(records, Record{
				MainCategoryID:   m.ID,
				MainCategoryName: m.Name,
				SubCategoryID:    s.ID,
				SubCategoryName:  s.Name,
				LeafCategories:   leaves,
			})
		}
	}
	return records
}

// MainNames returns the distinct main category names in first-seen order.
// Names are compared case-sensitively.
func MainNames(records []Record) []string {
	seen := make(map[string]bool)
	var names []string
	for _, r := range records {
		if seen[r.MainCategoryName] {
			continue
		}
		seen[r.MainCategoryName] = true
		names = append(names, r.MainCategoryName)
	}
	return names
}

// SubNames returns the distinct sub-category names under main.
func SubNames(records []Record, main string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, r := range records {
		if r.MainCategoryName != main || seen[r.SubCategoryName] {
			continue
		}
		seen[r.SubCategoryName] = true
		names = append(names, r.SubCategoryName)
	}
	return names
}

// ForMain returns the records belonging to main, in order.
func ForMain(records []Record, main string) []Record {
	var out []Record
	for _, r := range records {
		if r.MainCategoryName == main {
			out = append(out, r)
		}
	}
	return out
}

// FindRecord looks up the record for a (main, sub) name pair.
func FindRecord(records []Record, main, sub string) (Record, bool) {
	for _, r := range records {
		if r.MainCategoryName == main && r.SubCategoryName == sub {
			return r, true
		}
	}
	return Record{}, false
}

// RecordBySubID looks up the record for a sub-category ID.
func RecordBySubID(records []Record, subID int) (Record, bool) {
	for _, r := range records {
		if r.SubCategoryID == subID {
			return r, true
		}
	}
	return Record{}, false
}

// Leaves returns the leaf categories of a sub-category, or an empty list
// when the ID is unknown.
func Leaves(records []Record, subID int) []models.Category {
	r, ok := RecordBySubID(records, subID)
	if !ok {
		return []models.Category{}
	}
	return r.LeafCategories
}

// LeafName resolves a leaf ID to its name across the whole tree.
func LeafName(records []Record, id int) (string, bool) {
	for _, r := range records {
		for _, c := range r.LeafCategories {
			if c.ID == id {
				return c.Name, true
			}
		}
	}
	return "", false
}
