// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package catalog

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"qbadmin/internal/models"
)

// Locale is the collation used for names shown in selects and accordions.
var Locale = language.Turkish

// SortStrings returns a locale-sorted copy of names.
func SortStrings(names []string) []string {
	out := make([]string, len(names))
	copy(out, names)
	// Collators are not safe for concurrent use; build one per call.
	c := collate.New(Locale)
	sort.SliceStable(out, func(i, j int) bool { return c.CompareString(out[i], out[j]) < 0 })
	return out
}

// SortCategories returns a copy of leaves sorted by name.
func SortCategories(leaves []models.Category) []models.Category {
	out := make([]models.Category, len(leaves))
	copy(out, leaves)
	c := collate.New(Locale)
	sort.SliceStable(out, func(i, j int) bool { return c.CompareString(out[i].Name, out[j].Name) < 0 })
	return out
}
