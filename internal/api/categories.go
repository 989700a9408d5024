// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"qbadmin/internal/models"
)

const categoriesPath = "/admin/categories"

type nameRequest struct {
	Name string `json:"name"`
}

type leavesRequest struct {
	Categories []string `json:"categories"`
}

// CategoryTreeJSON returns the raw data of GET /admin/categories/all so
// callers can memoize the flattened tree by payload.
func (c *Client) CategoryTreeJSON(ctx context.Context) (json.RawMessage, error) {
	return c.getRaw(ctx, categoriesPath+"/all")
}

// CategoryTree returns the full main → sub → leaf tree.
func (c *Client) CategoryTree(ctx context.Context) ([]models.MainCategory, error) {
	var mains []models.MainCategory
	if err := c.get(ctx, categoriesPath+"/all", &mains); err != nil {
		return nil, err
	}
	return mains, nil
}

// Categories returns the category listing used by the question screens.
func (c *Client) Categories(ctx context.Context) ([]models.MainCategory, error) {
	var mains []models.MainCategory
	if err := c.get(ctx, categoriesPath, &mains); err != nil {
		return nil, err
	}
	return mains, nil
}

// CreateCategoryHierarchy creates a main category with its sub-categories
// and leaves in one call.
func (c *Client) CreateCategoryHierarchy(ctx context.Context, h models.CategoryHierarchy) error {
	return c.send(ctx, http.MethodPost, categoriesPath, h, nil, categoriesPath)
}

// UpdateMainCategory renames a main category.
func (c *Client) UpdateMainCategory(ctx context.Context, id int, name string) error {
	return c.send(ctx, http.MethodPut, fmt.Sprintf("%s/main/%d", categoriesPath, id), nameRequest{Name: name}, nil, categoriesPath)
}

// DeleteMainCategory removes a main category and everything under it.
func (c *Client) DeleteMainCategory(ctx context.Context, id int) error {
	return c.send(ctx, http.MethodDelete, fmt.Sprintf("%s/main/%d", categoriesPath, id), nil, nil, categoriesPath)
}

// AddSubCategory adds a sub-category with its leaves under a main category.
func (c *Client) AddSubCategory(ctx context.Context, mainID int, g models.SubCategoryGroup) error {
	return c.send(ctx, http.MethodPost, fmt.Sprintf("%s/%d/sub", categoriesPath, mainID), g, nil, categoriesPath)
}

// UpdateSubCategory renames a sub-category.
func (c *Client) UpdateSubCategory(ctx context.Context, id int, name string) error {
	return c.send(ctx, http.MethodPut, fmt.Sprintf("%s/sub/%d", categoriesPath, id), nameRequest{Name: name}, nil, categoriesPath)
}

// DeleteSubCategory removes a sub-category and its leaves.
func (c *Client) DeleteSubCategory(ctx context.Context, id int) error {
	return c.send(ctx, http.MethodDelete, fmt.Sprintf("%s/sub/%d", categoriesPath, id), nil, nil, categoriesPath)
}

// AddLeafCategories appends leaves to a sub-category.
func (c *Client) AddLeafCategories(ctx context.Context, subID int, names []string) error {
	return c.send(ctx, http.MethodPost, fmt.Sprintf("%s/sub/%d/categories", categoriesPath, subID), leavesRequest{Categories: names}, nil, categoriesPath)
}

// UpdateLeafCategory renames a leaf.
func (c *Client) UpdateLeafCategory(ctx context.Context, subID, catID int, name string) error {
	return c.send(ctx, http.MethodPut, fmt.Sprintf("%s/sub/%d/category/%d", categoriesPath, subID, catID), nameRequest{Name: name}, nil, categoriesPath)
}

// DeleteLeafCategory removes a leaf. Questions tagged with it keep the
// stale ID.
func (c *Client) DeleteLeafCategory(ctx context.Context, subID, catID int) error {
	return c.send(ctx, http.MethodDelete, fmt.Sprintf("%s/sub/%d/category/%d", categoriesPath, subID, catID), nil, nil, categoriesPath)
}
