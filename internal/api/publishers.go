// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package api

import (
	"context"
	"fmt"
	"net/http"

	"qbadmin/internal/models"
)

const publishersPath = "/admin/publishers"

// Publishers lists all publishers, protected ones included.
func (c *Client) Publishers(ctx context.Context) ([]models.Publisher, error) {
	var ps []models.Publisher
	if err := c.get(ctx, publishersPath, &ps); err != nil {
		return nil, err
	}
	return ps, nil
}

// CreatePublisher adds a publisher.
func (c *Client) CreatePublisher(ctx context.Context, in models.PublisherInput) error {
	return c.send(ctx, http.MethodPost, publishersPath, in, nil, publishersPath)
}

// UpdatePublisher replaces a publisher's name and website.
func (c *Client) UpdatePublisher(ctx context.Context, id int, in models.PublisherInput) error {
	return c.send(ctx, http.MethodPut, fmt.Sprintf("%s/%d", publishersPath, id), in, nil, publishersPath)
}

// DeletePublisher removes a publisher.
func (c *Client) DeletePublisher(ctx context.Context, id int) error {
	return c.send(ctx, http.MethodDelete, fmt.Sprintf("%s/%d", publishersPath, id), nil, nil, publishersPath)
}
