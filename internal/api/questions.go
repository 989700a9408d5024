// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"qbadmin/internal/models"
)

const questionsPath = "/questions"

// File is an image attached to a question request.
type File struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Questions returns every question. Order is whatever the server sends.
func (c *Client) Questions(ctx context.Context) ([]models.Question, error) {
	var qs []models.Question
	if err := c.get(ctx, questionsPath, &qs); err != nil {
		return nil, err
	}
	return qs, nil
}

// CreateQuestion uploads a new question. The question image is required by
// the server; solution may be nil.
func (c *Client) CreateQuestion(ctx context.Context, data models.QuestionData, image, solution *File) error {
	return c.sendQuestion(ctx, http.MethodPost, "/admin/questions", data, image, solution)
}

// UpdateQuestion replaces a question. Images are only sent when replaced.
func (c *Client) UpdateQuestion(ctx context.Context, id int, data models.QuestionUpdate, image, solution *File) error {
	return c.sendQuestion(ctx, http.MethodPut, fmt.Sprintf("/admin/questions/%d", id), data, image, solution)
}

// DeleteQuestion removes a question.
func (c *Client) DeleteQuestion(ctx context.Context, id int) error {
	return c.send(ctx, http.MethodDelete, fmt.Sprintf("/admin/questions/%d", id), nil, nil, questionsPath)
}

func (c *Client) sendQuestion(ctx context.Context, method, path string, data any, image, solution *File) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := writeFile(mw, "question_image", image); err != nil {
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	if err := writeFile(mw, "solution_image", solution); err != nil {
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("api: %s %s: encode data: %w", method, path, err)
	}
	if err := mw.WriteField("data", string(payload)); err != nil {
		return fmt.Errorf("api: %s %s: write data: %w", method, path, err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("api: %s %s: close multipart: %w", method, path, err)
	}

	if _, err := c.do(ctx, method, path, mw.FormDataContentType(), &buf); err != nil {
		return err
	}
	c.invalidate(ctx, questionsPath)
	return nil
}

func writeFile(mw *multipart.Writer, field string, f *File) error {
	if f == nil {
		return nil
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, f.Filename))
	ct := f.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)

	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create %s part: %w", field, err)
	}
	if _, err := part.Write(f.Data); err != nil {
		return fmt.Errorf("write %s: %w", field, err)
	}
	return nil
}
