// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Difficulty is the form-side difficulty code.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
)

// Difficulties lists the codes in display order.
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// difficultyLabels maps form codes to the labels the upstream API stores.
var difficultyLabels = map[Difficulty]string{
	DifficultyEasy:   "Kolay",
	DifficultyMedium: "Orta",
	DifficultyHard:   "Zor",
}

// Label returns the upstream label for d, or "" for an unknown code.
func (d Difficulty) Label() string {
	return difficultyLabels[d]
}

// Valid reports whether d is one of the known codes.
func (d Difficulty) Valid() bool {
	_, ok := difficultyLabels[d]
	return ok
}

// ParseDifficultyLabel maps an upstream label back to its code.
func ParseDifficultyLabel(label string) (Difficulty, error) {
	for code, l := range difficultyLabels {
		if l == label {
			return code, nil
		}
	}
	return "", fmt.Errorf("unknown difficulty label %q", label)
}

// Question is a single exam question as listed by GET /questions.
// Categories holds leaf category IDs.
type Question struct {
	ID              int       `json:"id"`
	Answer          string    `json:"answer"`
	DifficultyLevel string    `json:"difficulty_level"`
	Categories      []int     `json:"categories"`
	PublisherID     int       `json:"publisher_id"`
	PathURL         string    `json:"path_url"`
	SolutionURL     string    `json:"solution_url"`
	Popularity      int       `json:"popularity"`
	CreatedAt       Timestamp `json:"created_at"`
	UpdatedAt       Timestamp `json:"updated_at"`
}

// timestampLayouts are tried in order when decoding a Timestamp. Layouts
// without a zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Timestamp is an upstream time value. Decoding never fails: null, empty
// and unrecognized values leave it zero so one odd row cannot break a
// whole listing.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	t.Time = time.Time{}
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil || raw == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if v, err := time.Parse(layout, raw); err == nil {
			t.Time = v
			return nil
		}
	}
	return nil
}

// HasSolution reports whether a solution image is attached.
func (q Question) HasSolution() bool {
	return q.SolutionURL != ""
}

// DifficultyCode returns the form code for the question's stored label,
// defaulting to MEDIUM when the label is unknown.
func (q Question) DifficultyCode() Difficulty {
	d, err := ParseDifficultyLabel(q.DifficultyLevel)
	if err != nil {
		return DifficultyMedium
	}
	return d
}

// QuestionData is the JSON "data" field of the multipart create payload.
type QuestionData struct {
	Answer          string `json:"answer"`
	PublisherID     int    `json:"publisher_id"`
	DifficultyLevel string `json:"difficulty_level"`
	CategoryIDs     []int  `json:"category_ids"`
}

// QuestionUpdate is the "data" field of an update. A nil URL is sent as
// null and tells the server a replacement file accompanies the request.
type QuestionUpdate struct {
	QuestionData
	PathURL     *string `json:"path_url"`
	SolutionURL *string `json:"solution_url"`
}

// NewQuestionUpdate keeps the existing image URLs of q unless a
// replacement file is being uploaded.
func NewQuestionUpdate(data QuestionData, q Question, newImage, newSolution bool) QuestionUpdate {
	u := QuestionUpdate{QuestionData: data}
	if !newImage {
		path := q.PathURL
		u.PathURL = &path
	}
	if !newSolution && q.SolutionURL != "" {
		sol := q.SolutionURL
		u.SolutionURL = &sol
	}
	return u
}
