// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

// Publisher is the organization a question is attributed to.
type Publisher struct {
	ID         int     `json:"id"`
	Name       string  `json:"name"`
	WebsiteURL *string `json:"website_url"`
	Protected  bool    `json:"protected,omitempty"`
}

// systemPublishers are the records the upstream treats as non-editable when
// it does not send an explicit protected flag.
var systemPublishers = map[string]bool{
	"Admin":   true,
	"Unknown": true,
}

// DefaultPublisherID is preselected on new questions (the Admin publisher).
const DefaultPublisherID = 2

// IsProtected reports whether the publisher may not be edited or deleted.
func (p Publisher) IsProtected() bool {
	return p.Protected || systemPublishers[p.Name]
}

// Website returns the website URL or "".
func (p Publisher) Website() string {
	if p.WebsiteURL == nil {
		return ""
	}
	return *p.WebsiteURL
}

// PublisherInput is the create/update payload. An empty website is sent as null.
type PublisherInput struct {
	Name       string  `json:"name" validate:"required"`
	WebsiteURL *string `json:"website_url"`
}

// NewPublisherInput builds the payload from raw form values.
func NewPublisherInput(name, website string) PublisherInput {
	in := PublisherInput{Name: name}
	if website != "" {
		in.WebsiteURL = &website
	}
	return in
}

// FindPublisher returns the publisher with the given ID.
func FindPublisher(publishers []Publisher, id int) (Publisher, bool) {
	for _, p := range publishers {
		if p.ID == id {
			return p, true
		}
	}
	return Publisher{}, false
}
