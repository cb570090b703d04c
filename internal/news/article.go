// Package news defines the article domain model and the homepage extractor.
package news

import (
	"time"
	"unicode/utf8"
)

// Limits enforced by the articles schema.
const (
	MaxTitleLen = 500
	MaxURLLen   = 1000
)

// Article is a stored news item. URL is globally unique; rows are append-only.
type Article struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// Candidate is a (title, url) pair extracted from a page, not yet confirmed
// as new relative to storage.
type Candidate struct {
	Title string
	URL   string
}

// Valid reports whether the candidate fits the schema limits.
func (c Candidate) Valid() bool {
	if c.Title == "" || c.URL == "" {
		return false
	}
	return utf8.RuneCountInString(c.Title) <= MaxTitleLen && len(c.URL) <= MaxURLLen
}
