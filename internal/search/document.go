// Package search provides full-text search over the catalog using Bleve.
package search

import (
	"strings"

	"github.com/listenupapp/bookshelf-server/internal/domain"
)

// BookDocument is the indexed view of a catalog record.
type BookDocument struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Author          string   `json:"author,omitempty"`
	Genre           string   `json:"genre,omitempty"`
	Description     string   `json:"description,omitempty"`
	Filename        string   `json:"filename,omitempty"`
	Language        string   `json:"language,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	PublicationYear int      `json:"publication_year,omitempty"`
}

// BookToDocument flattens a record for indexing. Keyword fields are
// lowercased so filters are case-insensitive.
func BookToDocument(b *domain.Book) *BookDocument {
	tags := make([]string, 0, len(b.Tags))
	for _, t := range b.Tags {
		tags = append(tags, strings.ToLower(t))
	}
	return &BookDocument{
		ID:              b.ID,
		Title:           b.Title,
		Author:          b.Author,
		Genre:           strings.ToLower(b.Genre),
		Description:     b.Description,
		Filename:        b.Filename,
		Language:        strings.ToLower(b.Language),
		Tags:            tags,
		PublicationYear: b.PublicationYear,
	}
}

// ToMap converts the document so field names match the mapping exactly.
func (d *BookDocument) ToMap() map[string]any {
	m := map[string]any{
		"id":       d.ID,
		"title":    d.Title,
		"author":   d.Author,
		"genre":    d.Genre,
		"filename": d.Filename,
	}
	if d.Description != "" {
		m["description"] = d.Description
	}
	if d.Language != "" {
		m["language"] = d.Language
	}
	if len(d.Tags) > 0 {
		m["tags"] = d.Tags
	}
	if d.PublicationYear > 0 {
		m["publication_year"] = float64(d.PublicationYear)
	}
	return m
}
