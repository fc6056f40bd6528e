package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookFromFields_CapitalizedSchema(t *testing.T) {
	b := BookFromFields("rec-1", map[string]any{
		"Title":  "Persuasion",
		"Author": "Jane Austen",
		"Genre":  "Romance",
	})

	assert.Equal(t, "rec-1", b.ID)
	assert.Equal(t, "Persuasion", b.Title)
	assert.Equal(t, "Jane Austen", b.Author)
	assert.Equal(t, "Romance", b.Genre)
	assert.Empty(t, b.Filename)
}

func TestBookFromFields_SnakeCaseSchema(t *testing.T) {
	b := BookFromFields("", map[string]any{
		"book_id":          "3f2a",
		"filename":         "Emma.pdf",
		"title":            "Emma",
		"author":           "Jane Austen",
		"publication_year": float64(1815),
		"tags":             []any{"classic", "", "regency"},
		"upload_date":      "2024-03-01T10:00:00",
		"created_at":       "2024-03-01T10:00:00.123456",
	})

	assert.Equal(t, "3f2a", b.ID)
	assert.Equal(t, "Emma.pdf", b.Filename)
	assert.Equal(t, 1815, b.PublicationYear)
	assert.Equal(t, []string{"classic", "regency"}, b.Tags)
	require.NotNil(t, b.UploadDate)
	assert.Equal(t, 2024, b.UploadDate.Year())
	assert.False(t, b.CreatedAt.IsZero())
}

func TestBookFromFields_StorageKeyWinsOverIDField(t *testing.T) {
	b := BookFromFields("Emma.pdf", map[string]any{"BookID": "b-17", "Title": "Emma"})
	assert.Equal(t, "Emma.pdf", b.ID)
}

func TestBookFromFields_LowercaseWinsOverCapitalized(t *testing.T) {
	b := BookFromFields("k", map[string]any{"title": "lower", "Title": "Upper"})
	assert.Equal(t, "lower", b.Title)
}

func TestBookFromFields_YearAsString(t *testing.T) {
	b := BookFromFields("k", map[string]any{"year": " 1999 "})
	assert.Equal(t, 1999, b.PublicationYear)

	b = BookFromFields("k", map[string]any{"year": "unknown"})
	assert.Zero(t, b.PublicationYear)
}

func TestBookUpdate_Apply(t *testing.T) {
	title := "Emma (Annotated)"
	year := 1816
	b := &Book{ID: "b1", Title: "Emma", Author: "Jane Austen"}
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	u := &BookUpdate{Title: &title, PublicationYear: &year, Tags: []string{"classic"}}
	require.False(t, u.IsEmpty())
	u.Apply(b, now)

	assert.Equal(t, "Emma (Annotated)", b.Title)
	assert.Equal(t, "Jane Austen", b.Author)
	assert.Equal(t, 1816, b.PublicationYear)
	assert.Equal(t, []string{"classic"}, b.Tags)
	assert.Equal(t, now, b.UpdatedAt)

	assert.True(t, (&BookUpdate{}).IsEmpty())
}

func TestBook_String(t *testing.T) {
	assert.Equal(t, `"Emma" by Jane Austen (b1)`, (&Book{ID: "b1", Title: "Emma", Author: "Jane Austen"}).String())
	assert.Equal(t, `"Emma" (b1)`, (&Book{ID: "b1", Title: "Emma"}).String())
}
