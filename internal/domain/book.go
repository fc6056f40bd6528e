// Package domain contains the catalog entities shared by the store, resolver
// and HTTP layers.
package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Book is a metadata record for one file in the object store.
type Book struct {
	ID              string     `json:"id"`
	Filename        string     `json:"filename,omitempty"`
	Title           string     `json:"title"`
	Author          string     `json:"author,omitempty"`
	Genre           string     `json:"genre,omitempty"`
	Description     string     `json:"description,omitempty"`
	Language        string     `json:"language,omitempty"`
	PublicationYear int        `json:"publication_year,omitempty"`
	ISBN            string     `json:"isbn,omitempty"`
	Tags            []string   `json:"tags,omitempty"`
	SourceURL       string     `json:"source_url,omitempty"`
	UploadDate      *time.Time `json:"upload_date,omitempty"`
	CreatedAt       time.Time  `json:"created_at,omitzero"`
	UpdatedAt       time.Time  `json:"updated_at,omitzero"`

	// Transient marks a record derived from the filename that was never stored.
	Transient bool `json:"transient,omitempty"`
}

// String implements fmt.Stringer for log output.
func (b *Book) String() string {
	if b.Author == "" {
		return fmt.Sprintf("%q (%s)", b.Title, b.ID)
	}
	return fmt.Sprintf("%q by %s (%s)", b.Title, b.Author, b.ID)
}

// BookUpdate carries the mutable fields of a record. Nil fields are left alone.
type BookUpdate struct {
	Title           *string  `json:"title,omitempty" validate:"omitempty,min=1,max=500"`
	Author          *string  `json:"author,omitempty" validate:"omitempty,max=300"`
	Genre           *string  `json:"genre,omitempty" validate:"omitempty,max=100"`
	Description     *string  `json:"description,omitempty" validate:"omitempty,max=10000"`
	Language        *string  `json:"language,omitempty" validate:"omitempty,max=50"`
	PublicationYear *int     `json:"publication_year,omitempty" validate:"omitempty,min=0,max=2200"`
	ISBN            *string  `json:"isbn,omitempty" validate:"omitempty,max=20"`
	Tags            []string `json:"tags,omitempty" validate:"omitempty,max=50,dive,min=1,max=50"`
}

// IsEmpty reports whether the update changes nothing.
func (u *BookUpdate) IsEmpty() bool {
	return u.Title == nil && u.Author == nil && u.Genre == nil && u.Description == nil &&
		u.Language == nil && u.PublicationYear == nil && u.ISBN == nil && u.Tags == nil
}

// Apply copies the set fields onto b and stamps UpdatedAt.
func (u *BookUpdate) Apply(b *Book, now time.Time) {
	if u.Title != nil {
		b.Title = *u.Title
	}
	if u.Author != nil {
		b.Author = *u.Author
	}
	if u.Genre != nil {
		b.Genre = *u.Genre
	}
	if u.Description != nil {
		b.Description = *u.Description
	}
	if u.Language != nil {
		b.Language = *u.Language
	}
	if u.PublicationYear != nil {
		b.PublicationYear = *u.PublicationYear
	}
	if u.ISBN != nil {
		b.ISBN = *u.ISBN
	}
	if u.Tags != nil {
		b.Tags = u.Tags
	}
	b.UpdatedAt = now
}

// Field aliases seen across deployments. The first present alias wins.
var (
	idFields          = []string{"id", "book_id", "BookID", "record_id", "recordId"}
	filenameFields    = []string{"filename", "Filename", "file_name", "FileName"}
	titleFields       = []string{"title", "Title"}
	authorFields      = []string{"author", "Author"}
	genreFields       = []string{"genre", "Genre"}
	descriptionFields = []string{"description", "Description"}
	languageFields    = []string{"language", "Language"}
	yearFields        = []string{"publication_year", "PublicationYear", "year", "Year"}
	isbnFields        = []string{"isbn", "ISBN"}
	tagFields         = []string{"tags", "Tags"}
	sourceFields      = []string{"source_url", "sourceFileUrl", "s3_url", "S3Url", "file_url"}
	uploadFields      = []string{"upload_date", "uploadDate", "UploadDate"}
	createdFields     = []string{"created_at", "CreatedAt"}
	updatedFields     = []string{"updated_at", "UpdatedAt"}
)

// BookFromFields builds a Book from a loosely-typed record, tolerating the
// capitalized and snake_case field names of older writers. key is the storage
// key and always becomes the ID, so a record is fetched and rewritten under
// the key it was found at; an id field inside the record only counts when key
// is empty.
func BookFromFields(key string, fields map[string]any) *Book {
	b := &Book{
		ID:          key,
		Filename:    firstString(fields, filenameFields),
		Title:       firstString(fields, titleFields),
		Author:      firstString(fields, authorFields),
		Genre:       firstString(fields, genreFields),
		Description: firstString(fields, descriptionFields),
		Language:    firstString(fields, languageFields),
		ISBN:        firstString(fields, isbnFields),
		SourceURL:   firstString(fields, sourceFields),
		Tags:        firstStrings(fields, tagFields),
		CreatedAt:   firstTime(fields, createdFields),
		UpdatedAt:   firstTime(fields, updatedFields),
	}
	if b.ID == "" {
		b.ID = firstString(fields, idFields)
	}
	b.PublicationYear = firstInt(fields, yearFields)
	if t := firstTime(fields, uploadFields); !t.IsZero() {
		b.UploadDate = &t
	}
	return b
}

func lookup(fields map[string]any, names []string) (any, bool) {
	for _, n := range names {
		if v, ok := fields[n]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func firstString(fields map[string]any, names []string) string {
	v, ok := lookup(fields, names)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

func firstInt(fields map[string]any, names []string) int {
	v, ok := lookup(fields, names)
	if !ok {
		return 0
	}
	switch t := v.(type) {
	case float64:
		return int(t)
	case int:
		return t
	case int64:
		return int(t)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

func firstStrings(fields map[string]any, names []string) []string {
	v, ok := lookup(fields, names)
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if t == "" {
			return nil
		}
		return strings.Split(t, ",")
	default:
		return nil
	}
}

func firstTime(fields map[string]any, names []string) time.Time {
	s := firstString(fields, names)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
