package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/listenupapp/bookshelf-server/internal/classify"
	"github.com/listenupapp/bookshelf-server/internal/domain"
)

// Defaults for records derived from a filename.
const (
	DefaultLanguage = "English"
	UnknownAuthor   = "Unknown"
)

var yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// DetectYear returns the first 19xx or 20xx year in s, or 0.
func DetectYear(s string) int {
	m := yearPattern.FindString(s)
	if m == "" {
		return 0
	}
	year, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return year
}

// BookFromFilename builds an unsaved record from a filename using the full
// classifier.
func BookFromFilename(filename string) *domain.Book {
	n := classify.Classify(filename)
	title := n.Title
	if title == "" {
		title = strings.TrimSpace(classify.StripPDF(filename))
	}
	author := n.Author
	if author == "" {
		author = UnknownAuthor
	}
	return &domain.Book{
		Filename:        filename,
		Title:           title,
		Author:          author,
		Genre:           n.Genre,
		Language:        DefaultLanguage,
		Description:     describe(title, author),
		PublicationYear: DetectYear(classify.StripPDF(filename)),
	}
}

// BookFromObject is BookFromFilename for a listed source object: the key's
// prefix is dropped and the upload date comes from the object.
func BookFromObject(key, booksPrefix string, lastModified time.Time) *domain.Book {
	b := BookFromFilename(strings.TrimPrefix(key, booksPrefix))
	if !lastModified.IsZero() {
		t := lastModified.UTC()
		b.UploadDate = &t
	}
	return b
}

// TransientBook is the stand-in returned when no stored record matches. It
// uses the cheap two-pattern split and is flagged so clients can tell it
// apart from a stored record.
func TransientBook(filename string) *domain.Book {
	title, author := classify.TitleAuthor(filename)
	if author == classify.UnknownAuthor {
		author = UnknownAuthor
	}
	return &domain.Book{
		Filename:    filename,
		Title:       title,
		Author:      author,
		Genre:       classify.DefaultGenre,
		Language:    DefaultLanguage,
		Description: describe(title, author),
		Transient:   true,
	}
}

func describe(title, author string) string {
	return fmt.Sprintf("A digital copy of %s by %s", title, author)
}
