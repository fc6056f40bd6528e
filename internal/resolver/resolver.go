// Package resolver finds the stored metadata record for a book filename.
package resolver

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/listenupapp/bookshelf-server/internal/classify"
	"github.com/listenupapp/bookshelf-server/internal/domain"
	domainerrors "github.com/listenupapp/bookshelf-server/internal/errors"
	"github.com/listenupapp/bookshelf-server/internal/logger"
	"github.com/listenupapp/bookshelf-server/internal/metrics"
)

// minWordLen is the length a title or author word must exceed to be used as
// a fallback search key.
const minWordLen = 2

// Records is the subset of the record store the resolver reads.
type Records interface {
	GetBookByFilename(ctx context.Context, filename string) (*domain.Book, error)
	ScanBooks(ctx context.Context, fn func(*domain.Book) bool) error
}

// Resolver maps a filename to a stored record.
type Resolver struct {
	records Records
	logger  *slog.Logger
}

// New creates a Resolver over records.
func New(records Records, log *slog.Logger) *Resolver {
	return &Resolver{
		records: records,
		logger:  logger.OrDiscard(log),
	}
}

// Resolve returns the record for filename, or nil when none matches.
// Store failures are logged and reported as no match.
//
// The direct lookup is tried first. Otherwise the filename is classified and
// the store is scanned for a record whose title or author contains either the
// parsed token or its first significant word. The first match in scan order
// wins.
func (r *Resolver) Resolve(ctx context.Context, filename string) *domain.Book {
	book, err := r.records.GetBookByFilename(ctx, filename)
	switch {
	case err == nil && book != nil:
		metrics.ResolverLookups.WithLabelValues("direct").Inc()
		return book
	case err != nil && !errors.Is(err, domainerrors.ErrNotFound):
		r.logger.Warn("direct record lookup failed",
			"filename", filename,
			"error", err,
		)
		metrics.ResolverLookups.WithLabelValues("error").Inc()
		return nil
	}

	name := classify.Classify(filename)
	q := newQuery(name)
	if q.empty() {
		metrics.ResolverLookups.WithLabelValues("empty").Inc()
		return nil
	}

	var found *domain.Book
	err = r.records.ScanBooks(ctx, func(b *domain.Book) bool {
		if q.matches(b) {
			found = b
			return false
		}
		return true
	})
	if err != nil {
		r.logger.Warn("record scan failed",
			"filename", filename,
			"error", err,
		)
		metrics.ResolverLookups.WithLabelValues("error").Inc()
		return nil
	}

	if found == nil {
		metrics.ResolverLookups.WithLabelValues("miss").Inc()
		return nil
	}

	r.logger.Debug("resolved record by scan",
		"filename", filename,
		"book_id", found.ID,
		"rule", name.Rule,
	)
	metrics.ResolverLookups.WithLabelValues("scan").Inc()
	return found
}

// query holds lowercased search keys derived from a classified name.
type query struct {
	title, titleWord   string
	author, authorWord string
}

func newQuery(n classify.Name) query {
	title := strings.ToLower(strings.TrimSpace(n.Title))
	author := strings.ToLower(strings.TrimSpace(n.Author))
	return query{
		title:      title,
		titleWord:  firstWord(title),
		author:     author,
		authorWord: firstWord(author),
	}
}

func (q query) empty() bool {
	return q.title == "" && q.author == ""
}

// matches is a disjunction: any key contained in the corresponding field is
// enough.
func (q query) matches(b *domain.Book) bool {
	title := strings.ToLower(b.Title)
	author := strings.ToLower(b.Author)
	return contains(title, q.title) ||
		contains(title, q.titleWord) ||
		contains(author, q.author) ||
		contains(author, q.authorWord)
}

func contains(field, key string) bool {
	return key != "" && field != "" && strings.Contains(field, key)
}

// firstWord returns the first whitespace-separated word longer than
// minWordLen, or "".
func firstWord(s string) string {
	for _, w := range strings.Fields(s) {
		if len([]rune(w)) > minWordLen {
			return w
		}
	}
	return ""
}
