package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/listenupapp/bookshelf-server/internal/domain"
	"github.com/listenupapp/bookshelf-server/internal/logger"
	"github.com/listenupapp/bookshelf-server/internal/metrics"
	"github.com/listenupapp/bookshelf-server/internal/service"
)

// Records creates metadata records for new sources.
type Records interface {
	CreateBookIfAbsent(ctx context.Context, book *domain.Book) (bool, error)
}

// Indexer adds a created record to the search index.
type Indexer interface {
	IndexBook(b *domain.Book) error
}

// Cataloger turns files settling under the books directory into records.
type Cataloger struct {
	records     Records
	index       Indexer
	booksDir    string
	booksPrefix string
	logger      *slog.Logger
}

// NewCataloger creates a cataloger for files under booksDir, the on-disk
// location of booksPrefix. index may be nil.
func NewCataloger(records Records, index Indexer, booksDir, booksPrefix string, log *slog.Logger) *Cataloger {
	return &Cataloger{
		records:     records,
		index:       index,
		booksDir:    filepath.Clean(booksDir),
		booksPrefix: booksPrefix,
		logger:      logger.OrDiscard(log),
	}
}

// Run handles events until ctx is cancelled or events is closed.
func (c *Cataloger) Run(ctx context.Context, events <-chan Event, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := c.Handle(ctx, event); err != nil {
				c.logger.Warn("failed to process event",
					"error", err,
					"type", event.Type,
					"path", event.Path,
				)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			c.logger.Warn("file watcher error", "error", err)
		}
	}
}

// Handle creates a record for an added source unless one exists for its
// filename. Removals leave records in place.
func (c *Cataloger) Handle(ctx context.Context, event Event) error {
	if event.Type != EventAdded {
		metrics.WatcherEvents.WithLabelValues("ignored").Inc()
		c.logger.Debug("source removed", "path", event.Path)
		return nil
	}

	key, ok := c.objectKey(event.Path)
	if !ok {
		metrics.WatcherEvents.WithLabelValues("ignored").Inc()
		return nil
	}

	book := service.BookFromObject(key, c.booksPrefix, event.ModTime)
	created, err := c.records.CreateBookIfAbsent(ctx, book)
	if err != nil {
		metrics.WatcherEvents.WithLabelValues("failed").Inc()
		return fmt.Errorf("create record for %s: %w", book.Filename, err)
	}
	if !created {
		metrics.WatcherEvents.WithLabelValues("skipped").Inc()
		c.logger.Debug("record exists", "filename", book.Filename)
		return nil
	}

	metrics.WatcherEvents.WithLabelValues("created").Inc()
	c.logger.Info("record created", "filename", book.Filename, "book", book.String())

	if c.index != nil {
		if err := c.index.IndexBook(book); err != nil {
			c.logger.Warn("failed to index new record", "filename", book.Filename, "error", err)
		}
	}
	return nil
}

// objectKey maps a path under booksDir to its object key.
func (c *Cataloger) objectKey(path string) (string, bool) {
	rel, err := filepath.Rel(c.booksDir, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return c.booksPrefix + filepath.ToSlash(rel), true
}
