// Package backfill creates metadata records for book sources that have none,
// and snapshots or restores the catalog around such runs.
package backfill

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/listenupapp/bookshelf-server/internal/domain"
	"github.com/listenupapp/bookshelf-server/internal/logger"
	"github.com/listenupapp/bookshelf-server/internal/metrics"
	"github.com/listenupapp/bookshelf-server/internal/objectstore"
	"github.com/listenupapp/bookshelf-server/internal/service"
)

// Records is the metadata store surface used by backfill.
type Records interface {
	CreateBookIfAbsent(ctx context.Context, book *domain.Book) (bool, error)
	PutBook(ctx context.Context, book *domain.Book) error
	ScanBooks(ctx context.Context, fn func(*domain.Book) bool) error
}

// Objects lists stored sources.
type Objects interface {
	List(ctx context.Context, prefix string) ([]objectstore.ObjectInfo, error)
}

// Runner walks the books prefix and reconciles it with the store.
type Runner struct {
	records     Records
	objects     Objects
	booksPrefix string
	logger      *slog.Logger
}

// NewRunner creates a backfill runner.
func NewRunner(records Records, objects Objects, booksPrefix string, log *slog.Logger) *Runner {
	return &Runner{
		records:     records,
		objects:     objects,
		booksPrefix: booksPrefix,
		logger:      logger.OrDiscard(log),
	}
}

// Report summarizes a run.
type Report struct {
	Listed  int
	Created int
	Skipped int
	Failed  int
	DryRun  bool

	// Planned holds the derived records, written or not.
	Planned []*domain.Book
	Errors  []error
}

// Run derives a record for every source object and stores it unless one
// already exists for the filename. With dryRun nothing is written and every
// derived record is reported as planned.
func (r *Runner) Run(ctx context.Context, dryRun bool) (*Report, error) {
	sources, err := r.sources(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{Listed: len(sources), DryRun: dryRun}
	for _, obj := range sources {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		book := service.BookFromObject(obj.Key, r.booksPrefix, obj.LastModified)
		report.Planned = append(report.Planned, book)
		if dryRun {
			r.logger.Info("would create record", "filename", book.Filename, "book", book.String())
			continue
		}

		created, err := r.records.CreateBookIfAbsent(ctx, book)
		switch {
		case err != nil:
			report.Failed++
			report.Errors = append(report.Errors, fmt.Errorf("%s: %w", book.Filename, err))
			metrics.BackfillRecords.WithLabelValues("failed").Inc()
			r.logger.Error("backfill failed", "filename", book.Filename, "error", err)
		case created:
			report.Created++
			metrics.BackfillRecords.WithLabelValues("created").Inc()
			r.logger.Info("record created", "filename", book.Filename, "book", book.String())
		default:
			report.Skipped++
			metrics.BackfillRecords.WithLabelValues("skipped").Inc()
			r.logger.Debug("record exists", "filename", book.Filename)
		}
	}

	r.logger.Info("backfill complete",
		"listed", report.Listed,
		"created", report.Created,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"dry_run", dryRun,
	)
	return report, nil
}

// Drift lists the filenames present on one side only.
type Drift struct {
	// Missing are sources with no record.
	Missing []string
	// Extra are records whose source is gone.
	Extra []string
}

// InSync reports whether store and bucket agree.
func (d *Drift) InSync() bool {
	return len(d.Missing) == 0 && len(d.Extra) == 0
}

// Verify compares record filenames with the source listing. Records without
// a filename cannot be matched and are ignored.
func (r *Runner) Verify(ctx context.Context) (*Drift, error) {
	sources, err := r.sources(ctx)
	if err != nil {
		return nil, err
	}
	listed := make(map[string]bool, len(sources))
	for _, obj := range sources {
		listed[strings.TrimPrefix(obj.Key, r.booksPrefix)] = true
	}

	stored := make(map[string]bool)
	drift := &Drift{}
	err = r.records.ScanBooks(ctx, func(b *domain.Book) bool {
		if b.Filename == "" {
			return true
		}
		stored[b.Filename] = true
		if !listed[b.Filename] {
			drift.Extra = append(drift.Extra, b.Filename)
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("scan records: %w", err)
	}

	for name := range listed {
		if !stored[name] {
			drift.Missing = append(drift.Missing, name)
		}
	}
	slices.Sort(drift.Missing)
	slices.Sort(drift.Extra)
	return drift, nil
}

// sources lists book objects, skipping directory markers.
func (r *Runner) sources(ctx context.Context) ([]objectstore.ObjectInfo, error) {
	objs, err := r.objects.List(ctx, r.booksPrefix)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", r.booksPrefix, err)
	}
	out := objs[:0]
	for _, obj := range objs {
		if strings.HasSuffix(obj.Key, "/") || obj.Key == r.booksPrefix {
			continue
		}
		out = append(out, obj)
	}
	return out, nil
}
