package backfill

import (
	"context"
	"fmt"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/listenupapp/bookshelf-server/internal/domain"
)

// Row is one record in a parquet snapshot. Times are RFC 3339 strings so the
// file stays readable by tools without timestamp logical types.
type Row struct {
	ID              string   `parquet:"id"`
	Filename        string   `parquet:"filename,optional"`
	Title           string   `parquet:"title"`
	Author          string   `parquet:"author,optional"`
	Genre           string   `parquet:"genre,optional"`
	Description     string   `parquet:"description,optional"`
	Language        string   `parquet:"language,optional"`
	PublicationYear int32    `parquet:"publication_year,optional"`
	ISBN            string   `parquet:"isbn,optional"`
	Tags            []string `parquet:"tags,list"`
	SourceURL       string   `parquet:"source_url,optional"`
	UploadDate      string   `parquet:"upload_date,optional"`
	CreatedAt       string   `parquet:"created_at,optional"`
	UpdatedAt       string   `parquet:"updated_at,optional"`
}

// RowFromBook flattens a record for the snapshot.
func RowFromBook(b *domain.Book) Row {
	row := Row{
		ID:              b.ID,
		Filename:        b.Filename,
		Title:           b.Title,
		Author:          b.Author,
		Genre:           b.Genre,
		Description:     b.Description,
		Language:        b.Language,
		PublicationYear: int32(b.PublicationYear), //nolint:gosec // years fit
		ISBN:            b.ISBN,
		Tags:            b.Tags,
		SourceURL:       b.SourceURL,
		CreatedAt:       formatTime(b.CreatedAt),
		UpdatedAt:       formatTime(b.UpdatedAt),
	}
	if b.UploadDate != nil {
		row.UploadDate = formatTime(*b.UploadDate)
	}
	return row
}

// Book rebuilds the record.
func (r Row) Book() *domain.Book {
	b := &domain.Book{
		ID:              r.ID,
		Filename:        r.Filename,
		Title:           r.Title,
		Author:          r.Author,
		Genre:           r.Genre,
		Description:     r.Description,
		Language:        r.Language,
		PublicationYear: int(r.PublicationYear),
		ISBN:            r.ISBN,
		Tags:            r.Tags,
		SourceURL:       r.SourceURL,
		CreatedAt:       parseTime(r.CreatedAt),
		UpdatedAt:       parseTime(r.UpdatedAt),
	}
	if t := parseTime(r.UploadDate); !t.IsZero() {
		b.UploadDate = &t
	}
	return b
}

// Snapshot writes every record to a parquet file at path and returns the
// number of rows written.
func (r *Runner) Snapshot(ctx context.Context, path string) (int, error) {
	var rows []Row
	err := r.records.ScanBooks(ctx, func(b *domain.Book) bool {
		rows = append(rows, RowFromBook(b))
		return true
	})
	if err != nil {
		return 0, fmt.Errorf("scan records: %w", err)
	}

	if err := parquet.WriteFile(path, rows); err != nil {
		return 0, fmt.Errorf("write snapshot: %w", err)
	}

	r.logger.Info("snapshot written", "path", path, "rows", len(rows))
	return len(rows), nil
}

// Restore writes every snapshot row back to the store, overwriting records
// with the same ID. It returns the number of records written.
func (r *Runner) Restore(ctx context.Context, path string) (int, error) {
	rows, err := parquet.ReadFile[Row](path)
	if err != nil {
		return 0, fmt.Errorf("read snapshot: %w", err)
	}

	written := 0
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		if row.ID == "" {
			r.logger.Warn("snapshot row without id skipped", "row", i, "filename", row.Filename)
			continue
		}
		if err := r.records.PutBook(ctx, row.Book()); err != nil {
			return written, fmt.Errorf("restore %s: %w", row.ID, err)
		}
		written++
	}

	r.logger.Info("snapshot restored", "path", path, "rows", len(rows), "written", written)
	return written, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
