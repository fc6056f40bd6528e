package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/listenupapp/bookshelf-server/internal/classify"
	"github.com/listenupapp/bookshelf-server/internal/domain"
	domainerrors "github.com/listenupapp/bookshelf-server/internal/errors"
	"github.com/listenupapp/bookshelf-server/internal/logger"
	"github.com/listenupapp/bookshelf-server/internal/objectstore"
	"github.com/listenupapp/bookshelf-server/internal/search"
	"github.com/listenupapp/bookshelf-server/internal/store"
	"github.com/listenupapp/bookshelf-server/internal/tags"
)

const (
	defaultSearchLimit = 50
	maxSearchLimit     = 100
)

// CommonGenres are always offered by Genres, after the stored ones.
var CommonGenres = []string{"Fiction", "Non-Fiction", "Mystery", "Romance", "Science Fiction", "Biography", "History"}

// BookRecords is the record store surface the book service needs.
type BookRecords interface {
	GetBook(ctx context.Context, id string) (*domain.Book, error)
	PutBook(ctx context.Context, book *domain.Book) error
	CreateBookIfAbsent(ctx context.Context, book *domain.Book) (bool, error)
	CountBooks(ctx context.Context) (int, error)
	ScanBooks(ctx context.Context, fn func(*domain.Book) bool) error
	ListBooksPage(ctx context.Context, params store.PaginationParams) (*store.PaginatedResult[*domain.Book], error)
}

// BookObjects is the object store surface the book service needs.
type BookObjects interface {
	Stat(ctx context.Context, key string) (*objectstore.ObjectInfo, error)
	List(ctx context.Context, prefix string) ([]objectstore.ObjectInfo, error)
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// MetadataResolver finds the stored record for a filename.
type MetadataResolver interface {
	Resolve(ctx context.Context, filename string) *domain.Book
}

// BookIndex is the full-text index. It may be nil.
type BookIndex interface {
	IndexBook(b *domain.Book) error
	IndexBooks(books []*domain.Book) error
	Search(ctx context.Context, params search.SearchParams) (*search.SearchResult, error)
}

// PayloadValidator validates request payloads.
type PayloadValidator interface {
	Validate(s any) error
}

// BookConfig holds key layout and URL lifetimes.
type BookConfig struct {
	BooksPrefix string
	SourceTTL   time.Duration
}

// BookListing pairs a record with the stats of its source object. Object is
// nil when the source is missing.
type BookListing struct {
	Book   *domain.Book            `json:"book"`
	Object *objectstore.ObjectInfo `json:"object,omitempty"`
}

// BookPage is one page of listings.
type BookPage struct {
	Items      []BookListing `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
	HasMore    bool          `json:"has_more"`
	Populated  int           `json:"populated,omitempty"`
}

// SourceLink is a time-limited download link for a book file.
type SourceLink struct {
	URL       string                  `json:"url"`
	ExpiresIn int                     `json:"expires_in"`
	Filename  string                  `json:"filename"`
	Book      *domain.Book            `json:"book"`
	Object    *objectstore.ObjectInfo `json:"object"`
}

// SearchQuery filters records. Every set field must match.
type SearchQuery struct {
	Query  string
	Author string
	Genre  string
	Limit  int
}

// BookService orchestrates record operations.
type BookService struct {
	records   BookRecords
	objects   BookObjects
	resolver  MetadataResolver
	index     BookIndex
	validator PayloadValidator
	cfg       BookConfig
	logger    *slog.Logger
	now       func() time.Time
}

// NewBookService creates a new book service. index may be nil, in which case
// search scans the store.
func NewBookService(
	records BookRecords,
	objects BookObjects,
	resolver MetadataResolver,
	index BookIndex,
	validator PayloadValidator,
	cfg BookConfig,
	log *slog.Logger,
) *BookService {
	return &BookService{
		records:   records,
		objects:   objects,
		resolver:  resolver,
		index:     index,
		validator: validator,
		cfg:       cfg,
		logger:    logger.OrDiscard(log),
		now:       time.Now,
	}
}

// Details returns the stored record for filename, or a transient record
// derived from the filename. It never fails.
func (s *BookService) Details(ctx context.Context, filename string) *domain.Book {
	if b := s.resolver.Resolve(ctx, filename); b != nil {
		return b
	}
	s.logger.Debug("no stored record, using filename metadata", "filename", filename)
	return TransientBook(filename)
}

// Source returns a signed download link for the book file.
func (s *BookService) Source(ctx context.Context, filename string) (*SourceLink, error) {
	key := s.cfg.BooksPrefix + filename
	if err := objectstore.ValidateKey(key); err != nil {
		return nil, err
	}

	info, err := s.objects.Stat(ctx, key)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.NotFoundf("no book found with filename %q", filename)
		}
		return nil, domainerrors.Upstream(err, "stat book source")
	}

	url, err := s.objects.SignedURL(ctx, key, s.cfg.SourceTTL)
	if err != nil {
		return nil, domainerrors.Upstream(err, "sign book url")
	}

	return &SourceLink{
		URL:       url,
		ExpiresIn: int(s.cfg.SourceTTL.Seconds()),
		Filename:  filename,
		Book:      s.Details(ctx, filename),
		Object:    info,
	}, nil
}

// List returns one page of records with their source stats. When the store
// is empty the first page request seeds it from the books listing.
func (s *BookService) List(ctx context.Context, params store.PaginationParams) (*BookPage, error) {
	objects, listErr := s.objects.List(ctx, s.cfg.BooksPrefix)
	if listErr != nil {
		s.logger.Warn("listing book sources failed, omitting object stats", "error", listErr)
	}

	populated := 0
	if params.Cursor == "" {
		count, err := s.records.CountBooks(ctx)
		if err != nil {
			return nil, domainerrors.Upstream(err, "count records")
		}
		if count == 0 && listErr == nil {
			populated, err = s.populate(ctx, objects)
			if err != nil {
				return nil, err
			}
		}
	}

	page, err := s.records.ListBooksPage(ctx, params)
	if err != nil {
		if errors.Is(err, domainerrors.ErrMalformedInput) {
			return nil, err
		}
		return nil, domainerrors.Upstream(err, "list records")
	}

	stats := make(map[string]*objectstore.ObjectInfo, len(objects))
	for i := range objects {
		stats[strings.TrimPrefix(objects[i].Key, s.cfg.BooksPrefix)] = &objects[i]
	}

	out := &BookPage{
		Items:      make([]BookListing, 0, len(page.Items)),
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
		Populated:  populated,
	}
	for _, b := range page.Items {
		out.Items = append(out.Items, BookListing{Book: b, Object: stats[b.Filename]})
	}
	return out, nil
}

// populate creates a record for every listed source that has none.
func (s *BookService) populate(ctx context.Context, objects []objectstore.ObjectInfo) (int, error) {
	var created []*domain.Book
	for _, obj := range objects {
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		b := BookFromObject(obj.Key, s.cfg.BooksPrefix, obj.LastModified)
		ok, err := s.records.CreateBookIfAbsent(ctx, b)
		if err != nil {
			return len(created), domainerrors.Upstream(err, "create record")
		}
		if ok {
			created = append(created, b)
		}
	}

	if len(created) > 0 && s.index != nil {
		if err := s.index.IndexBooks(created); err != nil {
			s.logger.Warn("indexing populated records failed", "error", err)
		}
	}
	s.logger.Info("populated records from book listing", "created", len(created), "objects", len(objects))
	return len(created), nil
}

// Search returns records matching q. With an index, results are ranked by
// relevance; without one, records are scanned in key order.
func (s *BookService) Search(ctx context.Context, q SearchQuery) ([]*domain.Book, error) {
	q.Query = strings.TrimSpace(q.Query)
	q.Author = strings.TrimSpace(q.Author)
	q.Genre = strings.TrimSpace(q.Genre)
	if q.Limit <= 0 {
		q.Limit = defaultSearchLimit
	}
	q.Limit = min(q.Limit, maxSearchLimit)

	if s.index != nil {
		return s.searchIndex(ctx, q)
	}
	return s.searchScan(ctx, q)
}

func (s *BookService) searchIndex(ctx context.Context, q SearchQuery) ([]*domain.Book, error) {
	res, err := s.index.Search(ctx, search.SearchParams{
		Query:  q.Query,
		Author: q.Author,
		Genre:  q.Genre,
		Limit:  q.Limit,
	})
	if err != nil {
		return nil, domainerrors.Upstream(err, "search index")
	}

	books := make([]*domain.Book, 0, len(res.Hits))
	for _, hit := range res.Hits {
		b, err := s.records.GetBook(ctx, hit.ID)
		if err != nil {
			if errors.Is(err, domainerrors.ErrNotFound) {
				continue
			}
			return nil, domainerrors.Upstream(err, "load search hit")
		}
		books = append(books, b)
	}
	return books, nil
}

func (s *BookService) searchScan(ctx context.Context, q SearchQuery) ([]*domain.Book, error) {
	query := strings.ToLower(q.Query)
	author := strings.ToLower(q.Author)

	books := []*domain.Book{}
	err := s.records.ScanBooks(ctx, func(b *domain.Book) bool {
		switch {
		case author != "" && !strings.Contains(strings.ToLower(b.Author), author):
			return true
		case q.Genre != "" && !strings.EqualFold(b.Genre, q.Genre):
			return true
		case query != "" &&
			!strings.Contains(strings.ToLower(b.Title), query) &&
			!strings.Contains(strings.ToLower(b.Author), query) &&
			!strings.Contains(strings.ToLower(b.Description), query):
			return true
		}
		books = append(books, b)
		return len(books) < q.Limit
	})
	if err != nil {
		return nil, domainerrors.Upstream(err, "scan records")
	}
	return books, nil
}

// Get returns a record by ID.
func (s *BookService) Get(ctx context.Context, id string) (*domain.Book, error) {
	b, err := s.records.GetBook(ctx, id)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.NotFoundf("no book found with id %q", id)
		}
		return nil, domainerrors.Upstream(err, "get record")
	}
	return b, nil
}

// Update applies a partial update. ID and creation time never change.
func (s *BookService) Update(ctx context.Context, id string, update *domain.BookUpdate) (*domain.Book, error) {
	if update == nil || update.IsEmpty() {
		return nil, domainerrors.Validation("no fields to update")
	}
	if err := s.validator.Validate(update); err != nil {
		return nil, err
	}

	if update.Tags != nil {
		update.Tags = tags.Normalize(update.Tags)
	}

	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	update.Apply(b, s.now().UTC())
	if err := s.records.PutBook(ctx, b); err != nil {
		return nil, domainerrors.Upstream(err, "save record")
	}

	if s.index != nil {
		if err := s.index.IndexBook(b); err != nil {
			s.logger.Warn("reindexing updated record failed", "book_id", b.ID, "error", err)
		}
	}
	s.logger.Info("book updated", "book_id", b.ID, "title", b.Title)
	return b, nil
}

// Genres returns the sorted distinct stored genres followed by any common
// genres not already present.
func (s *BookService) Genres(ctx context.Context) ([]string, error) {
	seen := map[string]bool{}
	err := s.records.ScanBooks(ctx, func(b *domain.Book) bool {
		g := b.Genre
		if g == "" {
			g = classify.DefaultGenre
		}
		seen[g] = true
		return true
	})
	if err != nil {
		return nil, domainerrors.Upstream(err, "scan records")
	}

	genres := make([]string, 0, len(seen)+len(CommonGenres))
	for g := range seen {
		genres = append(genres, g)
	}
	slices.Sort(genres)
	for _, g := range CommonGenres {
		if !seen[g] {
			genres = append(genres, g)
		}
	}
	return genres, nil
}

// IndexAll loads every record into the index.
func (s *BookService) IndexAll(ctx context.Context) (int, error) {
	if s.index == nil {
		return 0, nil
	}
	var books []*domain.Book
	if err := s.records.ScanBooks(ctx, func(b *domain.Book) bool {
		books = append(books, b)
		return true
	}); err != nil {
		return 0, domainerrors.Upstream(err, "scan records")
	}
	if err := s.index.IndexBooks(books); err != nil {
		return 0, domainerrors.Upstream(err, "index records")
	}
	return len(books), nil
}
