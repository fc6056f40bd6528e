package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/bookshelf-server/internal/domain"
	domainerrors "github.com/listenupapp/bookshelf-server/internal/errors"
	"github.com/listenupapp/bookshelf-server/internal/objectstore"
	"github.com/listenupapp/bookshelf-server/internal/resolver"
	"github.com/listenupapp/bookshelf-server/internal/search"
	"github.com/listenupapp/bookshelf-server/internal/store"
	"github.com/listenupapp/bookshelf-server/internal/validation"
)

type bookFixture struct {
	store   *store.Store
	objects *objectstore.FS
	index   *search.SearchIndex
	svc     *BookService
}

func setupBookService(t *testing.T, withIndex bool) *bookFixture {
	t.Helper()

	st, err := store.NewInMemory(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	signer, err := objectstore.NewSigner(bytes.Repeat([]byte{7}, 32))
	require.NoError(t, err)
	objects, err := objectstore.NewFS(t.TempDir(), "http://localhost:8080", signer, nil)
	require.NoError(t, err)

	f := &bookFixture{store: st, objects: objects}
	var index BookIndex
	if withIndex {
		f.index, err = search.NewSearchIndex(search.Options{})
		require.NoError(t, err)
		t.Cleanup(func() { _ = f.index.Close() })
		index = f.index
	}

	f.svc = NewBookService(st, objects, resolver.New(st, nil), index, validation.New(), BookConfig{
		BooksPrefix: "books/",
		SourceTTL:   time.Hour,
	}, nil)
	return f
}

func (f *bookFixture) upload(t *testing.T, filename string) {
	t.Helper()
	require.NoError(t, f.objects.Put(context.Background(), "books/"+filename, []byte("%PDF-1.4 test"), objectstore.PutOptions{}))
}

func (f *bookFixture) put(t *testing.T, b *domain.Book) *domain.Book {
	t.Helper()
	require.NoError(t, f.store.PutBook(context.Background(), b))
	return b
}

func TestDetails_StoredRecord(t *testing.T) {
	f := setupBookService(t, false)
	f.put(t, &domain.Book{Filename: "Emma.pdf", Title: "Emma", Author: "Jane Austen", Genre: "Classic"})

	b := f.svc.Details(context.Background(), "Emma.pdf")
	require.NotNil(t, b)
	assert.False(t, b.Transient)
	assert.Equal(t, "Classic", b.Genre)
}

func TestDetails_TransientWhenMissing(t *testing.T) {
	f := setupBookService(t, false)

	b := f.svc.Details(context.Background(), "Dune - Frank Herbert.pdf")
	require.NotNil(t, b)
	assert.True(t, b.Transient)
	assert.Equal(t, "Dune", b.Title)
	assert.Equal(t, "Frank Herbert", b.Author)
	assert.Empty(t, b.ID)
}

func TestSource(t *testing.T) {
	f := setupBookService(t, false)
	f.upload(t, "Emma.pdf")

	link, err := f.svc.Source(context.Background(), "Emma.pdf")
	require.NoError(t, err)
	assert.Equal(t, 3600, link.ExpiresIn)
	assert.Contains(t, link.URL, "http://localhost:8080/objects/books/Emma.pdf?token=")
	require.NotNil(t, link.Object)
	assert.Equal(t, int64(len("%PDF-1.4 test")), link.Object.Size)
	assert.True(t, link.Book.Transient)
}

func TestSource_NotFound(t *testing.T) {
	f := setupBookService(t, false)

	_, err := f.svc.Source(context.Background(), "Missing.pdf")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
	assert.Contains(t, err.Error(), `"Missing.pdf"`)
}

func TestList_PopulatesEmptyStore(t *testing.T) {
	f := setupBookService(t, false)
	ctx := context.Background()
	f.upload(t, "Pride and Prejudice by Jane Austen.pdf")
	f.upload(t, "Dune - Frank Herbert.pdf")

	page, err := f.svc.List(ctx, store.PaginationParams{})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Populated)
	require.Len(t, page.Items, 2)
	for _, item := range page.Items {
		assert.NotNil(t, item.Object, "listing for %s carries object stats", item.Book.Filename)
		assert.NotNil(t, item.Book.UploadDate)
		assert.Equal(t, DefaultLanguage, item.Book.Language)
	}

	// A second call finds records and does not populate again.
	again, err := f.svc.List(ctx, store.PaginationParams{})
	require.NoError(t, err)
	assert.Zero(t, again.Populated)
	assert.Len(t, again.Items, 2)
}

func TestList_Paginates(t *testing.T) {
	f := setupBookService(t, false)
	ctx := context.Background()
	for _, name := range []string{"A.pdf", "B.pdf", "C.pdf"} {
		f.put(t, &domain.Book{Filename: name, Title: name})
	}

	first, err := f.svc.List(ctx, store.PaginationParams{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, first.Items, 2)
	assert.True(t, first.HasMore)
	require.NotEmpty(t, first.NextCursor)

	second, err := f.svc.List(ctx, store.PaginationParams{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	assert.Len(t, second.Items, 1)
	assert.False(t, second.HasMore)
}

func TestList_BadCursor(t *testing.T) {
	f := setupBookService(t, false)

	_, err := f.svc.List(context.Background(), store.PaginationParams{Cursor: "!!!"})
	assert.ErrorIs(t, err, domainerrors.ErrMalformedInput)
}

func TestSearch_Scan(t *testing.T) {
	f := setupBookService(t, false)
	ctx := context.Background()
	f.put(t, &domain.Book{Filename: "Emma.pdf", Title: "Emma", Author: "Jane Austen", Genre: "Romance"})
	f.put(t, &domain.Book{Filename: "Persuasion.pdf", Title: "Persuasion", Author: "Jane Austen", Genre: "Classic"})
	f.put(t, &domain.Book{Filename: "Dune.pdf", Title: "Dune", Author: "Frank Herbert", Genre: "Science Fiction"})

	tests := []struct {
		name  string
		query SearchQuery
		want  []string
	}{
		{"author substring", SearchQuery{Author: "austen"}, []string{"Emma", "Persuasion"}},
		{"genre is case-insensitive", SearchQuery{Genre: "science fiction"}, []string{"Dune"}},
		{"author and genre combine", SearchQuery{Author: "Austen", Genre: "Classic"}, []string{"Persuasion"}},
		{"free text", SearchQuery{Query: "DUNE"}, []string{"Dune"}},
		{"no match", SearchQuery{Query: "Ulysses"}, nil},
		{"limit", SearchQuery{Limit: 1}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.Search(ctx, tt.query)
			require.NoError(t, err)
			if tt.name == "limit" {
				assert.Len(t, got, 1)
				return
			}
			titles := make([]string, 0, len(got))
			for _, b := range got {
				titles = append(titles, b.Title)
			}
			assert.ElementsMatch(t, tt.want, titles)
		})
	}
}

func TestSearch_Index(t *testing.T) {
	f := setupBookService(t, true)
	ctx := context.Background()
	f.put(t, &domain.Book{Filename: "Emma.pdf", Title: "Emma", Author: "Jane Austen", Genre: "Romance"})
	f.put(t, &domain.Book{Filename: "Dune.pdf", Title: "Dune", Author: "Frank Herbert", Genre: "Science Fiction"})

	n, err := f.svc.IndexAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := f.svc.Search(ctx, SearchQuery{Query: "emma"})
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "Emma", got[0].Title)

	got, err = f.svc.Search(ctx, SearchQuery{Genre: "Science Fiction"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Dune", got[0].Title)
}

func TestGet_NotFound(t *testing.T) {
	f := setupBookService(t, false)

	_, err := f.svc.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestUpdate(t *testing.T) {
	f := setupBookService(t, true)
	ctx := context.Background()
	b := f.put(t, &domain.Book{Filename: "Emma.pdf", Title: "Emma", Author: "Jane Austen"})
	created := b.CreatedAt

	genre := "Classic"
	year := 1815
	updated, err := f.svc.Update(ctx, b.ID, &domain.BookUpdate{Genre: &genre, PublicationYear: &year})
	require.NoError(t, err)
	assert.Equal(t, b.ID, updated.ID)
	assert.Equal(t, "Classic", updated.Genre)
	assert.Equal(t, 1815, updated.PublicationYear)
	assert.Equal(t, "Emma", updated.Title)
	assert.True(t, updated.CreatedAt.Equal(created))

	stored, err := f.svc.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Classic", stored.Genre)

	hits, err := f.svc.Search(ctx, SearchQuery{Genre: "classic"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
}

func TestUpdate_NormalizesTags(t *testing.T) {
	f := setupBookService(t, false)
	b := f.put(t, &domain.Book{Filename: "Emma.pdf", Title: "Emma"})

	updated, err := f.svc.Update(context.Background(), b.ID, &domain.BookUpdate{
		Tags: []string{"Slow Burn", "Regency", "slow_burn", "!!"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"slow-burn", "regency"}, updated.Tags)
}

func TestUpdate_Rejects(t *testing.T) {
	f := setupBookService(t, false)
	ctx := context.Background()
	b := f.put(t, &domain.Book{Filename: "Emma.pdf", Title: "Emma"})

	_, err := f.svc.Update(ctx, b.ID, &domain.BookUpdate{})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	empty := ""
	_, err = f.svc.Update(ctx, b.ID, &domain.BookUpdate{Title: &empty})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	title := "Emma"
	_, err = f.svc.Update(ctx, "missing", &domain.BookUpdate{Title: &title})
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestGenres(t *testing.T) {
	f := setupBookService(t, false)
	ctx := context.Background()
	f.put(t, &domain.Book{Filename: "a.pdf", Title: "A", Genre: "Romance"})
	f.put(t, &domain.Book{Filename: "b.pdf", Title: "B", Genre: "Classic"})
	f.put(t, &domain.Book{Filename: "c.pdf", Title: "C"})

	genres, err := f.svc.Genres(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"Classic", "General", "Romance"}, genres[:3])
	assert.Equal(t, []string{"Fiction", "Non-Fiction", "Mystery", "Science Fiction", "Biography", "History"}, genres[3:])
}

func TestGenres_EmptyStore(t *testing.T) {
	f := setupBookService(t, false)

	genres, err := f.svc.Genres(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CommonGenres, genres)
}
