package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/bookshelf-server/internal/domain"
	domainerrors "github.com/listenupapp/bookshelf-server/internal/errors"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(filepath.Join(t.TempDir(), "db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutBook_AssignsIDAndIndexesFilename(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	book := &domain.Book{Filename: "Emma.pdf", Title: "Emma", Author: "Jane Austen"}
	require.NoError(t, s.PutBook(ctx, book))
	require.NotEmpty(t, book.ID)
	assert.False(t, book.CreatedAt.IsZero())

	got, err := s.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Emma", got.Title)
	assert.Equal(t, "Jane Austen", got.Author)

	byName, err := s.GetBookByFilename(ctx, "Emma.pdf")
	require.NoError(t, err)
	assert.Equal(t, book.ID, byName.ID)
}

func TestPutBook_RenameMovesIndex(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	book := &domain.Book{Filename: "old.pdf", Title: "T"}
	require.NoError(t, s.PutBook(ctx, book))

	book.Filename = "new.pdf"
	require.NoError(t, s.PutBook(ctx, book))

	_, err := s.GetBookByFilename(ctx, "old.pdf")
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := s.GetBookByFilename(ctx, "new.pdf")
	require.NoError(t, err)
	assert.Equal(t, book.ID, got.ID)
}

func TestGetBook_NotFound(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.GetBook(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
}

func TestGetBookByFilename_LegacyFilenameKey(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	// Older writers keyed records by filename and used capitalized fields.
	require.NoError(t, s.PutRawRecord(ctx, "Persuasion.pdf", map[string]any{
		"Title":  "Persuasion",
		"Author": "Jane Austen",
	}))

	got, err := s.GetBookByFilename(ctx, "Persuasion.pdf")
	require.NoError(t, err)
	assert.Equal(t, "Persuasion", got.Title)
	assert.Equal(t, "Persuasion.pdf", got.Filename)
	assert.Equal(t, "Persuasion.pdf", got.ID)
}

func TestLegacyRecord_IDFieldDiffersFromKey(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutRawRecord(ctx, "Emma.pdf", map[string]any{
		"BookID":   "b-17",
		"Filename": "Emma.pdf",
		"Title":    "Emma",
	}))

	listed, err := s.ListBooks(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "Emma.pdf", listed[0].ID)

	got, err := s.GetBook(ctx, listed[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Emma", got.Title)

	got.Title = "Emma (Annotated)"
	require.NoError(t, s.PutBook(ctx, got))

	n, err := s.CountBooks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	byName, err := s.GetBookByFilename(ctx, "Emma.pdf")
	require.NoError(t, err)
	assert.Equal(t, "Emma (Annotated)", byName.Title)
	assert.Equal(t, "Emma.pdf", byName.ID)
}

func TestPutRawRecord_IndexesFilenameAlias(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutRawRecord(ctx, "rec-42", map[string]any{
		"BookID":   "rec-42",
		"Filename": "Moonstone.pdf",
		"Title":    "The Moonstone",
	}))

	got, err := s.GetBookByFilename(ctx, "Moonstone.pdf")
	require.NoError(t, err)
	assert.Equal(t, "rec-42", got.ID)
	assert.Equal(t, "The Moonstone", got.Title)
}

func TestCreateBookIfAbsent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	created, err := s.CreateBookIfAbsent(ctx, &domain.Book{Filename: "a.pdf", Title: "A"})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.CreateBookIfAbsent(ctx, &domain.Book{Filename: "a.pdf", Title: "A again"})
	require.NoError(t, err)
	assert.False(t, created)

	got, err := s.GetBookByFilename(ctx, "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "A", got.Title)

	_, err = s.CreateBookIfAbsent(ctx, &domain.Book{Title: "no filename"})
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestCreateBookIfAbsent_RespectsLegacyKey(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutRawRecord(ctx, "legacy.pdf", map[string]any{"Title": "Legacy"}))

	created, err := s.CreateBookIfAbsent(ctx, &domain.Book{Filename: "legacy.pdf", Title: "New"})
	require.NoError(t, err)
	assert.False(t, created)
}

func TestScanBooks_KeyOrderAndEarlyStop(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	for _, b := range []*domain.Book{
		{ID: "c", Title: "Third"},
		{ID: "a", Title: "First"},
		{ID: "b", Title: "Second"},
	} {
		require.NoError(t, s.PutBook(ctx, b))
	}

	var seen []string
	require.NoError(t, s.ScanBooks(ctx, func(b *domain.Book) bool {
		seen = append(seen, b.ID)
		return len(seen) < 2
	}))
	assert.Equal(t, []string{"a", "b"}, seen)

	all, err := s.ListBooks(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Third", all[2].Title)

	n, err := s.CountBooks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestScanBooks_ContextCancelled(t *testing.T) {
	s := setupTestStore(t)
	require.NoError(t, s.PutBook(context.Background(), &domain.Book{ID: "x", Title: "X"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.ScanBooks(ctx, func(*domain.Book) bool { return true })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInMemoryAndPing(t *testing.T) {
	s, err := NewInMemory(nil)
	require.NoError(t, err)

	assert.NoError(t, s.Ping(context.Background()))
	require.NoError(t, s.Close())
	assert.Error(t, s.Ping(context.Background()))
}
