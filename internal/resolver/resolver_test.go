package resolver

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/bookshelf-server/internal/domain"
	"github.com/listenupapp/bookshelf-server/internal/store"
)

func setupStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestResolve_EmptyStore(t *testing.T) {
	r := New(setupStore(t), nil)
	assert.Nil(t, r.Resolve(context.Background(), "Jane Austen - Pride and Prejudice.pdf"))
}

func TestResolve_DirectLookup(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	require.NoError(t, s.PutBook(ctx, &domain.Book{
		Filename: "odd-name.pdf",
		Title:    "Something Else Entirely",
	}))

	got := New(s, nil).Resolve(ctx, "odd-name.pdf")
	require.NotNil(t, got)
	assert.Equal(t, "Something Else Entirely", got.Title)
}

func TestResolve_ScanMatchesRawRecord(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	require.NoError(t, s.PutRawRecord(ctx, "rec-1", map[string]any{
		"Title":  "Persuasion",
		"Author": "Jane Austen",
		"Genre":  "Romance",
	}))

	got := New(s, nil).Resolve(ctx, "Persuasion by Jane Austen.pdf")
	require.NotNil(t, got)
	assert.Equal(t, "Persuasion", got.Title)
	assert.Equal(t, "Romance", got.Genre)
}

func TestResolve_AuthorOnlyMatch(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	require.NoError(t, s.PutBook(ctx, &domain.Book{Title: "Emma", Author: "Jane Austen"}))

	got := New(s, nil).Resolve(ctx, "Unrelated Words by Jane Austen.pdf")
	require.NotNil(t, got)
	assert.Equal(t, "Emma", got.Title)
}

func TestResolve_Idempotent(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	require.NoError(t, s.PutBook(ctx, &domain.Book{Title: "Dracula", Author: "Bram Stoker"}))
	require.NoError(t, s.PutBook(ctx, &domain.Book{Title: "Dracula's Guest", Author: "Bram Stoker"}))

	r := New(s, nil)
	first := r.Resolve(ctx, "Dracula - Bram Stoker.pdf")
	second := r.Resolve(ctx, "Dracula - Bram Stoker.pdf")
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, first.ID, second.ID)
}

func TestResolve_ShortFirstWordIgnored(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	// "It" is too short to serve as a fallback key, so only "came" is tried.
	require.NoError(t, s.PutBook(ctx, &domain.Book{Title: "It Happened One Night"}))

	assert.Nil(t, New(s, nil).Resolve(ctx, "It Came Back.pdf"))
}

func TestResolve_FirstWordFallback(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	require.NoError(t, s.PutBook(ctx, &domain.Book{Title: "Frankenstein; or, The Modern Prometheus"}))

	got := New(s, nil).Resolve(ctx, "Frankenstein Annotated Edition.pdf")
	require.NotNil(t, got)
	assert.Contains(t, got.Title, "Frankenstein")
}

type failingRecords struct {
	lookupErr error
	scanErr   error
	scanned   bool
}

func (f *failingRecords) GetBookByFilename(context.Context, string) (*domain.Book, error) {
	return nil, f.lookupErr
}

func (f *failingRecords) ScanBooks(context.Context, func(*domain.Book) bool) error {
	f.scanned = true
	return f.scanErr
}

func TestResolve_StoreErrorsDegradeToNil(t *testing.T) {
	ctx := context.Background()

	lookup := &failingRecords{lookupErr: errors.New("connection reset")}
	assert.Nil(t, New(lookup, nil).Resolve(ctx, "Emma by Jane Austen.pdf"))
	assert.False(t, lookup.scanned)

	scan := &failingRecords{lookupErr: store.ErrNotFound, scanErr: errors.New("iterator closed")}
	assert.Nil(t, New(scan, nil).Resolve(ctx, "Emma by Jane Austen.pdf"))
	assert.True(t, scan.scanned)
}

func TestResolve_EmptyTokensSkipScan(t *testing.T) {
	f := &failingRecords{lookupErr: store.ErrNotFound}
	assert.Nil(t, New(f, nil).Resolve(context.Background(), ".pdf"))
	assert.False(t, f.scanned)
}

func TestResolve_FirstMatchInKeyOrder(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	require.NoError(t, s.PutRawRecord(ctx, "rec-b", map[string]any{"Title": "Persuasion", "Genre": "Romance"}))
	require.NoError(t, s.PutRawRecord(ctx, "rec-a", map[string]any{"Title": "Persuasion", "Genre": "Classic"}))

	got := New(s, nil).Resolve(ctx, "Persuasion by Jane Austen.pdf")
	require.NotNil(t, got)
	assert.Equal(t, "rec-a", got.ID)
	assert.Equal(t, "Classic", got.Genre)
}
