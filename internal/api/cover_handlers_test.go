package api

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/bookshelf-server/internal/domain"
	"github.com/listenupapp/bookshelf-server/internal/ratelimit"
	"github.com/listenupapp/bookshelf-server/internal/service"
)

func bookPath(filename string, suffix string) string {
	return "/book/" + url.PathEscape(filename) + suffix
}

func TestGetBookDetails_StoredRecord(t *testing.T) {
	ts := setupTestServer(t)
	// Legacy record keyed by filename with capitalized fields.
	require.NoError(t, ts.store.PutRawRecord(t.Context(), "Persuasion by Jane Austen.pdf", map[string]any{
		"Title":  "Persuasion",
		"Author": "Jane Austen",
		"Genre":  "Romance",
	}))

	resp := ts.api.Get(bookPath("Persuasion by Jane Austen.pdf", "/details"))
	require.Equal(t, http.StatusOK, resp.Code)

	got := decodeData[domain.Book](t, resp)
	assert.Equal(t, "Persuasion", got.Title)
	assert.Equal(t, "Jane Austen", got.Author)
	assert.Equal(t, "Romance", got.Genre)
	assert.False(t, got.Transient)
}

func TestGetBookDetails_LiteralPercentInFilename(t *testing.T) {
	ts := setupTestServer(t)
	name := "Top 10%AB.pdf"
	require.NoError(t, ts.store.PutRawRecord(t.Context(), name, map[string]any{
		"Title":  "Top Ten",
		"Author": "Various",
	}))

	resp := ts.api.Get(bookPath(name, "/details"))
	require.Equal(t, http.StatusOK, resp.Code)

	got := decodeData[domain.Book](t, resp)
	assert.Equal(t, "Top Ten", got.Title)
	assert.Equal(t, name, got.Filename)
	assert.False(t, got.Transient)
}

func TestGetBookDetails_Transient(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get(bookPath("Jane Austen - Pride and Prejudice.pdf", "/details"))
	require.Equal(t, http.StatusOK, resp.Code)

	got := decodeData[domain.Book](t, resp)
	assert.True(t, got.Transient)
	assert.Equal(t, "General", got.Genre)
	assert.Equal(t, "English", got.Language)
	assert.Equal(t, "A digital copy of Jane Austen by Pride and Prejudice", got.Description)
}

func TestGetBookSource(t *testing.T) {
	ts := setupTestServer(t)
	ts.upload(t, "books/Emma.pdf", []byte("%PDF-1.4 emma"))

	resp := ts.api.Get(bookPath("Emma.pdf", ""))
	require.Equal(t, http.StatusOK, resp.Code)

	link := decodeData[service.SourceLink](t, resp)
	assert.Equal(t, 3600, link.ExpiresIn)
	assert.Equal(t, "Emma.pdf", link.Filename)
	require.True(t, strings.HasPrefix(link.URL, testPublicURL+"/objects/books/Emma.pdf?token="))

	// The signed URL serves the file.
	obj := ts.get(strings.TrimPrefix(link.URL, testPublicURL))
	require.Equal(t, http.StatusOK, obj.Code)
	assert.Equal(t, "%PDF-1.4 emma", obj.Body.String())
}

func TestGetBookSource_NotFound(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get(bookPath("Missing.pdf", ""))
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Code)
}

func TestGetBookCover_PlaceholderThenCached(t *testing.T) {
	ts := setupTestServer(t)
	name := "Jane Austen - Pride and Prejudice.pdf"

	resp := ts.api.Get(bookPath(name, "/cover"))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	first := decodeData[CoverResponse](t, resp)
	assert.Equal(t, "placeholder", first.Source)
	assert.Equal(t, "covers/Jane Austen - Pride and Prejudice.jpg", first.Key)
	assert.Equal(t, 86400, first.ExpiresIn)
	assert.NotEmpty(t, first.BlurHash)

	resp = ts.api.Get(bookPath(name, "/cover"))
	require.Equal(t, http.StatusOK, resp.Code)
	second := decodeData[CoverResponse](t, resp)
	assert.Equal(t, "cached", second.Source)
	assert.Equal(t, first.Key, second.Key)

	// The cover is served as a cacheable JPEG.
	img := ts.get(strings.TrimPrefix(second.URL, testPublicURL))
	require.Equal(t, http.StatusOK, img.Code)
	assert.Equal(t, "image/jpeg", img.Header().Get("Content-Type"))
	assert.Equal(t, "max-age=31536000", img.Header().Get("Cache-Control"))
}

func TestExtractBookCover_ForcesRegeneration(t *testing.T) {
	ts := setupTestServer(t)
	name := "Emma.pdf"

	resp := ts.api.Get(bookPath(name, "/cover"))
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Post(bookPath(name, "/cover/extract"), nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	got := decodeData[CoverResponse](t, resp)
	assert.Equal(t, "placeholder", got.Source, "renderer fails, so the refresh falls back")
	assert.Equal(t, "covers/Emma.jpg", got.Key)
}

func TestExtractBookCover_RateLimited(t *testing.T) {
	ts := setupTestServerWithLimiter(t, ratelimit.New(0.001, 1))

	resp := ts.api.Post(bookPath("Emma.pdf", "/cover/extract"), nil)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Post(bookPath("Emma.pdf", "/cover/extract"), nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.Equal(t, "RATE_LIMITED", decodeError(t, resp).Code)
	assert.NotEmpty(t, resp.Header().Get("Retry-After"))
}

func TestGetBookCover_RejectsTraversal(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/book/..%2F..%2Fsecret.pdf/cover")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "MALFORMED_INPUT", decodeError(t, resp).Code)
}
