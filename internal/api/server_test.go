package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/bookshelf-server/internal/domain"
	"github.com/listenupapp/bookshelf-server/internal/media/images"
	"github.com/listenupapp/bookshelf-server/internal/objectstore"
	"github.com/listenupapp/bookshelf-server/internal/ratelimit"
	"github.com/listenupapp/bookshelf-server/internal/resolver"
	"github.com/listenupapp/bookshelf-server/internal/service"
	"github.com/listenupapp/bookshelf-server/internal/store"
	"github.com/listenupapp/bookshelf-server/internal/validation"
)

const testPublicURL = "http://bookshelf.test"

// testEnvelope mirrors the success envelope for decoding in tests.
type testEnvelope[T any] struct {
	Version int  `json:"v"`
	Success bool `json:"success"`
	Data    T    `json:"data"`
}

// testErrorEnvelope mirrors the error envelope.
type testErrorEnvelope struct {
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Error   string `json:"error"`
	Details any    `json:"details"`
}

// noRenderer fails every render so covers fall back to placeholders.
type noRenderer struct{}

func (noRenderer) Render(context.Context, []byte) (image.Image, string, error) {
	return nil, "", io.ErrUnexpectedEOF
}

type testServer struct {
	*Server
	api     humatest.TestAPI
	store   *store.Store
	objects *objectstore.FS
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	return setupTestServerWithLimiter(t, ratelimit.New(100, 100))
}

func setupTestServerWithLimiter(t *testing.T, limiter *ratelimit.KeyedRateLimiter) *testServer {
	t.Helper()

	st, err := store.NewInMemory(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	t.Cleanup(limiter.Stop)

	signer, err := objectstore.NewSigner(bytes.Repeat([]byte{1}, 32))
	require.NoError(t, err)
	objects, err := objectstore.NewFS(t.TempDir(), testPublicURL, signer, nil)
	require.NoError(t, err)

	books := service.NewBookService(st, objects, resolver.New(st, nil), nil, validation.New(), service.BookConfig{
		BooksPrefix: "books/",
		SourceTTL:   time.Hour,
	}, nil)
	covers := service.NewCoverService(objects, noRenderer{}, images.NewProcessor(300, 450, 85), service.CoverConfig{
		BooksPrefix:  "books/",
		CoversPrefix: "covers/",
		CoverTTL:     24 * time.Hour,
		CacheControl: "max-age=31536000",
	}, nil)

	s := NewServer(st, objects, &Services{Book: books, Cover: covers}, limiter, Options{}, nil)

	return &testServer{
		Server:  s,
		api:     humatest.Wrap(t, s.API()),
		store:   st,
		objects: objects,
	}
}

func decodeData[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var env testEnvelope[T]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env), resp.Body.String())
	assert.Equal(t, 1, env.Version)
	assert.True(t, env.Success)
	return env.Data
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) testErrorEnvelope {
	t.Helper()
	var env testErrorEnvelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env), resp.Body.String())
	assert.False(t, env.Success)
	return env
}

func (ts *testServer) putBook(t *testing.T, b *domain.Book) *domain.Book {
	t.Helper()
	require.NoError(t, ts.store.PutBook(context.Background(), b))
	return b
}

func (ts *testServer) upload(t *testing.T, key string, data []byte) {
	t.Helper()
	require.NoError(t, ts.objects.Put(context.Background(), key, data, objectstore.PutOptions{}))
}

// get issues a request through the full router, including raw chi routes.
func (ts *testServer) get(target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	ts.ServeHTTP(w, req)
	return w
}

func TestHealthCheck_Success(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	health := decodeData[HealthResponse](t, resp)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "healthy", health.Components["database"].Status)
	assert.Equal(t, "healthy", health.Components["objects"].Status)
}

func TestHealthCheck_DatabaseDown(t *testing.T) {
	ts := setupTestServer(t)
	require.NoError(t, ts.store.Close())

	resp := ts.api.Get("/health")
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)

	var env testEnvelope[HealthResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	assert.False(t, env.Success)
	assert.Equal(t, "unhealthy", env.Data.Status)
	assert.Equal(t, "unhealthy", env.Data.Components["database"].Status)
}

func TestUnknownRoute(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.get("/nope")
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Code)
}

func TestMetrics(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.get("/metrics")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "go_goroutines")
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, "10.0.0.2:1234", "203.0.113.5"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.7"}, "10.0.0.2:1234", "198.51.100.7"},
		{"remote addr", nil, "192.0.2.1:5555", "192.0.2.1"},
		{"ipv6 remote addr", nil, "[2001:db8::1]:443", "2001:db8::1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(r))
		})
	}
}

func TestPathParam(t *testing.T) {
	var got string
	r := chi.NewRouter()
	r.Use(rawPathContext)
	r.Get("/book/{filename}", func(_ http.ResponseWriter, r *http.Request) {
		got = pathParam(r.Context(), chi.URLParam(r, "filename"))
	})

	tests := []struct {
		name   string
		target string
		want   string
	}{
		{"plain", "/book/Emma.pdf", "Emma.pdf"},
		{"escaped space", "/book/Pride%20and%20Prejudice.pdf", "Pride and Prejudice.pdf"},
		{"literal percent", "/book/Top%2010%25AB.pdf", "Top 10%AB.pdf"},
		{"encoded slash", "/book/..%2Fsecret.pdf", "../secret.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = ""
			r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.target, nil))
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, "100%25", pathParam(context.Background(), "100%25"))
}
