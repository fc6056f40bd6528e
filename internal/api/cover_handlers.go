package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/bookshelf-server/internal/domain"
	domainerrors "github.com/listenupapp/bookshelf-server/internal/errors"
	"github.com/listenupapp/bookshelf-server/internal/service"
)

func (s *Server) registerFileRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getBookSource",
		Method:      http.MethodGet,
		Path:        "/book/{filename}",
		Summary:     "Get book download link",
		Description: "Returns a signed, time-limited URL for the book file together with its resolved metadata",
		Tags:        []string{"Files"},
	}, s.handleGetBookSource)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBookDetails",
		Method:      http.MethodGet,
		Path:        "/book/{filename}/details",
		Summary:     "Get book details",
		Description: "Resolves the stored record for a filename. When none matches, a transient record derived from the filename is returned.",
		Tags:        []string{"Files"},
	}, s.handleGetBookDetails)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBookCover",
		Method:      http.MethodGet,
		Path:        "/book/{filename}/cover",
		Summary:     "Get book cover",
		Description: "Returns a signed URL for the cover, extracting or generating it on first request",
		Tags:        []string{"Covers"},
	}, s.handleGetBookCover)

	huma.Register(s.api, huma.Operation{
		OperationID: "extractBookCover",
		Method:      http.MethodPost,
		Path:        "/book/{filename}/cover/extract",
		Summary:     "Re-extract book cover",
		Description: "Re-renders the cover from the book file even when one is cached, replacing the cached cover",
		Tags:        []string{"Covers"},
	}, s.handleExtractBookCover)
}

// === DTOs ===

// FilenameInput identifies a book by its file name.
type FilenameInput struct {
	Filename string `path:"filename" doc:"Book file name, e.g. 'Emma by Jane Austen.pdf'"`
}

// SourceOutput wraps the download link for Huma.
type SourceOutput struct {
	Body *service.SourceLink
}

// DetailsOutput wraps resolved metadata for Huma.
type DetailsOutput struct {
	Body *domain.Book
}

// CoverResponse is a servable cover.
type CoverResponse struct {
	URL       string `json:"url" doc:"Signed cover URL"`
	Key       string `json:"key" doc:"Object key of the cover"`
	Source    string `json:"source" doc:"How the cover was obtained: cached, extracted or placeholder"`
	Renderer  string `json:"renderer,omitempty" doc:"Renderer that produced an extracted cover"`
	BlurHash  string `json:"blur_hash,omitempty" doc:"BlurHash of a newly generated cover"`
	ExpiresIn int    `json:"expires_in" doc:"Seconds until the URL expires"`
}

// CoverOutput wraps the cover response for Huma.
type CoverOutput struct {
	Body CoverResponse
}

// === Handlers ===

func (s *Server) handleGetBookSource(ctx context.Context, input *FilenameInput) (*SourceOutput, error) {
	link, err := s.services.Book.Source(ctx, pathParam(ctx, input.Filename))
	if err != nil {
		return nil, err
	}
	return &SourceOutput{Body: link}, nil
}

func (s *Server) handleGetBookDetails(ctx context.Context, input *FilenameInput) (*DetailsOutput, error) {
	return &DetailsOutput{Body: s.services.Book.Details(ctx, pathParam(ctx, input.Filename))}, nil
}

func (s *Server) handleGetBookCover(ctx context.Context, input *FilenameInput) (*CoverOutput, error) {
	res, err := s.services.Cover.GetCover(ctx, pathParam(ctx, input.Filename))
	if err != nil {
		return nil, err
	}
	return s.coverOutput(res), nil
}

func (s *Server) handleExtractBookCover(ctx context.Context, input *FilenameInput) (*CoverOutput, error) {
	if s.extractLimiter != nil {
		client := getClientIPFromContext(ctx)
		if !s.extractLimiter.Allow(client) {
			wait := s.extractLimiter.RetryAfter(client)
			s.logger.Warn("cover extract rate limited", "client", client, "retry_after", wait)
			return nil, huma.ErrorWithHeaders(
				domainerrors.RateLimited("too many cover extractions, try again later"),
				http.Header{"Retry-After": {retryAfterSeconds(wait)}},
			)
		}
	}

	res, err := s.services.Cover.RefreshCover(ctx, pathParam(ctx, input.Filename))
	if err != nil {
		return nil, err
	}
	return s.coverOutput(res), nil
}

func (s *Server) coverOutput(res *service.CoverResult) *CoverOutput {
	return &CoverOutput{Body: CoverResponse{
		URL:       res.URL,
		Key:       res.Key,
		Source:    string(res.Source),
		Renderer:  res.Renderer,
		BlurHash:  res.BlurHash,
		ExpiresIn: int(s.services.Cover.URLTTL().Seconds()),
	}}
}

func retryAfterSeconds(d time.Duration) string {
	secs := int((d + time.Second - 1) / time.Second)
	return strconv.Itoa(max(secs, 1))
}
