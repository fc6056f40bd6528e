// Package service holds the catalog's business logic: cover synthesis, record
// lookup and listing.
package service

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"strconv"
	"time"

	"github.com/listenupapp/bookshelf-server/internal/classify"
	domainerrors "github.com/listenupapp/bookshelf-server/internal/errors"
	"github.com/listenupapp/bookshelf-server/internal/logger"
	"github.com/listenupapp/bookshelf-server/internal/media/images"
	"github.com/listenupapp/bookshelf-server/internal/metrics"
	"github.com/listenupapp/bookshelf-server/internal/objectstore"
)

const coverContentType = "image/jpeg"

// CoverSource names the pipeline path that produced a served cover.
type CoverSource string

// Cover sources.
const (
	CoverCached      CoverSource = "cached"
	CoverExtracted   CoverSource = "extracted"
	CoverPlaceholder CoverSource = "placeholder"
)

// CoverResult is a servable cover.
type CoverResult struct {
	URL      string      `json:"url"`
	Key      string      `json:"key"`
	Source   CoverSource `json:"source"`
	Renderer string      `json:"renderer,omitempty"`
	BlurHash string      `json:"blur_hash,omitempty"`
}

// CoverObjects is the object store surface the pipeline needs.
type CoverObjects interface {
	Exists(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte, opts objectstore.PutOptions) error
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// PageRenderer rasterizes the first page of a PDF and names the renderer used.
type PageRenderer interface {
	Render(ctx context.Context, pdf []byte) (image.Image, string, error)
}

// CoverImager turns images into stored cover bytes.
type CoverImager interface {
	Normalize(img image.Image) ([]byte, error)
	Placeholder(title, author string) ([]byte, error)
}

// CoverConfig holds key layout and caching parameters.
type CoverConfig struct {
	BooksPrefix  string
	CoversPrefix string
	CoverTTL     time.Duration
	CacheControl string
}

// CoverService produces covers: served from cache when present, otherwise
// rendered from the source's first page, otherwise a generated placeholder.
type CoverService struct {
	objects  CoverObjects
	renderer PageRenderer
	imager   CoverImager
	cfg      CoverConfig
	logger   *slog.Logger
}

// NewCoverService creates a new cover service.
func NewCoverService(objects CoverObjects, renderer PageRenderer, imager CoverImager, cfg CoverConfig, log *slog.Logger) *CoverService {
	return &CoverService{
		objects:  objects,
		renderer: renderer,
		imager:   imager,
		cfg:      cfg,
		logger:   logger.OrDiscard(log),
	}
}

// CoverKey derives the cache key: the filename with a trailing ".pdf"
// replaced by ".jpg", under the covers prefix.
func (s *CoverService) CoverKey(filename string) string {
	return s.cfg.CoversPrefix + classify.StripPDF(filename) + ".jpg"
}

// SourceKey is the object key of the book file.
func (s *CoverService) SourceKey(filename string) string {
	return s.cfg.BooksPrefix + filename
}

// URLTTL is the lifetime of signed cover URLs.
func (s *CoverService) URLTTL() time.Duration {
	return s.cfg.CoverTTL
}

// GetCover returns a signed URL for the cover of filename, creating and
// caching the cover on first request. An existing cover is never recomputed.
func (s *CoverService) GetCover(ctx context.Context, filename string) (*CoverResult, error) {
	return s.run(ctx, filename, false)
}

// RefreshCover re-runs extraction even when a cover is cached and overwrites
// the cached artifact.
func (s *CoverService) RefreshCover(ctx context.Context, filename string) (*CoverResult, error) {
	return s.run(ctx, filename, true)
}

func (s *CoverService) run(ctx context.Context, filename string, force bool) (*CoverResult, error) {
	key := s.CoverKey(filename)
	if err := objectstore.ValidateKey(key); err != nil {
		return nil, err
	}
	forced := strconv.FormatBool(force)

	if !force {
		cached, err := s.checkCache(ctx, key)
		if err != nil {
			s.logger.Warn("cover cache check failed, regenerating",
				"filename", filename,
				"key", key,
				"error", err,
			)
		}
		if cached {
			result, err := s.serve(ctx, key, CoverCached, "")
			if err != nil {
				metrics.CoverRequests.WithLabelValues("failed", forced).Inc()
				return nil, err
			}
			metrics.CoverRequests.WithLabelValues(string(CoverCached), forced).Inc()
			s.logger.Debug("cover served", "filename", filename, "path", CoverCached)
			return result, nil
		}
	}

	source := CoverExtracted
	data, renderer := s.extract(ctx, filename)
	if data == nil {
		source = CoverPlaceholder
		var err error
		data, err = s.synthesize(filename)
		if err != nil {
			metrics.CoverRequests.WithLabelValues("failed", forced).Inc()
			s.logger.Error("placeholder generation failed",
				"filename", filename,
				"error", err,
			)
			return nil, domainerrors.NotFoundf("no cover available for %q", filename).WithCause(err)
		}
	}

	if err := s.upload(ctx, key, data); err != nil {
		metrics.CoverRequests.WithLabelValues("failed", forced).Inc()
		return nil, err
	}

	result, err := s.serve(ctx, key, source, renderer)
	if err != nil {
		metrics.CoverRequests.WithLabelValues("failed", forced).Inc()
		return nil, err
	}
	if hash, err := images.BlurHashBytes(data); err == nil {
		result.BlurHash = hash
	}

	metrics.CoverRequests.WithLabelValues(string(source), forced).Inc()
	s.logger.Info("cover generated",
		"filename", filename,
		"key", key,
		"path", source,
		"renderer", renderer,
		"forced", force,
		"size", len(data),
	)
	return result, nil
}

func (s *CoverService) checkCache(ctx context.Context, key string) (bool, error) {
	defer observeStage("check_cache", time.Now())
	return s.objects.Exists(ctx, key)
}

// extract renders page one of the source and returns encoded cover bytes, or
// nil when the source is missing or no renderer succeeds. Failures are
// logged, never returned.
func (s *CoverService) extract(ctx context.Context, filename string) ([]byte, string) {
	defer observeStage("extract", time.Now())

	pdf, err := s.objects.Get(ctx, s.SourceKey(filename))
	if err != nil {
		level := slog.LevelWarn
		if errors.Is(err, domainerrors.ErrNotFound) {
			level = slog.LevelInfo
		}
		s.logger.Log(ctx, level, "cover extraction skipped: source unavailable",
			"filename", filename,
			"error", err,
		)
		return nil, ""
	}

	img, renderer, err := s.renderer.Render(ctx, pdf)
	if err != nil {
		s.logger.Warn("cover extraction failed",
			"filename", filename,
			"error", err,
		)
		return nil, ""
	}

	data, err := s.imager.Normalize(img)
	if err != nil {
		s.logger.Warn("cover encoding failed",
			"filename", filename,
			"renderer", renderer,
			"error", err,
		)
		return nil, ""
	}
	return data, renderer
}

func (s *CoverService) synthesize(filename string) ([]byte, error) {
	defer observeStage("synthesize", time.Now())
	title, author := classify.TitleAuthor(filename)
	return s.imager.Placeholder(title, author)
}

func (s *CoverService) upload(ctx context.Context, key string, data []byte) error {
	defer observeStage("upload", time.Now())
	err := s.objects.Put(ctx, key, data, objectstore.PutOptions{
		ContentType:  coverContentType,
		CacheControl: s.cfg.CacheControl,
	})
	if err != nil {
		return domainerrors.Upstream(err, "store cover")
	}
	return nil
}

func (s *CoverService) serve(ctx context.Context, key string, source CoverSource, renderer string) (*CoverResult, error) {
	defer observeStage("serve", time.Now())
	url, err := s.objects.SignedURL(ctx, key, s.cfg.CoverTTL)
	if err != nil {
		return nil, domainerrors.Upstream(err, "sign cover url")
	}
	return &CoverResult{
		URL:      url,
		Key:      key,
		Source:   source,
		Renderer: renderer,
	}, nil
}

func observeStage(stage string, start time.Time) {
	metrics.CoverStageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
