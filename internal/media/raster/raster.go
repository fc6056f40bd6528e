// Package raster renders the first page of a PDF to an image using whichever
// renderer is available: an embedded PDFium build, the pdftoppm binary, or the
// largest image embedded in the page.
package raster

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/gabriel-vasile/mimetype"

	domainerrors "github.com/listenupapp/bookshelf-server/internal/errors"
	"github.com/listenupapp/bookshelf-server/internal/logger"
	"github.com/listenupapp/bookshelf-server/internal/metrics"
)

var (
	// ErrUnavailable means the renderer is not installed or is shedding load.
	ErrUnavailable = errors.New("renderer unavailable")

	// ErrNoImage means the renderer ran but produced nothing usable.
	ErrNoImage = errors.New("no image produced")

	// ErrNotPDF rejects sources that do not sniff as PDF.
	ErrNotPDF = domainerrors.MalformedInput("source is not a PDF")
)

// Rasterizer renders page one of a PDF.
type Rasterizer interface {
	Name() string
	Render(ctx context.Context, pdf []byte) (image.Image, error)
}

// Chain tries each rasterizer in order and returns the first image.
type Chain struct {
	probes []Rasterizer
	logger *slog.Logger
}

// NewChain creates a Chain over probes, tried in the given order.
func NewChain(log *slog.Logger, probes ...Rasterizer) *Chain {
	return &Chain{
		probes: probes,
		logger: logger.OrDiscard(log),
	}
}

// Probes returns the configured renderer names in order.
func (c *Chain) Probes() []string {
	names := make([]string, len(c.probes))
	for i, p := range c.probes {
		names[i] = p.Name()
	}
	return names
}

// Render returns the first page as rendered by the first probe that
// succeeds, along with that probe's name. When every probe fails the errors
// are joined.
func (c *Chain) Render(ctx context.Context, pdf []byte) (image.Image, string, error) {
	if !IsPDF(pdf) {
		return nil, "", ErrNotPDF
	}

	var errs []error
	for _, probe := range c.probes {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}

		img, err := probe.Render(ctx, pdf)
		if err == nil && img != nil && !img.Bounds().Empty() {
			metrics.RasterAttempts.WithLabelValues(probe.Name(), "success").Inc()
			return img, probe.Name(), nil
		}
		if err == nil {
			err = ErrNoImage
		}

		metrics.RasterAttempts.WithLabelValues(probe.Name(), outcome(err)).Inc()
		c.logger.Debug("renderer failed",
			"renderer", probe.Name(),
			"error", err,
		)
		errs = append(errs, fmt.Errorf("%s: %w", probe.Name(), err))
	}

	if len(errs) == 0 {
		return nil, "", ErrUnavailable
	}
	return nil, "", errors.Join(errs...)
}

// IsPDF sniffs the leading bytes of data.
func IsPDF(data []byte) bool {
	return len(data) > 0 && mimetype.Detect(data).Is("application/pdf")
}

func outcome(err error) string {
	switch {
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	case errors.Is(err, ErrNoImage):
		return "empty"
	default:
		return "failure"
	}
}
