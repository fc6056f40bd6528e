package raster

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/klippa-app/go-pdfium/webassembly"
)

// PDFium renders with a WebAssembly build of PDFium, so no native library is
// needed.
type PDFium struct {
	pool    pdfium.Pool
	dpi     int
	timeout time.Duration
}

// NewPDFium starts a pool of workers instances.
func NewPDFium(workers int, dpi float64, timeout time.Duration) (*PDFium, error) {
	workers = max(workers, 1)
	pool, err := webassembly.Init(webassembly.Config{
		MinIdle:  1,
		MaxIdle:  workers,
		MaxTotal: workers,
	})
	if err != nil {
		return nil, fmt.Errorf("start pdfium: %w", err)
	}
	return &PDFium{
		pool:    pool,
		dpi:     int(dpi),
		timeout: timeout,
	}, nil
}

// Name implements Rasterizer.
func (p *PDFium) Name() string { return "pdfium" }

// Render implements Rasterizer.
func (p *PDFium) Render(ctx context.Context, pdf []byte) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	instance, err := p.pool.GetInstance(p.timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer instance.Close() //nolint:errcheck // returns the instance to the pool

	doc, err := instance.OpenDocument(&requests.OpenDocument{File: &pdf})
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{Document: doc.Document}) //nolint:errcheck // document handle cleanup

	rendered, err := instance.RenderPageInDPI(&requests.RenderPageInDPI{
		DPI: p.dpi,
		Page: requests.Page{
			ByIndex: &requests.PageByIndex{
				Document: doc.Document,
				Index:    0,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}
	defer rendered.Cleanup()

	src := rendered.Result.Image
	if src == nil {
		return nil, ErrNoImage
	}

	// The pixel buffer belongs to the instance and is released by Cleanup.
	out := image.NewRGBA(src.Bounds())
	copy(out.Pix, src.Pix)
	return out, nil
}

// Close shuts the worker pool down.
func (p *PDFium) Close() error {
	return p.pool.Close()
}
