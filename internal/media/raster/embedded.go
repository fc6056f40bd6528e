package raster

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	_ "golang.org/x/image/tiff" // Register TIFF decoder
)

// EmbeddedImage pulls the largest decodable image off page one. Scanned books
// are usually a single full-page image, so this is a decent stand-in when no
// renderer is installed.
type EmbeddedImage struct{}

// NewEmbeddedImage creates the probe.
func NewEmbeddedImage() *EmbeddedImage { return &EmbeddedImage{} }

// Name implements Rasterizer.
func (e *EmbeddedImage) Name() string { return "embedded" }

// Render implements Rasterizer.
func (e *EmbeddedImage) Render(ctx context.Context, pdf []byte) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pages, err := api.ExtractImagesRaw(bytes.NewReader(pdf), []string{"1"}, conf)
	if err != nil {
		return nil, fmt.Errorf("extract images: %w", err)
	}

	var best image.Image
	bestArea := 0
	for _, page := range pages {
		for _, raw := range page {
			if raw.Reader == nil {
				continue
			}
			img, _, err := image.Decode(raw.Reader)
			if err != nil {
				continue
			}
			if area := img.Bounds().Dx() * img.Bounds().Dy(); area > bestArea {
				best, bestArea = img, area
			}
		}
	}

	if best == nil {
		return nil, ErrNoImage
	}
	return best, nil
}
