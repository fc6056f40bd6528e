package images

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// Processor turns rendered pages and generated placeholders into cover JPEGs
// of a fixed maximum size.
type Processor struct {
	width   int
	height  int
	quality int
}

// NewProcessor creates a Processor producing covers that fit width x height.
func NewProcessor(width, height, quality int) *Processor {
	return &Processor{
		width:   width,
		height:  height,
		quality: quality,
	}
}

// Normalize shrinks img to fit the cover bounds and encodes it as JPEG.
func (p *Processor) Normalize(img image.Image) ([]byte, error) {
	return EncodeJPEG(FitWithin(img, p.width, p.height, draw.CatmullRom), p.quality)
}

// NormalizeBytes decodes data and normalizes it.
func (p *Processor) NormalizeBytes(data []byte) ([]byte, error) {
	img, _, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return p.Normalize(img)
}

// Placeholder renders and encodes a generated cover.
func (p *Processor) Placeholder(title, author string) ([]byte, error) {
	img, err := RenderPlaceholder(p.width, p.height, title, author)
	if err != nil {
		return nil, fmt.Errorf("render placeholder: %w", err)
	}
	return EncodeJPEG(img, p.quality)
}
