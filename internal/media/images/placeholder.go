package images

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Placeholder layout.
const (
	titleSize     = 24
	authorSize    = 16
	titleLineStep = 35
	maxTitleLines = 3
	authorGap     = 20
	textMargin    = 20
	borderInset   = 5
	borderWidth   = 3
)

var (
	titleColor  = color.White
	authorColor = color.RGBA{0xbd, 0xc3, 0xc7, 0xff}
	borderColor = color.RGBA{0x34, 0x98, 0xdb, 0xff}
)

var loadFonts = sync.OnceValues(func() (*fonts, error) {
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse bold font: %w", err)
	}
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse regular font: %w", err)
	}
	return &fonts{bold: bold, regular: regular}, nil
})

type fonts struct {
	bold    *opentype.Font
	regular *opentype.Font
}

func newFace(f *opentype.Font, size float64) (font.Face, error) {
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create font face: %w", err)
	}
	return face, nil
}

// RenderPlaceholder draws a generated cover: a vertical slate gradient, the
// title wrapped onto at most three centered lines from a third of the way
// down, "by <author>" beneath it and a blue inset border. The result is always
// exactly w x h regardless of text length.
func RenderPlaceholder(w, h int, title, author string) (*image.RGBA, error) {
	fs, err := loadFonts()
	if err != nil {
		return nil, err
	}
	titleFace, err := newFace(fs.bold, titleSize)
	if err != nil {
		return nil, err
	}
	defer titleFace.Close()
	authorFace, err := newFace(fs.regular, authorSize)
	if err != nil {
		return nil, err
	}
	defer authorFace.Close()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	fillGradient(img)

	y := h / 3
	lines := wrap(titleFace, title, w-2*textMargin)
	for _, line := range lines {
		drawCentered(img, titleFace, titleColor, line, y)
		y += titleLineStep
	}

	if author = strings.TrimSpace(author); author != "" {
		drawCentered(img, authorFace, authorColor, "by "+author, y+authorGap)
	}

	drawBorder(img, image.Rect(borderInset, borderInset, w-borderInset, h-borderInset), borderWidth, borderColor)
	return img, nil
}

// fillGradient shades each row from (44,64,84) at the top towards
// (94,114,134) at the bottom.
func fillGradient(img *image.RGBA) {
	b := img.Bounds()
	h := b.Dy()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		c := uint8(44 + (y-b.Min.Y)*50/h)
		row := image.NewUniform(color.RGBA{c, c + 20, c + 40, 0xff})
		draw.Draw(img, image.Rect(b.Min.X, y, b.Max.X, y+1), row, image.Point{}, draw.Src)
	}
}

// wrap greedily packs words onto lines no wider than maxWidth and keeps the
// first maxTitleLines. A word wider than maxWidth is broken at rune
// boundaries.
func wrap(face font.Face, text string, maxWidth int) []string {
	var lines []string
	var current string
	for _, word := range strings.Fields(text) {
		for _, piece := range splitWord(face, word, maxWidth) {
			candidate := piece
			if current != "" {
				candidate = current + " " + piece
			}
			if current == "" || font.MeasureString(face, candidate).Ceil() <= maxWidth {
				current = candidate
				continue
			}
			lines = append(lines, current)
			current = piece
		}
	}
	if current != "" {
		lines = append(lines, current)
	}
	if len(lines) > maxTitleLines {
		lines = lines[:maxTitleLines]
	}
	return lines
}

// splitWord cuts word into the longest runs of runes that each fit in
// maxWidth. A run always holds at least one rune.
func splitWord(face font.Face, word string, maxWidth int) []string {
	if font.MeasureString(face, word).Ceil() <= maxWidth {
		return []string{word}
	}
	var pieces []string
	var b strings.Builder
	for _, r := range word {
		if b.Len() > 0 && font.MeasureString(face, b.String()+string(r)).Ceil() > maxWidth {
			pieces = append(pieces, b.String())
			b.Reset()
		}
		b.WriteRune(r)
	}
	if b.Len() > 0 {
		pieces = append(pieces, b.String())
	}
	return pieces
}

// drawCentered draws text horizontally centered with its top edge at top.
func drawCentered(img *image.RGBA, face font.Face, c color.Color, text string, top int) {
	width := font.MeasureString(face, text).Ceil()
	x := (img.Bounds().Dx() - width) / 2
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, top+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(text)
}

// drawBorder strokes r with bands of the given width drawn inward.
func drawBorder(img *image.RGBA, r image.Rectangle, width int, c color.Color) {
	src := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+width),
		image.Rect(r.Min.X, r.Max.Y-width, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+width, r.Max.Y),
		image.Rect(r.Max.X-width, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(img, e, src, image.Point{}, draw.Src)
	}
}
