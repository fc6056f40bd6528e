package images

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// FitWithin scales img down so it fits inside maxW x maxH, keeping the aspect
// ratio. Images that already fit are returned unchanged; nothing is enlarged.
func FitWithin(img image.Image, maxW, maxH int, scaler draw.Scaler) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxW && h <= maxH {
		return img
	}

	dstW, dstH := maxW, h*maxW/w
	if dstH > maxH {
		dstW, dstH = w*maxH/h, maxH
	}
	dstW = max(dstW, 1)
	dstH = max(dstH, 1)

	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	scaler.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// Decode decodes any registered image format and returns the format name.
func Decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	return img, format, nil
}

// EncodeJPEG encodes img as baseline JPEG. Alpha is flattened onto black by
// the encoder.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
