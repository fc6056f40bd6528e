package images

import (
	"bytes"
	"fmt"
	"image"

	"github.com/bbrks/go-blurhash"
	"golang.org/x/image/draw"
)

// blurHashSize bounds the thumbnail the hash is computed from. The hash is a
// low-resolution placeholder so a 64px source gives the same result as the
// full cover at a fraction of the cost.
const blurHashSize = 64

// BlurHash computes a 4x3 component BlurHash for img.
func BlurHash(img image.Image) (string, error) {
	hash, err := blurhash.Encode(4, 3, FitWithin(img, blurHashSize, blurHashSize, draw.ApproxBiLinear))
	if err != nil {
		return "", fmt.Errorf("encode blurhash: %w", err)
	}
	return hash, nil
}

// BlurHashBytes decodes an encoded image and computes its BlurHash.
func BlurHashBytes(data []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	return BlurHash(img)
}
