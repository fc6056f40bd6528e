// Package id generates record identifiers.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// alphabet keeps IDs safe inside object keys and URL paths without escaping.
const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// idLength gives roughly 82 bits of entropy with the lowercase alphabet.
const idLength = 16

// Generate returns "<prefix>_<nanoid>", e.g. "book_3kq0v8x1m2c9d7ra".
func Generate(prefix string) (string, error) {
	raw, err := gonanoid.Generate(alphabet, idLength)
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	if prefix == "" {
		return raw, nil
	}
	return prefix + "_" + raw, nil
}

// MustGenerate is Generate for callers that cannot recover from entropy failure.
func MustGenerate(prefix string) string {
	v, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return v
}
