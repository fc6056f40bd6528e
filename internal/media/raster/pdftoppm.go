package raster

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // Register JPEG decoder
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"
)

const pdftoppmBinary = "pdftoppm"

// Pdftoppm shells out to poppler's pdftoppm.
type Pdftoppm struct {
	binary  string
	dpi     float64
	timeout time.Duration
}

// NewPdftoppm locates the binary in dirs, then on PATH. When it is not found
// the probe stays in the chain and reports ErrUnavailable.
func NewPdftoppm(dirs []string, dpi float64, timeout time.Duration) *Pdftoppm {
	return &Pdftoppm{
		binary:  findBinary(pdftoppmBinary, dirs),
		dpi:     dpi,
		timeout: timeout,
	}
}

// Name implements Rasterizer.
func (p *Pdftoppm) Name() string { return "pdftoppm" }

// Available reports whether the binary was found.
func (p *Pdftoppm) Available() bool { return p.binary != "" }

// Render implements Rasterizer.
func (p *Pdftoppm) Render(ctx context.Context, pdf []byte) (image.Image, error) {
	if p.binary == "" {
		return nil, ErrUnavailable
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	dir, err := os.MkdirTemp("", "bookshelf-render-*")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(dir) //nolint:errcheck // best-effort cleanup of scratch files

	input := filepath.Join(dir, "source.pdf")
	if err := os.WriteFile(input, pdf, 0o600); err != nil {
		return nil, fmt.Errorf("write source: %w", err)
	}
	output := filepath.Join(dir, "page")

	//#nosec G204 -- binary is resolved from configured directories, arguments are fixed
	cmd := exec.CommandContext(ctx, p.binary,
		"-f", "1", "-l", "1",
		"-r", strconv.FormatFloat(p.dpi, 'f', -1, 64),
		"-jpeg", "-singlefile",
		input, output,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("pdftoppm: %w", ctxErr)
		}
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}

	//#nosec G304 -- output path is inside our own temp dir
	data, err := os.ReadFile(output + ".jpg")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoImage, err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode pdftoppm output: %w", err)
	}
	return img, nil
}

// findBinary returns the first executable named name in dirs, falling back to
// PATH, or "".
func findBinary(name string, dirs []string) string {
	for _, dir := range dirs {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() && info.Mode().Perm()&0o111 != 0 {
			return candidate
		}
	}
	if p, err := exec.LookPath(name); err == nil {
		return p
	}
	return ""
}
