package raster

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/listenupapp/bookshelf-server/internal/errors"
)

var minimalPDF = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

type fakeRasterizer struct {
	name  string
	img   image.Image
	err   error
	calls int
}

func (f *fakeRasterizer) Name() string { return f.name }

func (f *fakeRasterizer) Render(context.Context, []byte) (image.Image, error) {
	f.calls++
	return f.img, f.err
}

func page() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 10, 14))
	img.Set(1, 1, color.White)
	return img
}

func TestChain_FirstSuccessWins(t *testing.T) {
	first := &fakeRasterizer{name: "first", err: ErrUnavailable}
	second := &fakeRasterizer{name: "second", img: page()}
	third := &fakeRasterizer{name: "third", img: page()}

	img, used, err := NewChain(nil, first, second, third).Render(context.Background(), minimalPDF)
	require.NoError(t, err)
	assert.NotNil(t, img)
	assert.Equal(t, "second", used)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, third.calls)
}

func TestChain_RejectsNonPDF(t *testing.T) {
	probe := &fakeRasterizer{name: "p", img: page()}
	_, _, err := NewChain(nil, probe).Render(context.Background(), []byte("plain text, not a pdf"))
	assert.ErrorIs(t, err, domainerrors.ErrMalformedInput)
	assert.Equal(t, 0, probe.calls)
}

func TestChain_AllFail(t *testing.T) {
	boom := errors.New("boom")
	chain := NewChain(nil,
		&fakeRasterizer{name: "a", err: boom},
		&fakeRasterizer{name: "b"},
	)
	_, _, err := chain.Render(context.Background(), minimalPDF)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, ErrNoImage)
}

func TestChain_NoProbes(t *testing.T) {
	_, _, err := NewChain(nil).Render(context.Background(), minimalPDF)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestChain_EmptyImageIsNoImage(t *testing.T) {
	chain := NewChain(nil,
		&fakeRasterizer{name: "empty", img: image.NewRGBA(image.Rectangle{})},
		&fakeRasterizer{name: "good", img: page()},
	)
	_, used, err := chain.Render(context.Background(), minimalPDF)
	require.NoError(t, err)
	assert.Equal(t, "good", used)
}

func TestChain_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	probe := &fakeRasterizer{name: "p", img: page()}
	_, _, err := NewChain(nil, probe).Render(ctx, minimalPDF)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, probe.calls)
}

func TestChain_Probes(t *testing.T) {
	chain := NewChain(nil, &fakeRasterizer{name: "a"}, &fakeRasterizer{name: "b"})
	assert.Equal(t, []string{"a", "b"}, chain.Probes())
}

func TestIsPDF(t *testing.T) {
	assert.True(t, IsPDF(minimalPDF))
	assert.False(t, IsPDF(nil))
	assert.False(t, IsPDF([]byte{0xff, 0xd8, 0xff, 0xe0}))
}

func TestWithBreaker_OpensAfterFailures(t *testing.T) {
	inner := &fakeRasterizer{name: "flaky", err: errors.New("crashed")}
	guarded := WithBreaker(inner, BreakerSettings{ConsecutiveFailures: 2, Cooldown: time.Hour}, nil)
	assert.Equal(t, "flaky", guarded.Name())

	for range 2 {
		_, err := guarded.Render(context.Background(), minimalPDF)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnavailable)
	}

	_, err := guarded.Render(context.Background(), minimalPDF)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 2, inner.calls)
}

func TestWithBreaker_UnavailableDoesNotTrip(t *testing.T) {
	inner := &fakeRasterizer{name: "absent", err: ErrUnavailable}
	guarded := WithBreaker(inner, BreakerSettings{ConsecutiveFailures: 1, Cooldown: time.Hour}, nil)

	for range 3 {
		_, err := guarded.Render(context.Background(), minimalPDF)
		assert.ErrorIs(t, err, ErrUnavailable)
	}
	assert.Equal(t, 3, inner.calls)
}

func TestPdftoppm_Unavailable(t *testing.T) {
	p := &Pdftoppm{}
	assert.False(t, p.Available())
	_, err := p.Render(context.Background(), minimalPDF)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestPdftoppm_FakeBinary(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixture")
	}
	dir := t.TempDir()

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, page(), nil))
	fixture := filepath.Join(dir, "fixture.jpg")
	require.NoError(t, os.WriteFile(fixture, buf.Bytes(), 0o600))

	// Copies the fixture to "<last arg>.jpg", like -singlefile does.
	script := "#!/bin/sh\nfor a; do out=$a; done\ncp '" + fixture + "' \"$out.jpg\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, pdftoppmBinary), []byte(script), 0o755))

	p := NewPdftoppm([]string{filepath.Join(dir, "missing"), dir}, 150, 10*time.Second)
	require.True(t, p.Available())
	assert.Equal(t, filepath.Join(dir, pdftoppmBinary), p.binary)

	img, err := p.Render(context.Background(), minimalPDF)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 10, 14), img.Bounds())
}

func TestPdftoppm_FailingBinary(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixture")
	}
	dir := t.TempDir()
	script := "#!/bin/sh\necho 'Syntax Error: broken' >&2\nexit 1\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, pdftoppmBinary), []byte(script), 0o755))

	p := NewPdftoppm([]string{dir}, 150, 10*time.Second)
	_, err := p.Render(context.Background(), minimalPDF)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Syntax Error")
}

func TestEmbeddedImage_RejectsGarbage(t *testing.T) {
	_, err := NewEmbeddedImage().Render(context.Background(), []byte("%PDF-garbage"))
	assert.Error(t, err)
}
