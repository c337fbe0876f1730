package media

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage(t *testing.T, w, h int) *image.RGBA {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), A: 255})
		}
	}
	return img
}

func encodeJPEG(t *testing.T, img image.Image) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return &buf
}

func newTestStaging(t *testing.T) (*Staging, string) {
	t.Helper()
	dir := t.TempDir()
	spool := filepath.Join(dir, "spool")
	require.NoError(t, os.MkdirAll(spool, 0755))
	s, err := NewStaging(filepath.Join(dir, "staging"), spool, 70)
	require.NoError(t, err)
	return s, spool
}

func TestSelect_NormalizesToFourThree(t *testing.T) {
	s, _ := newTestStaging(t)

	handle, err := s.Select(context.Background(), encodeJPEG(t, testImage(t, 1000, 1000)), "foto.jpg")
	require.NoError(t, err)
	assert.Equal(t, "galeria", handle.Source)
	assert.Positive(t, handle.SizeBytes)

	f, err := os.Open(handle.Path)
	require.NoError(t, err)
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, cfg.Width*3, cfg.Height*4)
}

func TestSelect_AcceptsPNG(t *testing.T) {
	s, _ := newTestStaging(t)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(t, 400, 300)))

	handle, err := s.Select(context.Background(), &buf, "foto.png")
	require.NoError(t, err)
	assert.FileExists(t, handle.Path)
}

func TestSelect_RejectsGarbage(t *testing.T) {
	s, _ := newTestStaging(t)

	_, err := s.Select(context.Background(), bytes.NewBufferString("not an image"), "x.jpg")
	assert.Error(t, err)
}

func TestCapture_EmptySpoolIsNoOp(t *testing.T) {
	s, _ := newTestStaging(t)

	_, ok, err := s.Capture(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCapture_ClaimsNewestSpoolFile(t *testing.T) {
	s, spool := newTestStaging(t)

	older := filepath.Join(spool, "a.jpg")
	newer := filepath.Join(spool, "b.jpg")
	require.NoError(t, os.WriteFile(older, encodeJPEG(t, testImage(t, 400, 300)).Bytes(), 0644))
	require.NoError(t, os.WriteFile(newer, encodeJPEG(t, testImage(t, 800, 600)).Bytes(), 0644))
	now := time.Now()
	require.NoError(t, os.Chtimes(older, now.Add(-time.Minute), now.Add(-time.Minute)))
	require.NoError(t, os.Chtimes(newer, now, now))

	handle, ok, err := s.Capture(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "camara", handle.Source)
	assert.NoFileExists(t, newer)
	assert.FileExists(t, older)
}

func TestRemove_DeletesStagedFile(t *testing.T) {
	s, _ := newTestStaging(t)

	handle, err := s.Select(context.Background(), encodeJPEG(t, testImage(t, 400, 300)), "foto.jpg")
	require.NoError(t, err)
	require.NoError(t, s.Remove(handle))
	assert.NoFileExists(t, handle.Path)
}

func TestCropToAspect_AlreadyMatching(t *testing.T) {
	img := testImage(t, 800, 600)
	assert.Equal(t, image.Image(img), cropToAspect(img, 4, 3))
}
