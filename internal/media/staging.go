package media

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"taller-backend/internal/models"

	_ "image/png" // gallery picks may arrive as PNG
)

// Staging ingests photos for in-progress drafts. Both entry points normalize
// the image at ingest time (JPEG re-encode at a fixed quality, center crop to
// 4:3) so the later upload payload stays bounded. Files live in the staging
// directory until the draft is submitted or the photo is discarded.
type Staging struct {
	stagingDir string
	spoolDir   string
	quality    int
}

func NewStaging(stagingDir, spoolDir string, quality int) (*Staging, error) {
	if err := os.MkdirAll(stagingDir, 0755); err != nil {
		return nil, wrapPermission("prepare staging directory", err)
	}
	if quality <= 0 || quality > 100 {
		quality = 70
	}
	return &Staging{stagingDir: stagingDir, spoolDir: spoolDir, quality: quality}, nil
}

// Select ingests an image handed over by the shell (the gallery pick).
func (s *Staging) Select(_ context.Context, r io.Reader, _ string) (models.PhotoHandle, error) {
	return s.ingest(r, "galeria")
}

// Capture claims the newest image dropped into the camera spool directory.
// An empty spool is a cancelled capture: no handle, no error.
func (s *Staging) Capture(_ context.Context) (models.PhotoHandle, bool, error) {
	entries, err := os.ReadDir(s.spoolDir)
	if err != nil {
		if os.IsNotExist(err) {
			return models.PhotoHandle{}, false, nil
		}
		return models.PhotoHandle{}, false, wrapPermission("read camera spool", err)
	}

	type candidate struct {
		path string
		mod  time.Time
	}
	var candidates []candidate
	for _, entry := range entries {
		if entry.IsDir() || !isImageName(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{
			path: filepath.Join(s.spoolDir, entry.Name()),
			mod:  info.ModTime(),
		})
	}
	if len(candidates) == 0 {
		return models.PhotoHandle{}, false, nil
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].mod.After(candidates[j].mod) })

	f, err := os.Open(candidates[0].path)
	if err != nil {
		return models.PhotoHandle{}, false, wrapPermission("open captured image", err)
	}
	handle, err := s.ingest(f, "camara")
	f.Close()
	if err != nil {
		return models.PhotoHandle{}, false, err
	}

	// The spool file has been claimed; best effort removal.
	os.Remove(candidates[0].path)

	return handle, true, nil
}

// Open returns the staged file content for upload.
func (s *Staging) Open(handle models.PhotoHandle) (io.ReadCloser, int64, error) {
	f, err := os.Open(handle.Path)
	if err != nil {
		return nil, 0, wrapPermission("open staged photo", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, info.Size(), nil
}

// Remove discards a staged file after an explicit, user-confirmed removal or
// after a successful submission.
func (s *Staging) Remove(handle models.PhotoHandle) error {
	return os.Remove(handle.Path)
}

func (s *Staging) ingest(r io.Reader, source string) (models.PhotoHandle, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return models.PhotoHandle{}, fmt.Errorf("decode image: %w", err)
	}
	img = cropToAspect(img, 4, 3)

	name := fmt.Sprintf("foto_%d.jpg", time.Now().UnixNano())
	path := filepath.Join(s.stagingDir, name)

	f, err := os.Create(path)
	if err != nil {
		return models.PhotoHandle{}, wrapPermission("write staged photo", err)
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: s.quality}); err != nil {
		f.Close()
		os.Remove(path)
		return models.PhotoHandle{}, fmt.Errorf("encode jpeg: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		os.Remove(path)
		return models.PhotoHandle{}, err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return models.PhotoHandle{}, err
	}

	return models.PhotoHandle{Path: path, Source: source, SizeBytes: info.Size()}, nil
}

// cropToAspect center-crops img to the given aspect ratio. Images already at
// the target ratio are returned unchanged.
func cropToAspect(img image.Image, aw, ah int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w*ah == h*aw {
		return img
	}

	cropW, cropH := w, h
	if w*ah > h*aw {
		cropW = h * aw / ah
	} else {
		cropH = w * ah / aw
	}

	x0 := bounds.Min.X + (w-cropW)/2
	y0 := bounds.Min.Y + (h-cropH)/2
	rect := image.Rect(0, 0, cropW, cropH)

	out := image.NewRGBA(rect)
	draw.Draw(out, rect, img, image.Pt(x0, y0), draw.Src)
	return out
}

func isImageName(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}

func wrapPermission(op string, err error) error {
	if os.IsPermission(err) {
		return &models.PermissionError{Op: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}
