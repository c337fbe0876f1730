package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"taller-backend/internal/models"
	"taller-backend/internal/monitoring"

	"golang.org/x/sync/errgroup"
)

// PhotoSource opens staged photo files for reading. Satisfied by
// *media.Staging.
type PhotoSource interface {
	Open(handle models.PhotoHandle) (io.ReadCloser, int64, error)
}

// PhotoUploadService pushes a draft's staged photos to blob storage. The
// whole batch is uploaded concurrently and joined before returning; a single
// failure anywhere fails the batch, since a record with partially-uploaded
// evidence is invalid.
type PhotoUploadService struct {
	Backend StorageBackend
	Source  PhotoSource
}

func NewPhotoUploadService(backend StorageBackend, source PhotoSource) *PhotoUploadService {
	return &PhotoUploadService{Backend: backend, Source: source}
}

// UploadAll uploads every handle and returns the public URLs in handle order,
// regardless of completion order: each URL is written to the slot of its
// originating handle.
func (s *PhotoUploadService) UploadAll(ctx context.Context, handles []models.PhotoHandle) ([]string, error) {
	if len(handles) == 0 {
		return []string{}, nil
	}

	urls := make([]string, len(handles))
	batchStamp := time.Now().UnixMilli()

	g, gctx := errgroup.WithContext(ctx)
	for i, handle := range handles {
		i, handle := i, handle
		g.Go(func() error {
			key := fmt.Sprintf("imagenes/%d_%d.jpg", batchStamp, i)

			reader, size, err := s.Source.Open(handle)
			if err != nil {
				return &models.UploadError{Key: key, Err: err}
			}
			defer reader.Close()

			if err := s.Backend.Upload(gctx, key, reader, size); err != nil {
				return &models.UploadError{Key: key, Err: err}
			}
			urls[i] = s.Backend.PublicURL(key)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		monitoring.PhotoUploads.WithLabelValues("error").Add(float64(len(handles)))
		return nil, err
	}

	monitoring.PhotoUploads.WithLabelValues("ok").Add(float64(len(handles)))
	return urls, nil
}
