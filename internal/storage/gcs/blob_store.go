// Package gcs provides a BlobStore backed by Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"

	blob "github.com/JakeFAU/seo-linker/internal/storage"
)

// Config captures the parameters required to write to GCS.
type Config struct {
	Bucket string
	// CacheControl is set on every export when non-empty.
	CacheControl string
}

// BlobStore writes exports to a configured GCS bucket.
type BlobStore struct {
	client *storage.Client
	cfg    Config
}

// New creates a GCS-backed blob store.
func New(client *storage.Client, cfg Config) (*BlobStore, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &BlobStore{client: client, cfg: cfg}, nil
}

// Put uploads obj with its content type, download name and metadata, and
// returns a gs:// URI. It fails with storage.ErrObjectExists when obj.Path
// is already taken.
func (s *BlobStore) Put(ctx context.Context, obj blob.Object) (string, error) {
	if err := obj.Validate(); err != nil {
		return "", err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	handle := s.client.Bucket(s.cfg.Bucket).Object(obj.Path).If(storage.Conditions{DoesNotExist: true})

	w := handle.NewWriter(ctx)
	w.ContentType = obj.ContentType
	w.ContentDisposition = obj.ContentDisposition()
	w.CacheControl = s.cfg.CacheControl
	if len(obj.Metadata) > 0 {
		w.Metadata = obj.Metadata
	}

	if _, err := io.Copy(w, obj.Body); err != nil {
		cancel()
		_ = w.Close()
		return "", fmt.Errorf("upload %s: %w", obj.Path, err)
	}
	if err := w.Close(); err != nil {
		return "", s.wrap(obj.Path, err)
	}
	return fmt.Sprintf("gs://%s/%s", s.cfg.Bucket, obj.Path), nil
}

func (s *BlobStore) wrap(path string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusPreconditionFailed {
		return fmt.Errorf("gs://%s/%s: %w", s.cfg.Bucket, path, blob.ErrObjectExists)
	}
	return fmt.Errorf("upload %s: %w", path, err)
}
