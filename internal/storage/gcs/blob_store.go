// Package gcs stores audit objects in a Google Cloud Storage bucket.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// Config names the bucket.
type Config struct {
	Bucket string
}

// BlobStore writes write-once audit objects. An object that already exists is
// left untouched, so a replayed delivery never rewrites its history.
type BlobStore struct {
	bucket *storage.BucketHandle
	name   string
}

// New returns a BlobStore for cfg.Bucket.
func New(client *storage.Client, cfg Config) (*BlobStore, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	name := strings.TrimSpace(cfg.Bucket)
	if name == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &BlobStore{bucket: client.Bucket(name), name: name}, nil
}

// PutObject uploads data as object and returns its gs:// URI.
func (s *BlobStore) PutObject(ctx context.Context, object string, contentType string, data []byte) (string, error) {
	object = strings.Trim(strings.TrimSpace(object), "/")
	if object == "" {
		return "", fmt.Errorf("object name is required")
	}
	uri := "gs://" + s.name + "/" + object

	w := s.bucket.Object(object).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = contentType
	w.ChunkSize = 0 // audit entries are small; upload in one request

	_, werr := w.Write(data)
	cerr := w.Close()
	switch {
	case werr != nil:
		return "", fmt.Errorf("upload %s: %w", uri, werr)
	case alreadyExists(cerr):
		return uri, nil
	case cerr != nil:
		return "", fmt.Errorf("finalize %s: %w", uri, cerr)
	}
	return uri, nil
}

func alreadyExists(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusPreconditionFailed
}
