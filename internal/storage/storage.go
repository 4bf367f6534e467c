// Package storage holds course material files in an object store.
// Two backends are supported, MinIO and Google Cloud Storage; the
// backend is chosen by configuration at startup.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
)

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// MaterialKey builds the object key for a course material. The key
// embeds the content digest, so re-uploads of identical bytes land on
// the same object.
func MaterialKey(courseID int, digest, filename string) string {
	return fmt.Sprintf("courses/%d/materials/%s/%s", courseID, digest, path.Base(filename))
}

// Storage stores course materials on an ObjectStorage backend.
type Storage struct {
	backend ObjectStorage
}

// NewStorage constructs a Storage for the provided backend.
func NewStorage(backend ObjectStorage) *Storage {
	return &Storage{backend: backend}
}

// EnsureBucket ensures the materials bucket exists.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	return s.backend.EnsureBucket(ctx)
}

// PutMaterial uploads a material object under the given key.
func (s *Storage) PutMaterial(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	return s.backend.Put(ctx, key, r, size, contentType)
}

// OpenMaterial opens a reader for a stored material object.
func (s *Storage) OpenMaterial(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.backend.Get(ctx, key)
}

// DeleteMaterial removes a material object.
func (s *Storage) DeleteMaterial(ctx context.Context, key string) error {
	return s.backend.Delete(ctx, key)
}

// Bucket returns the materials bucket name.
func (s *Storage) Bucket() string {
	return s.backend.Bucket()
}
