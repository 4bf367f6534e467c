package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"

	"github.com/coursehub-lms/apiserver/internal/events"
	"github.com/coursehub-lms/apiserver/internal/storage"
	"github.com/coursehub-lms/apiserver/internal/store"
	"github.com/coursehub-lms/apiserver/types"
)

// ErrStorageDisabled is returned from material operations when no
// object storage backend is configured.
var ErrStorageDisabled = errors.New("object storage is not configured")

// CourseRepository defines persistence operations for courses.
type CourseRepository interface {
	List(ctx context.Context, offset, limit int) ([]types.Course, int, error)
	Get(ctx context.Context, id int) (types.Course, error)
	Create(ctx context.Context, course types.Course) (types.Course, error)
	Update(ctx context.Context, course types.Course) (types.Course, error)
	Delete(ctx context.Context, id int) error
	AddMaterial(ctx context.Context, courseID int, material types.Material) error
}

// CourseService encapsulates course use-cases, including material
// uploads to object storage.
type CourseService struct {
	repo   CourseRepository
	files  *storage.Storage
	events *events.Publisher
	logger *slog.Logger
}

// NewCourseService constructs a CourseService. files may be nil when no
// object storage is configured; material operations then fail with
// ErrStorageDisabled.
func NewCourseService(repo CourseRepository, files *storage.Storage, publisher *events.Publisher, logger *slog.Logger) *CourseService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CourseService{
		repo:   repo,
		files:  files,
		events: publisher,
		logger: logger,
	}
}

func (s *CourseService) List(ctx context.Context, offset, limit int) ([]types.Course, int, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return s.repo.List(ctx, offset, limit)
}

func (s *CourseService) Get(ctx context.Context, id int) (types.Course, error) {
	return s.repo.Get(ctx, id)
}

func (s *CourseService) Create(ctx context.Context, course types.Course) (types.Course, error) {
	created, err := s.repo.Create(ctx, course)
	if err != nil {
		return types.Course{}, err
	}
	s.events.Emit(ctx, events.CourseCreated, map[string]any{"course_id": created.ID, "name": created.Name})
	return created, nil
}

func (s *CourseService) Update(ctx context.Context, course types.Course) (types.Course, error) {
	updated, err := s.repo.Update(ctx, course)
	if err != nil {
		return types.Course{}, err
	}
	s.events.Emit(ctx, events.CourseUpdated, map[string]any{"course_id": updated.ID})
	return updated, nil
}

func (s *CourseService) Delete(ctx context.Context, id int) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.events.Emit(ctx, events.CourseDeleted, map[string]any{"course_id": id})
	return nil
}

// HasStorage reports whether material uploads are available.
func (s *CourseService) HasStorage() bool {
	return s.files != nil
}

// StoreMaterial uploads a file for the given course and records it on
// the course. The object key embeds the SHA-256 of the contents, so
// re-uploading identical bytes lands on the same key.
func (s *CourseService) StoreMaterial(ctx context.Context, courseID int, filename, contentType string, data []byte) (types.Material, error) {
	if s.files == nil {
		return types.Material{}, ErrStorageDisabled
	}
	if len(data) == 0 {
		return types.Material{}, errors.New("empty material file")
	}

	// Existence check up front so a missing course does not leave an
	// orphaned object behind.
	if _, err := s.repo.Get(ctx, courseID); err != nil {
		return types.Material{}, err
	}

	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])

	material := types.Material{
		Name:        path.Base(filename),
		ObjectKey:   storage.MaterialKey(courseID, digest, filename),
		ContentType: contentType,
		Size:        int64(len(data)),
		SHA256:      digest,
	}

	if err := s.files.PutMaterial(ctx, material.ObjectKey, bytes.NewReader(data), material.Size, contentType); err != nil {
		return types.Material{}, fmt.Errorf("upload material: %w", err)
	}

	if err := s.repo.AddMaterial(ctx, courseID, material); err != nil {
		if delErr := s.files.DeleteMaterial(ctx, material.ObjectKey); delErr != nil {
			s.logger.Error("orphaned material cleanup failed", "key", material.ObjectKey, "error", delErr)
		}
		return types.Material{}, err
	}

	s.logger.Info("material stored", "course_id", courseID, "sha256", digest, "size", material.Size)
	return material, nil
}

// OpenMaterial resolves a material by its content hash and opens a
// reader for the stored object. The caller closes the reader.
func (s *CourseService) OpenMaterial(ctx context.Context, courseID int, digest string) (types.Material, io.ReadCloser, error) {
	if s.files == nil {
		return types.Material{}, nil, ErrStorageDisabled
	}

	course, err := s.repo.Get(ctx, courseID)
	if err != nil {
		return types.Material{}, nil, err
	}

	for _, material := range course.Materials {
		if material.SHA256 == digest {
			reader, err := s.files.OpenMaterial(ctx, material.ObjectKey)
			if err != nil {
				return types.Material{}, nil, fmt.Errorf("open material: %w", err)
			}
			return material, reader, nil
		}
	}
	return types.Material{}, nil, store.ErrNotFound
}
