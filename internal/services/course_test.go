package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"testing"

	"github.com/coursehub-lms/apiserver/internal/storage"
	"github.com/coursehub-lms/apiserver/internal/store"
	"github.com/coursehub-lms/apiserver/types"
)

// memObjectStorage is an in-memory ObjectStorage backend.
type memObjectStorage struct {
	objects map[string][]byte
}

func newMemObjectStorage() *memObjectStorage {
	return &memObjectStorage{objects: map[string][]byte{}}
}

func (m *memObjectStorage) EnsureBucket(ctx context.Context) error { return nil }

func (m *memObjectStorage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = data
	return nil
}

func (m *memObjectStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, errors.New("no such object")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memObjectStorage) Delete(ctx context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func (m *memObjectStorage) Bucket() string { return "test-bucket" }

// memCourseRepo implements CourseRepository in memory.
type memCourseRepo struct {
	nextID int
	byID   map[int]types.Course
}

func newMemCourseRepo() *memCourseRepo {
	return &memCourseRepo{nextID: 1, byID: map[int]types.Course{}}
}

func (m *memCourseRepo) List(ctx context.Context, offset, limit int) ([]types.Course, int, error) {
	return nil, len(m.byID), nil
}

func (m *memCourseRepo) Get(ctx context.Context, id int) (types.Course, error) {
	course, ok := m.byID[id]
	if !ok {
		return types.Course{}, store.ErrNotFound
	}
	return course, nil
}

func (m *memCourseRepo) Create(ctx context.Context, course types.Course) (types.Course, error) {
	course.ID = m.nextID
	m.nextID++
	m.byID[course.ID] = course
	return course, nil
}

func (m *memCourseRepo) Update(ctx context.Context, course types.Course) (types.Course, error) {
	if _, ok := m.byID[course.ID]; !ok {
		return types.Course{}, store.ErrNotFound
	}
	m.byID[course.ID] = course
	return course, nil
}

func (m *memCourseRepo) Delete(ctx context.Context, id int) error {
	if _, ok := m.byID[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memCourseRepo) AddMaterial(ctx context.Context, courseID int, material types.Material) error {
	course, ok := m.byID[courseID]
	if !ok {
		return store.ErrNotFound
	}
	course.Materials = append(course.Materials, material)
	m.byID[courseID] = course
	return nil
}

func TestStoreAndOpenMaterial(t *testing.T) {
	repo := newMemCourseRepo()
	objects := newMemObjectStorage()
	svc := NewCourseService(repo, storage.NewStorage(objects), nil, quietLogger())

	course, err := svc.Create(context.Background(), types.Course{Name: "Go Basics", Price: "49.99"})
	if err != nil {
		t.Fatalf("create course: %v", err)
	}

	contents := []byte("chapter one")
	material, err := svc.StoreMaterial(context.Background(), course.ID, "notes.txt", "text/plain", contents)
	if err != nil {
		t.Fatalf("store material: %v", err)
	}

	sum := sha256.Sum256(contents)
	wantDigest := hex.EncodeToString(sum[:])
	if material.SHA256 != wantDigest {
		t.Fatalf("digest: got %q, want %q", material.SHA256, wantDigest)
	}
	if material.Size != int64(len(contents)) {
		t.Fatalf("size: got %d, want %d", material.Size, len(contents))
	}

	got, reader, err := svc.OpenMaterial(context.Background(), course.ID, wantDigest)
	if err != nil {
		t.Fatalf("open material: %v", err)
	}
	defer reader.Close()
	if got.Name != "notes.txt" {
		t.Fatalf("name: got %q", got.Name)
	}
	read, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("read material: %v", err)
	}
	if !bytes.Equal(read, contents) {
		t.Fatalf("contents mismatch: %q", read)
	}
}

func TestStoreMaterialMissingCourse(t *testing.T) {
	repo := newMemCourseRepo()
	objects := newMemObjectStorage()
	svc := NewCourseService(repo, storage.NewStorage(objects), nil, quietLogger())

	_, err := svc.StoreMaterial(context.Background(), 99, "notes.txt", "text/plain", []byte("x"))
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(objects.objects) != 0 {
		t.Fatal("orphaned object uploaded for missing course")
	}
}

// failingMaterialRepo fails AddMaterial while delegating everything
// else to the in-memory repo.
type failingMaterialRepo struct {
	*memCourseRepo
	addErr error
}

func (f *failingMaterialRepo) AddMaterial(ctx context.Context, courseID int, material types.Material) error {
	return f.addErr
}

func TestStoreMaterialCleansUpOnRecordFailure(t *testing.T) {
	base := newMemCourseRepo()
	course, err := base.Create(context.Background(), types.Course{Name: "Go Basics", Price: "49.99"})
	if err != nil {
		t.Fatalf("create course: %v", err)
	}

	repo := &failingMaterialRepo{memCourseRepo: base, addErr: errors.New("insert failed")}
	objects := newMemObjectStorage()
	svc := NewCourseService(repo, storage.NewStorage(objects), nil, quietLogger())

	_, err = svc.StoreMaterial(context.Background(), course.ID, "notes.txt", "text/plain", []byte("x"))
	if err == nil {
		t.Fatal("expected store material to fail")
	}
	if len(objects.objects) != 0 {
		t.Fatal("uploaded object left behind after record failure")
	}
}

func TestMaterialOperationsWithoutStorage(t *testing.T) {
	repo := newMemCourseRepo()
	svc := NewCourseService(repo, nil, nil, quietLogger())

	if svc.HasStorage() {
		t.Fatal("expected storage to be disabled")
	}
	if _, err := svc.StoreMaterial(context.Background(), 1, "a", "b", []byte("x")); !errors.Is(err, ErrStorageDisabled) {
		t.Fatalf("store: got %v", err)
	}
	if _, _, err := svc.OpenMaterial(context.Background(), 1, "abc"); !errors.Is(err, ErrStorageDisabled) {
		t.Fatalf("open: got %v", err)
	}
}

func TestOpenMaterialUnknownDigest(t *testing.T) {
	repo := newMemCourseRepo()
	svc := NewCourseService(repo, storage.NewStorage(newMemObjectStorage()), nil, quietLogger())

	course, err := svc.Create(context.Background(), types.Course{Name: "Go Basics", Price: "49.99"})
	if err != nil {
		t.Fatalf("create course: %v", err)
	}

	_, _, err = svc.OpenMaterial(context.Background(), course.ID, "deadbeef")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
