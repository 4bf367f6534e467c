package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/coursehub-lms/apiserver/types"
)

func TestCourseGetUnmarshalsMaterials(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCourseRepository(db)

	now := time.Now()
	materials := `[{"name":"syllabus.pdf","object_key":"courses/3/materials/abc/syllabus.pdf","content_type":"application/pdf","size":1024,"sha256":"abc"}]`
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, description, level, price, materials")).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "level", "price", "materials", "created_at", "updated_at"}).
			AddRow(3, "Go Basics", "Introduction to Go", "beginner", "49.99", []byte(materials), now, now))

	course, err := repo.Get(context.Background(), 3)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(course.Materials) != 1 {
		t.Fatalf("materials: got %d entries, want 1", len(course.Materials))
	}
	if course.Materials[0].SHA256 != "abc" {
		t.Fatalf("material hash: got %q", course.Materials[0].SHA256)
	}
}

func TestCourseGetNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCourseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT")).
		WithArgs(99).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), 99)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCourseDeleteNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCourseRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM courses")).
		WithArgs(99).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCourseAddMaterialNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCourseRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE courses")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.AddMaterial(context.Background(), 99, types.Material{Name: "a.pdf"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
