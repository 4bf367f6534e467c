package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/coursehub-lms/apiserver/types"
)

// CourseRepository handles persistence for courses.
type CourseRepository struct {
	db *sql.DB
}

func NewCourseRepository(db *sql.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

func (r *CourseRepository) List(ctx context.Context, offset, limit int) ([]types.Course, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 20
	}

	const countQuery = `SELECT COUNT(1) FROM courses`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, err
	}

	const listQuery = `
		SELECT id, name, description, level, price, materials, created_at, updated_at
		FROM courses
		ORDER BY id
		OFFSET $1 LIMIT $2`
	rows, err := r.db.QueryContext(ctx, listQuery, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	courses := make([]types.Course, 0, limit)
	for rows.Next() {
		var course types.Course
		var materialsJSON []byte
		if err := rows.Scan(
			&course.ID,
			&course.Name,
			&course.Description,
			&course.Level,
			&course.Price,
			&materialsJSON,
			&course.CreatedAt,
			&course.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}

		_ = json.Unmarshal(materialsJSON, &course.Materials)
		courses = append(courses, course)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return courses, total, nil
}

func (r *CourseRepository) Get(ctx context.Context, id int) (types.Course, error) {
	const query = `
		SELECT id, name, description, level, price, materials, created_at, updated_at
		FROM courses
		WHERE id = $1`
	var course types.Course
	var materialsJSON []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&course.ID,
		&course.Name,
		&course.Description,
		&course.Level,
		&course.Price,
		&materialsJSON,
		&course.CreatedAt,
		&course.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Course{}, ErrNotFound
		}
		return types.Course{}, err
	}

	_ = json.Unmarshal(materialsJSON, &course.Materials)
	return course, nil
}

func (r *CourseRepository) Create(ctx context.Context, course types.Course) (types.Course, error) {
	now := time.Now()
	course.CreatedAt = now
	course.UpdatedAt = now

	materialsJSON, err := marshalMaterials(course.Materials)
	if err != nil {
		return types.Course{}, err
	}

	const query = `
		INSERT INTO courses (name, description, level, price, materials, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		course.Name,
		course.Description,
		course.Level,
		course.Price,
		materialsJSON,
		course.CreatedAt,
		course.UpdatedAt,
	).Scan(&course.ID); err != nil {
		return types.Course{}, err
	}

	return course, nil
}

// Update rewrites the mutable course fields. Materials are managed
// separately through AddMaterial and are left untouched here.
func (r *CourseRepository) Update(ctx context.Context, course types.Course) (types.Course, error) {
	course.UpdatedAt = time.Now()

	const query = `
		UPDATE courses
		SET name = $1,
			description = $2,
			level = $3,
			price = $4,
			updated_at = $5
		WHERE id = $6
		RETURNING materials, created_at`
	var materialsJSON []byte
	err := r.db.QueryRowContext(
		ctx,
		query,
		course.Name,
		course.Description,
		course.Level,
		course.Price,
		course.UpdatedAt,
		course.ID,
	).Scan(&materialsJSON, &course.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Course{}, ErrNotFound
		}
		return types.Course{}, err
	}

	_ = json.Unmarshal(materialsJSON, &course.Materials)
	return course, nil
}

func (r *CourseRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM courses WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// AddMaterial appends a material record to the course's materials
// column. The append happens in SQL so concurrent uploads to the same
// course do not lose entries.
func (r *CourseRepository) AddMaterial(ctx context.Context, courseID int, material types.Material) error {
	materialJSON, err := json.Marshal(material)
	if err != nil {
		return fmt.Errorf("marshal material: %w", err)
	}

	const query = `
		UPDATE courses
		SET materials = materials || $1::jsonb,
			updated_at = $2
		WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, materialJSON, time.Now(), courseID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func marshalMaterials(materials []types.Material) ([]byte, error) {
	if materials == nil {
		materials = []types.Material{}
	}
	return json.Marshal(materials)
}
