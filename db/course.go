package db

import (
	"context"

	"lms-module/errors"
	"lms-module/models"

	"github.com/google/uuid"
)

const courseColumns = `id, title, description, price, is_active, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCourse(row rowScanner) (*models.Course, error) {
	var c models.Course
	if err := row.Scan(&c.ID, &c.Title, &c.Description, &c.Price, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCourse returns the course or a NotFound error.
func (s *Store) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+courseColumns+` FROM courses WHERE id = $1`, id)
	c, err := scanCourse(row)
	if isNoRows(err) {
		return nil, errors.E(errors.NotFound, "course "+id+" not found")
	}
	if err != nil {
		return nil, internalError("error fetching course", err)
	}
	return c, nil
}

// ListCourses returns courses newest first; activeOnly hides retired ones.
func (s *Store) ListCourses(ctx context.Context, activeOnly bool) ([]models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, internalError("error listing courses", err)
	}
	defer rows.Close()

	courses := []models.Course{}
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, internalError("error scanning course", err)
		}
		courses = append(courses, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, internalError("error iterating courses", err)
	}
	return courses, nil
}

// CreateCourse inserts a course; a duplicate id is a Conflict. An empty id
// is generated.
func (s *Store) CreateCourse(ctx context.Context, c models.Course) (*models.Course, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO courses (id, title, description, price, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+courseColumns,
		c.ID, c.Title, c.Description, c.Price, c.IsActive)

	created, err := scanCourse(row)
	if isUniqueViolation(err) {
		return nil, errors.NewConflictError("course " + c.ID + " already exists")
	}
	if err != nil {
		return nil, persistenceError("error creating course", err)
	}
	return created, nil
}

// UpdateCourse overwrites the editable fields of an existing course.
func (s *Store) UpdateCourse(ctx context.Context, c models.Course) (*models.Course, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE courses
		SET title = $2, description = $3, price = $4, is_active = $5, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING `+courseColumns,
		c.ID, c.Title, c.Description, c.Price, c.IsActive)

	updated, err := scanCourse(row)
	if isNoRows(err) {
		return nil, errors.E(errors.NotFound, "course "+c.ID+" not found")
	}
	if err != nil {
		return nil, persistenceError("error updating course", err)
	}
	return updated, nil
}
