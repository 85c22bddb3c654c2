package db

import (
	"context"

	"lms-module/errors"
	"lms-module/logger"
	"lms-module/models"

	"github.com/google/uuid"
)

const enrollmentColumns = `id, student_id, course_id, payment_id, amount, source, created_at`

func scanEnrollment(row rowScanner) (*models.Enrollment, error) {
	var e models.Enrollment
	if err := row.Scan(&e.ID, &e.StudentID, &e.CourseID, &e.PaymentID, &e.Amount, &e.Source, &e.CreatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

// CreateEnrollment inserts an enrollment once per (student, course, payment).
// A repeat of the same triple returns the stored record with created=false.
// Every other failure is a Persistence error.
func (s *Store) CreateEnrollment(ctx context.Context, ne models.NewEnrollment) (*models.Enrollment, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO enrollments (id, student_id, course_id, payment_id, amount, source)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (student_id, course_id, payment_id) DO NOTHING
		RETURNING `+enrollmentColumns,
		uuid.NewString(), ne.StudentID, ne.CourseID, ne.PaymentID, ne.Amount, ne.Source)

	e, err := scanEnrollment(row)
	switch {
	case err == nil:
		return e, true, nil
	case isNoRows(err):
		// conflict: the enrollment already exists
	default:
		if code := pqCode(err); code != "" {
			logger.Error("Enrollment insert failed - Code: %s, Student: %s, Course: %s", code, ne.StudentID, ne.CourseID)
		}
		return nil, false, persistenceError("error creating enrollment", err)
	}

	existing := s.db.QueryRowContext(ctx, `
		SELECT `+enrollmentColumns+`
		FROM enrollments
		WHERE student_id = $1 AND course_id = $2 AND payment_id = $3`,
		ne.StudentID, ne.CourseID, ne.PaymentID)
	e, err = scanEnrollment(existing)
	if err != nil {
		return nil, false, persistenceError("error reading existing enrollment", err)
	}
	return e, false, nil
}

const enrollmentDetailQuery = `
	SELECT e.id, e.student_id, e.course_id, e.payment_id, e.amount, e.source, e.created_at,
	       TRIM(s.first_name || ' ' || s.last_name), s.email, c.title
	FROM enrollments e
	JOIN students s ON s.id = e.student_id
	JOIN courses c ON c.id = e.course_id`

func scanEnrollmentDetail(row rowScanner) (*models.EnrollmentDetail, error) {
	var d models.EnrollmentDetail
	err := row.Scan(&d.ID, &d.StudentID, &d.CourseID, &d.PaymentID, &d.Amount, &d.Source, &d.CreatedAt,
		&d.StudentName, &d.StudentEmail, &d.CourseTitle)
	if err != nil {
		return nil, err
	}
	if d.StudentName == "" {
		d.StudentName = d.StudentEmail
	}
	return &d, nil
}

// GetEnrollment returns one enrollment with its display fields.
func (s *Store) GetEnrollment(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	row := s.db.QueryRowContext(ctx, enrollmentDetailQuery+` WHERE e.id = $1`, id)
	d, err := scanEnrollmentDetail(row)
	if isNoRows(err) {
		return nil, errors.E(errors.NotFound, "enrollment "+id+" not found")
	}
	if err != nil {
		return nil, internalError("error fetching enrollment", err)
	}
	return d, nil
}

// ListEnrollments returns every enrollment, newest first.
func (s *Store) ListEnrollments(ctx context.Context) ([]models.EnrollmentDetail, error) {
	return s.queryEnrollments(ctx, enrollmentDetailQuery+` ORDER BY e.created_at DESC`)
}

func (s *Store) ListEnrollmentsByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	return s.queryEnrollments(ctx, enrollmentDetailQuery+` WHERE e.student_id = $1 ORDER BY e.created_at DESC`, studentID)
}

func (s *Store) queryEnrollments(ctx context.Context, query string, args ...interface{}) ([]models.EnrollmentDetail, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, internalError("error listing enrollments", err)
	}
	defer rows.Close()

	list := []models.EnrollmentDetail{}
	for rows.Next() {
		d, err := scanEnrollmentDetail(rows)
		if err != nil {
			return nil, internalError("error scanning enrollment", err)
		}
		list = append(list, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, internalError("error iterating enrollments", err)
	}
	return list, nil
}
