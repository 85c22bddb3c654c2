package handlers

import (
	"context"

	"lms-module/models"
	"lms-module/services"
	"lms-module/services/kafka"
)

// CourseStore is the course catalog as used by the admin endpoints.
type CourseStore interface {
	GetCourse(ctx context.Context, id string) (*models.Course, error)
	ListCourses(ctx context.Context, activeOnly bool) ([]models.Course, error)
	CreateCourse(ctx context.Context, c models.Course) (*models.Course, error)
	UpdateCourse(ctx context.Context, c models.Course) (*models.Course, error)
}

type EnrollmentReader interface {
	GetEnrollment(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	ListEnrollments(ctx context.Context) ([]models.EnrollmentDetail, error)
	ListEnrollmentsByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
}

type DLQAdmin interface {
	ListDLQMessages(ctx context.Context, limit int) ([]models.DLQMessage, error)
	ResolveDLQMessage(ctx context.Context, messageID, notes string) error
	DLQStats(ctx context.Context) (*models.DLQStats, error)
}

// Deps groups everything the handlers call. Retry may be nil.
type Deps struct {
	Payments    *services.PaymentService
	Callbacks   *services.CallbackService
	Courses     CourseStore
	Enrollments EnrollmentReader
	DLQ         DLQAdmin
	// Retry reprocesses pending dead letters.
	Retry func(ctx context.Context, limit int, reprocess kafka.Reprocessor) (int, int)
	// Reprocess is handed to Retry.
	Reprocess kafka.Reprocessor
}

// Handler serves the HTTP API.
type Handler struct {
	Deps
}

func New(deps Deps) *Handler {
	return &Handler{Deps: deps}
}
