package services

import (
	"context"

	"lms-module/errors"
	"lms-module/logger"
	"lms-module/models"

	"github.com/shopspring/decimal"
)

// EnrollmentCommitter turns a confirmed payment into an enrollment. It is
// shared by the M-Pesa callback and the free-course path.
type EnrollmentCommitter struct {
	students    StudentStore
	enrollments EnrollmentStore
	courses     CourseStore
	events      EventPublisher
	emails      *EmailService
}

// CommitterDeps groups the collaborators of EnrollmentCommitter. Courses,
// Events and Emails are only used for notifications and may be nil.
type CommitterDeps struct {
	Students    StudentStore
	Enrollments EnrollmentStore
	Courses     CourseStore
	Events      EventPublisher
	Emails      *EmailService
}

func NewEnrollmentCommitter(deps CommitterDeps) *EnrollmentCommitter {
	return &EnrollmentCommitter{
		students:    deps.Students,
		enrollments: deps.Enrollments,
		courses:     deps.Courses,
		events:      deps.Events,
		emails:      deps.Emails,
	}
}

// Commit resolves the purchaser's student record and creates the enrollment.
// It returns a NotFound error when the purchaser has no student record and a
// Persistence error when either lookup or write fails. created is false
// when the same payment was already committed.
func (c *EnrollmentCommitter) Commit(ctx context.Context, intent PurchaseIntent, paymentID string, amount decimal.Decimal, source string) (*models.Enrollment, bool, error) {
	student, err := c.students.GetStudentByPurchaser(ctx, intent.PurchaserID)
	if err != nil {
		if errors.IsKind(err, errors.NotFound) {
			return nil, false, err
		}
		return nil, false, errors.E(errors.Persistence, "student lookup failed", err)
	}

	return c.Enroll(ctx, student, intent.CourseID, paymentID, amount, source)
}

// Enroll creates the enrollment for a known student and sends the
// notifications when it is new.
func (c *EnrollmentCommitter) Enroll(ctx context.Context, student *models.Student, courseID, paymentID string, amount decimal.Decimal, source string) (*models.Enrollment, bool, error) {
	enrollment, created, err := c.enrollments.CreateEnrollment(ctx, models.NewEnrollment{
		StudentID: student.ID,
		CourseID:  courseID,
		PaymentID: paymentID,
		Amount:    amount,
		Source:    source,
	})
	if err != nil {
		if !errors.IsKind(err, errors.Persistence) {
			err = errors.E(errors.Persistence, "enrollment write failed", err)
		}
		return nil, false, err
	}

	if !created {
		logger.Info("Enrollment %s already exists for payment %s, skipping notifications", enrollment.ID, paymentID)
		return enrollment, false, nil
	}

	logger.Info("Enrollment %s created - Student: %s, Course: %s, Payment: %s, Amount: %s",
		enrollment.ID, student.ID, courseID, paymentID, amount.String())
	c.notify(ctx, student, enrollment)
	return enrollment, true, nil
}

func (c *EnrollmentCommitter) notify(ctx context.Context, student *models.Student, enrollment *models.Enrollment) {
	publishEvent(ctx, c.events, TopicEnrollments, enrollment.ID, EventEnrollmentCreated, map[string]interface{}{
		"enrollment_id": enrollment.ID,
		"student_id":    student.ID,
		"course_id":     enrollment.CourseID,
		"payment_id":    enrollment.PaymentID,
		"amount":        enrollment.Amount.String(),
		"source":        enrollment.Source,
	})

	if c.emails == nil || c.courses == nil {
		return
	}
	course, err := c.courses.GetCourse(ctx, enrollment.CourseID)
	if err != nil {
		logger.Warn("Skipping confirmation email for enrollment %s: %v", enrollment.ID, err)
		return
	}
	if err := c.emails.SendEnrollmentConfirmation(ctx, student, course, enrollment); err != nil {
		logger.Warn("Confirmation email for enrollment %s not queued: %v", enrollment.ID, err)
	}
}
