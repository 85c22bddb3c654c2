package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FreePaymentID marks enrollments granted without a payment
const FreePaymentID = "free"

// Enrollment sources
const (
	SourceFree  = "FREE"
	SourceMpesa = "MPESA"
)

// NewEnrollment carries the values an enrollment is created with
type NewEnrollment struct {
	StudentID string
	CourseID  string
	PaymentID string
	Amount    decimal.Decimal
	Source    string
}

// Enrollment is the durable grant of access to a course
type Enrollment struct {
	ID        string          `json:"id"`
	StudentID string          `json:"student_id"`
	CourseID  string          `json:"course_id"`
	PaymentID string          `json:"payment_id"`
	Amount    decimal.Decimal `json:"amount"`
	Source    string          `json:"source"`
	CreatedAt time.Time       `json:"created_at"`
}

// EnrollmentDetail joins an enrollment with display fields for receipts and exports
type EnrollmentDetail struct {
	Enrollment
	StudentName  string `json:"student_name"`
	StudentEmail string `json:"student_email"`
	CourseTitle  string `json:"course_title"`
}
