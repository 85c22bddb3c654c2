package services

import (
	"context"

	"lms-module/models"
	"lms-module/services/mpesa"
)

type CourseStore interface {
	GetCourse(ctx context.Context, id string) (*models.Course, error)
}

// ProfileProvider resolves a purchaser's profile from the identity provider.
type ProfileProvider interface {
	GetProfile(ctx context.Context, purchaserID string) (*models.PurchaserProfile, error)
}

type StudentStore interface {
	UpsertStudent(ctx context.Context, profile models.PurchaserProfile) (*models.Student, error)
	GetStudentByPurchaser(ctx context.Context, purchaserID string) (*models.Student, error)
}

// EnrollmentStore creates enrollments at most once per (student, course,
// payment); created is false when the triple already existed.
type EnrollmentStore interface {
	CreateEnrollment(ctx context.Context, ne models.NewEnrollment) (e *models.Enrollment, created bool, err error)
}

type PaymentRequestStore interface {
	SavePaymentRequest(ctx context.Context, p models.PaymentRequest) error
	GetPaymentRequestByMerchantID(ctx context.Context, merchantRequestID string) (*models.PaymentRequest, error)
	MarkPaymentRequest(ctx context.Context, merchantRequestID, status, receiptNumber, resultDesc string) error
}

type CallbackLog interface {
	LogCallback(ctx context.Context, checkoutRequestID, merchantRequestID string, resultCode *int, payload []byte) (int, error)
	UpdateCallbackStatus(ctx context.Context, checkoutRequestID, status, reason string) error
}

// Gateway is the push-payment provider as seen by the initiator.
type Gateway interface {
	FetchAccessToken(ctx context.Context) (mpesa.AccessToken, error)
	NewPaymentRequest(amount int64, phone, callbackURL, accountReference, description string) mpesa.PaymentRequest
	SubmitPushPayment(ctx context.Context, req mpesa.PaymentRequest, token mpesa.AccessToken) (*mpesa.GatewayAck, error)
}

// EventPublisher publishes a JSON-encoded event. Implementations are best-effort.
type EventPublisher interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}
