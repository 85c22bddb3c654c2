package services

import (
	"context"
	"strings"
	"time"

	"lms-module/config"
	"lms-module/errors"
	"lms-module/logger"
	"lms-module/models"

	"github.com/shopspring/decimal"
)

const (
	saveAttempts = 3
	saveBackoff  = 100 * time.Millisecond
)

// ErrPaymentInitiationFailed is the only failure Initiate reports. The
// underlying cause is logged with its kind.
var ErrPaymentInitiationFailed = errors.E(errors.Other, "failed to initiate payment")

// InitiationOutcome describes a successful initiation. For a paid course the
// money has not moved yet; the callback confirms it later.
type InitiationOutcome struct {
	Free              bool   `json:"free"`
	EnrollmentID      string `json:"enrollment_id,omitempty"`
	MerchantRequestID string `json:"merchant_request_id,omitempty"`
	CheckoutRequestID string `json:"checkout_request_id,omitempty"`
	CustomerMessage   string `json:"customer_message,omitempty"`
}

// PaymentService starts M-Pesa push payments and grants free courses.
type PaymentService struct {
	courses     CourseStore
	profiles    ProfileProvider
	students    StudentStore
	committer   *EnrollmentCommitter
	requests    PaymentRequestStore
	gateway     Gateway
	events      EventPublisher
	callbackURL string
	timeout     time.Duration
	saveBackoff time.Duration
}

// PaymentDeps groups the collaborators of PaymentService. Events may be nil.
type PaymentDeps struct {
	Courses   CourseStore
	Profiles  ProfileProvider
	Students  StudentStore
	Committer *EnrollmentCommitter
	Requests  PaymentRequestStore
	Gateway   Gateway
	Events    EventPublisher
}

// NewPaymentService creates a new PaymentService instance
func NewPaymentService(cfg *config.Config, deps PaymentDeps) *PaymentService {
	return &PaymentService{
		courses:     deps.Courses,
		profiles:    deps.Profiles,
		students:    deps.Students,
		committer:   deps.Committer,
		requests:    deps.Requests,
		gateway:     deps.Gateway,
		events:      deps.Events,
		callbackURL: cfg.CallbackURL(),
		timeout:     timeoutOrDefault(cfg.HTTPTimeout),
		saveBackoff: saveBackoff,
	}
}

// Initiate resolves the course and purchaser, enrolls directly when the
// course is free, and otherwise submits an STK push for the course price.
func (s *PaymentService) Initiate(ctx context.Context, courseID, purchaserID, phoneNumber string) (*InitiationOutcome, error) {
	outcome, err := s.initiate(ctx, courseID, purchaserID, phoneNumber)
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"course_id":    courseID,
			"purchaser_id": purchaserID,
			"kind":         errors.KindOf(err).String(),
		}).Error("Payment initiation failed: %v", err)
		return nil, ErrPaymentInitiationFailed
	}
	return outcome, nil
}

func (s *PaymentService) initiate(ctx context.Context, courseID, purchaserID, phoneNumber string) (*InitiationOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	course, err := s.courses.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	profile, err := s.profiles.GetProfile(ctx, purchaserID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(profile.Email) == "" {
		return nil, errors.E(errors.Invalid, "purchaser "+purchaserID+" has no usable email address")
	}
	profile.ID = purchaserID

	student, err := s.students.UpsertStudent(ctx, *profile)
	if err != nil {
		return nil, err
	}

	price, err := coursePrice(course)
	if err != nil {
		return nil, err
	}

	if price.IsZero() {
		return s.enrollFree(ctx, student, course)
	}
	return s.requestPayment(ctx, course, purchaserID, phoneNumber, price)
}

func (s *PaymentService) enrollFree(ctx context.Context, student *models.Student, course *models.Course) (*InitiationOutcome, error) {
	enrollment, created, err := s.committer.Enroll(ctx, student, course.ID, models.FreePaymentID, decimal.Zero, models.SourceFree)
	if err != nil {
		return nil, err
	}

	logger.Info("Free enrollment %s for student %s in course %s (created=%v)", enrollment.ID, student.ID, course.ID, created)
	return &InitiationOutcome{Free: true, EnrollmentID: enrollment.ID}, nil
}

func (s *PaymentService) requestPayment(ctx context.Context, course *models.Course, purchaserID, phoneNumber string, price decimal.Decimal) (*InitiationOutcome, error) {
	if !price.Equal(price.Truncate(0)) {
		return nil, errors.E(errors.Invalid, "course "+course.ID+" price "+price.String()+" is not a whole amount")
	}

	correlation, err := EncodeCorrelation(course.ID, purchaserID)
	if err != nil {
		return nil, err
	}

	// The push must not be abandoned half-way when the client disconnects.
	gwCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	token, err := s.gateway.FetchAccessToken(gwCtx)
	if err != nil {
		return nil, err
	}

	req := s.gateway.NewPaymentRequest(price.IntPart(), phoneNumber, s.callbackURL,
		"COURSE-"+course.ID, "Payment for "+course.Title)

	ack, err := s.gateway.SubmitPushPayment(gwCtx, req, token)
	if err != nil {
		return nil, err
	}
	if !ack.Accepted() {
		return nil, errors.E(errors.UpstreamSubmit, "gateway refused push request (code "+ack.ResponseCode+"): "+ack.Reason())
	}

	record := models.PaymentRequest{
		MerchantRequestID: ack.MerchantRequestID,
		CheckoutRequestID: ack.CheckoutRequestID,
		Correlation:       correlation,
		CourseID:          course.ID,
		PurchaserID:       purchaserID,
		PhoneNumber:       phoneNumber,
		Amount:            price,
	}
	if err := s.savePaymentRequest(ctx, record); err != nil {
		// The callback can only be matched through this record.
		logger.WithFields(map[string]interface{}{
			"merchant_request_id": ack.MerchantRequestID,
			"checkout_request_id": ack.CheckoutRequestID,
			"course_id":           course.ID,
			"purchaser_id":        purchaserID,
			"amount":              price.String(),
		}).Error("UNRECORDED PUSH - accepted STK push could not be saved: %v", err)
		return nil, err
	}

	logger.Info("STK push accepted - MerchantRequestID: %s, CheckoutRequestID: %s, Course: %s, Amount: %s",
		ack.MerchantRequestID, ack.CheckoutRequestID, course.ID, price.String())

	publishEvent(ctx, s.events, TopicPayments, ack.MerchantRequestID, EventPaymentInitiated, map[string]interface{}{
		"merchant_request_id": ack.MerchantRequestID,
		"checkout_request_id": ack.CheckoutRequestID,
		"course_id":           course.ID,
		"purchaser_id":        purchaserID,
		"amount":              price.String(),
	})

	return &InitiationOutcome{
		MerchantRequestID: ack.MerchantRequestID,
		CheckoutRequestID: ack.CheckoutRequestID,
		CustomerMessage:   ack.CustomerMessage,
	}, nil
}

// savePaymentRequest retries the write with backoff. It ignores the caller's
// cancellation since the push has already been accepted.
func (s *PaymentService) savePaymentRequest(ctx context.Context, record models.PaymentRequest) error {
	ctx = context.WithoutCancel(ctx)

	var err error
	for attempt := 0; attempt < saveAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(s.saveBackoff << (attempt - 1))
		}
		sctx, cancel := context.WithTimeout(ctx, s.timeout)
		err = s.requests.SavePaymentRequest(sctx, record)
		cancel()
		if err == nil {
			return nil
		}
		logger.Warn("Saving payment request %s failed (attempt %d/%d): %v", record.MerchantRequestID, attempt+1, saveAttempts, err)
	}
	if !errors.IsKind(err, errors.Persistence) {
		err = errors.E(errors.Persistence, "payment request write failed", err)
	}
	return err
}

// coursePrice returns the configured, non-negative price of a course.
func coursePrice(course *models.Course) (decimal.Decimal, error) {
	if !course.Price.Valid {
		return decimal.Zero, errors.E(errors.Invalid, "course "+course.ID+" has no price configured")
	}
	if course.Price.Decimal.IsNegative() {
		return decimal.Zero, errors.E(errors.Invalid, "course "+course.ID+" has a negative price")
	}
	return course.Price.Decimal, nil
}
