package services

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"lms-module/errors"
	"lms-module/logger"
	"lms-module/models"
	"lms-module/services/mpesa"

	"github.com/shopspring/decimal"
)

// CallbackState is a step of callback handling. Every delivery ends in
// StateCommitted or StateRejected.
type CallbackState string

const (
	StateReceived  CallbackState = "RECEIVED"
	StateParsed    CallbackState = "PARSED"
	StateValidated CallbackState = "VALIDATED"
	StateEnriched  CallbackState = "ENRICHED"
	StateCommitted CallbackState = "COMMITTED"
	StateRejected  CallbackState = "REJECTED"
)

// Rejection names why a callback did not produce an enrollment.
type Rejection string

const (
	RejectUnauthenticated    Rejection = "unauthenticated"
	RejectMalformed          Rejection = "malformed"
	RejectPaymentFailed      Rejection = "payment_failed"
	RejectMissingMetadata    Rejection = "missing_metadata"
	RejectIncompleteMetadata Rejection = "incomplete_metadata"
	RejectInvalidCorrelation Rejection = "invalid_correlation"
	RejectStudentNotFound    Rejection = "student_not_found"
	RejectPersistenceFailed  Rejection = "persistence_failed"
)

// Metadata item names
const (
	itemAmount        = "Amount"
	itemPhoneNumber   = "PhoneNumber"
	itemTransactionID = "TransactionID"
	itemReceiptNumber = "MpesaReceiptNumber"
)

// HandlingOutcome is the terminal result for one callback delivery.
type HandlingOutcome struct {
	State      CallbackState
	Reason     Rejection
	Detail     string
	Enrollment *models.Enrollment
	// Duplicate is set when the payment had already been committed.
	Duplicate bool
}

// StatusCode maps the outcome onto the HTTP status returned to the gateway.
func (o HandlingOutcome) StatusCode() int {
	switch {
	case o.State == StateCommitted:
		return http.StatusOK
	case o.Reason == RejectUnauthenticated:
		return http.StatusUnauthorized
	case o.Reason == RejectPersistenceFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// paymentFacts are the values pulled from a successful callback.
type paymentFacts struct {
	amount        decimal.Decimal
	phoneNumber   string
	transactionID string
}

// CallbackService validates M-Pesa result callbacks and commits enrollments.
type CallbackService struct {
	committer *EnrollmentCommitter
	requests  PaymentRequestStore
	log       CallbackLog
	events    EventPublisher
	token     string
	timeout   time.Duration
}

// CallbackDeps groups the collaborators of CallbackService. Requests, Log
// and Events may be nil.
type CallbackDeps struct {
	Committer *EnrollmentCommitter
	Requests  PaymentRequestStore
	Log       CallbackLog
	Events    EventPublisher
	// Token is the shared secret expected in the callback URL; empty disables the check.
	Token string
	// Timeout bounds the store calls of one delivery. Zero means defaultTimeout.
	Timeout time.Duration
}

func NewCallbackService(deps CallbackDeps) *CallbackService {
	return &CallbackService{
		committer: deps.Committer,
		requests:  deps.Requests,
		log:       deps.Log,
		events:    deps.Events,
		token:     deps.Token,
		timeout:   timeoutOrDefault(deps.Timeout),
	}
}

// Handle runs one delivery through parse, result check, metadata
// extraction, correlation and commit. It never retries and never panics on
// bad input.
func (s *CallbackService) Handle(ctx context.Context, raw []byte, token string) HandlingOutcome {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if s.token != "" && subtle.ConstantTimeCompare([]byte(token), []byte(s.token)) != 1 {
		return s.reject(ctx, nil, RejectUnauthenticated, "invalid callback token")
	}

	// Parse
	var env mpesa.CallbackEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return s.reject(ctx, nil, RejectMalformed, "malformed callback payload")
	}
	if env.Body == nil || env.Body.StkCallback == nil || env.Body.StkCallback.ResultCode == nil {
		return s.reject(ctx, nil, RejectMalformed, "callback payload is missing Body.stkCallback.ResultCode")
	}
	cb := env.Body.StkCallback
	s.record(ctx, cb, raw)

	// Result check
	if *cb.ResultCode != 0 {
		s.markFailed(ctx, cb)
		return s.reject(ctx, cb, RejectPaymentFailed, cb.ResultDesc)
	}

	// Metadata
	if cb.CallbackMetadata == nil || len(cb.CallbackMetadata.Item) == 0 {
		return s.reject(ctx, cb, RejectMissingMetadata, "callback metadata is missing")
	}
	facts, ok := extractFacts(cb.CallbackMetadata)
	if !ok {
		return s.reject(ctx, cb, RejectIncompleteMetadata, "callback metadata is missing Amount, PhoneNumber or transaction id")
	}

	// Correlation
	intent, expected, err := s.resolveIntent(ctx, cb.MerchantRequestID)
	if err != nil {
		if errors.IsKind(err, errors.Invalid) {
			return s.reject(ctx, cb, RejectInvalidCorrelation, "invalid merchant request id")
		}
		logger.Error("Payment request lookup failed for %s: %v", cb.MerchantRequestID, err)
		return s.reject(ctx, cb, RejectPersistenceFailed, "payment request lookup failed")
	}
	if expected != nil && !expected.Equal(facts.amount) {
		logger.Warn("Callback amount %s differs from requested amount %s for %s",
			facts.amount.String(), expected.String(), cb.MerchantRequestID)
	}

	// Commit
	enrollment, created, err := s.committer.Commit(ctx, intent, facts.transactionID, facts.amount, models.SourceMpesa)
	if err != nil {
		if errors.IsKind(err, errors.NotFound) {
			return s.reject(ctx, cb, RejectStudentNotFound, "student not found")
		}
		logger.Error("PAID BUT NOT ENROLLED - Transaction: %s, Course: %s, Purchaser: %s: %v",
			facts.transactionID, intent.CourseID, intent.PurchaserID, err)
		return s.reject(ctx, cb, RejectPersistenceFailed, "failed to record enrollment")
	}

	s.markPaid(ctx, cb, facts.transactionID)
	logger.Info("Callback committed - MerchantRequestID: %s, Transaction: %s, Phone: %s, Enrollment: %s, Duplicate: %v",
		cb.MerchantRequestID, facts.transactionID, facts.phoneNumber, enrollment.ID, !created)

	return HandlingOutcome{State: StateCommitted, Enrollment: enrollment, Duplicate: !created}
}

// extractFacts looks up the required items by name. Missing or falsy values fail.
func extractFacts(m *mpesa.CallbackMetadata) (paymentFacts, bool) {
	var facts paymentFacts

	amount, ok := m.Find(itemAmount)
	if !ok {
		return facts, false
	}
	if facts.amount, ok = amount.Decimal(); !ok {
		return facts, false
	}

	phone, ok := m.Find(itemPhoneNumber)
	if !ok || !phone.Present() {
		return facts, false
	}
	facts.phoneNumber = phone.String()

	txn, ok := m.Find(itemTransactionID)
	if !ok || !txn.Present() {
		txn, ok = m.Find(itemReceiptNumber)
	}
	if !ok || !txn.Present() {
		return facts, false
	}
	facts.transactionID = txn.String()
	return facts, facts.phoneNumber != "" && facts.transactionID != ""
}

// resolveIntent recovers the purchase intent for a merchant request id:
// from the recorded payment request when there is one, otherwise by
// decoding the id itself. The recorded amount is returned when known.
func (s *CallbackService) resolveIntent(ctx context.Context, merchantRequestID string) (PurchaseIntent, *decimal.Decimal, error) {
	if s.requests != nil && merchantRequestID != "" {
		req, err := s.requests.GetPaymentRequestByMerchantID(ctx, merchantRequestID)
		switch {
		case err == nil:
			intent, err := DecodeCorrelation(req.Correlation)
			return intent, &req.Amount, err
		case !errors.IsKind(err, errors.NotFound):
			return PurchaseIntent{}, nil, err
		}
	}
	intent, err := DecodeCorrelation(merchantRequestID)
	return intent, nil, err
}

func (s *CallbackService) reject(ctx context.Context, cb *mpesa.StkCallback, reason Rejection, detail string) HandlingOutcome {
	fields := map[string]interface{}{"reason": string(reason)}
	if cb != nil {
		fields["merchant_request_id"] = cb.MerchantRequestID
		fields["checkout_request_id"] = cb.CheckoutRequestID
		s.updateLog(ctx, cb, StateRejected, string(reason)+": "+detail)
	}
	log := logger.WithFields(fields)
	if reason == RejectPersistenceFailed {
		log.Error("Callback rejected: %s", detail)
	} else {
		log.Warn("Callback rejected: %s", detail)
	}
	return HandlingOutcome{State: StateRejected, Reason: reason, Detail: detail}
}

func (s *CallbackService) record(ctx context.Context, cb *mpesa.StkCallback, raw []byte) {
	if s.log == nil || cb.CheckoutRequestID == "" {
		return
	}
	deliveries, err := s.log.LogCallback(ctx, cb.CheckoutRequestID, cb.MerchantRequestID, cb.ResultCode, raw)
	if err != nil {
		logger.Warn("Failed to log callback %s: %v", cb.CheckoutRequestID, err)
		return
	}
	if deliveries > 1 {
		logger.Info("Callback %s redelivered (delivery #%d)", cb.CheckoutRequestID, deliveries)
	}
}

func (s *CallbackService) updateLog(ctx context.Context, cb *mpesa.StkCallback, state CallbackState, reason string) {
	if s.log == nil || cb.CheckoutRequestID == "" {
		return
	}
	if err := s.log.UpdateCallbackStatus(ctx, cb.CheckoutRequestID, string(state), reason); err != nil {
		logger.Warn("Failed to update callback log %s: %v", cb.CheckoutRequestID, err)
	}
}

func (s *CallbackService) markFailed(ctx context.Context, cb *mpesa.StkCallback) {
	if s.requests != nil && cb.MerchantRequestID != "" {
		if err := s.requests.MarkPaymentRequest(ctx, cb.MerchantRequestID, models.PaymentStatusFailed, "", cb.ResultDesc); err != nil {
			logger.Warn("Failed to mark payment request %s as failed: %v", cb.MerchantRequestID, err)
		}
	}
	publishEvent(ctx, s.events, TopicPayments, cb.MerchantRequestID, EventPaymentFailed, map[string]interface{}{
		"merchant_request_id": cb.MerchantRequestID,
		"checkout_request_id": cb.CheckoutRequestID,
		"result_code":         *cb.ResultCode,
		"result_desc":         cb.ResultDesc,
	})
}

func (s *CallbackService) markPaid(ctx context.Context, cb *mpesa.StkCallback, receipt string) {
	s.updateLog(ctx, cb, StateCommitted, "")
	if s.requests == nil || cb.MerchantRequestID == "" {
		return
	}
	if err := s.requests.MarkPaymentRequest(ctx, cb.MerchantRequestID, models.PaymentStatusPaid, receipt, cb.ResultDesc); err != nil {
		logger.Warn("Failed to mark payment request %s as paid: %v", cb.MerchantRequestID, err)
	}
}
