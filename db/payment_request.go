package db

import (
	"context"

	"lms-module/errors"
	"lms-module/models"

	"github.com/google/uuid"
)

const paymentRequestColumns = `id, merchant_request_id, checkout_request_id, correlation, course_id, purchaser_id,
	phone_number, amount, status, receipt_number, result_desc, created_at, updated_at`

func scanPaymentRequest(row rowScanner) (*models.PaymentRequest, error) {
	var p models.PaymentRequest
	err := row.Scan(&p.ID, &p.MerchantRequestID, &p.CheckoutRequestID, &p.Correlation, &p.CourseID, &p.PurchaserID,
		&p.PhoneNumber, &p.Amount, &p.Status, &p.ReceiptNumber, &p.ResultDesc, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SavePaymentRequest records an accepted push request as PENDING.
func (s *Store) SavePaymentRequest(ctx context.Context, p models.PaymentRequest) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payment_requests
			(id, merchant_request_id, checkout_request_id, correlation, course_id, purchaser_id, phone_number, amount, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.MerchantRequestID, p.CheckoutRequestID, p.Correlation, p.CourseID, p.PurchaserID,
		p.PhoneNumber, p.Amount, models.PaymentStatusPending)
	if isUniqueViolation(err) {
		return errors.NewConflictError("payment request " + p.MerchantRequestID + " already recorded")
	}
	if err != nil {
		return persistenceError("error saving payment request", err)
	}
	return nil
}

// GetPaymentRequestByMerchantID returns the recorded request or NotFound.
func (s *Store) GetPaymentRequestByMerchantID(ctx context.Context, merchantRequestID string) (*models.PaymentRequest, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+paymentRequestColumns+` FROM payment_requests WHERE merchant_request_id = $1`, merchantRequestID)
	p, err := scanPaymentRequest(row)
	if isNoRows(err) {
		return nil, errors.E(errors.NotFound, "payment request "+merchantRequestID+" not found")
	}
	if err != nil {
		return nil, internalError("error fetching payment request", err)
	}
	return p, nil
}

// MarkPaymentRequest moves a request to PAID or FAILED. Unknown merchant ids
// are ignored.
func (s *Store) MarkPaymentRequest(ctx context.Context, merchantRequestID, status, receiptNumber, resultDesc string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE payment_requests
		SET status = $2, receipt_number = $3, result_desc = $4, updated_at = CURRENT_TIMESTAMP
		WHERE merchant_request_id = $1 AND status <> $5`,
		merchantRequestID, status, receiptNumber, resultDesc, models.PaymentStatusPaid)
	if err != nil {
		return persistenceError("error updating payment request", err)
	}
	return nil
}
