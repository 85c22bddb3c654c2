package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment request statuses
const (
	PaymentStatusPending = "PENDING"
	PaymentStatusPaid    = "PAID"
	PaymentStatusFailed  = "FAILED"
)

// PaymentRequest records an STK push the gateway accepted
type PaymentRequest struct {
	ID                string          `json:"id"`
	MerchantRequestID string          `json:"merchant_request_id"`
	CheckoutRequestID string          `json:"checkout_request_id"`
	Correlation       string          `json:"correlation"`
	CourseID          string          `json:"course_id"`
	PurchaserID       string          `json:"purchaser_id"`
	PhoneNumber       string          `json:"phone_number"`
	Amount            decimal.Decimal `json:"amount"`
	Status            string          `json:"status"`
	ReceiptNumber     string          `json:"receipt_number,omitempty"`
	ResultDesc        string          `json:"result_desc,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}
