package db

import (
	"context"
	"database/sql"
)

// Callback log statuses
const (
	CallbackReceived  = "RECEIVED"
	CallbackCommitted = "COMMITTED"
	CallbackRejected  = "REJECTED"
)

// LogCallback records a raw callback delivery keyed by checkout request id.
// Redeliveries bump delivery_count and return the new count.
func (s *Store) LogCallback(ctx context.Context, checkoutRequestID, merchantRequestID string, resultCode *int, payload []byte) (int, error) {
	var code sql.NullInt64
	if resultCode != nil {
		code = sql.NullInt64{Int64: int64(*resultCode), Valid: true}
	}

	var deliveries int
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO mpesa_callbacks (checkout_request_id, merchant_request_id, result_code, payload)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (checkout_request_id) DO UPDATE
		SET delivery_count = mpesa_callbacks.delivery_count + 1, updated_at = CURRENT_TIMESTAMP
		RETURNING delivery_count`,
		checkoutRequestID, merchantRequestID, code, string(payload)).Scan(&deliveries)
	if err != nil {
		return 0, persistenceError("error logging callback", err)
	}
	return deliveries, nil
}

// UpdateCallbackStatus records the outcome reached for a logged callback.
func (s *Store) UpdateCallbackStatus(ctx context.Context, checkoutRequestID, status, reason string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE mpesa_callbacks
		SET status = $2, reason = $3, updated_at = CURRENT_TIMESTAMP
		WHERE checkout_request_id = $1`,
		checkoutRequestID, status, reason)
	if err != nil {
		return persistenceError("error updating callback status", err)
	}
	return nil
}
