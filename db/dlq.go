package db

import (
	"context"

	"lms-module/errors"
	"lms-module/models"

	"github.com/google/uuid"
)

// StoreDLQMessage persists a failed event for later retry or inspection.
func (s *Store) StoreDLQMessage(ctx context.Context, topic, key string, value []byte, errorMsg string) (string, error) {
	messageID := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dlq_messages (message_id, topic, key, value, error_message)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (message_id) DO NOTHING`,
		messageID, topic, key, string(value), errorMsg)
	if err != nil {
		return "", persistenceError("error storing DLQ message", err)
	}
	return messageID, nil
}

// ListDLQMessages returns unresolved messages, newest first.
func (s *Store) ListDLQMessages(ctx context.Context, limit int) ([]models.DLQMessage, error) {
	return s.queryDLQ(ctx, `
		SELECT id, message_id, topic, key, value, error_message, retry_count, max_retries, created_at
		FROM dlq_messages
		WHERE resolved = FALSE
		ORDER BY created_at DESC
		LIMIT $1`, limit)
}

// RetryableDLQMessages returns the oldest unresolved messages that still have retries left.
func (s *Store) RetryableDLQMessages(ctx context.Context, limit int) ([]models.DLQMessage, error) {
	return s.queryDLQ(ctx, `
		SELECT id, message_id, topic, key, value, error_message, retry_count, max_retries, created_at
		FROM dlq_messages
		WHERE resolved = FALSE AND retry_count < max_retries
		ORDER BY created_at ASC
		LIMIT $1`, limit)
}

func (s *Store) queryDLQ(ctx context.Context, query string, args ...interface{}) ([]models.DLQMessage, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, internalError("error querying DLQ messages", err)
	}
	defer rows.Close()

	messages := []models.DLQMessage{}
	for rows.Next() {
		var m models.DLQMessage
		if err := rows.Scan(&m.ID, &m.MessageID, &m.Topic, &m.Key, &m.Value, &m.ErrorMessage, &m.RetryCount, &m.MaxRetries, &m.CreatedAt); err != nil {
			return nil, internalError("error scanning DLQ message", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, internalError("error iterating DLQ messages", err)
	}
	return messages, nil
}

// RecordDLQRetry bumps the retry counter and resolves the message when the retry succeeded.
func (s *Store) RecordDLQRetry(ctx context.Context, messageID string, succeeded bool) error {
	query := `
		UPDATE dlq_messages
		SET retry_count = retry_count + 1, last_retry_at = NOW()
		WHERE message_id = $1`
	if succeeded {
		query = `
		UPDATE dlq_messages
		SET retry_count = retry_count + 1, last_retry_at = NOW(), resolved = TRUE, resolved_at = NOW(), notes = 'Auto-retried successfully'
		WHERE message_id = $1`
	}
	if _, err := s.db.ExecContext(ctx, query, messageID); err != nil {
		return persistenceError("error recording DLQ retry", err)
	}
	return nil
}

// ResolveDLQMessage marks a message resolved by hand.
func (s *Store) ResolveDLQMessage(ctx context.Context, messageID, notes string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE dlq_messages
		SET resolved = TRUE, resolved_at = NOW(), notes = $2
		WHERE message_id = $1`,
		messageID, notes)
	if err != nil {
		return persistenceError("error resolving DLQ message", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.E(errors.NotFound, "DLQ message "+messageID+" not found")
	}
	return nil
}

func (s *Store) DLQStats(ctx context.Context) (*models.DLQStats, error) {
	var stats models.DLQStats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE resolved = FALSE),
		       COUNT(*) FILTER (WHERE resolved = TRUE)
		FROM dlq_messages`).Scan(&stats.Total, &stats.Unresolved, &stats.Resolved)
	if err != nil {
		return nil, internalError("error reading DLQ stats", err)
	}
	return &stats, nil
}
