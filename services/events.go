package services

import (
	"context"
	"time"

	"lms-module/logger"
)

// Kafka topics
const (
	TopicPayments    = "payments"
	TopicEnrollments = "enrollments"
	TopicEmails      = "emails"
)

// Event types carried in the "event" field of every message
const (
	EventPaymentInitiated  = "payment.initiated"
	EventPaymentFailed     = "payment.failed"
	EventEnrollmentCreated = "enrollment.created"
	EventEmailSend         = "email.send"
)

const (
	// Upper bound for one best-effort publish, retries included
	publishTimeout = 3 * time.Second
	defaultTimeout = 10 * time.Second
)

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return defaultTimeout
	}
	return d
}

// publishEvent stamps and publishes an event. Failures are logged only;
// callers never change their outcome because of them.
func publishEvent(ctx context.Context, p EventPublisher, topic, key, event string, payload map[string]interface{}) {
	if p == nil {
		return
	}
	payload["event"] = event
	payload["timestamp"] = time.Now().UTC().Format(time.RFC3339)

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := p.Publish(pctx, topic, key, payload); err != nil {
		logger.Warn("Failed to publish %s event (key %s): %v", event, key, err)
	}
}
