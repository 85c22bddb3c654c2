package services

import (
	"context"
	"fmt"
	"html"

	"lms-module/errors"
	"lms-module/logger"
	"lms-module/models"
)

// EmailService queues emails on the emails topic. Delivery happens in the
// consumer through Mailer.
type EmailService struct {
	events EventPublisher
}

func NewEmailService(events EventPublisher) *EmailService {
	return &EmailService{events: events}
}

// SendEmail publishes an email.send event for async delivery.
func (s *EmailService) SendEmail(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return errors.NewInvalidParamsError("email recipient is required")
	}
	if s.events == nil {
		return errors.NewConfigurationError("no event publisher configured for email")
	}

	logger.Info("Publishing email event to Kafka. Recipient: %s, Subject: %s", to, subject)

	payload := map[string]interface{}{
		"event":     EventEmailSend,
		"recipient": to,
		"subject":   subject,
		"body":      body,
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.events.Publish(pctx, TopicEmails, "email-"+to, payload); err != nil {
		return fmt.Errorf("failed to queue email: %w", err)
	}
	return nil
}

// SendEnrollmentConfirmation queues the "you're enrolled" email.
func (s *EmailService) SendEnrollmentConfirmation(ctx context.Context, student *models.Student, course *models.Course, enrollment *models.Enrollment) error {
	amountLine := "Free enrollment"
	if enrollment.PaymentID != models.FreePaymentID {
		amountLine = fmt.Sprintf("KES %s (ref %s)", enrollment.Amount.StringFixed(2), html.EscapeString(enrollment.PaymentID))
	}

	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #4CAF50; color: white; padding: 20px; text-align: center; border-radius: 5px; }
        .content { background-color: #f9f9f9; padding: 20px; margin-top: 20px; border-radius: 5px; }
        .course-info { background-color: #e8f5e9; padding: 15px; margin: 15px 0; border-left: 4px solid #4CAF50; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header"><h2>You're enrolled!</h2></div>
        <div class="content">
            <p>Dear <strong>%s</strong>,</p>
            <p>Your enrollment is confirmed. You now have full access to the course.</p>
            <div class="course-info">
                <p><strong>Course:</strong> %s</p>
                <p><strong>Payment:</strong> %s</p>
                <p><strong>Enrollment ID:</strong> %s</p>
            </div>
            <p>Happy learning!</p>
        </div>
    </div>
</body>
</html>
	`, html.EscapeString(student.FullName()), html.EscapeString(course.Title), amountLine, enrollment.ID)

	subject := fmt.Sprintf("Enrollment confirmed: %s", course.Title)
	return s.SendEmail(ctx, student.Email, subject, body)
}
