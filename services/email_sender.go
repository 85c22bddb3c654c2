package services

import (
	"context"
	"fmt"

	"lms-module/config"
	"lms-module/errors"
	"lms-module/logger"

	"gopkg.in/gomail.v2"
)

// messageSender is satisfied by *gomail.Dialer.
type messageSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer sends email over SMTP. The Kafka consumer calls it for email.send events.
type Mailer struct {
	from   string
	sender messageSender
}

// NewMailer returns nil when SMTP credentials are not configured.
func NewMailer(cfg *config.Config) *Mailer {
	from := cfg.EmailFrom
	if from == "" {
		from = cfg.SMTPUser
	}
	if cfg.SMTPUser == "" || cfg.SMTPPass == "" || from == "" {
		logger.Warn("SMTP credentials not configured (set SMTP_USER and SMTP_PASS); email delivery disabled")
		return nil
	}
	return &Mailer{
		from:   from,
		sender: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass),
	}
}

// Send delivers an HTML email directly via SMTP.
func (m *Mailer) Send(to, subject, body string) error {
	logger.Info("Sending email via SMTP - Recipient: %s", to)

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	if err := m.sender.DialAndSend(msg); err != nil {
		logger.Error("Failed to send email to %s: %v", to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	logger.Info("Email successfully sent to: %s", to)
	return nil
}

// HandleEmailEvent processes an email.send event.
func (m *Mailer) HandleEmailEvent(ctx context.Context, event map[string]interface{}) error {
	recipient, _ := event["recipient"].(string)
	subject, _ := event["subject"].(string)
	body, _ := event["body"].(string)

	switch {
	case recipient == "":
		return errors.NewInvalidParamsError("invalid recipient in email event")
	case subject == "":
		return errors.NewInvalidParamsError("invalid subject in email event")
	case body == "":
		return errors.NewInvalidParamsError("invalid body in email event")
	}
	return m.Send(recipient, subject, body)
}
