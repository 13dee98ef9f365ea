package service

import (
	"context"
	"fmt"

	"medequip-marketplace/internal/domain"
	"medequip-marketplace/internal/logger"
	"medequip-marketplace/internal/repository"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type logNotifier struct{}

// NewLogNotifier returns a Notifier that only logs. It is the default delivery.
func NewLogNotifier() Notifier {
	return logNotifier{}
}

func (logNotifier) Notify(ctx context.Context, n domain.Notification) error {
	logger.InfoContext(ctx, "notification", "topic", n.Topic, "organization_id", n.OrganizationID, "title", n.Title)
	return nil
}

// sendFunc sends one message and returns the HTTP status and body.
type sendFunc func(ctx context.Context, msg *mail.SGMailV3) (int, string, error)

type sendGridNotifier struct {
	fromEmail string
	fromName  string
	orgs      repository.OrganizationRepository
	send      sendFunc
}

// NewSendGridNotifier mails each notification to the organization's contact address.
func NewSendGridNotifier(apiKey, fromEmail, fromName string, orgs repository.OrganizationRepository) Notifier {
	client := sendgrid.NewSendClient(apiKey)
	return &sendGridNotifier{
		fromEmail: fromEmail,
		fromName:  fromName,
		orgs:      orgs,
		send: func(ctx context.Context, msg *mail.SGMailV3) (int, string, error) {
			resp, err := client.SendWithContext(ctx, msg)
			if err != nil {
				return 0, "", err
			}
			return resp.StatusCode, resp.Body, nil
		},
	}
}

func (s *sendGridNotifier) Notify(ctx context.Context, n domain.Notification) error {
	org, err := s.orgs.GetByID(ctx, n.OrganizationID)
	if err != nil {
		return fmt.Errorf("load organization for notification: %w", err)
	}
	if org.ContactEmail == "" {
		logger.Debug("organization has no contact email, skipping notification", "organization_id", org.ID, "topic", n.Topic)
		return nil
	}

	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(org.Name, org.ContactEmail)
	msg := mail.NewSingleEmail(from, n.Title, to, n.Message, "")

	logger.ExternalServiceCall("sendgrid", "Send", "topic", n.Topic, "organization_id", org.ID)
	status, body, err := s.send(ctx, msg)
	if err == nil && status >= 400 {
		err = fmt.Errorf("sendgrid error: status %d, body: %s", status, body)
	}
	logger.ExternalServiceResult("sendgrid", "Send", err, "topic", n.Topic)
	return err
}

// dispatch delivers notifications after commit. Failures are logged, never returned.
func dispatch(ctx context.Context, notifier Notifier, notes ...domain.Notification) {
	if notifier == nil {
		return
	}
	for _, n := range notes {
		if err := notifier.Notify(ctx, n); err != nil {
			logger.Warn("notification delivery failed", "topic", n.Topic, "organization_id", n.OrganizationID, "error", err)
		}
	}
}
