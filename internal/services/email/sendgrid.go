// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email

import (
	"context"
	"errors"
	"fmt"

	"codeberg.org/oliverandrich/remind/internal/config"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGridSender delivers mail through the SendGrid v3 API.
type SendGridSender struct {
	client  *sendgrid.Client
	from    *mail.Email
	sandbox bool
}

// SendGridOption configures a SendGridSender.
type SendGridOption func(*SendGridSender)

// WithSendGridEndpoint overrides the mail/send URL.
func WithSendGridEndpoint(url string) SendGridOption {
	return func(s *SendGridSender) {
		s.client.BaseURL = url
	}
}

// NewSendGridSender creates a SendGrid sender.
func NewSendGridSender(cfg *config.SendGridConfig, from, fromName string, opts ...SendGridOption) (*SendGridSender, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("SendGrid API key is required")
	}
	if from == "" {
		return nil, errors.New("from address is required")
	}

	s := &SendGridSender{
		client:  sendgrid.NewSendClient(cfg.APIKey),
		from:    mail.NewEmail(fromName, from),
		sandbox: cfg.Sandbox,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *SendGridSender) Send(ctx context.Context, m Message) error {
	message := mail.NewSingleEmail(s.from, m.Subject, mail.NewEmail("", m.To), m.Body, "")

	if s.sandbox {
		ms := mail.NewMailSettings()
		ms.SetSandboxMode(mail.NewSetting(true))
		message.MailSettings = ms
	}

	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sending email via sendgrid: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
	}
	return nil
}
