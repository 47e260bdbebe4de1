// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package email delivers verification codes through a configurable transport.
package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"codeberg.org/oliverandrich/remind/internal/config"
	"codeberg.org/oliverandrich/remind/internal/i18n"
	"golang.org/x/text/language"
)

// Message is a plain-text mail.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Service renders verification mails and hands them to a Sender.
type Service struct {
	sender  Sender
	locale  language.Tag
	codeTTL time.Duration
}

// NewService creates an email service. locale is the language used when the request
// context carries none.
func NewService(sender Sender, locale string, codeTTL time.Duration) (*Service, error) {
	if err := i18n.Init(); err != nil {
		return nil, fmt.Errorf("loading translations: %w", err)
	}
	return &Service{
		sender:  sender,
		locale:  i18n.MatchLanguage(locale),
		codeTTL: codeTTL,
	}, nil
}

// SendVerificationCode mails code to the given address.
func (s *Service) SendVerificationCode(ctx context.Context, to, code string) error {
	if !i18n.HasLocale(ctx) {
		ctx = i18n.WithLocale(ctx, s.locale)
	}

	subject := i18n.T(ctx, "verification_email_subject")
	body := i18n.TData(ctx, "verification_email_body", map[string]any{
		"Code":    code,
		"Minutes": int(s.codeTTL / time.Minute),
	})

	return s.sender.Send(ctx, Message{To: to, Subject: subject, Body: body})
}

// NewSender builds the sender for the configured transport.
func NewSender(cfg *config.MailConfig, logger *slog.Logger) (Sender, error) {
	switch cfg.Transport {
	case config.TransportLog, "":
		return NewLogSender(logger), nil
	case config.TransportSMTP:
		return NewSMTPSender(&cfg.SMTP)
	case config.TransportSendGrid:
		return NewSendGridSender(&cfg.SendGrid, cfg.SMTP.From, cfg.SMTP.FromName)
	default:
		return nil, fmt.Errorf("unsupported mail transport %q", cfg.Transport)
	}
}

// LogSender writes mails to the log instead of delivering them.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a log sender. A nil logger means slog.Default().
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "email_sent",
		"transport", config.TransportLog,
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.Body,
	)
	return nil
}
