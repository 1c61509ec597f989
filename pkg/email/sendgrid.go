package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/dividify/dividify-backend/pkg/config"
	"github.com/dividify/dividify-backend/pkg/logger"
)

type sendClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendgridSender delivers mail through the SendGrid v3 API.
type SendgridSender struct {
	client sendClient
	from   *mail.Email
	logg   *logger.Logger
}

// NewSendgridSender builds a sender from config. It fails when no API key is configured.
func NewSendgridSender(cfg config.SendgridConfig, logg *logger.Logger) (*SendgridSender, error) {
	if !cfg.Enabled() {
		return nil, errors.New("sendgrid api key is required")
	}
	if cfg.From == "" {
		return nil, errors.New("sendgrid from address is required")
	}
	return &SendgridSender{
		client: sendgrid.NewSendClient(cfg.APIKey),
		from:   mail.NewEmail(cfg.FromName, cfg.From),
		logg:   logg,
	}, nil
}

// Send implements Sender. Any non-2xx response is an error.
func (s *SendgridSender) Send(ctx context.Context, msg Message) error {
	recipients := msg.Recipients()
	if len(recipients) == 0 {
		return ErrNoRecipients
	}

	resp, err := s.client.SendWithContext(ctx, s.build(msg, recipients))
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}
	if s.logg != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{
			"recipients":  len(recipients),
			"attachments": len(msg.Attachments),
		})
		s.logg.Info(ctx, "email sent")
	}
	return nil
}

func (s *SendgridSender) build(msg Message, recipients []string) *mail.SGMailV3 {
	m := mail.NewV3Mail()
	m.SetFrom(s.from)
	m.Subject = msg.Subject

	p := mail.NewPersonalization()
	for _, addr := range recipients {
		p.AddTos(mail.NewEmail("", addr))
	}
	m.AddPersonalizations(p)

	if msg.Text != "" {
		m.AddContent(mail.NewContent("text/plain", msg.Text))
	}
	if msg.HTML != "" {
		m.AddContent(mail.NewContent("text/html", msg.HTML))
	}

	for _, att := range msg.Attachments {
		a := mail.NewAttachment()
		a.SetContent(att.Content)
		a.SetType(att.ContentType)
		a.SetFilename(att.Filename)
		a.SetDisposition("attachment")
		m.AddAttachment(a)
	}
	return m
}

// LogSender records messages instead of delivering them. It backs local runs without a SendGrid key.
type LogSender struct {
	logg *logger.Logger
}

func NewLogSender(logg *logger.Logger) *LogSender {
	return &LogSender{logg: logg}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	recipients := msg.Recipients()
	if len(recipients) == 0 {
		return ErrNoRecipients
	}
	if s.logg != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{
			"recipients":  recipients,
			"subject":     msg.Subject,
			"attachments": len(msg.Attachments),
		})
		s.logg.Info(ctx, "email delivery disabled; message logged")
	}
	return nil
}

// NewSender returns a SendGrid sender when configured and a LogSender otherwise.
func NewSender(cfg config.SendgridConfig, logg *logger.Logger) (Sender, error) {
	if !cfg.Enabled() {
		return NewLogSender(logg), nil
	}
	return NewSendgridSender(cfg, logg)
}
