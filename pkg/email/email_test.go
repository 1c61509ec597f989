package email

import (
	"context"
	"errors"
	"testing"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/dividify/dividify-backend/pkg/config"
	"github.com/dividify/dividify-backend/pkg/logger"
)

type fakeSendClient struct {
	sent   []*mail.SGMailV3
	status int
	err    error
}

func (f *fakeSendClient) SendWithContext(ctx context.Context, m *mail.SGMailV3) (*rest.Response, error) {
	f.sent = append(f.sent, m)
	if f.err != nil {
		return nil, f.err
	}
	return &rest.Response{StatusCode: f.status, Body: "body"}, nil
}

func newTestSender(client sendClient) *SendgridSender {
	return &SendgridSender{
		client: client,
		from:   mail.NewEmail("Dividify", "no-reply@dividify.co.uk"),
		logg:   logger.Nop(),
	}
}

func TestRecipientsTrimsAndDeduplicates(t *testing.T) {
	msg := Message{To: []string{" a@x.test ", "", "A@x.test", "b@x.test"}}
	got := msg.Recipients()
	if len(got) != 2 || got[0] != "a@x.test" || got[1] != "b@x.test" {
		t.Fatalf("unexpected recipients %v", got)
	}
}

func TestSendgridSenderBuildsMessage(t *testing.T) {
	client := &fakeSendClient{status: 202}
	sender := newTestSender(client)

	err := sender.Send(context.Background(), Message{
		To:      []string{"a@x.test", "b@x.test"},
		Subject: "Dividend voucher",
		HTML:    "<p>hi</p>",
		Text:    "hi",
		Attachments: []Attachment{
			{Filename: "voucher.pdf", ContentType: "application/pdf", Content: "JVBERg=="},
		},
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(client.sent) != 1 {
		t.Fatalf("expected one send, got %d", len(client.sent))
	}
	m := client.sent[0]
	if m.From.Address != "no-reply@dividify.co.uk" || m.Subject != "Dividend voucher" {
		t.Fatalf("unexpected envelope from=%s subject=%s", m.From.Address, m.Subject)
	}
	if len(m.Personalizations) != 1 || len(m.Personalizations[0].To) != 2 {
		t.Fatalf("expected two recipients in one personalization")
	}
	if len(m.Content) != 2 || m.Content[0].Type != "text/plain" || m.Content[1].Type != "text/html" {
		t.Fatalf("unexpected content parts %+v", m.Content)
	}
	if len(m.Attachments) != 1 || m.Attachments[0].Filename != "voucher.pdf" || m.Attachments[0].Disposition != "attachment" {
		t.Fatalf("unexpected attachments %+v", m.Attachments)
	}
}

func TestSendgridSenderErrors(t *testing.T) {
	if err := newTestSender(&fakeSendClient{status: 202}).Send(context.Background(), Message{}); !errors.Is(err, ErrNoRecipients) {
		t.Fatalf("expected ErrNoRecipients, got %v", err)
	}
	if err := newTestSender(&fakeSendClient{status: 400}).Send(context.Background(), Message{To: []string{"a@x.test"}}); err == nil {
		t.Fatal("expected error for non-2xx status")
	}
	if err := newTestSender(&fakeSendClient{err: errors.New("dial")}).Send(context.Background(), Message{To: []string{"a@x.test"}}); err == nil {
		t.Fatal("expected transport error")
	}
}

func TestNewSenderSelectsImplementation(t *testing.T) {
	s, err := NewSender(config.SendgridConfig{From: "no-reply@dividify.co.uk"}, logger.Nop())
	if err != nil {
		t.Fatalf("NewSender: %v", err)
	}
	if _, ok := s.(*LogSender); !ok {
		t.Fatalf("expected LogSender without api key, got %T", s)
	}
	if err := s.Send(context.Background(), Message{To: []string{"a@x.test"}}); err != nil {
		t.Fatalf("LogSender.Send: %v", err)
	}

	s, err = NewSender(config.SendgridConfig{APIKey: "SG.key", From: "no-reply@dividify.co.uk", FromName: "Dividify"}, logger.Nop())
	if err != nil {
		t.Fatalf("NewSender: %v", err)
	}
	if _, ok := s.(*SendgridSender); !ok {
		t.Fatalf("expected SendgridSender, got %T", s)
	}
}
