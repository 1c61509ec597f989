package notify

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/dividify/dividify-backend/pkg/email"
)

type fakeSender struct {
	calls []email.Message
	err   error
	panic bool
}

func (f *fakeSender) Send(_ context.Context, msg email.Message) error {
	f.calls = append(f.calls, msg)
	if f.panic {
		panic("provider exploded")
	}
	return f.err
}

func baseParams() NotifyParams {
	return NotifyParams{
		Recipients:      []string{"owner@acme.test", "accounts@acme.test"},
		CompanyName:     "Acme <Widgets> Ltd",
		ShareholderName: "Jane Director",
		TotalAmount:     "£2,500.00",
		PaymentDate:     "15/01/2025",
		Documents: []Document{
			{Filename: "voucher-1.pdf", Content: []byte("%PDF-voucher")},
			{Filename: "minutes.pdf", Content: []byte("%PDF-minutes")},
		},
	}
}

func TestNotifySendsOneEmailWithAllAttachments(t *testing.T) {
	sender := &fakeSender{}
	if !NewNotifier(sender, nil).Notify(context.Background(), baseParams()) {
		t.Fatal("expected notify to succeed")
	}
	if len(sender.calls) != 1 {
		t.Fatalf("expected one send, got %d", len(sender.calls))
	}
	msg := sender.calls[0]
	if len(msg.To) != 2 {
		t.Fatalf("expected both recipients, got %v", msg.To)
	}
	if len(msg.Attachments) != 2 {
		t.Fatalf("expected 2 attachments, got %d", len(msg.Attachments))
	}
	decoded, err := base64.StdEncoding.DecodeString(msg.Attachments[0].Content)
	if err != nil || string(decoded) != "%PDF-voucher" {
		t.Fatalf("attachment not base64 of content: %q %v", decoded, err)
	}
	if msg.Attachments[0].ContentType != "application/pdf" {
		t.Fatalf("unexpected content type %q", msg.Attachments[0].ContentType)
	}
	if !strings.Contains(msg.HTML, "£2,500.00") || !strings.Contains(msg.HTML, "Acme &lt;Widgets&gt; Ltd") {
		t.Fatalf("unexpected html body: %s", msg.HTML)
	}
	if msg.Subject != "Dividend voucher: Acme <Widgets> Ltd - 15/01/2025" {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
}

func TestNotifyWithoutRecipientsIsVacuousSuccess(t *testing.T) {
	sender := &fakeSender{}
	params := baseParams()
	params.Recipients = []string{" ", ""}
	if !NewNotifier(sender, nil).Notify(context.Background(), params) {
		t.Fatal("expected vacuous success")
	}
	if len(sender.calls) != 0 {
		t.Fatal("provider must not be called without recipients")
	}
}

func TestNotifySkipsBrokenAttachments(t *testing.T) {
	sender := &fakeSender{}
	params := baseParams()
	params.Documents[1].Content = nil
	if !NewNotifier(sender, nil).Notify(context.Background(), params) {
		t.Fatal("expected notify to succeed with remaining attachment")
	}
	if got := len(sender.calls[0].Attachments); got != 1 {
		t.Fatalf("expected 1 attachment, got %d", got)
	}
}

func TestNotifyFailsWhenNoAttachmentPrepared(t *testing.T) {
	sender := &fakeSender{}
	params := baseParams()
	params.Documents = []Document{{Filename: "voucher.pdf"}}
	if NewNotifier(sender, nil).Notify(context.Background(), params) {
		t.Fatal("expected failure")
	}
	if len(sender.calls) != 0 {
		t.Fatal("nothing should be sent")
	}
}

func TestNotifyConvertsProviderErrors(t *testing.T) {
	sender := &fakeSender{err: errors.New("503 from provider")}
	if NewNotifier(sender, nil).Notify(context.Background(), baseParams()) {
		t.Fatal("expected failure on provider error")
	}

	panicking := &fakeSender{panic: true}
	if NewNotifier(panicking, nil).Notify(context.Background(), baseParams()) {
		t.Fatal("expected failure on provider panic")
	}

	if NewNotifier(nil, nil).Notify(context.Background(), baseParams()) {
		t.Fatal("expected failure without a sender")
	}
}
