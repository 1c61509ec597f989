package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"go.uber.org/multierr"

	"github.com/dividify/dividify-backend/pkg/email"
	"github.com/dividify/dividify-backend/pkg/logger"
)

const pdfContentType = "application/pdf"

var (
	errEmptyDocument = errors.New("document has no content")
	errNoAttachments = errors.New("no attachments could be prepared")
)

// Document is a rendered file to attach.
type Document struct {
	Filename string
	Content  []byte
}

// NotifyParams describes the email for one schedule run.
type NotifyParams struct {
	Recipients      []string
	CompanyName     string
	ShareholderName string
	TotalAmount     string
	PaymentDate     string
	Documents       []Document
}

var bodyTemplate = template.Must(template.New("scheduled_dividend").Parse(`<p>Hello,</p>
<p>A scheduled dividend has been declared by <strong>{{.CompanyName}}</strong>.</p>
<table>
  <tr><td>Shareholder</td><td>{{.ShareholderName}}</td></tr>
  <tr><td>Total dividend</td><td>{{.TotalAmount}}</td></tr>
  <tr><td>Payment date</td><td>{{.PaymentDate}}</td></tr>
</table>
<p>The dividend paperwork is attached:</p>
<ul>{{range .Filenames}}<li>{{.}}</li>{{end}}</ul>
<p>Dividify</p>`))

// Notifier emails generated documents to a schedule's recipients.
type Notifier struct {
	sender email.Sender
	logg   *logger.Logger
}

func NewNotifier(sender email.Sender, logg *logger.Logger) *Notifier {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Notifier{sender: sender, logg: logg}
}

// Notify sends one email carrying every prepared document. It reports whether the email was delivered,
// treating an empty recipient list as delivered; provider errors are logged, never returned.
func (n *Notifier) Notify(ctx context.Context, params NotifyParams) bool {
	msg := email.Message{To: params.Recipients}
	if len(msg.Recipients()) == 0 {
		return true
	}

	attachments, err := prepareAttachments(params.Documents)
	if err != nil {
		n.logg.Warn(n.logg.WithField(ctx, "error", err.Error()), "some scheduled dividend attachments could not be prepared")
	}
	if len(attachments) == 0 {
		n.logg.Error(ctx, "scheduled dividend email not sent", multierr.Append(errNoAttachments, err))
		return false
	}

	msg.Subject = Subject(params)
	msg.HTML, err = renderBody(params, attachments)
	if err != nil {
		n.logg.Error(ctx, "render scheduled dividend email", err)
		return false
	}
	msg.Text = fmt.Sprintf("%s has declared a dividend of %s for %s, payable on %s. The paperwork is attached.",
		params.CompanyName, params.TotalAmount, params.ShareholderName, params.PaymentDate)
	msg.Attachments = attachments

	if err := n.send(ctx, msg); err != nil {
		n.logg.Error(ctx, "send scheduled dividend email", err)
		return false
	}
	return true
}

// Subject is the email subject for a scheduled dividend.
func Subject(params NotifyParams) string {
	return fmt.Sprintf("Dividend voucher: %s - %s", params.CompanyName, params.PaymentDate)
}

func (n *Notifier) send(ctx context.Context, msg email.Message) (err error) {
	if n.sender == nil {
		return errors.New("no email sender configured")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("email provider panic: %v", r)
		}
	}()
	return n.sender.Send(ctx, msg)
}

func prepareAttachments(docs []Document) ([]email.Attachment, error) {
	var (
		out  []email.Attachment
		errs error
	)
	for _, doc := range docs {
		if len(doc.Content) == 0 {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", doc.Filename, errEmptyDocument))
			continue
		}
		if strings.TrimSpace(doc.Filename) == "" {
			errs = multierr.Append(errs, errors.New("attachment filename is required"))
			continue
		}
		out = append(out, email.Attachment{
			Filename:    doc.Filename,
			ContentType: pdfContentType,
			Content:     base64.StdEncoding.EncodeToString(doc.Content),
		})
	}
	return out, errs
}

func renderBody(params NotifyParams, attachments []email.Attachment) (string, error) {
	filenames := make([]string, 0, len(attachments))
	for _, a := range attachments {
		filenames = append(filenames, a.Filename)
	}
	var buf bytes.Buffer
	err := bodyTemplate.Execute(&buf, struct {
		NotifyParams
		Filenames []string
	}{params, filenames})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
