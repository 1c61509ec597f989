package email

import (
	"context"
	"errors"
	"strings"
)

// ErrNoRecipients is returned when a message has nobody to deliver to.
var ErrNoRecipients = errors.New("email has no recipients")

// Attachment is a file carried by a Message. Content is already base64 encoded.
type Attachment struct {
	Filename    string
	ContentType string
	Content     string
}

// Message is a single outbound email.
type Message struct {
	To          []string
	Subject     string
	HTML        string
	Text        string
	Attachments []Attachment
}

// Sender delivers messages through a transactional email provider.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Recipients returns the trimmed, de-duplicated recipient list in input order.
func (m Message) Recipients() []string {
	seen := make(map[string]struct{}, len(m.To))
	out := make([]string, 0, len(m.To))
	for _, addr := range m.To {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		key := strings.ToLower(addr)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, addr)
	}
	return out
}
