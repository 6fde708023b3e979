// Package mail delivers transactional email through a pluggable provider.
package mail

import (
	"context"
	"errors"
	"strings"
)

// ErrNoRecipients is returned when a message has nobody to deliver to.
var ErrNoRecipients = errors.New("mail: message has no recipients")

// ErrEmptyMessage is returned when a message carries neither content nor attachments.
var ErrEmptyMessage = errors.New("mail: message has no content")

// Address is a display name plus email address.
type Address struct {
	Name  string
	Email string
}

// Attachment is a file shipped alongside the message body.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Message is a provider-agnostic email.
type Message struct {
	To          []Address
	Subject     string
	TextContent string
	HTMLContent string
	Attachments []Attachment
}

// Mailer sends messages. Implementations must never panic on delivery failure.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Sender identity shared by every provider.
type Sender struct {
	FromName    string
	FromAddress string
	AppName     string
}

func (s Sender) subject(raw string) string {
	if s.AppName == "" {
		return raw
	}
	return "[" + s.AppName + "] " + raw
}

// Validate checks the message can be delivered.
func (m Message) Validate() error {
	hasRecipient := false
	for _, to := range m.To {
		if strings.TrimSpace(to.Email) != "" {
			hasRecipient = true
			break
		}
	}
	if !hasRecipient {
		return ErrNoRecipients
	}
	if strings.TrimSpace(m.TextContent) == "" && strings.TrimSpace(m.HTMLContent) == "" && len(m.Attachments) == 0 {
		return ErrEmptyMessage
	}
	return nil
}
