package mail

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// SendgridMailer delivers messages through the SendGrid v3 API.
type SendgridMailer struct {
	key    string
	host   string
	from   *sgmail.Email
	sender Sender
}

var _ Mailer = (*SendgridMailer)(nil)

// NewSendgridMailer builds a SendGrid-backed mailer.
func NewSendgridMailer(key string, sender Sender) *SendgridMailer {
	return &SendgridMailer{
		key:    key,
		host:   sendgridHost,
		from:   sgmail.NewEmail(sender.FromName, sender.FromAddress),
		sender: sender,
	}
}

// Send posts the message synchronously and reports provider failures as errors.
func (m *SendgridMailer) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	req := sendgrid.GetRequest(m.key, sendgridEndpoint, m.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m.prepare(msg))

	res, err := sendgrid.API(req)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid send: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

func (m *SendgridMailer) prepare(msg Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = m.sender.subject(msg.Subject)
	for _, to := range msg.To {
		if to.Email == "" {
			continue
		}
		p.AddTos(sgmail.NewEmail(to.Name, to.Email))
	}

	v3 := sgmail.NewV3Mail()
	v3.SetFrom(m.from)
	v3.AddPersonalizations(p)

	if msg.TextContent != "" {
		v3.AddContent(sgmail.NewContent("text/plain", msg.TextContent))
	}
	if msg.HTMLContent != "" {
		v3.AddContent(sgmail.NewContent("text/html", msg.HTMLContent))
	}

	for _, a := range msg.Attachments {
		v3.AddAttachment(&sgmail.Attachment{
			Content:     base64.StdEncoding.EncodeToString(a.Content),
			Type:        a.ContentType,
			Filename:    a.Filename,
			Disposition: "attachment",
		})
	}
	return v3
}
