package service

import (
	"bytes"
	"embed"
	"fmt"
	htmltmpl "html/template"
	texttmpl "text/template"
)

//go:embed templates/email/*
var emailTemplateFS embed.FS

const (
	emailTemplatePaymentApproved = "payment_approved"
	emailTemplateAccessCode      = "access_code"
)

// emailTemplate pairs the text and HTML bodies of one guardian email.
type emailTemplate struct {
	text *texttmpl.Template
	html *htmltmpl.Template
}

// emailData is the context every guardian email template renders from.
type emailData struct {
	GuardianName string
	StudentName  string
	PlanName     string
	StatusLabel  string
	Amount       string
	AccessCode   string
	TrackingURL  string
}

var emailTemplates = mustParseEmailTemplates(emailTemplatePaymentApproved, emailTemplateAccessCode)

func mustParseEmailTemplates(names ...string) map[string]emailTemplate {
	const dir = "templates/email/"
	out := make(map[string]emailTemplate, len(names))
	for _, name := range names {
		text := texttmpl.Must(texttmpl.ParseFS(emailTemplateFS, dir+"_base.txt", dir+name+".txt")).Option("missingkey=error")
		html := htmltmpl.Must(htmltmpl.ParseFS(emailTemplateFS, dir+"_base.gohtml", dir+name+".gohtml")).Option("missingkey=error")
		out[name] = emailTemplate{text: text, html: html}
	}
	return out
}

// renderEmail executes both bodies of the named template.
func renderEmail(name string, data emailData) (text, html string, err error) {
	tmpl, ok := emailTemplates[name]
	if !ok {
		return "", "", fmt.Errorf("unknown email template %q", name)
	}
	var buf bytes.Buffer
	if err := tmpl.text.ExecuteTemplate(&buf, "_base.txt", data); err != nil {
		return "", "", fmt.Errorf("render %s text: %w", name, err)
	}
	text = buf.String()
	buf.Reset()
	if err := tmpl.html.ExecuteTemplate(&buf, "_base.gohtml", data); err != nil {
		return "", "", fmt.Errorf("render %s html: %w", name, err)
	}
	return text, buf.String(), nil
}
