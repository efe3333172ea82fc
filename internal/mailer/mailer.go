// Package mailer forwards contact form messages by email.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
)

// ErrNotConfigured is returned when no SMTP credentials are set.
var ErrNotConfigured = errors.New("SMTP credentials not configured")

// Contact is a message from the site's contact form.
type Contact struct {
	Name    string
	Email   string
	Message string
}

// Sender delivers a contact message.
type Sender interface {
	Send(ctx context.Context, c Contact) error
}

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTP sends messages through an SMTP relay with PLAIN auth.
type SMTP struct {
	Host string
	Port string
	User string
	Pass string
	// To receives the messages; defaults to User.
	To string

	send SendFunc
}

// NewSMTP returns an SMTP sender. send may be nil to use smtp.SendMail.
func NewSMTP(host, port, user, pass, to string, send SendFunc) *SMTP {
	if send == nil {
		send = smtp.SendMail
	}
	if to == "" {
		to = user
	}
	return &SMTP{Host: host, Port: port, User: user, Pass: pass, To: to, send: send}
}

// Configured reports whether credentials are present.
func (s *SMTP) Configured() bool {
	return s.User != "" && s.Pass != ""
}

// Send emails c to the site owner with Reply-To set to the visitor.
func (s *SMTP) Send(ctx context.Context, c Contact) error {
	if !s.Configured() {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	auth := smtp.PlainAuth("", s.User, s.Pass, s.Host)
	if err := s.send(s.Host+":"+s.Port, auth, s.User, []string{s.To}, s.Compose(c)); err != nil {
		return fmt.Errorf("send contact email: %w", err)
	}
	return nil
}

// Compose renders the email. Header values are stripped of line breaks so
// form input cannot add headers.
func (s *SMTP) Compose(c Contact) []byte {
	subject := "Portfolio Contact: " + oneLine(c.Name)
	body := fmt.Sprintf(`
New contact form submission from your portfolio:

Name: %s
Email: %s
Message:
%s

---
Sent from your portfolio contact form
`, c.Name, c.Email, c.Message)

	var b strings.Builder
	b.WriteString("To: " + s.To + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("From: " + s.User + "\r\n")
	b.WriteString("Reply-To: " + oneLine(c.Email) + "\r\n")
	b.WriteString("\r\n")
	b.WriteString(body + "\r\n")
	return []byte(b.String())
}

func oneLine(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
