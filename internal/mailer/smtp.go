package mailer

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/spec-kit/community-access/internal/config"
)

// SMTPMailer delivers through a plain SMTP relay. With no user configured
// it speaks unauthenticated SMTP, which is what local Mailpit expects.
type SMTPMailer struct {
	host string
	port int
	from string
	user string
	pass string
}

// NewSMTPMailer constructs the SMTP driver.
func NewSMTPMailer(cfg config.MailerConfig) *SMTPMailer {
	return &SMTPMailer{
		host: strings.TrimSpace(cfg.SMTPHost),
		port: cfg.SMTPPort,
		from: strings.TrimSpace(cfg.FromEmail),
		user: strings.TrimSpace(cfg.SMTPUser),
		pass: cfg.SMTPPass,
	}
}

// Send delivers the message.
func (s *SMTPMailer) Send(_ context.Context, msg Message) error {
	to := strings.TrimSpace(msg.ToEmail)
	if to == "" {
		return fmt.Errorf("empty recipient email")
	}

	var buf bytes.Buffer
	boundary := "alt-boundary"
	fmt.Fprintf(&buf, "From: %s\r\n", s.from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", boundary)

	fmt.Fprintf(&buf, "--%s\r\n", boundary)
	fmt.Fprintf(&buf, "Content-Type: text/plain; charset=utf-8\r\n\r\n")
	fmt.Fprintf(&buf, "%s\r\n\r\n", msg.Text)

	if msg.HTML != "" {
		fmt.Fprintf(&buf, "--%s\r\n", boundary)
		fmt.Fprintf(&buf, "Content-Type: text/html; charset=utf-8\r\n\r\n")
		fmt.Fprintf(&buf, "%s\r\n\r\n", msg.HTML)
	}
	fmt.Fprintf(&buf, "--%s--\r\n", boundary)

	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	var auth smtp.Auth
	if s.user != "" {
		auth = smtp.PlainAuth("", s.user, s.pass, s.host)
	}
	return smtp.SendMail(addr, auth, s.from, []string{to}, buf.Bytes())
}
