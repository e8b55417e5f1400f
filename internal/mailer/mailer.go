package mailer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/community-access/internal/config"
)

// Message is an outbound email.
type Message struct {
	ToEmail string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

// Service sends outbound mail. Implementations cover local SMTP (Mailpit
// style), MailerSend, and a log-only dev driver.
type Service interface {
	Send(ctx context.Context, msg Message) error
}

// FromConfig selects the mail driver.
func FromConfig(cfg config.MailerConfig, logger *zap.Logger) (Service, error) {
	switch cfg.Driver {
	case "smtp":
		return NewSMTPMailer(cfg), nil
	case "mailersend":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("mailersend driver requires MAILERSEND_API_KEY")
		}
		return NewMailerSend(cfg), nil
	case "dev", "":
		return NewDevMailer(logger), nil
	default:
		return nil, fmt.Errorf("unknown mailer driver %q", cfg.Driver)
	}
}
