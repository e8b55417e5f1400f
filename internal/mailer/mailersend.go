package mailer

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mailersend/mailersend-go"

	"github.com/spec-kit/community-access/internal/config"
)

// MailerSend delivers through the MailerSend API.
type MailerSend struct {
	client *mailersend.Mailersend
	from   mailersend.From
}

// NewMailerSend constructs the MailerSend driver.
func NewMailerSend(cfg config.MailerConfig) *MailerSend {
	return &MailerSend{
		client: mailersend.NewMailersend(cfg.APIKey),
		from: mailersend.From{
			Name:  cfg.FromName,
			Email: cfg.FromEmail,
		},
	}
}

// Send delivers the message.
func (m *MailerSend) Send(ctx context.Context, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	email := m.client.Email.NewMessage()
	email.SetFrom(m.from)
	email.SetRecipients([]mailersend.Recipient{{Name: msg.ToName, Email: msg.ToEmail}})
	email.SetSubject(msg.Subject)
	if strings.TrimSpace(msg.Text) != "" {
		email.SetText(msg.Text)
	}
	if strings.TrimSpace(msg.HTML) != "" {
		email.SetHTML(msg.HTML)
	}

	res, err := m.client.Email.Send(ctx, email)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("mailersend error: status=%d body=%s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
