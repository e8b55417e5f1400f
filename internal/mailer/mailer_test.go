package mailer

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/community-access/internal/config"
)

func TestFromConfigDriverSelection(t *testing.T) {
	logger := zap.NewNop()

	svc, err := FromConfig(config.MailerConfig{Driver: "dev"}, logger)
	if err != nil {
		t.Fatalf("dev driver: %v", err)
	}
	if _, ok := svc.(*DevMailer); !ok {
		t.Errorf("dev driver produced %T", svc)
	}

	// empty driver falls back to dev
	svc, err = FromConfig(config.MailerConfig{}, logger)
	if err != nil {
		t.Fatalf("default driver: %v", err)
	}
	if _, ok := svc.(*DevMailer); !ok {
		t.Errorf("default driver produced %T", svc)
	}

	svc, err = FromConfig(config.MailerConfig{Driver: "smtp", SMTPHost: "localhost", SMTPPort: 1025}, logger)
	if err != nil {
		t.Fatalf("smtp driver: %v", err)
	}
	if _, ok := svc.(*SMTPMailer); !ok {
		t.Errorf("smtp driver produced %T", svc)
	}

	if _, err := FromConfig(config.MailerConfig{Driver: "mailersend"}, logger); err == nil {
		t.Error("mailersend driver accepted without an API key")
	}
	if _, err := FromConfig(config.MailerConfig{Driver: "carrier-pigeon"}, logger); err == nil {
		t.Error("unknown driver accepted")
	}
}

func TestDevMailerSend(t *testing.T) {
	dev := NewDevMailer(zap.NewNop())
	err := dev.Send(context.Background(), Message{
		ToEmail: "m@example.com",
		Subject: "hello",
		Text:    "body",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
}
