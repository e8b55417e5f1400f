package mailer

import (
	"context"

	"go.uber.org/zap"
)

// DevMailer logs messages instead of sending them.
type DevMailer struct {
	logger *zap.Logger
}

// NewDevMailer constructs the log-only driver.
func NewDevMailer(logger *zap.Logger) *DevMailer {
	return &DevMailer{logger: logger}
}

// Send logs the would-be delivery.
func (d *DevMailer) Send(_ context.Context, msg Message) error {
	d.logger.Info("dev mailer: would send email",
		zap.String("to", msg.ToEmail),
		zap.String("subject", msg.Subject),
		zap.String("text", msg.Text),
	)
	return nil
}
