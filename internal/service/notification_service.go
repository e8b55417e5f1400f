package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/community-access/internal/config"
	"github.com/spec-kit/community-access/internal/events"
	"github.com/spec-kit/community-access/internal/mailer"
	"github.com/spec-kit/community-access/internal/repository"
)

// NotificationService reacts to domain events: it emails members about
// approval decisions and forwards access decisions to the webhook stub.
type NotificationService struct {
	dispatcher events.Dispatcher
	users      repository.UserRepository
	addresses  repository.AddressRepository
	mail       mailer.Service
	logger     *zap.Logger
	cfg        config.NotifyConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, users repository.UserRepository, addresses repository.AddressRepository, mail mailer.Service, logger *zap.Logger, cfg config.NotifyConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		users:      users,
		addresses:  addresses,
		mail:       mail,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventAddressApproved, n.handleAddressDecision)
	n.dispatcher.Subscribe(events.EventAddressRejected, n.handleAddressDecision)
	n.dispatcher.Subscribe(events.EventAccessGranted, n.handleAccessDecision)
	n.dispatcher.Subscribe(events.EventAccessDenied, n.handleAccessDecision)
	n.dispatcher.Subscribe(events.EventVisitorsBulkUpdate, n.handleBulkUpdate)
}

func (n *NotificationService) handleAddressDecision(ctx context.Context, event events.Event) error {
	address, err := n.addresses.GetByID(ctx, event.AddressID)
	if err != nil {
		if err != pgx.ErrNoRows {
			n.logger.Warn("notification: address lookup failed", zap.Error(err))
		}
		return nil
	}
	owner, err := n.users.GetByID(ctx, address.OwnerMemberID)
	if err != nil {
		n.logger.Warn("notification: owner lookup failed", zap.Error(err))
		return nil
	}

	decision := "approved"
	if event.Type == events.EventAddressRejected {
		decision = "rejected"
	}
	msg := mailer.Message{
		ToEmail: owner.Email,
		ToName:  owner.Name,
		Subject: fmt.Sprintf("Your address was %s", decision),
		Text:    fmt.Sprintf("Your address %q was %s by an administrator.", address.AddressText, decision),
	}
	if err := n.mail.Send(ctx, msg); err != nil {
		n.logger.Warn("notification: email send failed",
			zap.String("address_id", address.ID), zap.Error(err))
	}
	return nil
}

func (n *NotificationService) handleAccessDecision(ctx context.Context, event events.Event) error {
	n.logger.Info("access decision",
		zap.String("type", string(event.Type)),
		zap.String("address_id", event.AddressID),
		zap.Any("payload", event.Payload))
	n.sendWebhookStub(event)
	return nil
}

func (n *NotificationService) handleBulkUpdate(ctx context.Context, event events.Event) error {
	n.logger.Info("visitors bulk update",
		zap.String("address_id", event.AddressID),
		zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) sendWebhookStub(event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("event_type", string(event.Type)),
		zap.String("address_id", event.AddressID))
}
