package listeners

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"tax-portal/internal/entities"
	"tax-portal/internal/events"
	"tax-portal/internal/invoice"
	"tax-portal/internal/services"
	"tax-portal/pkg/config"
	"tax-portal/pkg/constants"
	"tax-portal/pkg/eventbus"
	"tax-portal/pkg/filestorage"
	"tax-portal/pkg/telegram"
)

// BillingListener delivers the bill of a completed request: it renders the PDF,
// archives it, emails the submitter and pings the admin chat.
// Every step is best effort; the request is already completed when it runs.
type BillingListener struct {
	generator   *invoice.Generator
	notifier    services.NotificationServiceInterface
	fileStorage filestorage.FileStorageInterface
	telegram    telegram.ServiceInterface
	telegramCfg config.TelegramConfig
	logger      *zap.Logger
}

func NewBillingListener(
	generator *invoice.Generator,
	notifier services.NotificationServiceInterface,
	fileStorage filestorage.FileStorageInterface,
	telegramService telegram.ServiceInterface,
	telegramCfg config.TelegramConfig,
	logger *zap.Logger,
) *BillingListener {
	return &BillingListener{
		generator:   generator,
		notifier:    notifier,
		fileStorage: fileStorage,
		telegram:    telegramService,
		telegramCfg: telegramCfg,
		logger:      logger,
	}
}

func (l *BillingListener) Register(bus *eventbus.Bus) func() {
	unsubscribe := bus.Subscribe(constants.EventServiceRequestCompleted, l.handleCompleted)
	l.logger.Info("BillingListener subscribed", zap.String("event", constants.EventServiceRequestCompleted))
	return unsubscribe
}

func (l *BillingListener) handleCompleted(ctx context.Context, event eventbus.Event) error {
	e, ok := event.(events.ServiceRequestCompletedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}
	req := e.Request
	logger := l.logger.With(zap.String("requestId", req.ID), zap.String("category", string(req.Category)))

	if req.Bill == nil {
		logger.Warn("completed request without bill, nothing to deliver")
		return nil
	}

	pdf, err := l.generator.Generate(req)
	if err != nil {
		logger.Error("bill pdf not rendered", zap.Error(err))
		return err
	}
	fileName := l.generator.FileName(req)

	if l.fileStorage != nil {
		path, err := l.fileStorage.Save(ctx, bytes.NewReader(pdf), fileName, constants.UploadContextBill.String())
		if err != nil {
			logger.Warn("bill pdf not archived", zap.Error(err))
		} else {
			logger.Info("bill pdf archived", zap.String("path", path))
		}
	}

	if err := l.notifier.SendBillEmail(ctx, req, pdf, fileName); err != nil {
		logger.Error("bill email not sent", zap.String("to", req.Submitter.Email), zap.Error(err))
	}

	l.notifyAdmins(ctx, req, logger)
	return nil
}

func (l *BillingListener) notifyAdmins(ctx context.Context, req entities.ServiceRequest, logger *zap.Logger) {
	if l.telegram == nil || l.telegramCfg.AdminChatID == 0 {
		return
	}
	text := adminMessage(req)
	if err := l.telegram.SendMessageEx(ctx, l.telegramCfg.AdminChatID, text, telegram.WithMarkdownV2(), telegram.WithoutPreview()); err != nil {
		logger.Warn("telegram notification failed", zap.Error(err))
	}
}

func adminMessage(req entities.ServiceRequest) string {
	key := entities.PriceKey{Category: req.Category, ServiceType: req.ServiceType}
	var sb strings.Builder
	sb.WriteString("*Request completed*\n")
	fmt.Fprintf(&sb, "%s\n", telegram.EscapeTextForMarkdownV2(entities.ServiceName(key)))
	fmt.Fprintf(&sb, "Client: %s\n", telegram.EscapeTextForMarkdownV2(req.Submitter.Name))
	fmt.Fprintf(&sb, "Bill: %s\n", telegram.EscapeTextForMarkdownV2(req.Bill.Amount.StringFixed(2)))
	fmt.Fprintf(&sb, "ID: `%s`", req.ID)
	return sb.String()
}
