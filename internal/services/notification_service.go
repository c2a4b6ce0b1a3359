package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"tax-portal/internal/entities"
	"tax-portal/pkg/config"
	"tax-portal/pkg/notify"
)

type NotificationServiceInterface interface {
	SendBillEmail(ctx context.Context, req entities.ServiceRequest, pdf []byte, fileName string) error
}

type emailNotificationService struct {
	mailer  notify.Mailer
	billing config.BillingConfig
	logger  *zap.Logger
}

func NewEmailNotificationService(mailer notify.Mailer, billing config.BillingConfig, logger *zap.Logger) NotificationServiceInterface {
	return &emailNotificationService{mailer: mailer, billing: billing, logger: logger}
}

func (s *emailNotificationService) SendBillEmail(ctx context.Context, req entities.ServiceRequest, pdf []byte, fileName string) error {
	if req.Bill == nil {
		return fmt.Errorf("request %s has no bill", req.ID)
	}

	msg := notify.Message{
		To:      []string{req.Submitter.Email},
		Subject: billSubject(s.billing, req),
		Body:    billBody(s.billing, req),
	}
	if len(pdf) > 0 {
		msg.Attachments = []notify.Attachment{{FileName: fileName, ContentType: "application/pdf", Data: pdf}}
	}
	return s.mailer.Send(ctx, msg)
}

// mockNotificationService writes the email to the log instead of sending it.
type mockNotificationService struct {
	billing config.BillingConfig
	logger  *zap.Logger
}

func NewMockNotificationService(billing config.BillingConfig, logger *zap.Logger) NotificationServiceInterface {
	return &mockNotificationService{billing: billing, logger: logger}
}

func (s *mockNotificationService) SendBillEmail(_ context.Context, req entities.ServiceRequest, pdf []byte, fileName string) error {
	if req.Bill == nil {
		return fmt.Errorf("request %s has no bill", req.ID)
	}
	s.logger.Info("bill email (not sent, SMTP not configured)",
		zap.String("to", req.Submitter.Email),
		zap.String("subject", billSubject(s.billing, req)),
		zap.String("body", billBody(s.billing, req)),
		zap.String("attachment", fileName),
		zap.Int("attachmentBytes", len(pdf)),
	)
	return nil
}

func billSubject(cfg config.BillingConfig, req entities.ServiceRequest) string {
	return fmt.Sprintf("%s: bill for your %s request", cfg.FirmName, req.Category.DisplayName())
}

func billBody(cfg config.BillingConfig, req entities.ServiceRequest) string {
	bill := req.Bill
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", req.Submitter.Name)
	fmt.Fprintf(&b, "Your %s request (%s) has been completed.\n\n", req.Category.DisplayName(), req.ServiceType)
	fmt.Fprintf(&b, "Description: %s\n", bill.Description)
	fmt.Fprintf(&b, "Amount: %s %s\n", cfg.CurrencySymbol, bill.Amount.StringFixed(2))
	fmt.Fprintf(&b, "Payment due by: %s\n\n", bill.DueAt(cfg.PaymentGrace).Format(time.RFC1123))
	fmt.Fprintf(&b, "Request reference: %s\n\n", req.ID)
	fmt.Fprintf(&b, "Regards,\n%s\n", cfg.FirmName)
	return b.String()
}
