package payment

import (
	"context"
	"log/slog"
	"time"

	"github.com/vkotelnikov/eduplatform/internal"
	paymentDatamodel "github.com/vkotelnikov/eduplatform/internal/core/datamodel/payment"
	purchaseDatamodel "github.com/vkotelnikov/eduplatform/internal/core/datamodel/purchase"
	"github.com/vkotelnikov/eduplatform/internal/core/events"
	"github.com/vkotelnikov/eduplatform/internal/purchase"
)

type RepositoryAPI interface {
	CreateWithPurchase(ctx context.Context, p *purchaseDatamodel.Purchase, pay *paymentDatamodel.Payment) error
	GetByID(ctx context.Context, id int64) (*paymentDatamodel.Payment, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*paymentDatamodel.Payment, error)
	GetByUserID(ctx context.Context, userID int64) ([]paymentDatamodel.Payment, error)
	UpdateStatus(ctx context.Context, id int64, from, to paymentDatamodel.Status) (bool, error)
	UpdateTransactionID(ctx context.Context, id int64, transactionID string) error
	DeleteStalePending(ctx context.Context, cutoff time.Time) (int64, error)
}

// PurchaseConfirmerAPI confirms the purchase a completed payment belongs to.
type PurchaseConfirmerAPI interface {
	ConfirmPurchase(ctx context.Context, purchaseID int64) (*purchase.PurchaseView, error)
}

type Service struct {
	repo      RepositoryAPI
	purchases PurchaseConfirmerAPI
	eventBus  *events.EventBus
	logger    *slog.Logger
}

func NewService(repo RepositoryAPI, purchases PurchaseConfirmerAPI, eventBus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		purchases: purchases,
		eventBus:  eventBus,
		logger:    logger,
	}
}

// Gateway statuses that settle a payment. Casing follows what the gateway
// actually sends per event type.
var (
	completedStatuses = map[string]struct{}{
		"Accepted":  {},
		"Completed": {},
	}
	failedStatuses = map[string]struct{}{
		"Rejected":  {},
		"DECLINED":  {},
		"CANCELLED": {},
		"TIMEOUT":   {},
		"ERROR":     {},
	}
)

func (s *Service) GetByID(ctx context.Context, id int64) (*paymentDatamodel.Payment, error) {
	pay, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("failed to get payment", "payment_id", id, "error", err)
		return nil, err
	}
	if pay == nil {
		return nil, internal.ErrPaymentNotFound
	}
	return pay, nil
}

func (s *Service) GetByUserID(ctx context.Context, userID int64) ([]paymentDatamodel.Payment, error) {
	payments, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list payments", "user_id", userID, "error", err)
		return nil, err
	}
	return payments, nil
}

// ProcessWebhook applies a verified gateway notification to the payment it
// refers to. Redeliveries for payments already settled are acknowledged
// without changes; unknown events or statuses are rejected so the gateway
// surfaces them instead of silently retrying.
func (s *Service) ProcessWebhook(ctx context.Context, evt WebhookEvent) error {
	if evt.Event != EventQRCodePayment && evt.Event != EventIncomingSBPPayment {
		return internal.NewValidationError("unknown webhook event: "+evt.Event, internal.ErrCodeUnknownWebhookEvent)
	}

	pay, err := s.lookupPayment(ctx, evt)
	if err != nil {
		return err
	}

	_, completed := completedStatuses[evt.Status]
	_, failed := failedStatuses[evt.Status]
	if !completed && !failed {
		return internal.NewValidationError("unknown payment status: "+evt.Status, internal.ErrCodeUnknownPaymentStatus)
	}

	if pay.Status.IsTerminal() {
		s.logger.Info("webhook redelivery for settled payment, ignoring",
			"payment_id", pay.ID, "status", pay.Status, "gateway_status", evt.Status)
		return nil
	}

	if completed {
		return s.completePayment(ctx, pay, evt)
	}
	return s.failPayment(ctx, pay, evt)
}

// lookupPayment resolves the notification to a local payment, preferring the
// qrcId issued at registration and falling back to the operation id.
func (s *Service) lookupPayment(ctx context.Context, evt WebhookEvent) (*paymentDatamodel.Payment, error) {
	if evt.QRCID != "" {
		pay, err := s.repo.GetByTransactionID(ctx, evt.QRCID)
		if err != nil {
			return nil, err
		}
		if pay != nil {
			return pay, nil
		}
	}
	if evt.OperationID != "" {
		pay, err := s.repo.GetByTransactionID(ctx, evt.OperationID)
		if err != nil {
			return nil, err
		}
		if pay != nil {
			return pay, nil
		}
	}
	s.logger.Warn("webhook references unknown payment", "qrc_id", evt.QRCID, "operation_id", evt.OperationID)
	return nil, internal.ErrPaymentNotFound
}

func (s *Service) completePayment(ctx context.Context, pay *paymentDatamodel.Payment, evt WebhookEvent) error {
	won, err := s.repo.UpdateStatus(ctx, pay.ID, paymentDatamodel.StatusPending, paymentDatamodel.StatusCompleted)
	if err != nil {
		s.logger.Error("failed to complete payment", "payment_id", pay.ID, "error", err)
		return err
	}
	if !won {
		// another delivery of the same notification got here first
		s.logger.Info("payment already settled concurrently", "payment_id", pay.ID)
		return nil
	}

	view, err := s.purchases.ConfirmPurchase(ctx, pay.PurchaseID)
	if err != nil {
		s.logger.Error("payment completed but purchase confirmation failed",
			"payment_id", pay.ID, "purchase_id", pay.PurchaseID, "error", err)
		return err
	}

	s.logger.Info("payment completed",
		"payment_id", pay.ID,
		"purchase_id", pay.PurchaseID,
		"transaction_id", pay.TransactionID,
		"gateway_status", evt.Status,
	)

	event := events.NewPaymentCompletedEvent(
		pay.ID, pay.PurchaseID, pay.UserID, view.CourseID,
		pay.TransactionID, pay.Amount.StringFixed(2))
	if err := s.eventBus.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish payment completed event", "payment_id", pay.ID, "error", err)
	}
	return nil
}

// failPayment settles the payment as failed. The purchase stays pending so a
// fresh payment attempt can still succeed; abandoned rows are removed by the
// stale sweep.
func (s *Service) failPayment(ctx context.Context, pay *paymentDatamodel.Payment, evt WebhookEvent) error {
	won, err := s.repo.UpdateStatus(ctx, pay.ID, paymentDatamodel.StatusPending, paymentDatamodel.StatusFailed)
	if err != nil {
		s.logger.Error("failed to mark payment failed", "payment_id", pay.ID, "error", err)
		return err
	}
	if !won {
		s.logger.Info("payment already settled concurrently", "payment_id", pay.ID)
		return nil
	}

	s.logger.Info("payment failed",
		"payment_id", pay.ID,
		"purchase_id", pay.PurchaseID,
		"transaction_id", pay.TransactionID,
		"gateway_status", evt.Status,
	)

	event := events.NewPaymentFailedEvent(pay.ID, pay.PurchaseID, pay.UserID, pay.TransactionID, evt.Status)
	if err := s.eventBus.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish payment failed event", "payment_id", pay.ID, "error", err)
	}
	return nil
}

// SweepStale deletes pending payments older than maxAge together with their
// still-pending purchases.
func (s *Service) SweepStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge)
	deleted, err := s.repo.DeleteStalePending(ctx, cutoff)
	if err != nil {
		s.logger.Error("stale payment sweep failed", "error", err)
		return 0, err
	}
	if deleted > 0 {
		s.logger.Info("swept stale pending payments", "count", deleted, "cutoff", cutoff)
	}
	return deleted, nil
}
