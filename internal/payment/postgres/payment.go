package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	paymentDatamodel "github.com/vkotelnikov/eduplatform/internal/core/datamodel/payment"
	purchaseDatamodel "github.com/vkotelnikov/eduplatform/internal/core/datamodel/purchase"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateWithPurchase inserts the purchase and its payment in a single
// transaction. Either both rows exist afterwards or neither does.
func (r *Repository) CreateWithPurchase(ctx context.Context, p *purchaseDatamodel.Purchase, pay *paymentDatamodel.Payment) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(p).Error; err != nil {
			return err
		}
		pay.PurchaseID = p.ID
		return tx.Create(pay).Error
	})
	if err != nil {
		return fmt.Errorf("create purchase with payment: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*paymentDatamodel.Payment, error) {
	var p paymentDatamodel.Payment
	err := r.db.WithContext(ctx).First(&p, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment by id: %w", err)
	}
	return &p, nil
}

func (r *Repository) GetByTransactionID(ctx context.Context, transactionID string) (*paymentDatamodel.Payment, error) {
	var p paymentDatamodel.Payment
	err := r.db.WithContext(ctx).Where("transaction_id = ?", transactionID).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment by transaction id: %w", err)
	}
	return &p, nil
}

func (r *Repository) GetByUserID(ctx context.Context, userID int64) ([]paymentDatamodel.Payment, error) {
	var payments []paymentDatamodel.Payment
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&payments).Error
	if err != nil {
		return nil, fmt.Errorf("list payments by user: %w", err)
	}
	return payments, nil
}

// UpdateStatus moves a payment out of the pending state. The WHERE guard on
// the current status means a replayed notification matches zero rows instead
// of rewriting a terminal payment; the bool reports whether this call won.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, from, to paymentDatamodel.Status) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&paymentDatamodel.Payment{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return false, fmt.Errorf("update payment status: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *Repository) UpdateTransactionID(ctx context.Context, id int64, transactionID string) error {
	err := r.db.WithContext(ctx).
		Model(&paymentDatamodel.Payment{}).
		Where("id = ?", id).
		Update("transaction_id", transactionID).Error
	if err != nil {
		return fmt.Errorf("update payment transaction id: %w", err)
	}
	return nil
}

// DeleteStalePending removes pending payments created before the cutoff along
// with their purchases, in one transaction. Returns how many payments were
// swept.
func (r *Repository) DeleteStalePending(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stale []paymentDatamodel.Payment
		if err := tx.
			Where("status = ? AND created_at < ?", paymentDatamodel.StatusPending, cutoff).
			Find(&stale).Error; err != nil {
			return err
		}
		if len(stale) == 0 {
			return nil
		}

		paymentIDs := make([]int64, 0, len(stale))
		purchaseIDs := make([]int64, 0, len(stale))
		for _, p := range stale {
			paymentIDs = append(paymentIDs, p.ID)
			purchaseIDs = append(purchaseIDs, p.PurchaseID)
		}

		if err := tx.Delete(&paymentDatamodel.Payment{}, paymentIDs).Error; err != nil {
			return err
		}
		// only purchases still pending; a purchase paid in the meantime stays
		if err := tx.
			Where("id IN ? AND status = ?", purchaseIDs, purchaseDatamodel.StatusPending).
			Delete(&purchaseDatamodel.Purchase{}).Error; err != nil {
			return err
		}

		deleted = int64(len(stale))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("delete stale pending payments: %w", err)
	}
	return deleted, nil
}
