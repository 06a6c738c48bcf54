package payment

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Status is a closed enumeration over the payment lifecycle. Transitions are
// monotonic: pending may move to completed or failed, terminal states never
// change again.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusCompleted, StatusFailed:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown payment status: %q", s)
}

func (s Status) CanTransitionTo(next Status) bool {
	return s == StatusPending && (next == StatusCompleted || next == StatusFailed)
}

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

type Payment struct {
	ID            int64           `gorm:"primaryKey"`
	PurchaseID    int64           `gorm:"column:purchase_id;not null;index"`
	UserID        int64           `gorm:"column:user_id;not null;index"`
	Amount        decimal.Decimal `gorm:"column:amount;type:decimal(12,2);not null"`
	TransactionID string          `gorm:"column:transaction_id;not null;uniqueIndex"`
	Status        Status          `gorm:"column:status;default:pending"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Payment) TableName() string {
	return "payments"
}
