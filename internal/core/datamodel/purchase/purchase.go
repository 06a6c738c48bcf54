package purchase

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	coursemodel "github.com/vkotelnikov/eduplatform/internal/core/datamodel/course"
	usermodel "github.com/vkotelnikov/eduplatform/internal/core/datamodel/user"
)

// Status is a closed enumeration; unrecognized values are rejected at the
// boundary via ParseStatus.
type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
	StatusFailed  Status = "failed"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusPaid, StatusFailed:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown purchase status: %q", s)
}

// CanTransitionTo enforces the monotonic pending-only state machine.
func (s Status) CanTransitionTo(next Status) bool {
	return s == StatusPending && (next == StatusPaid || next == StatusFailed)
}

func (s Status) IsTerminal() bool {
	return s == StatusPaid || s == StatusFailed
}

type Purchase struct {
	ID           int64                 `gorm:"primaryKey"`
	UserID       int64                 `gorm:"column:user_id;not null;index"`
	CourseID     int64                 `gorm:"column:course_id;not null"`
	CategoryID   int64                 `gorm:"column:category_id;not null"`
	Degree       string                `gorm:"column:degree;not null"`
	Price        decimal.Decimal       `gorm:"column:price;type:decimal(12,2);not null"`
	Status       Status                `gorm:"column:status;default:pending"`
	PurchaseDate time.Time             `gorm:"column:purchase_date"`
	CreatedAt    time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time             `gorm:"column:updated_at;autoUpdateTime"`
	User         *usermodel.User       `gorm:"foreignKey:UserID"`
	Course       *coursemodel.Course   `gorm:"foreignKey:CourseID"`
	Category     *coursemodel.Category `gorm:"foreignKey:CategoryID"`
}

func (Purchase) TableName() string {
	return "purchases"
}
