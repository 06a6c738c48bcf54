package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	purchaseDatamodel "github.com/vkotelnikov/eduplatform/internal/core/datamodel/purchase"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*purchaseDatamodel.Purchase, error) {
	var p purchaseDatamodel.Purchase
	err := r.db.WithContext(ctx).First(&p, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get purchase by id: %w", err)
	}
	return &p, nil
}

func (r *Repository) GetWithRelations(ctx context.Context, id int64) (*purchaseDatamodel.Purchase, error) {
	var p purchaseDatamodel.Purchase
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Course").
		Preload("Category").
		First(&p, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get purchase with relations: %w", err)
	}
	return &p, nil
}

func (r *Repository) GetByUserID(ctx context.Context, userID int64) ([]purchaseDatamodel.Purchase, error) {
	var purchases []purchaseDatamodel.Purchase
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("purchase_date DESC").
		Find(&purchases).Error
	if err != nil {
		return nil, fmt.Errorf("list purchases by user: %w", err)
	}
	return purchases, nil
}

// UpdateStatus transitions a purchase from one status to another. The
// from guard makes concurrent confirmations write the transition once.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, from, to purchaseDatamodel.Status) error {
	result := r.db.WithContext(ctx).
		Model(&purchaseDatamodel.Purchase{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return fmt.Errorf("update purchase status: %w", result.Error)
	}
	return nil
}
