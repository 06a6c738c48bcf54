package purchase

import (
	"context"
	"log/slog"

	"github.com/vkotelnikov/eduplatform/internal"
	purchaseDatamodel "github.com/vkotelnikov/eduplatform/internal/core/datamodel/purchase"
)

type RepositoryAPI interface {
	GetByID(ctx context.Context, id int64) (*purchaseDatamodel.Purchase, error)
	GetWithRelations(ctx context.Context, id int64) (*purchaseDatamodel.Purchase, error)
	GetByUserID(ctx context.Context, userID int64) ([]purchaseDatamodel.Purchase, error)
	UpdateStatus(ctx context.Context, id int64, from, to purchaseDatamodel.Status) error
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) GetByID(ctx context.Context, id int64) (*purchaseDatamodel.Purchase, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("failed to get purchase", "purchase_id", id, "error", err)
		return nil, err
	}
	if p == nil {
		return nil, internal.ErrPurchaseNotFound
	}
	return p, nil
}

func (s *Service) GetByUserID(ctx context.Context, userID int64) ([]purchaseDatamodel.Purchase, error) {
	purchases, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list purchases", "user_id", userID, "error", err)
		return nil, err
	}
	return purchases, nil
}

// ConfirmPurchase marks a pending purchase as paid and returns the
// denormalized view built from its preloaded user, course and category.
// A purchase already in the paid state is returned as-is, so replayed
// confirmations are safe.
func (s *Service) ConfirmPurchase(ctx context.Context, purchaseID int64) (*PurchaseView, error) {
	p, err := s.repo.GetWithRelations(ctx, purchaseID)
	if err != nil {
		s.logger.Error("failed to load purchase for confirmation", "purchase_id", purchaseID, "error", err)
		return nil, err
	}
	if p == nil {
		return nil, internal.ErrPurchaseNotFound
	}

	if p.User == nil {
		return nil, internal.NewNotFoundError("user for purchase not found", internal.ErrCodeUserNotFound)
	}
	if p.Course == nil {
		return nil, internal.NewNotFoundError("course for purchase not found", internal.ErrCodeCourseNotFound)
	}
	if p.Category == nil {
		return nil, internal.NewNotFoundError("category for purchase not found", internal.ErrCodeCategoryNotFound)
	}

	if p.Status != purchaseDatamodel.StatusPaid {
		if err := s.repo.UpdateStatus(ctx, p.ID, purchaseDatamodel.StatusPending, purchaseDatamodel.StatusPaid); err != nil {
			s.logger.Error("failed to mark purchase paid", "purchase_id", p.ID, "error", err)
			return nil, err
		}
		p.Status = purchaseDatamodel.StatusPaid
	}

	s.logger.Info("purchase confirmed",
		"purchase_id", p.ID,
		"user_id", p.UserID,
		"course_id", p.CourseID,
	)

	return ToView(p), nil
}
