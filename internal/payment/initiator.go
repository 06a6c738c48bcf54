package payment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vkotelnikov/eduplatform/internal"
	"github.com/vkotelnikov/eduplatform/internal/core/datamodel/payment"
	purchaseDatamodel "github.com/vkotelnikov/eduplatform/internal/core/datamodel/purchase"
	tochkatypes "github.com/vkotelnikov/eduplatform/internal/core/datamodel/tochka"
	"github.com/vkotelnikov/eduplatform/internal/course"
	"github.com/vkotelnikov/eduplatform/internal/user"
)

type UserServiceAPI interface {
	GetByID(id int64) (*user.User, error)
}

type CourseServiceAPI interface {
	GetCourseByID(id int64) (*course.Course, error)
	GetCategoryByID(id int64) (*course.Category, error)
	GetLevelByID(id int64) (*course.Level, error)
	IsCategoryLinked(courseID, categoryID int64) (bool, error)
	IsLevelLinked(categoryID, levelID int64) (bool, error)
}

// GatewayAPI registers QR payments with the bank.
type GatewayAPI interface {
	RegisterQR(ctx context.Context, qr *tochkatypes.QRRequest) (*tochkatypes.QRData, error)
}

// Initiator creates the pending purchase and payment pair for a checkout and
// registers the QR code with the gateway.
type Initiator struct {
	repo    RepositoryAPI
	users   UserServiceAPI
	courses CourseServiceAPI
	gateway GatewayAPI
	cfg     internal.TochkaConfig
	logger  *slog.Logger
}

func NewInitiator(repo RepositoryAPI, users UserServiceAPI, courses CourseServiceAPI, gateway GatewayAPI, cfg internal.TochkaConfig, logger *slog.Logger) *Initiator {
	return &Initiator{
		repo:    repo,
		users:   users,
		courses: courses,
		gateway: gateway,
		cfg:     cfg,
		logger:  logger,
	}
}

// StartPayment validates the selection, records a pending purchase and
// payment in one transaction, then registers a QR code. The payment's
// placeholder transaction id is rewritten to the gateway qrcId on success.
// If registration fails the pending rows are left behind for the stale
// sweep, so a retry by the user creates a fresh attempt.
func (i *Initiator) StartPayment(ctx context.Context, userID int64, req StartPaymentRequest) (*StartPaymentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	buyer, err := i.users.GetByID(userID)
	if err != nil {
		return nil, err
	}

	crs, err := i.courses.GetCourseByID(req.CourseID)
	if err != nil {
		return nil, err
	}

	category, err := i.courses.GetCategoryByID(req.CategoryID)
	if err != nil {
		return nil, err
	}

	linked, err := i.courses.IsCategoryLinked(req.CourseID, req.CategoryID)
	if err != nil {
		return nil, err
	}
	if !linked {
		return nil, internal.ErrCategoryNotInCourse
	}

	degree := category.Name
	if req.LevelID != nil {
		level, err := i.courses.GetLevelByID(*req.LevelID)
		if err != nil {
			return nil, err
		}
		levelLinked, err := i.courses.IsLevelLinked(req.CategoryID, *req.LevelID)
		if err != nil {
			return nil, err
		}
		if !levelLinked {
			return nil, internal.ErrLevelNotInCategory
		}
		degree = level.Name
	}

	pur := &purchaseDatamodel.Purchase{
		UserID:       buyer.ID,
		CourseID:     crs.ID,
		CategoryID:   category.ID,
		Degree:       degree,
		Price:        category.Price,
		Status:       purchaseDatamodel.StatusPending,
		PurchaseDate: time.Now(),
	}
	pay := &payment.Payment{
		UserID: buyer.ID,
		Amount: category.Price,
		// placeholder until the gateway issues a qrcId
		TransactionID: fmt.Sprintf("txn_%d", time.Now().UnixNano()),
		Status:        payment.StatusPending,
	}

	if err := i.repo.CreateWithPurchase(ctx, pur, pay); err != nil {
		i.logger.Error("failed to create pending purchase", "user_id", userID, "course_id", crs.ID, "error", err)
		return nil, err
	}

	qr := &tochkatypes.QRRequest{
		Amount:         category.Price,
		Currency:       "RUB",
		PaymentPurpose: fmt.Sprintf("Payment for course %q, plan %q", crs.Name, degree),
		TTLMinutes:     i.cfg.QRCodeTTL,
		RedirectURL:    i.cfg.RedirectURL,
	}

	qrData, err := i.gateway.RegisterQR(ctx, qr)
	if err != nil {
		// pending rows stay in place; the sweeper cleans them up
		i.logger.Error("qr registration failed for pending purchase",
			"purchase_id", pur.ID, "payment_id", pay.ID, "error", err)
		return nil, err
	}

	if err := i.repo.UpdateTransactionID(ctx, pay.ID, qrData.QRCID); err != nil {
		i.logger.Error("failed to record gateway transaction id",
			"payment_id", pay.ID, "qrc_id", qrData.QRCID, "error", err)
		return nil, err
	}

	i.logger.Info("payment started",
		"user_id", buyer.ID,
		"purchase_id", pur.ID,
		"payment_id", pay.ID,
		"transaction_id", qrData.QRCID,
	)

	return &StartPaymentResponse{
		PaymentURL:    qrData.Payload,
		PaymentID:     pay.ID,
		PurchaseID:    pur.ID,
		TransactionID: qrData.QRCID,
	}, nil
}
