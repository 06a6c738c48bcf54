package payment

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/vkotelnikov/eduplatform/internal/core/common/validation"
)

// StartPaymentRequest selects what the authenticated user is buying. A level
// is optional; when present it must belong to the chosen category.
type StartPaymentRequest struct {
	CourseID   int64  `json:"course_id"`
	CategoryID int64  `json:"category_id"`
	LevelID    *int64 `json:"level_id,omitempty"`
}

func (r *StartPaymentRequest) Validate() error {
	validator := validation.NewValidator()

	validator.Field("course_id", r.CourseID).Required().Positive()
	validator.Field("category_id", r.CategoryID).Required().Positive()
	if r.LevelID != nil {
		validator.Field("level_id", *r.LevelID).Required().Positive()
	}

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// StartPaymentResponse carries the gateway redirect URL plus the local
// identifiers created for this attempt.
type StartPaymentResponse struct {
	PaymentURL    string `json:"payment_url"`
	PaymentID     int64  `json:"payment_id"`
	PurchaseID    int64  `json:"purchase_id"`
	TransactionID string `json:"transaction_id"`
}

// Gateway webhook event names this service understands.
const (
	EventQRCodePayment      = "qrCodePayment"
	EventIncomingSBPPayment = "incomingSbpPayment"
)

// WebhookEvent is the verified content of a gateway notification, extracted
// from the signed JWT body.
type WebhookEvent struct {
	Event       string
	Status      string
	QRCID       string
	OperationID string
}

type webhookClaims struct {
	jwt.RegisteredClaims
	Event string      `json:"event"`
	Data  webhookData `json:"data"`
}

type webhookData struct {
	Status      string `json:"status"`
	QRCID       string `json:"qrcId"`
	OperationID string `json:"operationId"`
}
