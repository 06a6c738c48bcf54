package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypePaymentCompleted = "payment.completed"
	EventTypePaymentFailed    = "payment.failed"
)

type PaymentCompletedEvent struct {
	BaseEvent
	PaymentID     int64  `json:"payment_id"`
	PurchaseID    int64  `json:"purchase_id"`
	UserID        int64  `json:"user_id"`
	CourseID      int64  `json:"course_id"`
	TransactionID string `json:"transaction_id"`
	Amount        string `json:"amount"`
}

func NewPaymentCompletedEvent(paymentID, purchaseID, userID, courseID int64, transactionID, amount string) *PaymentCompletedEvent {
	return &PaymentCompletedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentCompleted,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payment_id":     paymentID,
				"purchase_id":    purchaseID,
				"user_id":        userID,
				"course_id":      courseID,
				"transaction_id": transactionID,
				"amount":         amount,
			},
		},
		PaymentID:     paymentID,
		PurchaseID:    purchaseID,
		UserID:        userID,
		CourseID:      courseID,
		TransactionID: transactionID,
		Amount:        amount,
	}
}

type PaymentFailedEvent struct {
	BaseEvent
	PaymentID     int64  `json:"payment_id"`
	PurchaseID    int64  `json:"purchase_id"`
	UserID        int64  `json:"user_id"`
	TransactionID string `json:"transaction_id"`
	GatewayStatus string `json:"gateway_status"`
}

func NewPaymentFailedEvent(paymentID, purchaseID, userID int64, transactionID, gatewayStatus string) *PaymentFailedEvent {
	return &PaymentFailedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentFailed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payment_id":     paymentID,
				"purchase_id":    purchaseID,
				"user_id":        userID,
				"transaction_id": transactionID,
				"gateway_status": gatewayStatus,
			},
		},
		PaymentID:     paymentID,
		PurchaseID:    purchaseID,
		UserID:        userID,
		TransactionID: transactionID,
		GatewayStatus: gatewayStatus,
	}
}
