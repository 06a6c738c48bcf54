package request

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vkotelnikov/eduplatform/internal/core/events"
)

// EventHandler closes the enrollment loop: once a payment completes, the
// purchaser's open request for that course is marked enrolled.
type EventHandler struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewEventHandler(repo RepositoryAPI, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		repo:   repo,
		logger: logger,
	}
}

func (h *EventHandler) HandlePaymentCompleted(ctx context.Context, event events.Event) error {
	completed, ok := event.(*events.PaymentCompletedEvent)
	if !ok {
		h.logger.Error("invalid event type for payment completed handler", "event_type", event.EventType())
		return fmt.Errorf("expected PaymentCompletedEvent, got %T", event)
	}

	if err := h.repo.MarkEnrolled(completed.UserID, completed.CourseID); err != nil {
		h.logger.Error("failed to mark enrollment request",
			"error", err,
			"user_id", completed.UserID,
			"course_id", completed.CourseID,
			"event_id", completed.EventID())
		return err
	}

	h.logger.Info("enrollment request marked enrolled",
		"user_id", completed.UserID,
		"course_id", completed.CourseID,
		"event_id", completed.EventID())
	return nil
}

func (h *EventHandler) RegisterEventHandlers(eventBus *events.EventBus) {
	eventBus.Subscribe(events.EventTypePaymentCompleted, h.HandlePaymentCompleted)

	h.logger.Info("request event handlers registered",
		"handlers", []string{events.EventTypePaymentCompleted})
}
