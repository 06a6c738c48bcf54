package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	errors "github.com/vkotelnikov/eduplatform/internal"
	paymentDatamodel "github.com/vkotelnikov/eduplatform/internal/core/datamodel/payment"
	"github.com/vkotelnikov/eduplatform/internal/transport"
)

type InitiatorAPI interface {
	StartPayment(ctx context.Context, userID int64, req StartPaymentRequest) (*StartPaymentResponse, error)
}

type ListServiceAPI interface {
	GetByID(ctx context.Context, id int64) (*paymentDatamodel.Payment, error)
	GetByUserID(ctx context.Context, userID int64) ([]paymentDatamodel.Payment, error)
}

type Handler struct {
	*transport.BaseHandler
	Initiator InitiatorAPI
	Service   ListServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, initiator InitiatorAPI, service ListServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Initiator:   initiator,
		Service:     service,
	}
}

func (h *Handler) StartPayment(w http.ResponseWriter, r *http.Request) {
	userID := errors.UserIDFromContext(r.Context())
	if userID == 0 {
		h.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
		return
	}

	var req StartPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("StartPayment: failed to parse request body", "error", err)
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	resp, err := h.Initiator.StartPayment(r.Context(), userID, req)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, resp)
}

func (h *Handler) GetMyPayments(w http.ResponseWriter, r *http.Request) {
	userID := errors.UserIDFromContext(r.Context())
	if userID == 0 {
		h.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
		return
	}

	payments, err := h.Service.GetByUserID(r.Context(), userID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"payments": payments})
}

func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.HandleError(w, errors.NewValidationError("invalid payment id", errors.ErrCodeValidationFailed))
		return
	}

	pay, err := h.Service.GetByID(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	// a user may only read their own payments
	if userID := errors.UserIDFromContext(r.Context()); userID != 0 && userID != pay.UserID {
		h.HandleError(w, errors.ErrPaymentNotFound)
		return
	}

	h.WriteJSON(w, http.StatusOK, pay)
}
