package purchase

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	errors "github.com/vkotelnikov/eduplatform/internal"
	purchaseDatamodel "github.com/vkotelnikov/eduplatform/internal/core/datamodel/purchase"
	"github.com/vkotelnikov/eduplatform/internal/transport"
)

type ServiceAPI interface {
	GetByID(ctx context.Context, id int64) (*purchaseDatamodel.Purchase, error)
	GetByUserID(ctx context.Context, userID int64) ([]purchaseDatamodel.Purchase, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

func (h *Handler) GetMyPurchases(w http.ResponseWriter, r *http.Request) {
	userID := errors.UserIDFromContext(r.Context())
	if userID == 0 {
		h.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
		return
	}

	purchases, err := h.Service.GetByUserID(r.Context(), userID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"purchases": purchases})
}

func (h *Handler) GetPurchase(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.HandleError(w, errors.NewValidationError("invalid purchase id", errors.ErrCodeValidationFailed))
		return
	}

	p, err := h.Service.GetByID(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	// a user may only read their own purchases
	if userID := errors.UserIDFromContext(r.Context()); userID != 0 && userID != p.UserID {
		h.HandleError(w, errors.ErrPurchaseNotFound)
		return
	}

	h.WriteJSON(w, http.StatusOK, p)
}
