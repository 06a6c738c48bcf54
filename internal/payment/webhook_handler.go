package payment

import (
	"context"
	"crypto/rsa"
	"io"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	errors "github.com/vkotelnikov/eduplatform/internal"
	"github.com/vkotelnikov/eduplatform/internal/transport"
)

type WebhookServiceAPI interface {
	ProcessWebhook(ctx context.Context, evt WebhookEvent) error
}

// WebhookHandler receives payment notifications from the gateway. The request
// body is a JWT signed with the gateway's key; nothing in it is trusted until
// the signature checks out.
type WebhookHandler struct {
	*transport.BaseHandler
	Service   WebhookServiceAPI
	publicKey *rsa.PublicKey
}

func NewWebhookHandler(baseHandler *transport.BaseHandler, service WebhookServiceAPI, publicKey *rsa.PublicKey) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler: baseHandler,
		Service:     service,
		publicKey:   publicKey,
	}
}

func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.Logger.Error("HandleWebhook: failed to read request body", "error", err)
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	token := strings.TrimSpace(string(body))
	if token == "" {
		h.HandleError(w, errors.NewValidationError("empty webhook body", errors.ErrCodeValidationFailed))
		return
	}

	claims, err := h.verify(token)
	if err != nil {
		h.Logger.Warn("HandleWebhook: signature verification failed", "error", err)
		h.HandleError(w, errors.NewValidationError("webhook signature verification failed", errors.ErrCodeInvalidSignature))
		return
	}

	evt := WebhookEvent{
		Event:       claims.Event,
		Status:      claims.Data.Status,
		QRCID:       claims.Data.QRCID,
		OperationID: claims.Data.OperationID,
	}

	if err := h.Service.ProcessWebhook(r.Context(), evt); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func (h *WebhookHandler) verify(token string) (*webhookClaims, error) {
	claims := &webhookClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return h.publicKey, nil
	}, jwt.WithValidMethods([]string{"RS256"}))
	if err != nil {
		return nil, err
	}
	return claims, nil
}
