package payment_test

import (
	"crypto/rand"
	"crypto/rsa"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	paymentDatamodel "github.com/vkotelnikov/eduplatform/internal/core/datamodel/payment"
	"github.com/vkotelnikov/eduplatform/internal/core/events"
	paymentPkg "github.com/vkotelnikov/eduplatform/internal/payment"
	"github.com/vkotelnikov/eduplatform/internal/transport"
)

func signWebhook(key *rsa.PrivateKey, event, status, qrcID, operationID string) string {
	claims := jwt.MapClaims{
		"event": event,
		"data": map[string]interface{}{
			"status":      status,
			"qrcId":       qrcID,
			"operationId": operationID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(key)
	Expect(err).ToNot(HaveOccurred())
	return signed
}

var _ = Describe("WebhookHandler", func() {
	var (
		handler    *paymentPkg.WebhookHandler
		mockRepo   *mockPaymentRepository
		confirmer  *mockPurchaseConfirmer
		privateKey *rsa.PrivateKey
		logger     *slog.Logger
	)

	BeforeEach(func() {
		var err error
		privateKey, err = rsa.GenerateKey(rand.Reader, 2048)
		Expect(err).ToNot(HaveOccurred())

		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		mockRepo = newMockPaymentRepository()
		confirmer = &mockPurchaseConfirmer{}
		service := paymentPkg.NewService(mockRepo, confirmer, events.NewEventBus(logger), logger)

		handler = paymentPkg.NewWebhookHandler(transport.NewBaseHandler(logger), service, &privateKey.PublicKey)
	})

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/callback", strings.NewReader(body))
		rec := httptest.NewRecorder()
		handler.HandleWebhook(rec, req)
		return rec
	}

	Context("when the notification is properly signed", func() {
		It("settles the payment and answers OK", func() {
			pay := mockRepo.add(&paymentDatamodel.Payment{
				PurchaseID:    42,
				UserID:        5,
				Amount:        decimal.RequireFromString("12000.00"),
				TransactionID: "qrc-hook-1",
				Status:        paymentDatamodel.StatusPending,
			})

			rec := post(signWebhook(privateKey, paymentPkg.EventQRCodePayment, "Accepted", "qrc-hook-1", ""))

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring(`"status":"OK"`))
			Expect(pay.Status).To(Equal(paymentDatamodel.StatusCompleted))
		})
	})

	Context("when the signature does not verify", func() {
		It("rejects a token signed with a different key", func() {
			otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
			Expect(err).ToNot(HaveOccurred())

			rec := post(signWebhook(otherKey, paymentPkg.EventQRCodePayment, "Accepted", "qrc-hook-1", ""))
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("rejects a body that is not a JWT at all", func() {
			rec := post(`{"event":"qrCodePayment"}`)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("rejects an empty body before verification", func() {
			rec := post("")
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Context("when the signed payload is not actionable", func() {
		It("answers bad request for an unknown event", func() {
			rec := post(signWebhook(privateKey, "mystery", "Accepted", "qrc-hook-1", ""))
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("answers not found for an unknown payment", func() {
			rec := post(signWebhook(privateKey, paymentPkg.EventIncomingSBPPayment, "Accepted", "missing", "also-missing"))
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})
	})
})
