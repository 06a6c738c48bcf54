package tochka_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/vkotelnikov/eduplatform/internal"
	tochkatypes "github.com/vkotelnikov/eduplatform/internal/core/datamodel/tochka"
	"github.com/vkotelnikov/eduplatform/internal/tochka"
)

func TestTochkaClient(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "TochkaClient Suite")
}

var _ = Describe("Client", func() {
	var (
		logger      *slog.Logger
		tokenCalls  atomic.Int64
		qrCalls     atomic.Int64
		qrStatusSeq []int
		lastAuth    atomic.Value
		mockServer  *httptest.Server
	)

	newQRRequest := func() *tochkatypes.QRRequest {
		return &tochkatypes.QRRequest{
			Amount:         decimal.RequireFromString("12000.00"),
			Currency:       "RUB",
			PaymentPurpose: "Payment for course",
			TTLMinutes:     15,
		}
	}

	newClient := func(cfg internal.TochkaConfig) *tochka.Client {
		cfg.BaseURL = mockServer.URL
		cfg.TokenURL = mockServer.URL + "/connect/token"
		return tochka.NewClient(cfg, logger)
	}

	BeforeEach(func() {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		tokenCalls.Store(0)
		qrCalls.Store(0)
		qrStatusSeq = nil

		mockServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch {
			case r.URL.Path == "/connect/token":
				tokenCalls.Add(1)
				Expect(r.FormValue("grant_type")).To(Equal("client_credentials"))
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(tochkatypes.TokenResponse{
					AccessToken: "fresh-token",
					TokenType:   "Bearer",
					ExpiresIn:   3600,
				})
			default:
				n := int(qrCalls.Add(1))
				lastAuth.Store(r.Header.Get("Authorization"))
				status := http.StatusOK
				if n <= len(qrStatusSeq) {
					status = qrStatusSeq[n-1]
				}
				if status != http.StatusOK {
					w.WriteHeader(status)
					w.Write([]byte(`{"code":"` + http.StatusText(status) + `"}`))
					return
				}
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(tochkatypes.QRResponse{
					Data: tochkatypes.QRData{
						Payload: "https://qr.nspk.ru/pay/xyz",
						QRCID:   "qrc-001",
					},
				})
			}
		}))
	})

	AfterEach(func() {
		mockServer.Close()
	})

	Describe("AccessToken", func() {
		It("exchanges client credentials and caches the token", func() {
			client := newClient(internal.TochkaConfig{ClientID: "id", ClientSecret: "secret"})

			token, err := client.AccessToken(context.Background())
			Expect(err).ToNot(HaveOccurred())
			Expect(token).To(Equal("fresh-token"))

			_, err = client.AccessToken(context.Background())
			Expect(err).ToNot(HaveOccurred())
			Expect(tokenCalls.Load()).To(Equal(int64(1)))
		})

		It("prefers a statically configured token", func() {
			client := newClient(internal.TochkaConfig{StaticToken: "static-token"})

			token, err := client.AccessToken(context.Background())
			Expect(err).ToNot(HaveOccurred())
			Expect(token).To(Equal("static-token"))
			Expect(tokenCalls.Load()).To(BeZero())
		})

		It("fails fast when no credentials are configured", func() {
			client := newClient(internal.TochkaConfig{})

			_, err := client.AccessToken(context.Background())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeMissingConfig))
		})

		It("re-authenticates after Invalidate", func() {
			client := newClient(internal.TochkaConfig{ClientID: "id", ClientSecret: "secret"})

			_, err := client.AccessToken(context.Background())
			Expect(err).ToNot(HaveOccurred())

			client.Invalidate()

			_, err = client.AccessToken(context.Background())
			Expect(err).ToNot(HaveOccurred())
			Expect(tokenCalls.Load()).To(Equal(int64(2)))
		})
	})

	Describe("RegisterQR", func() {
		It("registers a QR code and returns the payload and qrcId", func() {
			client := newClient(internal.TochkaConfig{StaticToken: "static-token", MerchantID: "m1", AccountID: "a1"})

			data, err := client.RegisterQR(context.Background(), newQRRequest())
			Expect(err).ToNot(HaveOccurred())
			Expect(data.Payload).To(Equal("https://qr.nspk.ru/pay/xyz"))
			Expect(data.QRCID).To(Equal("qrc-001"))
			Expect(lastAuth.Load()).To(Equal("Bearer static-token"))
		})

		It("retries with a fresh token after a 401", func() {
			qrStatusSeq = []int{http.StatusUnauthorized}
			client := newClient(internal.TochkaConfig{ClientID: "id", ClientSecret: "secret", MerchantID: "m1", AccountID: "a1"})

			data, err := client.RegisterQR(context.Background(), newQRRequest())
			Expect(err).ToNot(HaveOccurred())
			Expect(data.QRCID).To(Equal("qrc-001"))
			Expect(qrCalls.Load()).To(Equal(int64(2)))
			// one exchange before the first call, one after the 401
			Expect(tokenCalls.Load()).To(Equal(int64(2)))
		})

		It("maps 403 to a forbidden error without retrying", func() {
			qrStatusSeq = []int{http.StatusForbidden}
			client := newClient(internal.TochkaConfig{StaticToken: "static-token", MerchantID: "m1", AccountID: "a1"})

			_, err := client.RegisterQR(context.Background(), newQRRequest())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeInsufficientScope))
			Expect(qrCalls.Load()).To(Equal(int64(1)))
		})

		It("maps 400 to a validation error carrying the upstream body", func() {
			qrStatusSeq = []int{http.StatusBadRequest}
			client := newClient(internal.TochkaConfig{StaticToken: "static-token", MerchantID: "m1", AccountID: "a1"})

			_, err := client.RegisterQR(context.Background(), newQRRequest())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeGatewayRejected))
			Expect(appErr.Message).To(ContainSubstring("Bad Request"))
		})

		It("recovers from a transient 500", func() {
			qrStatusSeq = []int{http.StatusInternalServerError}
			client := newClient(internal.TochkaConfig{StaticToken: "static-token", MerchantID: "m1", AccountID: "a1"})

			data, err := client.RegisterQR(context.Background(), newQRRequest())
			Expect(err).ToNot(HaveOccurred())
			Expect(data.QRCID).To(Equal("qrc-001"))
			Expect(qrCalls.Load()).To(Equal(int64(2)))
		})

		It("rejects an invalid QR request before calling the gateway", func() {
			client := newClient(internal.TochkaConfig{StaticToken: "static-token", MerchantID: "m1", AccountID: "a1"})

			_, err := client.RegisterQR(context.Background(), &tochkatypes.QRRequest{
				Amount:   decimal.Zero,
				Currency: "RUB",
			})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
			Expect(qrCalls.Load()).To(BeZero())
		})
	})
})
