package payment_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/vkotelnikov/eduplatform/internal"
	paymentDatamodel "github.com/vkotelnikov/eduplatform/internal/core/datamodel/payment"
	purchaseDatamodel "github.com/vkotelnikov/eduplatform/internal/core/datamodel/purchase"
	"github.com/vkotelnikov/eduplatform/internal/core/events"
	paymentPkg "github.com/vkotelnikov/eduplatform/internal/payment"
	purchasePkg "github.com/vkotelnikov/eduplatform/internal/purchase"
)

func TestPaymentService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "PaymentService Suite")
}

type mockPaymentRepository struct {
	mu                sync.Mutex
	payments          map[string]*paymentDatamodel.Payment
	nextID            int64
	createError       error
	getError          error
	updateStatusError error
	sweptCutoff       time.Time
	sweepResult       int64
	sweepError        error
}

func newMockPaymentRepository() *mockPaymentRepository {
	return &mockPaymentRepository{
		payments: make(map[string]*paymentDatamodel.Payment),
		nextID:   1,
	}
}

func (m *mockPaymentRepository) add(p *paymentDatamodel.Payment) *paymentDatamodel.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.nextID
	m.nextID++
	m.payments[p.TransactionID] = p
	return p
}

func (m *mockPaymentRepository) CreateWithPurchase(ctx context.Context, pur *purchaseDatamodel.Purchase, pay *paymentDatamodel.Payment) error {
	if m.createError != nil {
		return m.createError
	}
	m.mu.Lock()
	pur.ID = m.nextID
	pay.ID = m.nextID
	pay.PurchaseID = pur.ID
	m.nextID++
	m.payments[pay.TransactionID] = pay
	m.mu.Unlock()
	return nil
}

func (m *mockPaymentRepository) GetByID(ctx context.Context, id int64) (*paymentDatamodel.Payment, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}

func (m *mockPaymentRepository) GetByTransactionID(ctx context.Context, transactionID string) (*paymentDatamodel.Payment, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[transactionID]
	if !ok {
		return nil, nil
	}
	return p, nil
}

func (m *mockPaymentRepository) GetByUserID(ctx context.Context, userID int64) ([]paymentDatamodel.Payment, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []paymentDatamodel.Payment
	for _, p := range m.payments {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockPaymentRepository) UpdateStatus(ctx context.Context, id int64, from, to paymentDatamodel.Status) (bool, error) {
	if m.updateStatusError != nil {
		return false, m.updateStatusError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.ID == id && p.Status == from {
			p.Status = to
			return true, nil
		}
	}
	return false, nil
}

func (m *mockPaymentRepository) UpdateTransactionID(ctx context.Context, id int64, transactionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for old, p := range m.payments {
		if p.ID == id {
			delete(m.payments, old)
			p.TransactionID = transactionID
			m.payments[transactionID] = p
			return nil
		}
	}
	return errors.New("payment not found")
}

func (m *mockPaymentRepository) DeleteStalePending(ctx context.Context, cutoff time.Time) (int64, error) {
	if m.sweepError != nil {
		return 0, m.sweepError
	}
	m.sweptCutoff = cutoff
	return m.sweepResult, nil
}

type mockPurchaseConfirmer struct {
	confirmedIDs []int64
	view         *purchasePkg.PurchaseView
	confirmError error
}

func (m *mockPurchaseConfirmer) ConfirmPurchase(ctx context.Context, purchaseID int64) (*purchasePkg.PurchaseView, error) {
	m.confirmedIDs = append(m.confirmedIDs, purchaseID)
	if m.confirmError != nil {
		return nil, m.confirmError
	}
	if m.view != nil {
		return m.view, nil
	}
	return &purchasePkg.PurchaseView{PurchaseID: purchaseID, CourseID: 7}, nil
}

var _ = Describe("PaymentService", func() {
	var (
		service   *paymentPkg.Service
		mockRepo  *mockPaymentRepository
		confirmer *mockPurchaseConfirmer
		eventBus  *events.EventBus
		published chan events.Event
		logger    *slog.Logger
	)

	BeforeEach(func() {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		mockRepo = newMockPaymentRepository()
		confirmer = &mockPurchaseConfirmer{}
		eventBus = events.NewEventBus(logger)

		published = make(chan events.Event, 4)
		sink := published // bind this spec's channel; async handlers must not see later reassignments
		capture := func(ctx context.Context, event events.Event) error {
			sink <- event
			return nil
		}
		eventBus.Subscribe(events.EventTypePaymentCompleted, capture)
		eventBus.Subscribe(events.EventTypePaymentFailed, capture)

		service = paymentPkg.NewService(mockRepo, confirmer, eventBus, logger)
	})

	pendingPayment := func(transactionID string) *paymentDatamodel.Payment {
		return mockRepo.add(&paymentDatamodel.Payment{
			PurchaseID:    42,
			UserID:        5,
			Amount:        decimal.RequireFromString("12000.00"),
			TransactionID: transactionID,
			Status:        paymentDatamodel.StatusPending,
		})
	}

	Describe("ProcessWebhook", func() {
		Context("when the gateway reports a completed payment", func() {
			It("marks the payment completed and confirms the purchase", func() {
				pay := pendingPayment("qrc-123")

				err := service.ProcessWebhook(context.Background(), paymentPkg.WebhookEvent{
					Event:  paymentPkg.EventQRCodePayment,
					Status: "Accepted",
					QRCID:  "qrc-123",
				})

				Expect(err).ToNot(HaveOccurred())
				Expect(pay.Status).To(Equal(paymentDatamodel.StatusCompleted))
				Expect(confirmer.confirmedIDs).To(Equal([]int64{42}))

				var event events.Event
				Eventually(published).Should(Receive(&event))
				Expect(event.EventType()).To(Equal(events.EventTypePaymentCompleted))
			})

			It("accepts the Completed status from incoming SBP events", func() {
				pay := pendingPayment("qrc-456")

				err := service.ProcessWebhook(context.Background(), paymentPkg.WebhookEvent{
					Event:  paymentPkg.EventIncomingSBPPayment,
					Status: "Completed",
					QRCID:  "qrc-456",
				})

				Expect(err).ToNot(HaveOccurred())
				Expect(pay.Status).To(Equal(paymentDatamodel.StatusCompleted))
			})
		})

		Context("when the gateway reports a failed payment", func() {
			It("marks the payment failed and leaves the purchase alone", func() {
				pay := pendingPayment("qrc-789")

				err := service.ProcessWebhook(context.Background(), paymentPkg.WebhookEvent{
					Event:  paymentPkg.EventQRCodePayment,
					Status: "Rejected",
					QRCID:  "qrc-789",
				})

				Expect(err).ToNot(HaveOccurred())
				Expect(pay.Status).To(Equal(paymentDatamodel.StatusFailed))
				Expect(confirmer.confirmedIDs).To(BeEmpty())

				var event events.Event
				Eventually(published).Should(Receive(&event))
				Expect(event.EventType()).To(Equal(events.EventTypePaymentFailed))
			})

			It("treats uppercase terminal statuses as failures", func() {
				for _, status := range []string{"DECLINED", "CANCELLED", "TIMEOUT", "ERROR"} {
					pay := pendingPayment("qrc-" + status)

					err := service.ProcessWebhook(context.Background(), paymentPkg.WebhookEvent{
						Event:  paymentPkg.EventIncomingSBPPayment,
						Status: status,
						QRCID:  "qrc-" + status,
					})

					Expect(err).ToNot(HaveOccurred())
					Expect(pay.Status).To(Equal(paymentDatamodel.StatusFailed))
				}
			})
		})

		Context("when the notification is a redelivery for a settled payment", func() {
			It("acknowledges without touching the payment", func() {
				pay := mockRepo.add(&paymentDatamodel.Payment{
					PurchaseID:    42,
					UserID:        5,
					TransactionID: "qrc-settled",
					Status:        paymentDatamodel.StatusCompleted,
				})

				err := service.ProcessWebhook(context.Background(), paymentPkg.WebhookEvent{
					Event:  paymentPkg.EventQRCodePayment,
					Status: "Accepted",
					QRCID:  "qrc-settled",
				})

				Expect(err).ToNot(HaveOccurred())
				Expect(pay.Status).To(Equal(paymentDatamodel.StatusCompleted))
				Expect(confirmer.confirmedIDs).To(BeEmpty())
				Consistently(published).ShouldNot(Receive())
			})
		})

		Context("when the payment is not found by qrcId", func() {
			It("falls back to the operation id", func() {
				pay := pendingPayment("op-111")

				err := service.ProcessWebhook(context.Background(), paymentPkg.WebhookEvent{
					Event:       paymentPkg.EventIncomingSBPPayment,
					Status:      "Accepted",
					QRCID:       "unknown-qrc",
					OperationID: "op-111",
				})

				Expect(err).ToNot(HaveOccurred())
				Expect(pay.Status).To(Equal(paymentDatamodel.StatusCompleted))
			})

			It("returns not found when neither identifier matches", func() {
				err := service.ProcessWebhook(context.Background(), paymentPkg.WebhookEvent{
					Event:       paymentPkg.EventQRCodePayment,
					Status:      "Accepted",
					QRCID:       "nope",
					OperationID: "also-nope",
				})

				appErr, ok := internal.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Type).To(Equal(internal.ErrorTypeNotFound))
			})
		})

		Context("when the event or status is unknown", func() {
			It("rejects an unknown event name", func() {
				err := service.ProcessWebhook(context.Background(), paymentPkg.WebhookEvent{
					Event:  "somethingElse",
					Status: "Accepted",
					QRCID:  "qrc-123",
				})

				appErr, ok := internal.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Code).To(Equal(internal.ErrCodeUnknownWebhookEvent))
			})

			It("rejects an unknown payment status", func() {
				pendingPayment("qrc-odd")

				err := service.ProcessWebhook(context.Background(), paymentPkg.WebhookEvent{
					Event:  paymentPkg.EventQRCodePayment,
					Status: "Mysterious",
					QRCID:  "qrc-odd",
				})

				appErr, ok := internal.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Code).To(Equal(internal.ErrCodeUnknownPaymentStatus))
			})

			It("reports not found before judging the status for an unknown payment", func() {
				err := service.ProcessWebhook(context.Background(), paymentPkg.WebhookEvent{
					Event:  paymentPkg.EventQRCodePayment,
					Status: "Mysterious",
					QRCID:  "qrc-nowhere",
				})

				appErr, ok := internal.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Type).To(Equal(internal.ErrorTypeNotFound))
			})
		})

		Context("when confirming the purchase fails", func() {
			It("propagates the error after settling the payment", func() {
				pay := pendingPayment("qrc-conf")
				confirmer.confirmError = internal.ErrPurchaseNotFound

				err := service.ProcessWebhook(context.Background(), paymentPkg.WebhookEvent{
					Event:  paymentPkg.EventQRCodePayment,
					Status: "Accepted",
					QRCID:  "qrc-conf",
				})

				Expect(err).To(HaveOccurred())
				Expect(pay.Status).To(Equal(paymentDatamodel.StatusCompleted))
			})
		})
	})

	Describe("GetByID", func() {
		It("returns the payment", func() {
			pay := pendingPayment("qrc-byid")

			got, err := service.GetByID(context.Background(), pay.ID)

			Expect(err).ToNot(HaveOccurred())
			Expect(got.TransactionID).To(Equal("qrc-byid"))
		})

		It("reports not found for an unknown id", func() {
			_, err := service.GetByID(context.Background(), 9999)

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeNotFound))
		})
	})

	Describe("SweepStale", func() {
		It("deletes pending payments older than the max age", func() {
			mockRepo.sweepResult = 3

			deleted, err := service.SweepStale(context.Background(), 24*time.Hour)

			Expect(err).ToNot(HaveOccurred())
			Expect(deleted).To(Equal(int64(3)))
			Expect(mockRepo.sweptCutoff).To(BeTemporally("~", time.Now().Add(-24*time.Hour), time.Minute))
		})

		It("returns repository errors", func() {
			mockRepo.sweepError = errors.New("database down")

			_, err := service.SweepStale(context.Background(), 24*time.Hour)
			Expect(err).To(HaveOccurred())
		})
	})
})
