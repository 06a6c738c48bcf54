package payment_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/vkotelnikov/eduplatform/internal"
	tochkatypes "github.com/vkotelnikov/eduplatform/internal/core/datamodel/tochka"
	"github.com/vkotelnikov/eduplatform/internal/course"
	paymentPkg "github.com/vkotelnikov/eduplatform/internal/payment"
	"github.com/vkotelnikov/eduplatform/internal/user"
)

type mockUserService struct {
	users map[int64]*user.User
}

func (m *mockUserService) GetByID(id int64) (*user.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, internal.ErrUserNotFound
	}
	return u, nil
}

type mockCourseService struct {
	courses       map[int64]*course.Course
	categories    map[int64]*course.Category
	levels        map[int64]*course.Level
	categoryLinks map[[2]int64]bool
	levelLinks    map[[2]int64]bool
	isLinkedError error
}

func newMockCourseService() *mockCourseService {
	return &mockCourseService{
		courses:       make(map[int64]*course.Course),
		categories:    make(map[int64]*course.Category),
		levels:        make(map[int64]*course.Level),
		categoryLinks: make(map[[2]int64]bool),
		levelLinks:    make(map[[2]int64]bool),
	}
}

func (m *mockCourseService) GetCourseByID(id int64) (*course.Course, error) {
	c, ok := m.courses[id]
	if !ok {
		return nil, internal.ErrCourseNotFound
	}
	return c, nil
}

func (m *mockCourseService) GetCategoryByID(id int64) (*course.Category, error) {
	c, ok := m.categories[id]
	if !ok {
		return nil, internal.ErrCategoryNotFound
	}
	return c, nil
}

func (m *mockCourseService) GetLevelByID(id int64) (*course.Level, error) {
	l, ok := m.levels[id]
	if !ok {
		return nil, internal.ErrLevelNotFound
	}
	return l, nil
}

func (m *mockCourseService) IsCategoryLinked(courseID, categoryID int64) (bool, error) {
	if m.isLinkedError != nil {
		return false, m.isLinkedError
	}
	return m.categoryLinks[[2]int64{courseID, categoryID}], nil
}

func (m *mockCourseService) IsLevelLinked(categoryID, levelID int64) (bool, error) {
	if m.isLinkedError != nil {
		return false, m.isLinkedError
	}
	return m.levelLinks[[2]int64{categoryID, levelID}], nil
}

type mockGateway struct {
	lastRequest   *tochkatypes.QRRequest
	registerError error
	qrData        tochkatypes.QRData
}

func (m *mockGateway) RegisterQR(ctx context.Context, qr *tochkatypes.QRRequest) (*tochkatypes.QRData, error) {
	m.lastRequest = qr
	if m.registerError != nil {
		return nil, m.registerError
	}
	return &m.qrData, nil
}

var _ = Describe("PaymentInitiator", func() {
	var (
		initiator *paymentPkg.Initiator
		mockRepo  *mockPaymentRepository
		users     *mockUserService
		courses   *mockCourseService
		gateway   *mockGateway
		logger    *slog.Logger
	)

	levelID := int64(30)

	BeforeEach(func() {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		mockRepo = newMockPaymentRepository()

		users = &mockUserService{users: map[int64]*user.User{
			5: {ID: 5, Email: "vasya@mail.com", Name: "Vasya"},
		}}

		courses = newMockCourseService()
		courses.courses[10] = &course.Course{ID: 10, Name: "English"}
		courses.categories[20] = &course.Category{ID: 20, Name: "Group", Price: decimal.RequireFromString("12000.00")}
		courses.levels[levelID] = &course.Level{ID: levelID, Name: "Beginner"}
		courses.categoryLinks[[2]int64{10, 20}] = true
		courses.levelLinks[[2]int64{20, levelID}] = true

		gateway = &mockGateway{qrData: tochkatypes.QRData{
			Payload: "https://qr.nspk.ru/pay/abc",
			QRCID:   "qrc-gateway-1",
		}}

		cfg := internal.TochkaConfig{QRCodeTTL: 15, RedirectURL: "https://edu.example.com/paid"}
		initiator = paymentPkg.NewInitiator(mockRepo, users, courses, gateway, cfg, logger)
	})

	Describe("StartPayment", func() {
		Context("when the selection is valid", func() {
			It("creates a pending purchase and registers a QR code", func() {
				resp, err := initiator.StartPayment(context.Background(), 5, paymentPkg.StartPaymentRequest{
					CourseID:   10,
					CategoryID: 20,
					LevelID:    &levelID,
				})

				Expect(err).ToNot(HaveOccurred())
				Expect(resp.PaymentURL).To(Equal("https://qr.nspk.ru/pay/abc"))
				Expect(resp.TransactionID).To(Equal("qrc-gateway-1"))
				Expect(resp.PurchaseID).ToNot(BeZero())

				stored, err := mockRepo.GetByTransactionID(context.Background(), "qrc-gateway-1")
				Expect(err).ToNot(HaveOccurred())
				Expect(stored).ToNot(BeNil())
				Expect(stored.Amount.Equal(decimal.RequireFromString("12000.00"))).To(BeTrue())

				Expect(gateway.lastRequest.Currency).To(Equal("RUB"))
				Expect(gateway.lastRequest.TTLMinutes).To(Equal(15))
				Expect(gateway.lastRequest.PaymentPurpose).To(ContainSubstring("English"))
				Expect(gateway.lastRequest.PaymentPurpose).To(ContainSubstring("Beginner"))
			})

			It("uses the category name as degree when no level is given", func() {
				resp, err := initiator.StartPayment(context.Background(), 5, paymentPkg.StartPaymentRequest{
					CourseID:   10,
					CategoryID: 20,
				})

				Expect(err).ToNot(HaveOccurred())
				Expect(resp).ToNot(BeNil())
				Expect(gateway.lastRequest.PaymentPurpose).To(ContainSubstring("Group"))
			})
		})

		Context("when identifiers do not resolve", func() {
			It("rejects an unknown user", func() {
				_, err := initiator.StartPayment(context.Background(), 999, paymentPkg.StartPaymentRequest{
					CourseID: 10, CategoryID: 20,
				})
				Expect(err).To(Equal(internal.ErrUserNotFound))
			})

			It("rejects an unknown course", func() {
				_, err := initiator.StartPayment(context.Background(), 5, paymentPkg.StartPaymentRequest{
					CourseID: 404, CategoryID: 20,
				})
				Expect(err).To(Equal(internal.ErrCourseNotFound))
			})

			It("rejects a category that is not linked to the course", func() {
				courses.categories[21] = &course.Category{ID: 21, Name: "Other", Price: decimal.RequireFromString("100.00")}

				_, err := initiator.StartPayment(context.Background(), 5, paymentPkg.StartPaymentRequest{
					CourseID: 10, CategoryID: 21,
				})
				Expect(err).To(Equal(internal.ErrCategoryNotInCourse))
			})

			It("rejects a level that is not linked to the category", func() {
				strayLevel := int64(77)
				courses.levels[strayLevel] = &course.Level{ID: strayLevel, Name: "Stray"}

				_, err := initiator.StartPayment(context.Background(), 5, paymentPkg.StartPaymentRequest{
					CourseID: 10, CategoryID: 20, LevelID: &strayLevel,
				})
				Expect(err).To(Equal(internal.ErrLevelNotInCategory))
			})
		})

		Context("when input is invalid", func() {
			It("rejects missing identifiers before touching the database", func() {
				_, err := initiator.StartPayment(context.Background(), 5, paymentPkg.StartPaymentRequest{})

				appErr, ok := internal.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
				Expect(mockRepo.payments).To(BeEmpty())
			})
		})

		Context("when QR registration fails", func() {
			It("returns the gateway error and leaves the pending rows for the sweeper", func() {
				gateway.registerError = internal.NewUpstreamError("qr registration failed", errors.New("boom"))

				_, err := initiator.StartPayment(context.Background(), 5, paymentPkg.StartPaymentRequest{
					CourseID: 10, CategoryID: 20,
				})

				appErr, ok := internal.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Type).To(Equal(internal.ErrorTypeExternal))

				// the placeholder row stays pending until swept
				Expect(mockRepo.payments).To(HaveLen(1))
				for txn := range mockRepo.payments {
					Expect(strings.HasPrefix(txn, "txn_")).To(BeTrue())
				}
			})
		})
	})
})
