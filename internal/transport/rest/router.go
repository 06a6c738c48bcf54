package rest

import (
	"crypto/rsa"
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/vkotelnikov/eduplatform/internal/course"
	"github.com/vkotelnikov/eduplatform/internal/payment"
	"github.com/vkotelnikov/eduplatform/internal/purchase"
	"github.com/vkotelnikov/eduplatform/internal/request"
	"github.com/vkotelnikov/eduplatform/internal/transport/middleware"
	"github.com/vkotelnikov/eduplatform/internal/transport/swagger"
	"github.com/vkotelnikov/eduplatform/internal/user"
)

type Handlers struct {
	User     *user.Handler
	Course   *course.Handler
	Request  *request.Handler
	Purchase *purchase.Handler
	Payment  *payment.Handler
	Webhook  *payment.WebhookHandler
}

// RegisterAllRoutes wires every HTTP surface onto the router. The payment
// callback and course catalog are public; everything else sits behind the
// JWT auth middleware.
func RegisterAllRoutes(router *chi.Mux, db *sql.DB, handlers Handlers, authKey *rsa.PublicKey, allowedOrigins string, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS(allowedOrigins))
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.RequestLogger)

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// gateway notification endpoint, authenticated by JWT signature in
		// the body rather than by middleware
		if handlers.Webhook != nil {
			r.Post("/payments/callback", handlers.Webhook.HandleWebhook)
		}

		if handlers.User != nil {
			r.Post("/users/register", handlers.User.Register)
		}

		// public catalog
		if handlers.Course != nil {
			r.Get("/courses", handlers.Course.GetCourses)
			r.Get("/courses/{id}", handlers.Course.GetCourse)
		}

		// enrollment requests arrive from the public site form
		if handlers.Request != nil {
			r.Post("/requests", handlers.Request.CreateRequest)
		}

		r.Group(func(pr chi.Router) {
			pr.Use(middleware.Auth(authKey, logger))

			if handlers.User != nil {
				pr.Get("/users/me", handlers.User.GetCurrentUser)
				pr.Get("/users", handlers.User.GetUsers)
				pr.Delete("/users/{id}", handlers.User.DeleteUser)
			}

			if handlers.Course != nil {
				pr.Post("/courses", handlers.Course.CreateCourse)
				pr.Delete("/courses/{id}", handlers.Course.DeleteCourse)
				pr.Post("/courses/{id}/categories", handlers.Course.CreateCategory)
				pr.Post("/categories/{id}/levels", handlers.Course.CreateLevel)
			}

			if handlers.Request != nil {
				pr.Get("/requests", handlers.Request.GetRequests)
				pr.Patch("/requests/{id}/status", handlers.Request.UpdateRequestStatus)
				pr.Delete("/requests/{id}", handlers.Request.DeleteRequest)
			}

			if handlers.Purchase != nil {
				pr.Get("/purchases", handlers.Purchase.GetMyPurchases)
				pr.Get("/purchases/{id}", handlers.Purchase.GetPurchase)
			}

			if handlers.Payment != nil {
				pr.Post("/payments/start", handlers.Payment.StartPayment)
				pr.Get("/payments", handlers.Payment.GetMyPayments)
				pr.Get("/payments/{id}", handlers.Payment.GetPayment)
			}
		})
	})
}
