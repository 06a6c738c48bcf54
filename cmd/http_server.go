package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/vkotelnikov/eduplatform/internal"
	"github.com/vkotelnikov/eduplatform/internal/core/events"
	"github.com/vkotelnikov/eduplatform/internal/course"
	coursePostgres "github.com/vkotelnikov/eduplatform/internal/course/postgres"
	"github.com/vkotelnikov/eduplatform/internal/payment"
	paymentPostgres "github.com/vkotelnikov/eduplatform/internal/payment/postgres"
	"github.com/vkotelnikov/eduplatform/internal/purchase"
	purchasePostgres "github.com/vkotelnikov/eduplatform/internal/purchase/postgres"
	"github.com/vkotelnikov/eduplatform/internal/request"
	requestPostgres "github.com/vkotelnikov/eduplatform/internal/request/postgres"
	"github.com/vkotelnikov/eduplatform/internal/tochka"
	"github.com/vkotelnikov/eduplatform/internal/transport"
	"github.com/vkotelnikov/eduplatform/internal/transport/rest"
	"github.com/vkotelnikov/eduplatform/internal/user"
	userPostgres "github.com/vkotelnikov/eduplatform/internal/user/postgres"
	"github.com/vkotelnikov/eduplatform/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config         *internal.Config
	DB             *sqlx.DB
	GormDB         *gorm.DB
	Router         *chi.Mux
	Logger         *slog.Logger
	PaymentService *payment.Service
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	// periodic cleanup of pending payments abandoned at checkout
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go runSweepLoop(sweepCtx, deps.PaymentService, deps.Config.Sweeper, deps.Logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		stopSweep()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			slog.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		stopSweep()
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(config.Observability.Logging.Format, config.Observability.Logging.Level)
	appLogger := logger.LoggerWrapper()

	db, gormDB, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	authKey, err := config.Security.GetAuthPublicKey()
	if err != nil {
		return nil, fmt.Errorf("failed to parse auth public key: %w", err)
	}
	webhookKey, err := config.Tochka.GetWebhookPublicKey()
	if err != nil {
		return nil, fmt.Errorf("failed to parse webhook public key: %w", err)
	}

	eventBus := events.NewEventBus(appLogger)
	baseHandler := transport.NewBaseHandler(appLogger)

	userRepo := userPostgres.NewUserRepository(gormDB)
	userService := user.NewService(userRepo, appLogger)
	userHandler := user.NewHandler(baseHandler, userService)

	courseRepo := coursePostgres.NewCourseRepository(gormDB)
	courseService := course.NewService(courseRepo, appLogger)
	courseHandler := course.NewHandler(baseHandler, courseService)

	requestRepo := requestPostgres.NewRequestRepository(gormDB)
	requestService := request.NewService(requestRepo, appLogger)
	requestHandler := request.NewHandler(baseHandler, requestService)

	// enrollment requests flip to enrolled when the payment settles
	requestEventHandler := request.NewEventHandler(requestRepo, appLogger)
	requestEventHandler.RegisterEventHandlers(eventBus)

	purchaseRepo := purchasePostgres.NewRepository(gormDB)
	purchaseService := purchase.NewService(purchaseRepo, appLogger)
	purchaseHandler := purchase.NewHandler(baseHandler, purchaseService)

	gateway := tochka.NewClient(config.Tochka, appLogger)

	paymentRepo := paymentPostgres.NewRepository(gormDB)
	paymentService := payment.NewService(paymentRepo, purchaseService, eventBus, appLogger)
	paymentInitiator := payment.NewInitiator(paymentRepo, userService, courseService, gateway, config.Tochka, appLogger)
	paymentHandler := payment.NewHandler(baseHandler, paymentInitiator, paymentService)
	webhookHandler := payment.NewWebhookHandler(baseHandler, paymentService, webhookKey)

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, db.DB, rest.Handlers{
		User:     userHandler,
		Course:   courseHandler,
		Request:  requestHandler,
		Purchase: purchaseHandler,
		Payment:  paymentHandler,
		Webhook:  webhookHandler,
	}, authKey, config.Server.AllowedOrigins, appLogger)

	return &Dependencies{
		Config:         config,
		DB:             db,
		GormDB:         gormDB,
		Router:         router,
		Logger:         appLogger,
		PaymentService: paymentService,
	}, nil
}

// initDB opens the pgx connection pool through sqlx and layers gorm on top of
// the same *sql.DB, so pool limits apply to both.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, *gorm.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	gormDB, err := gorm.Open(gormPostgres.New(gormPostgres.Config{Conn: dbConn.DB}), &gorm.Config{})
	if err != nil {
		_ = dbConn.Close()
		return nil, nil, fmt.Errorf("failed to open gorm connection: %w", err)
	}

	return dbConn, gormDB, nil
}
