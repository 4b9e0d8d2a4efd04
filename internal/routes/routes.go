// Package routes defines the API routing configuration.
// It builds the fiber application, its middleware stack and every HTTP route.
package routes

import (
	"time"

	"fraudshield/internal/handlers"
	"fraudshield/internal/metrics"
	"fraudshield/internal/middleware"
	"fraudshield/internal/models"
	"fraudshield/internal/services/auth"
	"fraudshield/internal/services/cases"
	"fraudshield/internal/services/dashboard"
	"fraudshield/internal/services/funding"
	"fraudshield/internal/services/transaction"
	"fraudshield/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog"
)

// Dependencies holds everything the HTTP surface needs.
type Dependencies struct {
	Logger  zerolog.Logger
	Metrics *metrics.Collector

	Auth         auth.Service
	Transactions transaction.Service
	Cases        cases.Service
	Dashboard    dashboard.Service
	Funding      funding.Service

	HealthChecks []handlers.HealthCheck

	// CORSOrigins is a comma separated origin list
	CORSOrigins string
	// LoginRateLimit caps login attempts per IP per minute; zero disables the limiter
	LoginRateLimit int
	// AccessLog enables fiber's request logger
	AccessLog bool
}

// NewApp builds the fiber application with the middleware stack and all routes.
func NewApp(deps Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "FraudShield",
		ErrorHandler: response.ErrorHandler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.RequestContext(deps.Logger))
	if deps.Metrics != nil {
		app.Use(middleware.Metrics(deps.Metrics))
	}
	if deps.AccessLog {
		app.Use(fiberlogger.New(fiberlogger.Config{
			Format: "[${time}] ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
		}))
	}
	if deps.CORSOrigins != "" {
		app.Use(cors.New(cors.Config{
			AllowOrigins: deps.CORSOrigins,
			AllowHeaders: "Origin, Content-Type, Accept, Authorization, Idempotency-Key",
			AllowMethods: "GET,POST,HEAD,OPTIONS",
		}))
	}

	SetupRoutes(app, deps)
	return app
}

// SetupRoutes configures all application routes.
// It groups routes by functionality and applies appropriate middleware.
func SetupRoutes(app *fiber.App, deps Dependencies) {
	authHandler := handlers.NewAuthHandler(deps.Auth)
	transactionHandler := handlers.NewTransactionHandler(deps.Transactions)
	caseHandler := handlers.NewCaseHandler(deps.Cases)
	dashboardHandler := handlers.NewDashboardHandler(deps.Dashboard)
	fundingHandler := handlers.NewFundingHandler(deps.Funding)
	healthHandler := handlers.NewHealthHandler(deps.HealthChecks...)

	app.Get("/health", healthHandler.Health)
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics.Handler()))
	}

	api := app.Group("/api")

	// Public endpoints (no auth required)
	authRoutes := api.Group("/auth")
	if deps.LoginRateLimit > 0 {
		authRoutes.Use("/login", limiter.New(limiter.Config{
			Max:        deps.LoginRateLimit,
			Expiration: time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return response.Error(c, fiber.StatusTooManyRequests, "Too many requests. Please try again later.")
			},
		}))
	}
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Post("/refresh", authHandler.Refresh)

	authMiddleware := middleware.NewAuthMiddleware(deps.Auth)
	protected := api.Group("", authMiddleware.Handler)

	protected.Post("/auth/logout", authHandler.Logout)

	setupTransactionRoutes(protected, transactionHandler, caseHandler)
	setupCaseRoutes(protected, caseHandler)

	protected.Get("/dashboard", middleware.HasPermission(models.PermissionTransactionRead), dashboardHandler.GetStats)
	protected.Get("/beneficiaries", middleware.HasPermission(models.PermissionTransactionRead), dashboardHandler.GetBeneficiaries)
	protected.Get("/spending/monthly", middleware.HasPermission(models.PermissionTransactionRead), dashboardHandler.GetMonthlySpending)

	protected.Post("/funding/topup", middleware.HasPermission(models.PermissionFundingWrite), fundingHandler.TopUp)
}

func setupTransactionRoutes(router fiber.Router, h *handlers.TransactionHandler, caseHandler *handlers.CaseHandler) {
	txns := router.Group("/transactions")

	read := middleware.HasPermission(models.PermissionTransactionRead)
	report := middleware.HasPermission(models.PermissionCaseReport)

	txns.Post("/", middleware.HasPermission(models.PermissionTransactionWrite), h.Submit)
	txns.Get("/", read, h.List)
	txns.Get("/failed", read, h.ListFailed)
	txns.Get("/:id", read, h.Get)
	txns.Get("/:id/cases", read, caseHandler.ListForTransaction)
	txns.Post("/:id/report", report, caseHandler.Report)
	txns.Post("/:id/dispute", report, caseHandler.Dispute)
}

func setupCaseRoutes(router fiber.Router, h *handlers.CaseHandler) {
	router.Get("/cases", middleware.HasPermission(models.PermissionCaseReport), h.ListOwn)
	router.Get("/cases/:id", middleware.HasPermission(models.PermissionCaseReport), h.Get)

	review := router.Group("/review", middleware.HasPermission(models.PermissionCaseReview))
	review.Get("/cases", h.ReviewQueue)
	review.Post("/cases/:id/transition", h.Transition)
}
