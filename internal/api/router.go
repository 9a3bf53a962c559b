package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/showsec/security-demo/internal/api/handler"
	"github.com/showsec/security-demo/internal/api/middleware"
	"github.com/showsec/security-demo/internal/core/ports"
)

// Dependencies carries the constructed collaborators the router wires into
// handlers. Mongo and Redis may be nil when the in-memory stores are active;
// the readiness probe reports them accordingly.
type Dependencies struct {
	AuthService ports.AuthService
	Audit       ports.AuditRepository
	Mongo       *mongo.Database
	Redis       *redis.Client
	JWTSecret   string
	Logger      zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("authdemo"))
	e.Use(middleware.ClientIP())

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(deps.AuthService)
	dashboardHandler := handler.NewDashboardHandler(deps.Audit)
	sessionAuth := middleware.Auth(deps.JWTSecret)

	// --- Auth routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login/level1", authHandler.LoginLevel1)
	e.POST("/auth/login/level2", authHandler.LoginLevel2)
	e.POST("/auth/login/level3", authHandler.LoginLevel3)
	e.POST("/auth/2fa/verify", authHandler.Verify2FA)
	e.POST("/auth/logout", authHandler.Logout)

	// --- Authenticated routes ---
	e.GET("/dashboard", dashboardHandler.Show, sessionAuth)

	// --- Probes and metrics (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(deps.Mongo, deps.Redis)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", readinessHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())

	return e
}
