// Package routes assembles the gin engine: middleware chain, public
// payment surface, transport callbacks and the admin control surface.
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/routerpay/router_service/internal/api/handlers"
	"github.com/routerpay/router_service/internal/api/middleware"
	"github.com/routerpay/router_service/internal/infrastructure/config"
	"github.com/routerpay/router_service/pkg/auth"
	"github.com/routerpay/router_service/pkg/logger"
	"github.com/routerpay/router_service/pkg/tracing"
)

// Handlers groups everything the router mounts
type Handlers struct {
	Core      *handlers.CoreHandler
	Payments  *handlers.PaymentHandler
	Callbacks *handlers.CallbackHandler
	Admin     *handlers.AdminHandler
}

// Setup builds the gin engine with the full middleware chain
func Setup(cfg *config.Config, log *logger.Logger, h Handlers, tokens *auth.JWTManager) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logger(log))
	router.Use(middleware.Metrics())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RequestSizeLimit())
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	if cfg.Tracing.Enabled {
		router.Use(tracing.HTTPMiddleware())
	}

	// Operational endpoints stay outside the rate limit
	router.GET("/health", h.Core.Health)
	router.GET("/ready", h.Core.Readiness)
	router.GET("/live", h.Core.Liveness)
	router.GET("/version", h.Core.Version)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Transport callbacks authenticate by signature, not by rate
	router.POST("/webhooks/bridge/:protocol", h.Callbacks.HandleCallback)

	api := router.Group("/api/v1")
	api.Use(middleware.RateLimit(cfg.Server.RateLimitPerMin))
	{
		api.POST("/payments", h.Payments.Initiate)
		api.GET("/payments", h.Payments.List)
		api.GET("/payments/:id", h.Payments.Get)
		api.GET("/payments/:id/events", h.Payments.Events)
		api.GET("/fees/quote", h.Payments.QuoteFee)

		adminGroup := api.Group("/admin")
		adminGroup.Use(middleware.AdminAuth(tokens, log))
		{
			adminGroup.GET("/status", h.Admin.Status)
			adminGroup.POST("/pause", h.Admin.Pause)
			adminGroup.POST("/unpause", h.Admin.Unpause)
			adminGroup.PUT("/fee-rate", h.Admin.SetFeeRate)
			adminGroup.POST("/emergency-withdraw", h.Admin.EmergencyWithdraw)
			adminGroup.PUT("/chains/:id", h.Admin.SetChainConfig)
			adminGroup.PUT("/bridges/:protocol", h.Admin.SetBridgeConfig)
			adminGroup.PUT("/tokens", h.Admin.SetTokenSupport)
		}
	}

	return router
}
