package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/routerpay/router_service/internal/infrastructure/cache"
	"github.com/routerpay/router_service/internal/infrastructure/database"
	"github.com/routerpay/router_service/pkg/logger"
)

// Version is set at build time via -ldflags
var Version = "dev"

// CoreHandler serves health and operational endpoints
type CoreHandler struct {
	db      *sqlx.DB
	redis   cache.RedisClient
	logger  *logger.Logger
	started time.Time
}

// NewCoreHandler creates a core handler
func NewCoreHandler(db *sqlx.DB, redisClient cache.RedisClient, log *logger.Logger) *CoreHandler {
	return &CoreHandler{
		db:      db,
		redis:   redisClient,
		logger:  log,
		started: time.Now(),
	}
}

// Health handles GET /health
func (h *CoreHandler) Health(c *gin.Context) {
	checks := gin.H{}
	healthy := true

	if err := database.HealthCheck(h.db); err != nil {
		checks["database"] = "unhealthy"
		healthy = false
	} else {
		checks["database"] = "healthy"
	}

	if h.redis != nil {
		if err := h.redis.Ping(c.Request.Context()); err != nil {
			checks["redis"] = "unhealthy"
			// Redis degrades the replay fence, not correctness
		} else {
			checks["redis"] = "healthy"
		}
	}

	status := http.StatusOK
	overall := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "unhealthy"
	}
	c.JSON(status, gin.H{
		"status":  overall,
		"checks":  checks,
		"uptime":  time.Since(h.started).String(),
		"version": Version,
	})
}

// Readiness handles GET /ready
func (h *CoreHandler) Readiness(c *gin.Context) {
	if err := database.HealthCheck(h.db); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// Liveness handles GET /live
func (h *CoreHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// Version handles GET /version
func (h *CoreHandler) Version(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"version": Version})
}
