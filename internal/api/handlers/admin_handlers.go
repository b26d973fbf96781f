package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/routerpay/router_service/internal/domain/entities"
	"github.com/routerpay/router_service/internal/domain/services/admin"
	"github.com/routerpay/router_service/internal/domain/services/registry"
	"github.com/routerpay/router_service/pkg/logger"
)

// AdminHandler serves the administrator control surface. Every route
// behind it sits behind the admin JWT middleware.
type AdminHandler struct {
	admin    *admin.Service
	registry *registry.Service
	logger   *logger.Logger
}

// NewAdminHandler creates an admin handler
func NewAdminHandler(adminSvc *admin.Service, registrySvc *registry.Service, log *logger.Logger) *AdminHandler {
	return &AdminHandler{
		admin:    adminSvc,
		registry: registrySvc,
		logger:   log,
	}
}

func actor(c *gin.Context) string {
	if subject := c.GetString("admin_subject"); subject != "" {
		return subject
	}
	return "admin"
}

// Status handles GET /api/v1/admin/status
func (h *AdminHandler) Status(c *gin.Context) {
	status := h.admin.Status()
	c.JSON(http.StatusOK, gin.H{
		"paused":               status.Paused,
		"fee_basis_points":     status.FeeBasisPoints,
		"max_fee_basis_points": status.MaxFeeBasisPoints,
		"fee_collector":        status.FeeCollector,
		"registry_version":     h.registry.Version(),
	})
}

// Pause handles POST /api/v1/admin/pause
func (h *AdminHandler) Pause(c *gin.Context) {
	h.admin.Pause(c.Request.Context(), actor(c))
	c.JSON(http.StatusOK, gin.H{"paused": true})
}

// Unpause handles POST /api/v1/admin/unpause
func (h *AdminHandler) Unpause(c *gin.Context) {
	h.admin.Unpause(c.Request.Context(), actor(c))
	c.JSON(http.StatusOK, gin.H{"paused": false})
}

type setFeeRateRequest struct {
	FeeBasisPoints int64 `json:"fee_basis_points"`
}

// SetFeeRate handles PUT /api/v1/admin/fee-rate
func (h *AdminHandler) SetFeeRate(c *gin.Context) {
	var req setFeeRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendBadRequest(c, "Invalid fee rate payload")
		return
	}

	if err := h.admin.SetFeeRate(c.Request.Context(), actor(c), req.FeeBasisPoints); err != nil {
		SendDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fee_basis_points": req.FeeBasisPoints})
}

type emergencyWithdrawRequest struct {
	Token  string          `json:"token" binding:"required"`
	To     string          `json:"to" binding:"required"`
	Amount decimal.Decimal `json:"amount"`
}

// EmergencyWithdraw handles POST /api/v1/admin/emergency-withdraw
func (h *AdminHandler) EmergencyWithdraw(c *gin.Context) {
	var req emergencyWithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendBadRequest(c, "Invalid withdrawal payload")
		return
	}

	if err := h.admin.EmergencyWithdraw(c.Request.Context(), actor(c), req.Token, req.To, req.Amount); err != nil {
		SendDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "withdrawn"})
}

// SetChainConfig handles PUT /api/v1/admin/chains/:id
func (h *AdminHandler) SetChainConfig(c *gin.Context) {
	var cfg entities.ChainConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		SendBadRequest(c, "Invalid chain config payload")
		return
	}

	if err := h.registry.SetChainConfig(c.Request.Context(), actor(c), &cfg); err != nil {
		SendDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// SetBridgeConfig handles PUT /api/v1/admin/bridges/:protocol
func (h *AdminHandler) SetBridgeConfig(c *gin.Context) {
	var cfg entities.BridgeRouteConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		SendBadRequest(c, "Invalid bridge config payload")
		return
	}
	cfg.Protocol = entities.BridgeProtocol(c.Param("protocol"))

	if err := h.registry.SetBridgeConfig(c.Request.Context(), actor(c), &cfg); err != nil {
		SendDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// SetTokenSupport handles PUT /api/v1/admin/tokens
func (h *AdminHandler) SetTokenSupport(c *gin.Context) {
	var ts entities.TokenSupport
	if err := c.ShouldBindJSON(&ts); err != nil {
		SendBadRequest(c, "Invalid token support payload")
		return
	}

	if err := h.registry.SetTokenSupport(c.Request.Context(), actor(c), &ts); err != nil {
		SendDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, ts)
}
