package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/routerpay/router_service/internal/domain/entities"
	"github.com/routerpay/router_service/internal/domain/services/settlement"
	"github.com/routerpay/router_service/pkg/logger"
)

// SecretSource resolves the webhook secret for a bridge protocol
type SecretSource interface {
	GetBridgeConfig(protocol entities.BridgeProtocol) (*entities.BridgeRouteConfig, error)
}

// CallbackHandler receives settlement callbacks from bridge transports.
// Two authentication layers: the HMAC signature proves the HTTP caller
// holds the shared secret, and the settlement service checks the
// embedded source address against the registered transport.
type CallbackHandler struct {
	settlement *settlement.Service
	secrets    SecretSource
	logger     *logger.Logger
}

// NewCallbackHandler creates a callback handler
func NewCallbackHandler(settlementSvc *settlement.Service, secrets SecretSource, log *logger.Logger) *CallbackHandler {
	return &CallbackHandler{
		settlement: settlementSvc,
		secrets:    secrets,
		logger:     log,
	}
}

// HandleCallback handles POST /webhooks/bridge/:protocol
func (h *CallbackHandler) HandleCallback(c *gin.Context) {
	protocol := entities.BridgeProtocol(c.Param("protocol"))
	if !protocol.Valid() || protocol == entities.ProtocolDirect {
		SendBadRequest(c, "unknown bridge protocol")
		return
	}

	rawBody, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Error("Failed to read callback body", "error", err)
		SendBadRequest(c, "invalid body")
		return
	}

	if !h.verifySignature(protocol, c.GetHeader("X-Bridge-Signature"), rawBody) {
		h.logger.Warn("Invalid callback signature", "protocol", string(protocol))
		c.JSON(http.StatusUnauthorized, entities.ErrorResponse{
			Code:      "INVALID_SIGNATURE",
			Message:   "callback signature verification failed",
			RequestID: c.GetString("request_id"),
		})
		return
	}

	var cb entities.BridgeCallback
	if err := json.Unmarshal(rawBody, &cb); err != nil {
		h.logger.Error("Failed to parse callback payload", "error", err)
		SendBadRequest(c, "invalid payload")
		return
	}
	cb.Protocol = protocol

	result, err := h.settlement.OnBridgeCallback(c.Request.Context(), &cb)
	if err != nil {
		SendDomainError(c, err)
		return
	}

	// Duplicates are acknowledged with 200 so transports stop retrying
	c.JSON(http.StatusOK, result)
}

func (h *CallbackHandler) verifySignature(protocol entities.BridgeProtocol, signature string, body []byte) bool {
	cfg, err := h.secrets.GetBridgeConfig(protocol)
	if err != nil {
		return false
	}
	if cfg.WebhookSecret == "" {
		h.logger.Warn("Webhook secret not configured - skipping verification",
			"protocol", string(protocol))
		return true
	}

	mac := hmac.New(sha256.New, []byte(cfg.WebhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
