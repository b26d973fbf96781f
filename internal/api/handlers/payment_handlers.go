package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/routerpay/router_service/internal/domain/entities"
	"github.com/routerpay/router_service/internal/domain/services/fees"
	"github.com/routerpay/router_service/internal/domain/services/ledger"
	"github.com/routerpay/router_service/internal/domain/services/payment"
	"github.com/routerpay/router_service/pkg/logger"
	"github.com/shopspring/decimal"
)

// PaymentHandler serves the payment initiation and query surface
type PaymentHandler struct {
	payments *payment.Service
	ledger   *ledger.Service
	feeBps   func() int64
	logger   *logger.Logger
}

// NewPaymentHandler creates a payment handler. feeBps reports the
// current fee rate for the advisory quote endpoint.
func NewPaymentHandler(payments *payment.Service, ledgerSvc *ledger.Service, feeBps func() int64, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{
		payments: payments,
		ledger:   ledgerSvc,
		feeBps:   feeBps,
		logger:   log,
	}
}

// Initiate handles POST /api/v1/payments
func (h *PaymentHandler) Initiate(c *gin.Context) {
	var intent entities.PaymentIntent
	if err := c.ShouldBindJSON(&intent); err != nil {
		SendBadRequest(c, "Invalid payment intent payload")
		return
	}

	req, outcome, err := h.payments.Initiate(c.Request.Context(), &intent)
	if err != nil {
		SendDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, entities.PaymentResponse{
		Payment: req,
		Outcome: outcome,
	})
}

// Get handles GET /api/v1/payments/:id
func (h *PaymentHandler) Get(c *gin.Context) {
	req, err := h.ledger.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		SendDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// List handles GET /api/v1/payments?user=&limit=&offset=
func (h *PaymentHandler) List(c *gin.Context) {
	user := c.Query("user")
	if user == "" {
		SendBadRequest(c, "user query parameter is required")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	payments, err := h.ledger.ListByUser(c.Request.Context(), user, limit, offset)
	if err != nil {
		SendDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, entities.PaymentListResponse{
		Payments: payments,
		Limit:    limit,
		Offset:   offset,
	})
}

// Events handles GET /api/v1/payments/:id/events
func (h *PaymentHandler) Events(c *gin.Context) {
	requestID := c.Param("id")

	// 404 for unknown requests rather than an empty trail
	if _, err := h.ledger.Get(c.Request.Context(), requestID); err != nil {
		SendDomainError(c, err)
		return
	}

	events, err := h.ledger.EventsFor(c.Request.Context(), requestID)
	if err != nil {
		SendDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"request_id": requestID, "events": events})
}

// QuoteFee handles GET /api/v1/fees/quote?amount=
// The quote is advisory; the rate applied at initiation is the one in
// force at that moment.
func (h *PaymentHandler) QuoteFee(c *gin.Context) {
	amount, err := decimal.NewFromString(c.Query("amount"))
	if err != nil || !amount.IsPositive() {
		SendBadRequest(c, "amount must be a positive decimal")
		return
	}

	bps := h.feeBps()
	fee, net := fees.Compute(amount, bps)
	c.JSON(http.StatusOK, gin.H{
		"amount":           amount,
		"fee_basis_points": bps,
		"fee_amount":       fee,
		"net_amount":       net,
	})
}
