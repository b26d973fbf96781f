package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const defaultTimeout = 30 * time.Second

// Config represents order engine API configuration
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client talks to the local settlement target. CreateOrder is the
// single settlement side effect of the whole engine; it is idempotent
// server-side keyed by request id.
type Client struct {
	config         Config
	httpClient     *http.Client
	circuitBreaker *gobreaker.CircuitBreaker
	logger         *zap.Logger
}

// OrderClient defines the settlement operations the engine needs
type OrderClient interface {
	CreateOrder(ctx context.Context, requestID, token string, amount decimal.Decimal) error
	Ping(ctx context.Context) error
}

var _ OrderClient = (*Client)(nil)

// NewClient creates a new order engine client
func NewClient(config Config, logger *zap.Logger) *Client {
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}

	cbSettings := gobreaker.Settings{
		Name:        "OrdersAPI",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Orders circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &Client{
		config:         config,
		httpClient:     &http.Client{Timeout: config.Timeout},
		circuitBreaker: gobreaker.NewCircuitBreaker(cbSettings),
		logger:         logger,
	}
}

type createOrderRequest struct {
	RequestID string          `json:"request_id"`
	Token     string          `json:"token"`
	Amount    decimal.Decimal `json:"amount"`
}

// CreateOrder registers the settled payment with the order engine.
// No retry: the caller decides whether re-execution is safe.
func (c *Client) CreateOrder(ctx context.Context, requestID, token string, amount decimal.Decimal) error {
	body, err := json.Marshal(createOrderRequest{RequestID: requestID, Token: token, Amount: amount})
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	_, err = c.circuitBreaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v1/orders", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		respBody, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("API error: status %d, body: %s", resp.StatusCode, string(respBody))
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("create order failed: %w", err)
	}

	c.logger.Info("Order created",
		zap.String("request_id", requestID),
		zap.String("token", token),
		zap.String("amount", amount.String()))
	return nil
}

// Ping tests connectivity to the order engine
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("health check failed: status %d", resp.StatusCode)
	}
	return nil
}
