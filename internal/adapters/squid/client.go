package squid

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

// Config represents the bridge-call transport API configuration
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client drives a Squid-style general-message bridge. The bridge
// executes arbitrary call data on the destination chain after swapping,
// so order creation rides inside the message itself.
type Client struct {
	config         Config
	httpClient     *http.Client
	circuitBreaker *gobreaker.CircuitBreaker
	logger         *zap.Logger
}

// BridgeCallParams are the parameters of one bridge-call dispatch
type BridgeCallParams struct {
	DstChainName string          `json:"dst_chain_name"`
	Token        string          `json:"token"`
	Amount       decimal.Decimal `json:"amount"`
	MinAmount    decimal.Decimal `json:"min_amount"`
	CallTarget   string          `json:"call_target"`
	CallData     string          `json:"call_data"`
	Receiver     string          `json:"receiver"`
	Deadline     int64           `json:"deadline"`
}

// BridgeClient defines the transport operations the dispatcher needs
type BridgeClient interface {
	BridgeCall(ctx context.Context, params BridgeCallParams) error
	Ping(ctx context.Context) error
}

var _ BridgeClient = (*Client)(nil)

// NewClient creates a new bridge-call transport client
func NewClient(config Config, logger *zap.Logger) *Client {
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}

	cbSettings := gobreaker.Settings{
		Name:        "SquidAPI",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Squid circuit breaker state changed",
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

// BridgeCall submits the cross-chain bridge call. Exactly one attempt;
// a failure here aborts the initiating payment.
func (c *Client) BridgeCall(ctx context.Context, params BridgeCallParams) error {
	reqBody, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	_, err = c.circuitBreaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v1/bridge-call", bytes.NewReader(reqBody))
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
		return fmt.Errorf("bridge call failed: %w", err)
	}

	c.logger.Info("Bridge call submitted",
		zap.String("dst_chain", params.DstChainName),
		zap.String("amount", params.Amount.String()),
		zap.Int64("deadline", params.Deadline))
	return nil
}

// Ping tests connectivity to the transport API
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
