package stargate

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

	"github.com/routerpay/router_service/internal/domain/entities"
)

const defaultTimeout = 30 * time.Second

// Config represents the swap transport API configuration
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client drives a Stargate-style pool-to-pool swap transport. Swap is
// fire-and-observe: delivery is confirmed later through the settlement
// callback, never by this client.
type Client struct {
	config         Config
	httpClient     *http.Client
	circuitBreaker *gobreaker.CircuitBreaker
	logger         *zap.Logger
}

// SwapParams are the routing parameters of one cross-chain swap
type SwapParams struct {
	DstChainLZID uint32                   `json:"dst_chain_lz_id"`
	SrcPoolID    uint32                   `json:"src_pool_id"`
	DstPoolID    uint32                   `json:"dst_pool_id"`
	Token        string                   `json:"token"`
	Amount       decimal.Decimal          `json:"amount"`
	MinAmount    decimal.Decimal          `json:"min_amount"`
	DstGasLimit  uint64                   `json:"dst_gas_limit"`
	Receiver     string                   `json:"receiver"`
	Payload      entities.CallbackPayload `json:"payload"`
}

// FeeQuote is the transport's advisory delivery fee. It never feeds the
// engine's own fee or settlement arithmetic.
type FeeQuote struct {
	NativeFee decimal.Decimal `json:"native_fee"`
	ZroFee    decimal.Decimal `json:"zro_fee"`
}

// SwapClient defines the transport operations the dispatcher needs
type SwapClient interface {
	QuoteFee(ctx context.Context, dstChainLZID uint32, payload entities.CallbackPayload) (*FeeQuote, error)
	Swap(ctx context.Context, params SwapParams) error
	Ping(ctx context.Context) error
}

var _ SwapClient = (*Client)(nil)

// NewClient creates a new swap transport client
func NewClient(config Config, logger *zap.Logger) *Client {
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}

	cbSettings := gobreaker.Settings{
		Name:        "StargateAPI",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Stargate circuit breaker state changed",
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

type quoteFeeRequest struct {
	DstChainLZID uint32                   `json:"dst_chain_lz_id"`
	Payload      entities.CallbackPayload `json:"payload"`
}

// QuoteFee asks the transport what delivery will cost
func (c *Client) QuoteFee(ctx context.Context, dstChainLZID uint32, payload entities.CallbackPayload) (*FeeQuote, error) {
	var quote FeeQuote
	req := quoteFeeRequest{DstChainLZID: dstChainLZID, Payload: payload}
	if err := c.doRequest(ctx, "/v1/quote", req, &quote); err != nil {
		return nil, fmt.Errorf("quote fee failed: %w", err)
	}
	return &quote, nil
}

// Swap submits the cross-chain swap. Exactly one attempt; a failure
// here aborts the initiating payment.
func (c *Client) Swap(ctx context.Context, params SwapParams) error {
	if err := c.doRequest(ctx, "/v1/swap", params, nil); err != nil {
		return fmt.Errorf("swap failed: %w", err)
	}
	c.logger.Info("Swap submitted",
		zap.String("request_id", params.Payload.RequestID),
		zap.Uint32("dst_chain_lz_id", params.DstChainLZID),
		zap.String("amount", params.Amount.String()))
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

func (c *Client) doRequest(ctx context.Context, endpoint string, body, response interface{}) error {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	_, err = c.circuitBreaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+endpoint, bytes.NewReader(reqBody))
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

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("API error: status %d, body: %s", resp.StatusCode, string(respBody))
		}
		if response != nil && len(respBody) > 0 {
			if err := json.Unmarshal(respBody, response); err != nil {
				return nil, fmt.Errorf("failed to unmarshal response: %w", err)
			}
		}
		return nil, nil
	})
	return err
}
