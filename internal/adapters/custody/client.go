package custody

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

const (
	defaultTimeout = 30 * time.Second
	maxRetries     = 3
)

// Config represents custody API configuration
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
}

// Client holds token balances and allowances on behalf of users and
// executes transfers the engine instructs. It is the only collaborator
// that moves funds.
type Client struct {
	config         Config
	httpClient     *http.Client
	circuitBreaker *gobreaker.CircuitBreaker
	logger         *zap.Logger
}

// NewClient creates a new custody API client
func NewClient(config Config, logger *zap.Logger) *Client {
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}

	cbSettings := gobreaker.Settings{
		Name:        "CustodyAPI",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Custody circuit breaker state changed",
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

// BalanceOf returns the owner's balance of a token
func (c *Client) BalanceOf(ctx context.Context, token, owner string) (decimal.Decimal, error) {
	req := balanceRequest{Token: token, Owner: owner}
	var resp amountResponse
	if err := c.doRequest(ctx, http.MethodPost, "/v1/balance", req, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("balance lookup failed: %w", err)
	}
	return resp.Amount, nil
}

// Allowance returns how much the spender may pull from the owner
func (c *Client) Allowance(ctx context.Context, token, owner, spender string) (decimal.Decimal, error) {
	req := allowanceRequest{Token: token, Owner: owner, Spender: spender}
	var resp amountResponse
	if err := c.doRequest(ctx, http.MethodPost, "/v1/allowance", req, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("allowance lookup failed: %w", err)
	}
	return resp.Amount, nil
}

// Approve sets the spender's allowance on the engine's own holdings.
// Callers reset to zero before raising, the way legacy token allowances
// require.
func (c *Client) Approve(ctx context.Context, token, spender string, amount decimal.Decimal) error {
	req := approveRequest{Token: token, Spender: spender, Amount: amount}
	if err := c.doRequest(ctx, http.MethodPost, "/v1/approve", req, nil); err != nil {
		return fmt.Errorf("approve failed: %w", err)
	}
	return nil
}

// TransferFrom pulls tokens from a user into the given account
func (c *Client) TransferFrom(ctx context.Context, token, from, to string, amount decimal.Decimal) error {
	req := transferFromRequest{Token: token, From: from, To: to, Amount: amount}
	if err := c.doRequest(ctx, http.MethodPost, "/v1/transfer-from", req, nil); err != nil {
		return fmt.Errorf("transfer-from failed: %w", err)
	}
	return nil
}

// Transfer sends tokens from the engine's holdings to a recipient
func (c *Client) Transfer(ctx context.Context, token, to string, amount decimal.Decimal) error {
	req := transferRequest{Token: token, To: to, Amount: amount}
	if err := c.doRequest(ctx, http.MethodPost, "/v1/transfer", req, nil); err != nil {
		return fmt.Errorf("transfer failed: %w", err)
	}
	return nil
}

// Ping tests connectivity to the custody API
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

// doRequest performs an HTTP request with circuit breaker protection
func (c *Client) doRequest(ctx context.Context, method, endpoint string, body, response interface{}) error {
	_, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		return nil, c.doRequestInternal(ctx, method, endpoint, body, response)
	})
	return err
}

func (c *Client) doRequestInternal(ctx context.Context, method, endpoint string, body, response interface{}) error {
	fullURL := c.config.BaseURL + endpoint

	var reqBody []byte
	if body != nil {
		var err error
		reqBody, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	retries := c.config.MaxRetries
	if retries == 0 {
		retries = maxRetries
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<(attempt-1)) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			c.logger.Debug("Retrying custody API request",
				zap.Int("attempt", attempt),
				zap.String("method", method),
				zap.String("url", fullURL))
		}

		req, err := http.NewRequestWithContext(ctx, method, fullURL, bytes.NewReader(reqBody))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response body: %w", err)
			continue
		}

		// Retry on 5xx; mutation endpoints are idempotent server-side
		// per request reference, so a replay never double-moves funds.
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("API error: status %d, body: %s", resp.StatusCode, string(respBody))
			continue
		}

		if resp.StatusCode >= 400 {
			var errResp ErrorResponse
			if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Message != "" {
				errResp.StatusCode = resp.StatusCode
				return &errResp
			}
			return fmt.Errorf("API error: status %d, body: %s", resp.StatusCode, string(respBody))
		}

		if response != nil && len(respBody) > 0 {
			if err := json.Unmarshal(respBody, response); err != nil {
				return fmt.Errorf("failed to unmarshal response: %w", err)
			}
		}

		return nil
	}

	return lastErr
}
