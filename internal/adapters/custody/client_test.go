package custody

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := NewClient(Config{BaseURL: server.URL, APIKey: "test-key"}, zap.NewNop())
	return client, server
}

func TestBalanceOf(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/balance", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req balanceRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "USDC", req.Token)
		assert.Equal(t, "0xuser", req.Owner)

		json.NewEncoder(w).Encode(amountResponse{Amount: decimal.NewFromInt(1000)})
	})

	balance, err := client.BalanceOf(context.Background(), "USDC", "0xuser")
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(1000)))
}

func TestAllowance(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/allowance", r.URL.Path)

		var req allowanceRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "0xrouter", req.Spender)

		json.NewEncoder(w).Encode(amountResponse{Amount: decimal.NewFromInt(500)})
	})

	allowance, err := client.Allowance(context.Background(), "USDC", "0xuser", "0xrouter")
	require.NoError(t, err)
	assert.True(t, allowance.Equal(decimal.NewFromInt(500)))
}

func TestTransferFrom(t *testing.T) {
	var received transferFromRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/transfer-from", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	})

	err := client.TransferFrom(context.Background(), "USDC", "0xuser", "0xtreasury", decimal.NewFromInt(1000))
	require.NoError(t, err)
	assert.Equal(t, "0xuser", received.From)
	assert.Equal(t, "0xtreasury", received.To)
	assert.True(t, received.Amount.Equal(decimal.NewFromInt(1000)))
}

func TestTransferFromAPIError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(ErrorResponse{
			Code:    "INSUFFICIENT_BALANCE",
			Message: "balance too low",
		})
	})

	err := client.TransferFrom(context.Background(), "USDC", "0xuser", "0xtreasury", decimal.NewFromInt(1000))
	require.Error(t, err)

	var apiErr *ErrorResponse
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsInsufficientBalance())
	assert.Equal(t, 422, apiErr.StatusCode)
}

func TestApproveResetSequence(t *testing.T) {
	var amounts []string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req approveRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		amounts = append(amounts, req.Amount.String())
		w.WriteHeader(http.StatusOK)
	})

	ctx := context.Background()
	require.NoError(t, client.Approve(ctx, "USDC", "0xbridge", decimal.Zero))
	require.NoError(t, client.Approve(ctx, "USDC", "0xbridge", decimal.NewFromInt(997500)))
	assert.Equal(t, []string{"0", "997500"}, amounts)
}
