package stargate

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

	"github.com/routerpay/router_service/internal/domain/entities"
)

func TestQuoteFee(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/quote", r.URL.Path)
		json.NewEncoder(w).Encode(FeeQuote{NativeFee: decimal.NewFromInt(42)})
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL}, zap.NewNop())
	quote, err := client.QuoteFee(context.Background(), 110, entities.CallbackPayload{RequestID: "R1"})
	require.NoError(t, err)
	assert.True(t, quote.NativeFee.Equal(decimal.NewFromInt(42)))
}

func TestSwapCarriesPayload(t *testing.T) {
	var received SwapParams
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/swap", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL}, zap.NewNop())
	err := client.Swap(context.Background(), SwapParams{
		DstChainLZID: 110,
		SrcPoolID:    1,
		DstPoolID:    1,
		Token:        "USDC",
		Amount:       decimal.NewFromInt(997500),
		MinAmount:    decimal.NewFromInt(990000),
		Payload: entities.CallbackPayload{
			RequestID:   "R1",
			UserAddress: "0xuser",
			MinAmount:   decimal.NewFromInt(990000),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "R1", received.Payload.RequestID)
	assert.Equal(t, "0xuser", received.Payload.UserAddress)
	assert.True(t, received.Amount.Equal(decimal.NewFromInt(997500)))
}

func TestSwapTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "pool drained", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL}, zap.NewNop())
	err := client.Swap(context.Background(), SwapParams{DstChainLZID: 110})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "swap failed")
}
