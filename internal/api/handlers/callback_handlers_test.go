package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routerpay/router_service/internal/domain/entities"
	domainerrors "github.com/routerpay/router_service/internal/domain/errors"
	"github.com/routerpay/router_service/internal/domain/services/settlement"
	"github.com/routerpay/router_service/pkg/logger"
)

type fakeCallbackLedger struct {
	mu   sync.Mutex
	reqs map[string]*entities.PaymentRequest
}

func (f *fakeCallbackLedger) Lock(requestID string) func() {
	return func() {}
}

func (f *fakeCallbackLedger) Get(ctx context.Context, requestID string) (*entities.PaymentRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.reqs[requestID]
	if !ok {
		return nil, domainerrors.NotFoundError("payment request")
	}
	clone := *req
	return &clone, nil
}

func (f *fakeCallbackLedger) MarkProcessed(ctx context.Context, requestID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.reqs[requestID]
	if !ok {
		return domainerrors.NotFoundError("payment request")
	}
	if req.Processed {
		return domainerrors.AlreadyProcessedError(requestID)
	}
	req.Processed = true
	return nil
}

type fakeOrderClient struct {
	mu     sync.Mutex
	orders []string
}

func (f *fakeOrderClient) CreateOrder(ctx context.Context, requestID, token string, amount decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, requestID)
	return nil
}

func (f *fakeOrderClient) Ping(ctx context.Context) error { return nil }

type fakeBridgeSecrets struct {
	bridges map[entities.BridgeProtocol]*entities.BridgeRouteConfig
}

func (f *fakeBridgeSecrets) GetBridgeConfig(protocol entities.BridgeProtocol) (*entities.BridgeRouteConfig, error) {
	cfg, ok := f.bridges[protocol]
	if !ok {
		return nil, domainerrors.NotFoundError("bridge config")
	}
	return cfg, nil
}

type callbackFixture struct {
	ledger  *fakeCallbackLedger
	orders  *fakeOrderClient
	secrets *fakeBridgeSecrets
	router  *gin.Engine
}

const callbackSecret = "callback-test-secret"

func newCallbackFixture(t *testing.T) *callbackFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ledger := &fakeCallbackLedger{reqs: map[string]*entities.PaymentRequest{
		"R1": {
			RequestID:     "R1",
			UserAddress:   "0xuser",
			SourceToken:   "0xusdc-eth",
			DestToken:     "0xusdc-pol",
			SourceAmount:  decimal.NewFromInt(1000000),
			FeeAmount:     decimal.NewFromInt(2500),
			NetAmount:     decimal.NewFromInt(997500),
			DestMinAmount: decimal.NewFromInt(990000),
			SourceChainID: 1,
			DestChainID:   137,
			Protocol:      entities.ProtocolStargate,
		},
	}}
	ordersClient := &fakeOrderClient{}
	secrets := &fakeBridgeSecrets{bridges: map[entities.BridgeProtocol]*entities.BridgeRouteConfig{
		entities.ProtocolStargate: {
			Protocol:      entities.ProtocolStargate,
			Endpoint:      "0xstargate-router",
			WebhookSecret: callbackSecret,
			Active:        true,
		},
	}}

	log := logger.New("error", "test")
	settlementSvc := settlement.NewService(ledger, ordersClient, secrets, nil, nil, log)
	handler := NewCallbackHandler(settlementSvc, secrets, log)

	router := gin.New()
	router.POST("/webhooks/bridge/:protocol", handler.HandleCallback)

	return &callbackFixture{ledger: ledger, orders: ordersClient, secrets: secrets, router: router}
}

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func stargateCallback() *entities.BridgeCallback {
	return &entities.BridgeCallback{
		SourceChainID: 1,
		SourceAddress: "0xstargate-router",
		Nonce:         42,
		Token:         "0xusdc-pol",
		Amount:        decimal.NewFromInt(996000),
		Payload: entities.CallbackPayload{
			RequestID:   "R1",
			UserAddress: "0xuser",
			MinAmount:   decimal.NewFromInt(990000),
		},
	}
}

func postCallback(t *testing.T, fx *callbackFixture, protocol string, body, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/bridge/"+protocol, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("X-Bridge-Signature", signature)
	}
	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, req)
	return w
}

func TestHandleCallbackSettles(t *testing.T) {
	fx := newCallbackFixture(t)

	body, err := json.Marshal(stargateCallback())
	require.NoError(t, err)

	w := postCallback(t, fx, "stargate", string(body), signBody(callbackSecret, body))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result settlement.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "R1", result.RequestID)
	assert.Equal(t, settlement.StatusSettled, result.Status)

	assert.Equal(t, []string{"R1"}, fx.orders.orders)
	assert.True(t, fx.ledger.reqs["R1"].Processed)
}

func TestHandleCallbackRejectsBadSignature(t *testing.T) {
	fx := newCallbackFixture(t)

	body, err := json.Marshal(stargateCallback())
	require.NoError(t, err)

	w := postCallback(t, fx, "stargate", string(body), signBody("wrong-secret", body))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, fx.orders.orders)
	assert.False(t, fx.ledger.reqs["R1"].Processed)
}

func TestHandleCallbackRejectsMissingSignature(t *testing.T) {
	fx := newCallbackFixture(t)

	body, err := json.Marshal(stargateCallback())
	require.NoError(t, err)

	w := postCallback(t, fx, "stargate", string(body), "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, fx.orders.orders)
}

func TestHandleCallbackRejectsDirectProtocolPath(t *testing.T) {
	fx := newCallbackFixture(t)

	body, _ := json.Marshal(stargateCallback())
	w := postCallback(t, fx, "direct", string(body), signBody(callbackSecret, body))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postCallback(t, fx, "wormhole", string(body), signBody(callbackSecret, body))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleCallbackRejectsWrongSourceAddress(t *testing.T) {
	fx := newCallbackFixture(t)

	cb := stargateCallback()
	cb.SourceAddress = "0xattacker"
	body, err := json.Marshal(cb)
	require.NoError(t, err)

	// Signature is valid; the embedded source address still has to match
	// the registered transport.
	w := postCallback(t, fx, "stargate", string(body), signBody(callbackSecret, body))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, fx.orders.orders)
	assert.False(t, fx.ledger.reqs["R1"].Processed)
}

func TestHandleCallbackAcknowledgesReplay(t *testing.T) {
	fx := newCallbackFixture(t)

	body, err := json.Marshal(stargateCallback())
	require.NoError(t, err)
	signature := signBody(callbackSecret, body)

	first := postCallback(t, fx, "stargate", string(body), signature)
	require.Equal(t, http.StatusOK, first.Code)

	second := postCallback(t, fx, "stargate", string(body), signature)
	require.Equal(t, http.StatusOK, second.Code)

	var result settlement.Result
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &result))
	assert.Equal(t, settlement.StatusDuplicate, result.Status)

	// The settlement side effect ran exactly once
	assert.Equal(t, []string{"R1"}, fx.orders.orders)
}

func TestHandleCallbackMalformedBody(t *testing.T) {
	fx := newCallbackFixture(t)

	body := "{not json"
	w := postCallback(t, fx, "stargate", body, signBody(callbackSecret, []byte(body)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, fx.orders.orders)
}
