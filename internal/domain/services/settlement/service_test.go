package settlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routerpay/router_service/internal/domain/entities"
	domainerrors "github.com/routerpay/router_service/internal/domain/errors"
	"github.com/routerpay/router_service/pkg/keylock"
	"github.com/routerpay/router_service/pkg/logger"
)

type fakeLedger struct {
	requests map[string]*entities.PaymentRequest
	locks    *keylock.KeyLock
	markErr  error // returned by the next MarkProcessed call, then cleared
}

func newFakeLedger(reqs ...*entities.PaymentRequest) *fakeLedger {
	l := &fakeLedger{requests: make(map[string]*entities.PaymentRequest), locks: keylock.New()}
	for _, r := range reqs {
		l.requests[r.RequestID] = r
	}
	return l
}

func (l *fakeLedger) Lock(requestID string) func() {
	return l.locks.Lock(requestID)
}

func (l *fakeLedger) Get(ctx context.Context, requestID string) (*entities.PaymentRequest, error) {
	r, ok := l.requests[requestID]
	if !ok {
		return nil, domainerrors.NotFoundError("payment request " + requestID)
	}
	copied := *r
	return &copied, nil
}

func (l *fakeLedger) MarkProcessed(ctx context.Context, requestID string) error {
	if l.markErr != nil {
		err := l.markErr
		l.markErr = nil
		return err
	}
	r, ok := l.requests[requestID]
	if !ok {
		return domainerrors.NotFoundError("payment request " + requestID)
	}
	if r.Processed {
		return domainerrors.AlreadyProcessedError(requestID)
	}
	now := time.Now().UTC()
	r.Processed = true
	r.ProcessedAt = &now
	return nil
}

// fakeCache implements the replay fence with an in-memory key set
type fakeCache struct {
	keys map[string]struct{}
	dels []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{keys: make(map[string]struct{})}
}

func (c *fakeCache) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	if _, held := c.keys[key]; held {
		return false, nil
	}
	c.keys[key] = struct{}{}
	return true, nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	delete(c.keys, key)
	c.dels = append(c.dels, key)
	return nil
}

func (c *fakeCache) Exists(ctx context.Context, key string) (bool, error) {
	_, held := c.keys[key]
	return held, nil
}

func (c *fakeCache) Ping(ctx context.Context) error { return nil }
func (c *fakeCache) Close() error                   { return nil }

type fakeOrders struct {
	calls []string
	err   error
}

func (f *fakeOrders) CreateOrder(ctx context.Context, requestID, token string, amount decimal.Decimal) error {
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, requestID)
	return nil
}

func (f *fakeOrders) Ping(ctx context.Context) error { return nil }

type fakeConfig struct {
	endpoint string
}

func (f *fakeConfig) GetBridgeConfig(protocol entities.BridgeProtocol) (*entities.BridgeRouteConfig, error) {
	if protocol != entities.ProtocolStargate {
		return nil, domainerrors.NotFoundError("bridge config")
	}
	return &entities.BridgeRouteConfig{
		Protocol: protocol, Endpoint: f.endpoint, Active: true,
	}, nil
}

type fakeEvents struct {
	appended []entities.EventType
}

func (f *fakeEvents) Append(ctx context.Context, event *entities.PaymentEvent) error {
	f.appended = append(f.appended, event.EventType)
	return nil
}

func (f *fakeEvents) ListByRequest(ctx context.Context, requestID string) ([]*entities.PaymentEvent, error) {
	return nil, nil
}

func pendingRequest() *entities.PaymentRequest {
	return &entities.PaymentRequest{
		RequestID:     "R1",
		UserAddress:   "0xuser",
		SourceToken:   "USDC",
		DestToken:     "USDC",
		SourceAmount:  decimal.NewFromInt(1000000),
		FeeAmount:     decimal.NewFromInt(2500),
		NetAmount:     decimal.NewFromInt(997500),
		SourceChainID: 1,
		DestChainID:   137,
		Protocol:      entities.ProtocolStargate,
	}
}

func callback() *entities.BridgeCallback {
	return &entities.BridgeCallback{
		Protocol:      entities.ProtocolStargate,
		SourceChainID: 1,
		SourceAddress: "0xstargate",
		Nonce:         42,
		Token:         "USDC",
		Amount:        decimal.NewFromInt(995000),
		Payload: entities.CallbackPayload{
			RequestID:   "R1",
			UserAddress: "0xuser",
			MinAmount:   decimal.NewFromInt(990000),
		},
	}
}

func newService(ledger Ledger, ordersClient *fakeOrders, events *fakeEvents) *Service {
	return NewService(ledger, ordersClient, &fakeConfig{endpoint: "0xstargate"}, events, nil, logger.NewLogger(nil, "test"))
}

func TestCallbackSettlesRequest(t *testing.T) {
	ledger := newFakeLedger(pendingRequest())
	ordersClient := &fakeOrders{}
	events := &fakeEvents{}
	svc := newService(ledger, ordersClient, events)

	result, err := svc.OnBridgeCallback(context.Background(), callback())
	require.NoError(t, err)
	assert.Equal(t, StatusSettled, result.Status)
	assert.Equal(t, []string{"R1"}, ordersClient.calls)
	assert.True(t, ledger.requests["R1"].Processed)
	assert.Contains(t, events.appended, entities.EventRequestSettled)
}

func TestDuplicateCallbackIsNoOp(t *testing.T) {
	ledger := newFakeLedger(pendingRequest())
	ordersClient := &fakeOrders{}
	svc := newService(ledger, ordersClient, &fakeEvents{})

	ctx := context.Background()
	first, err := svc.OnBridgeCallback(ctx, callback())
	require.NoError(t, err)
	assert.Equal(t, StatusSettled, first.Status)

	second, err := svc.OnBridgeCallback(ctx, callback())
	require.NoError(t, err)
	assert.Equal(t, StatusDuplicate, second.Status)

	// The settlement side effect ran exactly once
	assert.Equal(t, []string{"R1"}, ordersClient.calls)
}

func TestUnauthorizedCallbackRejectedBeforeMutation(t *testing.T) {
	ledger := newFakeLedger(pendingRequest())
	ordersClient := &fakeOrders{}
	svc := newService(ledger, ordersClient, &fakeEvents{})

	cb := callback()
	cb.SourceAddress = "0xattacker"

	_, err := svc.OnBridgeCallback(context.Background(), cb)
	require.Error(t, err)
	assert.True(t, domainerrors.IsUnauthorized(err))
	assert.Empty(t, ordersClient.calls)
	assert.False(t, ledger.requests["R1"].Processed)
}

func TestCallbackUnknownRequest(t *testing.T) {
	svc := newService(newFakeLedger(), &fakeOrders{}, &fakeEvents{})

	_, err := svc.OnBridgeCallback(context.Background(), callback())
	require.Error(t, err)
	assert.True(t, domainerrors.IsNotFound(err))
}

func TestCallbackOrderFailureLeavesRequestPending(t *testing.T) {
	ledger := newFakeLedger(pendingRequest())
	ordersClient := &fakeOrders{err: errors.New("order engine down")}
	svc := newService(ledger, ordersClient, &fakeEvents{})

	_, err := svc.OnBridgeCallback(context.Background(), callback())
	require.Error(t, err)
	assert.True(t, domainerrors.IsTransportFailure(err))
	assert.False(t, ledger.requests["R1"].Processed)

	// The transport may redeliver; the retry must succeed
	ordersClient.err = nil
	result, err := svc.OnBridgeCallback(context.Background(), callback())
	require.NoError(t, err)
	assert.Equal(t, StatusSettled, result.Status)
}

func TestCallbackMarkFailureReleasesFenceForRedelivery(t *testing.T) {
	ledger := newFakeLedger(pendingRequest())
	ledger.markErr = errors.New("connection reset")
	ordersClient := &fakeOrders{}
	redis := newFakeCache()
	svc := NewService(ledger, ordersClient, &fakeConfig{endpoint: "0xstargate"}, &fakeEvents{}, redis, logger.NewLogger(nil, "test"))

	ctx := context.Background()
	_, err := svc.OnBridgeCallback(ctx, callback())
	require.Error(t, err)
	assert.False(t, ledger.requests["R1"].Processed)

	// The order ran but the flag did not flip; the fence must be gone
	// so the transport's redelivery can complete the settlement.
	assert.Contains(t, redis.dels, "settlement:callback:R1")
	assert.Empty(t, redis.keys)

	result, err := svc.OnBridgeCallback(ctx, callback())
	require.NoError(t, err)
	assert.Equal(t, StatusSettled, result.Status)
	assert.True(t, ledger.requests["R1"].Processed)
}

func TestCallbackHeldFenceStillConsultsLedger(t *testing.T) {
	ledger := newFakeLedger(pendingRequest())
	ordersClient := &fakeOrders{}
	redis := newFakeCache()
	redis.keys["settlement:callback:R1"] = struct{}{}
	svc := NewService(ledger, ordersClient, &fakeConfig{endpoint: "0xstargate"}, &fakeEvents{}, redis, logger.NewLogger(nil, "test"))

	// The fence is held but the request is unprocessed: the callback
	// must settle rather than be swallowed as a duplicate.
	result, err := svc.OnBridgeCallback(context.Background(), callback())
	require.NoError(t, err)
	assert.Equal(t, StatusSettled, result.Status)
	assert.True(t, ledger.requests["R1"].Processed)
	assert.Equal(t, []string{"R1"}, ordersClient.calls)
}

func TestCallbackHeldFenceProcessedIsDuplicate(t *testing.T) {
	req := pendingRequest()
	req.Processed = true
	ledger := newFakeLedger(req)
	ordersClient := &fakeOrders{}
	redis := newFakeCache()
	redis.keys["settlement:callback:R1"] = struct{}{}
	svc := NewService(ledger, ordersClient, &fakeConfig{endpoint: "0xstargate"}, &fakeEvents{}, redis, logger.NewLogger(nil, "test"))

	result, err := svc.OnBridgeCallback(context.Background(), callback())
	require.NoError(t, err)
	assert.Equal(t, StatusDuplicate, result.Status)
	assert.Empty(t, ordersClient.calls)
}

func TestCallbackUnknownProtocol(t *testing.T) {
	svc := newService(newFakeLedger(pendingRequest()), &fakeOrders{}, &fakeEvents{})

	cb := callback()
	cb.Protocol = entities.ProtocolSquid

	_, err := svc.OnBridgeCallback(context.Background(), cb)
	require.Error(t, err)
	assert.True(t, domainerrors.IsUnauthorized(err))
}
