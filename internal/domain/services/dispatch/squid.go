package dispatch

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/routerpay/router_service/internal/adapters/custody"
	"github.com/routerpay/router_service/internal/adapters/squid"
	"github.com/routerpay/router_service/internal/domain/entities"
	domainerrors "github.com/routerpay/router_service/internal/domain/errors"
	"github.com/routerpay/router_service/pkg/logger"
)

// bridgeCallDeadline bounds how long the bridge may hold the message
// before it must execute or refund on the destination chain.
const bridgeCallDeadline = 1800 * time.Second

// SquidTransport delivers cross-chain payments through a general
// message bridge that executes embedded call data on the destination
// chain after swapping.
type SquidTransport struct {
	client  squid.BridgeClient
	custody custody.CustodyClient
	config  ConfigSource
	log     *logger.Logger
	now     func() time.Time
}

// NewSquidTransport creates the Squid-style transport
func NewSquidTransport(client squid.BridgeClient, custodyClient custody.CustodyClient, config ConfigSource, log *logger.Logger) *SquidTransport {
	return &SquidTransport{
		client:  client,
		custody: custodyClient,
		config:  config,
		log:     log,
		now:     time.Now,
	}
}

// Protocol returns the protocol this transport serves
func (t *SquidTransport) Protocol() entities.BridgeProtocol {
	return entities.ProtocolSquid
}

// orderCall is the destination-side call the bridge executes on arrival
type orderCall struct {
	RequestID   string          `json:"request_id"`
	UserAddress string          `json:"user_address"`
	Token       string          `json:"token"`
	MinAmount   decimal.Decimal `json:"min_amount"`
}

// Execute grants the bridge its allowance and submits the bridge call
// with the order creation baked into the message.
func (t *SquidTransport) Execute(ctx context.Context, req *entities.PaymentRequest) (entities.DispatchOutcome, error) {
	bridgeCfg, err := t.config.GetBridgeConfig(entities.ProtocolSquid)
	if err != nil || !bridgeCfg.Active {
		return "", domainerrors.InvalidProtocolError(string(entities.ProtocolSquid))
	}

	destChain, err := t.config.GetChainConfig(req.DestChainID)
	if err != nil {
		return "", err
	}

	callData, err := encodeOrderCall(orderCall{
		RequestID:   req.RequestID,
		UserAddress: req.UserAddress,
		Token:       req.DestToken,
		MinAmount:   req.DestMinAmount,
	})
	if err != nil {
		return "", domainerrors.TransportFailureError("call data encoding failed", err)
	}

	if err := t.custody.Approve(ctx, req.SourceToken, bridgeCfg.Endpoint, decimal.Zero); err != nil {
		return "", domainerrors.TransportFailureError("allowance reset failed", err)
	}
	if err := t.custody.Approve(ctx, req.SourceToken, bridgeCfg.Endpoint, req.NetAmount); err != nil {
		return "", domainerrors.TransportFailureError("allowance grant failed", err)
	}

	err = t.client.BridgeCall(ctx, squid.BridgeCallParams{
		DstChainName: destChain.Name,
		Token:        req.SourceToken,
		Amount:       req.NetAmount,
		MinAmount:    req.DestMinAmount,
		CallTarget:   destChain.OrderTarget,
		CallData:     callData,
		Receiver:     req.UserAddress,
		Deadline:     t.now().Add(bridgeCallDeadline).Unix(),
	})
	if err != nil {
		return "", domainerrors.TransportFailureError("bridge call dispatch failed", err)
	}

	return entities.OutcomePendingCallback, nil
}

func encodeOrderCall(call orderCall) (string, error) {
	raw, err := json.Marshal(call)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
