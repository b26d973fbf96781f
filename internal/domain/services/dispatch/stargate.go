package dispatch

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/routerpay/router_service/internal/adapters/custody"
	"github.com/routerpay/router_service/internal/adapters/stargate"
	"github.com/routerpay/router_service/internal/domain/entities"
	domainerrors "github.com/routerpay/router_service/internal/domain/errors"
	"github.com/routerpay/router_service/pkg/logger"
	"github.com/routerpay/router_service/pkg/retry"
)

// StargateTransport delivers cross-chain payments through a pool-based
// swap transport. Delivery completes later via the settlement callback.
type StargateTransport struct {
	client  stargate.SwapClient
	custody custody.CustodyClient
	config  ConfigSource
	quotes  *retry.Retrier
	log     *logger.Logger
}

// NewStargateTransport creates the Stargate-style transport. The retrier
// guards only the advisory fee quote; the swap itself is never retried.
func NewStargateTransport(client stargate.SwapClient, custodyClient custody.CustodyClient, config ConfigSource, log *logger.Logger) *StargateTransport {
	return &StargateTransport{
		client:  client,
		custody: custodyClient,
		config:  config,
		quotes:  retry.NewRetrier(retry.DefaultPolicy(), log.Zap()),
		log:     log,
	}
}

// Protocol returns the protocol this transport serves
func (t *StargateTransport) Protocol() entities.BridgeProtocol {
	return entities.ProtocolStargate
}

// Execute quotes the delivery fee, grants the bridge its allowance and
// submits the swap with the callback payload attached.
func (t *StargateTransport) Execute(ctx context.Context, req *entities.PaymentRequest) (entities.DispatchOutcome, error) {
	bridgeCfg, err := t.config.GetBridgeConfig(entities.ProtocolStargate)
	if err != nil || !bridgeCfg.Active {
		return "", domainerrors.InvalidProtocolError(string(entities.ProtocolStargate))
	}

	destChain, err := t.config.GetChainConfig(req.DestChainID)
	if err != nil {
		return "", err
	}

	payload := entities.CallbackPayload{
		RequestID:   req.RequestID,
		UserAddress: req.UserAddress,
		MinAmount:   req.DestMinAmount,
	}

	// Advisory only: logged for operators, never part of the
	// settlement arithmetic.
	quoteResult, err := t.quotes.DoWithResult(ctx, func() (interface{}, error) {
		return t.client.QuoteFee(ctx, destChain.LayerZeroID, payload)
	})
	if err != nil {
		t.log.Warn("Fee quote unavailable, proceeding without it",
			"request_id", req.RequestID, "error", err)
	} else if quote, ok := quoteResult.(*stargate.FeeQuote); ok {
		t.log.Info("Transport fee quoted",
			"request_id", req.RequestID,
			"native_fee", quote.NativeFee.String())
	}

	if err := t.resetAllowance(ctx, req.SourceToken, bridgeCfg.Endpoint, req.NetAmount); err != nil {
		return "", err
	}

	err = t.client.Swap(ctx, stargate.SwapParams{
		DstChainLZID: destChain.LayerZeroID,
		SrcPoolID:    bridgeCfg.SrcPoolID,
		DstPoolID:    bridgeCfg.DstPoolID,
		Token:        req.SourceToken,
		Amount:       req.NetAmount,
		MinAmount:    req.DestMinAmount,
		DstGasLimit:  bridgeCfg.DstGasLimit,
		Receiver:     destChain.OrderTarget,
		Payload:      payload,
	})
	if err != nil {
		return "", domainerrors.TransportFailureError("swap dispatch failed", err)
	}

	return entities.OutcomePendingCallback, nil
}

// resetAllowance performs the zero-then-set approval sequence legacy
// token allowances require.
func (t *StargateTransport) resetAllowance(ctx context.Context, token, spender string, amount decimal.Decimal) error {
	if err := t.custody.Approve(ctx, token, spender, decimal.Zero); err != nil {
		return domainerrors.TransportFailureError("allowance reset failed", err)
	}
	if err := t.custody.Approve(ctx, token, spender, amount); err != nil {
		return domainerrors.TransportFailureError("allowance grant failed", err)
	}
	return nil
}
