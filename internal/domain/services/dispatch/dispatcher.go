// Package dispatch routes a validated payment request onto one of the
// configured bridge transports. Dispatch is a single attempt with no
// retry: a transport failure aborts the initiating payment so the
// caller can unwind cleanly.
package dispatch

import (
	"context"
	"time"

	"github.com/routerpay/router_service/internal/domain/entities"
	domainerrors "github.com/routerpay/router_service/internal/domain/errors"
	"github.com/routerpay/router_service/pkg/logger"
	"github.com/routerpay/router_service/pkg/metrics"
)

// ConfigSource provides the routing configuration transports need
type ConfigSource interface {
	GetChainConfig(chainID int64) (*entities.ChainConfig, error)
	GetBridgeConfig(protocol entities.BridgeProtocol) (*entities.BridgeRouteConfig, error)
}

// Transport executes one bridge protocol variant
type Transport interface {
	Protocol() entities.BridgeProtocol
	Execute(ctx context.Context, req *entities.PaymentRequest) (entities.DispatchOutcome, error)
}

// Dispatcher selects the transport for a request's protocol
type Dispatcher struct {
	transports map[entities.BridgeProtocol]Transport
	log        *logger.Logger
}

// NewDispatcher creates a dispatcher over the given transports
func NewDispatcher(log *logger.Logger, transports ...Transport) *Dispatcher {
	m := make(map[entities.BridgeProtocol]Transport, len(transports))
	for _, t := range transports {
		m[t.Protocol()] = t
	}
	return &Dispatcher{transports: m, log: log}
}

// Dispatch hands the request to its protocol's transport
func (d *Dispatcher) Dispatch(ctx context.Context, req *entities.PaymentRequest) (entities.DispatchOutcome, error) {
	transport, ok := d.transports[req.Protocol]
	if !ok {
		return "", domainerrors.InvalidProtocolError(string(req.Protocol))
	}

	start := time.Now()
	outcome, err := transport.Execute(ctx, req)
	metrics.DispatchDuration.WithLabelValues(string(req.Protocol)).Observe(time.Since(start).Seconds())

	if err != nil {
		d.log.Error("Dispatch failed",
			"request_id", req.RequestID,
			"protocol", string(req.Protocol),
			"error", err)
		return "", err
	}

	d.log.Info("Request dispatched",
		"request_id", req.RequestID,
		"protocol", string(req.Protocol),
		"outcome", string(outcome))
	return outcome, nil
}
