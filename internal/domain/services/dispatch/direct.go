package dispatch

import (
	"context"

	"github.com/routerpay/router_service/internal/adapters/orders"
	"github.com/routerpay/router_service/internal/domain/entities"
	domainerrors "github.com/routerpay/router_service/internal/domain/errors"
)

// DirectTransport settles same-chain payments synchronously against the
// local order engine. No bridge is involved and no callback follows.
type DirectTransport struct {
	orders orders.OrderClient
}

// NewDirectTransport creates the direct transport
func NewDirectTransport(ordersClient orders.OrderClient) *DirectTransport {
	return &DirectTransport{orders: ordersClient}
}

// Protocol returns the protocol this transport serves
func (t *DirectTransport) Protocol() entities.BridgeProtocol {
	return entities.ProtocolDirect
}

// Execute creates the order with the net amount and settles immediately
func (t *DirectTransport) Execute(ctx context.Context, req *entities.PaymentRequest) (entities.DispatchOutcome, error) {
	if err := t.orders.CreateOrder(ctx, req.RequestID, req.DestToken, req.NetAmount); err != nil {
		return "", domainerrors.TransportFailureError("order creation failed", err)
	}
	return entities.OutcomeSettledImmediately, nil
}
