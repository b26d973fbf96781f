// Package settlement consumes bridge delivery callbacks and completes
// the destination side of a payment. A callback settles its request at
// most once; replays are acknowledged without re-executing anything.
package settlement

import (
	"context"
	"time"

	"github.com/routerpay/router_service/internal/adapters/orders"
	"github.com/routerpay/router_service/internal/domain/entities"
	domainerrors "github.com/routerpay/router_service/internal/domain/errors"
	"github.com/routerpay/router_service/internal/domain/repositories"
	"github.com/routerpay/router_service/internal/infrastructure/cache"
	"github.com/routerpay/router_service/pkg/logger"
	"github.com/routerpay/router_service/pkg/metrics"
)

// replayGuardTTL bounds how long a callback id is fenced in Redis.
// The ledger's processed flag stays authoritative past the TTL.
const replayGuardTTL = 24 * time.Hour

// Ledger is the slice of the payment ledger the handler needs
type Ledger interface {
	Lock(requestID string) (unlock func())
	Get(ctx context.Context, requestID string) (*entities.PaymentRequest, error)
	MarkProcessed(ctx context.Context, requestID string) error
}

// ConfigSource resolves the registered transport for a protocol
type ConfigSource interface {
	GetBridgeConfig(protocol entities.BridgeProtocol) (*entities.BridgeRouteConfig, error)
}

// Status reports how a callback was resolved
type Status string

const (
	// StatusSettled means this callback performed the settlement
	StatusSettled Status = "settled"
	// StatusDuplicate means the request was already settled; nothing ran
	StatusDuplicate Status = "duplicate"
)

// Result is the outcome of one callback
type Result struct {
	RequestID string `json:"request_id"`
	Status    Status `json:"status"`
}

// Service handles settlement callbacks
type Service struct {
	ledger Ledger
	orders orders.OrderClient
	config ConfigSource
	events repositories.EventRepository
	cache  cache.RedisClient // optional cross-instance replay fence
	log    *logger.Logger
}

// NewService creates a settlement service. cache may be nil; the
// database check alone still guarantees at-most-once settlement.
func NewService(ledger Ledger, ordersClient orders.OrderClient, config ConfigSource, events repositories.EventRepository, redisClient cache.RedisClient, log *logger.Logger) *Service {
	return &Service{
		ledger: ledger,
		orders: ordersClient,
		config: config,
		events: events,
		cache:  redisClient,
		log:    log,
	}
}

// OnBridgeCallback processes one delivery notification. The caller's
// identity is checked against the registered transport endpoint before
// anything is read or written.
func (s *Service) OnBridgeCallback(ctx context.Context, cb *entities.BridgeCallback) (*Result, error) {
	bridgeCfg, err := s.config.GetBridgeConfig(cb.Protocol)
	if err != nil {
		return nil, domainerrors.UnauthorizedError("unknown bridge protocol")
	}
	if cb.SourceAddress == "" || cb.SourceAddress != bridgeCfg.Endpoint {
		return nil, domainerrors.UnauthorizedError("callback source is not the registered transport")
	}

	requestID := cb.Payload.RequestID
	if requestID == "" {
		return nil, domainerrors.ValidationError("request_id", "callback payload carries no request id")
	}

	unlock := s.ledger.Lock(requestID)
	defer unlock()

	// The fence is advisory only: a hit means another instance is
	// probably mid-flight, but the ledger's processed flag is the
	// authority, so every path below still consults it.
	claimed := s.claimFence(ctx, requestID)

	req, err := s.ledger.Get(ctx, requestID)
	if err != nil {
		if claimed {
			s.releaseFence(ctx, requestID)
		}
		return nil, err
	}

	if req.Processed {
		return s.duplicate(ctx, cb, requestID), nil
	}

	// The settlement side effect happens before the flag flips; the
	// per-id lock plus the conditional update keep the pair atomic.
	if err := s.orders.CreateOrder(ctx, requestID, req.DestToken, cb.Amount); err != nil {
		if claimed {
			s.releaseFence(ctx, requestID)
		}
		return nil, domainerrors.TransportFailureError("settlement order creation failed", err)
	}

	if err := s.ledger.MarkProcessed(ctx, requestID); err != nil {
		if domainerrors.IsAlreadyProcessed(err) {
			// Another instance won the race after our order call; the
			// order engine dedupes by request id, so nothing doubled.
			return s.duplicate(ctx, cb, requestID), nil
		}
		// The order ran but the flag did not flip. Drop the fence so
		// the transport's redelivery can finish the transition.
		if claimed {
			s.releaseFence(ctx, requestID)
		}
		return nil, err
	}

	metrics.PaymentsSettledTotal.WithLabelValues(string(cb.Protocol)).Inc()
	s.emit(ctx, entities.EventRequestSettled, cb, requestID)
	s.log.Info("Payment settled",
		"request_id", requestID,
		"protocol", string(cb.Protocol),
		"amount", cb.Amount.String())

	return &Result{RequestID: requestID, Status: StatusSettled}, nil
}

// claimFence marks this callback id as in flight across instances and
// reports whether this call took the claim. A held fence, a Redis
// error or no cache at all mean no claim; none of them block
// settlement, because only the processed flag decides anything.
func (s *Service) claimFence(ctx context.Context, requestID string) bool {
	if s.cache == nil {
		return false
	}
	set, err := s.cache.SetNX(ctx, "settlement:callback:"+requestID, 1, replayGuardTTL)
	if err != nil {
		s.log.Warn("Replay guard unavailable", "request_id", requestID, "error", err)
		return false
	}
	return set
}

func (s *Service) releaseFence(ctx context.Context, requestID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, "settlement:callback:"+requestID); err != nil {
		s.log.Warn("Failed to release replay guard", "request_id", requestID, "error", err)
	}
}

func (s *Service) duplicate(ctx context.Context, cb *entities.BridgeCallback, requestID string) *Result {
	metrics.DuplicateCallbacksTotal.WithLabelValues(string(cb.Protocol)).Inc()
	s.emit(ctx, entities.EventDuplicateCallback, cb, requestID)
	s.log.Warn("Duplicate settlement callback ignored",
		"request_id", requestID,
		"protocol", string(cb.Protocol))
	return &Result{RequestID: requestID, Status: StatusDuplicate}
}

func (s *Service) emit(ctx context.Context, eventType entities.EventType, cb *entities.BridgeCallback, requestID string) {
	if s.events == nil {
		return
	}
	protocol := cb.Protocol
	amount := cb.Amount
	err := s.events.Append(ctx, &entities.PaymentEvent{
		RequestID: &requestID,
		EventType: eventType,
		Actor:     cb.SourceAddress,
		Protocol:  &protocol,
		Amount:    &amount,
		Details: map[string]interface{}{
			"source_chain_id": cb.SourceChainID,
			"nonce":           cb.Nonce,
		},
	})
	if err != nil {
		s.log.Warn("Failed to record settlement event", "request_id", requestID, "error", err)
	}
}
