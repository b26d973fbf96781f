// Package admin is the control surface: pause gate, fee rate, and the
// emergency withdrawal escape hatch. Pausing stops new initiations only;
// in-flight settlements still drain so no user funds get stranded.
package admin

import (
	"context"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"github.com/routerpay/router_service/internal/adapters/custody"
	"github.com/routerpay/router_service/internal/domain/entities"
	domainerrors "github.com/routerpay/router_service/internal/domain/errors"
	"github.com/routerpay/router_service/internal/domain/repositories"
	"github.com/routerpay/router_service/pkg/logger"
)

// Status is the admin surface's view of the engine state
type Status struct {
	Paused            bool   `json:"paused"`
	FeeBasisPoints    int64  `json:"fee_basis_points"`
	MaxFeeBasisPoints int64  `json:"max_fee_basis_points"`
	FeeCollector      string `json:"fee_collector"`
}

// Service holds the mutable engine controls
type Service struct {
	paused    atomic.Bool
	feeBps    atomic.Int64
	maxFeeBps int64

	feeCollector string
	treasury     string

	custody custody.CustodyClient
	events  repositories.EventRepository
	log     *logger.Logger
}

// NewService creates the admin service with the configured fee rate
func NewService(feeBps, maxFeeBps int64, feeCollector, treasury string, custodyClient custody.CustodyClient, events repositories.EventRepository, log *logger.Logger) *Service {
	s := &Service{
		maxFeeBps:    maxFeeBps,
		feeCollector: feeCollector,
		treasury:     treasury,
		custody:      custodyClient,
		events:       events,
		log:          log,
	}
	s.feeBps.Store(feeBps)
	return s
}

// IsPaused reports whether payment initiation is currently rejected
func (s *Service) IsPaused() bool {
	return s.paused.Load()
}

// Pause stops new payment initiations. Settlement callbacks keep
// draining so dispatched requests can still complete.
func (s *Service) Pause(ctx context.Context, actor string) {
	if s.paused.Swap(true) {
		return
	}
	s.emit(ctx, entities.EventPaused, actor, nil)
	s.log.Warn("Payment initiation paused", "actor", actor)
}

// Unpause resumes payment initiation
func (s *Service) Unpause(ctx context.Context, actor string) {
	if !s.paused.Swap(false) {
		return
	}
	s.emit(ctx, entities.EventUnpaused, actor, nil)
	s.log.Info("Payment initiation resumed", "actor", actor)
}

// FeeBasisPoints returns the current fee rate
func (s *Service) FeeBasisPoints() int64 {
	return s.feeBps.Load()
}

// SetFeeRate changes the fee rate, bounded by the configured ceiling
func (s *Service) SetFeeRate(ctx context.Context, actor string, bps int64) error {
	if bps < 0 || bps > s.maxFeeBps {
		return domainerrors.ValidationError("fee_basis_points",
			"fee rate out of range")
	}
	previous := s.feeBps.Swap(bps)
	s.emit(ctx, entities.EventFeeRateChanged, actor, map[string]interface{}{
		"previous_bps": previous,
		"new_bps":      bps,
	})
	s.log.Info("Fee rate changed", "actor", actor, "previous_bps", previous, "new_bps", bps)
	return nil
}

// FeeCollector returns the account fees accrue to
func (s *Service) FeeCollector() string {
	return s.feeCollector
}

// EmergencyWithdraw moves tokens out of the treasury. Always evented;
// a failed custody call surfaces as an error, never silently succeeds.
func (s *Service) EmergencyWithdraw(ctx context.Context, actor, token, to string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return domainerrors.ValidationError("amount", "withdrawal amount must be positive")
	}
	if to == "" {
		return domainerrors.ValidationError("to", "withdrawal recipient is required")
	}

	if err := s.custody.Transfer(ctx, token, to, amount); err != nil {
		s.log.Error("Emergency withdrawal failed",
			"actor", actor, "token", token, "amount", amount.String(), "error", err)
		return domainerrors.TransportFailureError("emergency withdrawal transfer failed", err)
	}

	s.emit(ctx, entities.EventEmergencyWithdrawal, actor, map[string]interface{}{
		"token":  token,
		"to":     to,
		"amount": amount.String(),
	})
	s.log.Warn("Emergency withdrawal executed",
		"actor", actor, "token", token, "to", to, "amount", amount.String())
	return nil
}

// Status returns the current engine controls
func (s *Service) Status() Status {
	return Status{
		Paused:            s.paused.Load(),
		FeeBasisPoints:    s.feeBps.Load(),
		MaxFeeBasisPoints: s.maxFeeBps,
		FeeCollector:      s.feeCollector,
	}
}

func (s *Service) emit(ctx context.Context, eventType entities.EventType, actor string, details map[string]interface{}) {
	if s.events == nil {
		return
	}
	err := s.events.Append(ctx, &entities.PaymentEvent{
		EventType: eventType,
		Actor:     actor,
		Details:   details,
	})
	if err != nil {
		s.log.Warn("Failed to record admin event", "event_type", string(eventType), "error", err)
	}
}
