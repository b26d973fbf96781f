// Package payment orchestrates payment initiation: validation, fee
// capture, fund custody and bridge dispatch. The request record commits
// only once dispatch succeeds, so a failed initiation leaves neither a
// ledger row nor user funds behind.
package payment

import (
	"context"

	"github.com/routerpay/router_service/internal/adapters/custody"
	"github.com/routerpay/router_service/internal/domain/entities"
	domainerrors "github.com/routerpay/router_service/internal/domain/errors"
	"github.com/routerpay/router_service/internal/domain/repositories"
	"github.com/routerpay/router_service/internal/domain/services/fees"
	"github.com/routerpay/router_service/pkg/logger"
	"github.com/routerpay/router_service/pkg/metrics"
)

// Registry yields point-in-time views of the routing configuration
type Registry interface {
	View() RegistryView
}

// RegistryView is one immutable snapshot of the registry. Validation
// takes a single view so every check within one intent reads the same
// configuration, even while an administrator is writing.
type RegistryView interface {
	GetChainConfig(chainID int64) (*entities.ChainConfig, error)
	IsChainActive(chainID int64) bool
	IsTokenSupported(token string, chainID int64) bool
}

// Controls is the slice of the admin surface initiation consults
type Controls interface {
	IsPaused() bool
	FeeBasisPoints() int64
}

// Ledger is the slice of the payment ledger initiation drives
type Ledger interface {
	Lock(requestID string) (unlock func())
	CreatePending(ctx context.Context, req *entities.PaymentRequest, during func(context.Context) error) error
	MarkProcessed(ctx context.Context, requestID string) error
}

// Dispatcher routes a committed request onto its bridge transport
type Dispatcher interface {
	Dispatch(ctx context.Context, req *entities.PaymentRequest) (entities.DispatchOutcome, error)
}

// Service is the payment initiation orchestrator
type Service struct {
	registry   Registry
	controls   Controls
	ledger     Ledger
	dispatcher Dispatcher
	custody    custody.CustodyClient
	events     repositories.EventRepository
	treasury   string
	log        *logger.Logger
}

// NewService creates the orchestrator. treasury is the account user
// funds are pulled into and refunded from.
func NewService(registry Registry, controls Controls, ledger Ledger, dispatcher Dispatcher, custodyClient custody.CustodyClient, events repositories.EventRepository, treasury string, log *logger.Logger) *Service {
	return &Service{
		registry:   registry,
		controls:   controls,
		ledger:     ledger,
		dispatcher: dispatcher,
		custody:    custodyClient,
		events:     events,
		treasury:   treasury,
		log:        log,
	}
}

// Initiate validates the intent, captures the fee, pulls the user's
// funds and dispatches onto the chosen bridge. On any failure after the
// pull, funds are returned and the ledger keeps no record.
func (s *Service) Initiate(ctx context.Context, intent *entities.PaymentIntent) (*entities.PaymentRequest, entities.DispatchOutcome, error) {
	if s.controls.IsPaused() {
		return s.reject(domainerrors.PausedError())
	}

	if err := s.validate(intent); err != nil {
		return s.reject(err)
	}

	feeAmount, netAmount := fees.Compute(intent.SourceAmount, s.controls.FeeBasisPoints())
	req := &entities.PaymentRequest{
		RequestID:     intent.RequestID,
		UserAddress:   intent.UserAddress,
		SourceToken:   intent.SourceToken,
		DestToken:     intent.DestToken,
		SourceAmount:  intent.SourceAmount,
		FeeAmount:     feeAmount,
		NetAmount:     netAmount,
		DestMinAmount: intent.DestMinAmount,
		SourceChainID: intent.SourceChainID,
		DestChainID:   intent.DestChainID,
		Protocol:      intent.Protocol,
	}

	unlock := s.ledger.Lock(req.RequestID)
	defer unlock()

	if err := s.checkFunds(ctx, req); err != nil {
		return s.reject(err)
	}

	var outcome entities.DispatchOutcome
	dispatched := false
	err := s.ledger.CreatePending(ctx, req, func(ctx context.Context) error {
		if err := s.custody.TransferFrom(ctx, req.SourceToken, req.UserAddress, s.treasury, req.SourceAmount); err != nil {
			return domainerrors.TransportFailureError("fund transfer failed", err)
		}

		var dispatchErr error
		outcome, dispatchErr = s.dispatcher.Dispatch(ctx, req)
		if dispatchErr != nil {
			s.refund(ctx, req)
			return dispatchErr
		}
		dispatched = true
		return nil
	})
	if err != nil {
		if dispatched {
			// Value already crossed the bridge but the insert did not
			// commit, so the eventual callback will find no row. A
			// refund here could double-pay against that callback; the
			// event flags the request for operator reconciliation.
			s.log.Error("Payment dispatched but ledger commit failed - manual reconciliation required",
				"request_id", req.RequestID,
				"protocol", string(req.Protocol),
				"net_amount", req.NetAmount.String(),
				"outcome", string(outcome),
				"error", err)
			s.emit(ctx, entities.EventDispatchUncommitted, req, map[string]interface{}{
				"outcome": string(outcome),
			})
		}
		return s.reject(err)
	}

	metrics.PaymentsInitiatedTotal.WithLabelValues(string(req.Protocol)).Inc()
	s.emit(ctx, entities.EventRequestCreated, req, nil)
	s.emit(ctx, entities.EventRequestDispatched, req, map[string]interface{}{
		"outcome": string(outcome),
	})

	if outcome == entities.OutcomeSettledImmediately {
		if err := s.ledger.MarkProcessed(ctx, req.RequestID); err != nil {
			// The order exists and the funds moved; the monitor will
			// surface the unflipped flag for reconciliation.
			s.log.Error("Failed to mark settled request processed",
				"request_id", req.RequestID, "error", err)
		} else {
			req.Processed = true
			metrics.PaymentsSettledTotal.WithLabelValues(string(req.Protocol)).Inc()
			s.emit(ctx, entities.EventRequestSettled, req, nil)
		}
	} else {
		metrics.PendingRequestsGauge.Inc()
	}

	s.log.Info("Payment initiated",
		"request_id", req.RequestID,
		"protocol", string(req.Protocol),
		"source_amount", req.SourceAmount.String(),
		"fee_amount", req.FeeAmount.String(),
		"net_amount", req.NetAmount.String(),
		"outcome", string(outcome))

	return req, outcome, nil
}

func (s *Service) validate(intent *entities.PaymentIntent) error {
	if !intent.SourceAmount.IsPositive() {
		return domainerrors.ValidationError("source_amount", "amount must be positive")
	}
	if !intent.Protocol.Valid() {
		return domainerrors.InvalidProtocolError(string(intent.Protocol))
	}

	sameChain := intent.SourceChainID == intent.DestChainID
	if sameChain && intent.Protocol != entities.ProtocolDirect {
		return domainerrors.ValidationError("protocol", "same-chain payments must use the direct protocol")
	}
	if !sameChain && intent.Protocol == entities.ProtocolDirect {
		return domainerrors.ValidationError("protocol", "the direct protocol cannot cross chains")
	}

	// One view for the whole validation: a concurrent config write
	// cannot produce a composite read spanning two snapshots.
	cfg := s.registry.View()

	if !cfg.IsChainActive(intent.SourceChainID) {
		return domainerrors.ValidationError("source_chain_id", "source chain is not active")
	}
	if !cfg.IsChainActive(intent.DestChainID) {
		return domainerrors.ValidationError("dest_chain_id", "destination chain is not active")
	}
	if !cfg.IsTokenSupported(intent.SourceToken, intent.SourceChainID) {
		return domainerrors.ValidationError("source_token", "token not supported on source chain")
	}
	if !cfg.IsTokenSupported(intent.DestToken, intent.DestChainID) {
		return domainerrors.ValidationError("dest_token", "token not supported on destination chain")
	}

	if !sameChain {
		destChain, err := cfg.GetChainConfig(intent.DestChainID)
		if err != nil {
			return err
		}
		if !destChain.SupportsProtocol(intent.Protocol) {
			return domainerrors.ValidationError("protocol", "destination chain does not support the protocol")
		}
	}

	// Entity validation backstops the field checks above
	probe := entities.PaymentRequest{
		RequestID:     intent.RequestID,
		UserAddress:   intent.UserAddress,
		SourceAmount:  intent.SourceAmount,
		SourceChainID: intent.SourceChainID,
		DestChainID:   intent.DestChainID,
		Protocol:      intent.Protocol,
	}
	if err := probe.Validate(); err != nil {
		return domainerrors.ValidationError("request", err.Error())
	}
	return nil
}

// checkFunds verifies balance and allowance before any money moves
func (s *Service) checkFunds(ctx context.Context, req *entities.PaymentRequest) error {
	balance, err := s.custody.BalanceOf(ctx, req.SourceToken, req.UserAddress)
	if err != nil {
		return domainerrors.TransportFailureError("balance check failed", err)
	}
	if balance.LessThan(req.SourceAmount) {
		return domainerrors.InsufficientFundsError("balance below requested amount")
	}

	allowance, err := s.custody.Allowance(ctx, req.SourceToken, req.UserAddress, s.treasury)
	if err != nil {
		return domainerrors.TransportFailureError("allowance check failed", err)
	}
	if allowance.LessThan(req.SourceAmount) {
		return domainerrors.InsufficientFundsError("allowance below requested amount")
	}
	return nil
}

// refund compensates an already-executed pull when dispatch fails.
// Best effort: a refund failure is logged and evented for manual
// reconciliation, it never masks the dispatch error.
func (s *Service) refund(ctx context.Context, req *entities.PaymentRequest) {
	if err := s.custody.Transfer(ctx, req.SourceToken, req.UserAddress, req.SourceAmount); err != nil {
		s.log.Error("Refund after failed dispatch did not complete",
			"request_id", req.RequestID,
			"user_address", req.UserAddress,
			"amount", req.SourceAmount.String(),
			"error", err)
	}
	s.emit(ctx, entities.EventDispatchRolledBack, req, map[string]interface{}{
		"refunded_amount": req.SourceAmount.String(),
	})
}

func (s *Service) reject(err error) (*entities.PaymentRequest, entities.DispatchOutcome, error) {
	metrics.PaymentsRejectedTotal.WithLabelValues(domainerrors.GetErrorCode(err)).Inc()
	return nil, "", err
}

func (s *Service) emit(ctx context.Context, eventType entities.EventType, req *entities.PaymentRequest, details map[string]interface{}) {
	if s.events == nil {
		return
	}
	requestID := req.RequestID
	protocol := req.Protocol
	amount := req.SourceAmount
	err := s.events.Append(ctx, &entities.PaymentEvent{
		RequestID: &requestID,
		EventType: eventType,
		Actor:     req.UserAddress,
		Protocol:  &protocol,
		Amount:    &amount,
		Details:   details,
	})
	if err != nil {
		s.log.Warn("Failed to record payment event",
			"request_id", requestID, "event_type", string(eventType), "error", err)
	}
}
