// Package ledger owns the append-only payment request records and the
// per-request locking discipline around them. Every request follows a
// single state transition, unprocessed to processed, exactly once.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/routerpay/router_service/internal/domain/entities"
	"github.com/routerpay/router_service/internal/domain/repositories"
	"github.com/routerpay/router_service/pkg/keylock"
	"github.com/routerpay/router_service/pkg/logger"
)

// Service is the payment ledger
type Service struct {
	repo   repositories.PaymentRepository
	events repositories.EventRepository
	db     *sqlx.DB
	locks  *keylock.KeyLock
	log    *logger.Logger
}

// NewService creates a ledger service
func NewService(repo repositories.PaymentRepository, events repositories.EventRepository, db *sqlx.DB, log *logger.Logger) *Service {
	return &Service{
		repo:   repo,
		events: events,
		db:     db,
		locks:  keylock.New(),
		log:    log,
	}
}

// Lock acquires the per-request mutex. Callers hold it across any
// check-then-act span touching the request.
func (s *Service) Lock(requestID string) (unlock func()) {
	return s.locks.Lock(requestID)
}

// CreateRequest inserts a new unprocessed request. A request id
// collision yields DuplicateRequest regardless of field equality.
func (s *Service) CreateRequest(ctx context.Context, req *entities.PaymentRequest) error {
	return s.repo.Create(ctx, req)
}

// CreatePending inserts the request inside a transaction and holds the
// commit until during() returns nil. If during fails, the insert is
// rolled back and the ledger keeps no trace of the attempt.
func (s *Service) CreatePending(ctx context.Context, req *entities.PaymentRequest, during func(context.Context) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := s.repo.CreateTx(ctx, tx, req); err != nil {
		tx.Rollback()
		return err
	}

	if err := during(ctx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.log.Error("Failed to roll back request insert",
				"request_id", req.RequestID, "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit request insert: %w", err)
	}
	return nil
}

// MarkProcessed transitions the request to processed. Fails with
// AlreadyProcessed on a second call, NotFound on an unknown id.
func (s *Service) MarkProcessed(ctx context.Context, requestID string) error {
	return s.repo.MarkProcessed(ctx, requestID, time.Now().UTC())
}

// Get retrieves one request
func (s *Service) Get(ctx context.Context, requestID string) (*entities.PaymentRequest, error) {
	return s.repo.Get(ctx, requestID)
}

// ListByUser retrieves a user's requests, newest first
func (s *Service) ListByUser(ctx context.Context, userAddress string, limit, offset int) ([]*entities.PaymentRequest, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByUser(ctx, userAddress, limit, offset)
}

// ListUnprocessedBefore retrieves requests still awaiting settlement
// that were created before the cutoff
func (s *Service) ListUnprocessedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*entities.PaymentRequest, error) {
	return s.repo.ListUnprocessedBefore(ctx, cutoff, limit)
}

// CountUnprocessed returns the number of requests awaiting settlement
func (s *Service) CountUnprocessed(ctx context.Context) (int64, error) {
	return s.repo.CountUnprocessed(ctx)
}

// EventsFor retrieves the audit trail of one request
func (s *Service) EventsFor(ctx context.Context, requestID string) ([]*entities.PaymentEvent, error) {
	return s.events.ListByRequest(ctx, requestID)
}
