package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/routerpay/router_service/internal/domain/entities"
	domainerrors "github.com/routerpay/router_service/internal/domain/errors"
)

// PaymentRepository handles payment request persistence. The table's
// primary key carries the creation-once invariant; MarkProcessed's
// conditional update carries the at-most-once settlement invariant.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const insertRequestQuery = `
	INSERT INTO payment_requests (
		request_id, user_address, source_token, dest_token,
		source_amount, fee_amount, net_amount, dest_min_amount,
		source_chain_id, dest_chain_id, protocol, processed, created_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, false, $12)
`

// Create inserts a new payment request with processed=false
func (r *PaymentRepository) Create(ctx context.Context, req *entities.PaymentRequest) error {
	if err := req.Validate(); err != nil {
		return domainerrors.ValidationError("request", err.Error())
	}

	req.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, insertRequestQuery,
		req.RequestID, req.UserAddress, req.SourceToken, req.DestToken,
		req.SourceAmount, req.FeeAmount, req.NetAmount, req.DestMinAmount,
		req.SourceChainID, req.DestChainID, req.Protocol, req.CreatedAt,
	)
	return mapInsertError(err, req.RequestID)
}

// CreateTx inserts a new payment request within an open transaction, so
// the caller can withhold the commit until dispatch succeeds.
func (r *PaymentRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, req *entities.PaymentRequest) error {
	if err := req.Validate(); err != nil {
		return domainerrors.ValidationError("request", err.Error())
	}

	req.CreatedAt = time.Now().UTC()
	_, err := tx.ExecContext(ctx, insertRequestQuery,
		req.RequestID, req.UserAddress, req.SourceToken, req.DestToken,
		req.SourceAmount, req.FeeAmount, req.NetAmount, req.DestMinAmount,
		req.SourceChainID, req.DestChainID, req.Protocol, req.CreatedAt,
	)
	return mapInsertError(err, req.RequestID)
}

func mapInsertError(err error, requestID string) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		if pqErr.Code == "23505" { // unique_violation
			return domainerrors.DuplicateRequestError(requestID)
		}
	}
	return fmt.Errorf("create payment request: %w", err)
}

// MarkProcessed flips processed false->true exactly once. A second call
// for the same id fails with AlreadyProcessed, never silently succeeds.
func (r *PaymentRepository) MarkProcessed(ctx context.Context, requestID string, processedAt time.Time) error {
	query := `
		UPDATE payment_requests
		SET processed = true, processed_at = $2
		WHERE request_id = $1 AND processed = false
	`

	result, err := r.db.ExecContext(ctx, query, requestID, processedAt)
	if err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rowsAffected == 1 {
		return nil
	}

	// No row updated: either the request is unknown or it was already
	// processed. Distinguish so callers can apply the duplicate policy.
	var exists bool
	if err := r.db.QueryRowxContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM payment_requests WHERE request_id = $1)`,
		requestID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("check request existence: %w", err)
	}
	if !exists {
		return domainerrors.NotFoundError(fmt.Sprintf("payment request %s", requestID))
	}
	return domainerrors.AlreadyProcessedError(requestID)
}

// Get retrieves a payment request by id
func (r *PaymentRepository) Get(ctx context.Context, requestID string) (*entities.PaymentRequest, error) {
	query := `
		SELECT request_id, user_address, source_token, dest_token,
		       source_amount, fee_amount, net_amount, dest_min_amount,
		       source_chain_id, dest_chain_id, protocol, processed, processed_at, created_at
		FROM payment_requests
		WHERE request_id = $1
	`

	var req entities.PaymentRequest
	err := r.db.GetContext(ctx, &req, query, requestID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domainerrors.NotFoundError(fmt.Sprintf("payment request %s", requestID))
		}
		return nil, fmt.Errorf("get payment request: %w", err)
	}

	return &req, nil
}

// ListByUser retrieves a user's payment requests, newest first
func (r *PaymentRepository) ListByUser(ctx context.Context, userAddress string, limit, offset int) ([]*entities.PaymentRequest, error) {
	query := `
		SELECT request_id, user_address, source_token, dest_token,
		       source_amount, fee_amount, net_amount, dest_min_amount,
		       source_chain_id, dest_chain_id, protocol, processed, processed_at, created_at
		FROM payment_requests
		WHERE user_address = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	var requests []*entities.PaymentRequest
	if err := r.db.SelectContext(ctx, &requests, query, userAddress, limit, offset); err != nil {
		return nil, fmt.Errorf("list payment requests: %w", err)
	}

	return requests, nil
}

// ListUnprocessedBefore retrieves cross-chain requests still awaiting a
// callback that were created before the cutoff. Used by the
// pending-request monitor; it never mutates anything.
func (r *PaymentRepository) ListUnprocessedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*entities.PaymentRequest, error) {
	query := `
		SELECT request_id, user_address, source_token, dest_token,
		       source_amount, fee_amount, net_amount, dest_min_amount,
		       source_chain_id, dest_chain_id, protocol, processed, processed_at, created_at
		FROM payment_requests
		WHERE processed = false AND created_at < $1
		ORDER BY created_at
		LIMIT $2
	`

	var requests []*entities.PaymentRequest
	if err := r.db.SelectContext(ctx, &requests, query, cutoff, limit); err != nil {
		return nil, fmt.Errorf("list unprocessed requests: %w", err)
	}

	return requests, nil
}

// CountUnprocessed returns the number of requests awaiting settlement
func (r *PaymentRepository) CountUnprocessed(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowxContext(ctx,
		`SELECT COUNT(*) FROM payment_requests WHERE processed = false`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unprocessed: %w", err)
	}
	return count, nil
}
