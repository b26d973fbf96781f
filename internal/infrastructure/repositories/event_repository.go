package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/routerpay/router_service/internal/domain/entities"
)

// EventRepository appends to the payment_events audit table. The table
// is the observability sink used for off-process reconciliation; rows
// are never updated or deleted.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Append records one audit event
func (r *EventRepository) Append(ctx context.Context, event *entities.PaymentEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	detailsJSON, err := json.Marshal(event.Details)
	if err != nil {
		return fmt.Errorf("marshal details: %w", err)
	}

	query := `
		INSERT INTO payment_events (
			id, request_id, event_type, actor, protocol, amount, details, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.db.ExecContext(ctx, query,
		event.ID, event.RequestID, event.EventType, event.Actor,
		event.Protocol, event.Amount, detailsJSON, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// ListByRequest retrieves the audit trail for one payment request
func (r *EventRepository) ListByRequest(ctx context.Context, requestID string) ([]*entities.PaymentEvent, error) {
	query := `
		SELECT id, request_id, event_type, actor, protocol, amount, details, created_at
		FROM payment_events
		WHERE request_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.QueryxContext(ctx, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []*entities.PaymentEvent
	for rows.Next() {
		var event entities.PaymentEvent
		var detailsJSON []byte

		err := rows.Scan(
			&event.ID, &event.RequestID, &event.EventType, &event.Actor,
			&event.Protocol, &event.Amount, &detailsJSON, &event.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}

		if len(detailsJSON) > 0 {
			if err := json.Unmarshal(detailsJSON, &event.Details); err != nil {
				return nil, fmt.Errorf("unmarshal details: %w", err)
			}
		}

		events = append(events, &event)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return events, nil
}
