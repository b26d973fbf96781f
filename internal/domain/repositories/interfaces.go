// Package repositories defines the persistence interfaces consumed by
// the domain services. Implementations live in
// internal/infrastructure/repositories.
package repositories

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/routerpay/router_service/internal/domain/entities"
)

// PaymentRepository persists payment requests. Creation relies on a
// unique-key constraint and processing on a conditional update, so the
// database is the durable backstop for the ledger invariants.
type PaymentRepository interface {
	Create(ctx context.Context, req *entities.PaymentRequest) error
	CreateTx(ctx context.Context, tx *sqlx.Tx, req *entities.PaymentRequest) error
	MarkProcessed(ctx context.Context, requestID string, processedAt time.Time) error
	Get(ctx context.Context, requestID string) (*entities.PaymentRequest, error)
	ListByUser(ctx context.Context, userAddress string, limit, offset int) ([]*entities.PaymentRequest, error)
	ListUnprocessedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*entities.PaymentRequest, error)
	CountUnprocessed(ctx context.Context) (int64, error)
}

// ConfigRepository persists the configuration registry tables
type ConfigRepository interface {
	UpsertChainConfig(ctx context.Context, cfg *entities.ChainConfig) error
	UpsertBridgeConfig(ctx context.Context, cfg *entities.BridgeRouteConfig) error
	UpsertTokenSupport(ctx context.Context, ts *entities.TokenSupport) error
	LoadChainConfigs(ctx context.Context) ([]*entities.ChainConfig, error)
	LoadBridgeConfigs(ctx context.Context) ([]*entities.BridgeRouteConfig, error)
	LoadTokenSupport(ctx context.Context) ([]*entities.TokenSupport, error)
}

// EventRepository appends to the audit trail
type EventRepository interface {
	Append(ctx context.Context, event *entities.PaymentEvent) error
	ListByRequest(ctx context.Context, requestID string) ([]*entities.PaymentEvent, error)
}
