package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/routerpay/router_service/internal/domain/entities"
)

// ConfigRepository persists the configuration registry tables. The
// registry service keeps an in-memory snapshot; this repository is the
// durable source it is rebuilt from.
type ConfigRepository struct {
	db *sqlx.DB
}

// NewConfigRepository creates a new config repository
func NewConfigRepository(db *sqlx.DB) *ConfigRepository {
	return &ConfigRepository{db: db}
}

// UpsertChainConfig inserts or replaces a chain config. Chains are never
// deleted; deactivation is an upsert with active=false.
func (r *ConfigRepository) UpsertChainConfig(ctx context.Context, cfg *entities.ChainConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate chain config: %w", err)
	}

	protocols := make([]string, len(cfg.Protocols))
	for i, p := range cfg.Protocols {
		protocols[i] = string(p)
	}

	query := `
		INSERT INTO chain_configs (
			chain_id, name, layerzero_id, axelar_id, order_target,
			usdc, usdt, active, protocols, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (chain_id) DO UPDATE SET
			name = EXCLUDED.name,
			layerzero_id = EXCLUDED.layerzero_id,
			axelar_id = EXCLUDED.axelar_id,
			order_target = EXCLUDED.order_target,
			usdc = EXCLUDED.usdc,
			usdt = EXCLUDED.usdt,
			active = EXCLUDED.active,
			protocols = EXCLUDED.protocols,
			updated_at = EXCLUDED.updated_at
	`

	cfg.UpdatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, query,
		cfg.ChainID, cfg.Name, cfg.LayerZeroID, cfg.AxelarID, cfg.OrderTarget,
		cfg.USDC, cfg.USDT, cfg.Active, pq.StringArray(protocols), cfg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert chain config: %w", err)
	}
	return nil
}

// UpsertBridgeConfig inserts or replaces a bridge protocol config
func (r *ConfigRepository) UpsertBridgeConfig(ctx context.Context, cfg *entities.BridgeRouteConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate bridge config: %w", err)
	}

	query := `
		INSERT INTO bridge_configs (
			protocol, endpoint, webhook_secret, src_pool_id, dst_pool_id,
			dst_gas_limit, active, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (protocol) DO UPDATE SET
			endpoint = EXCLUDED.endpoint,
			webhook_secret = EXCLUDED.webhook_secret,
			src_pool_id = EXCLUDED.src_pool_id,
			dst_pool_id = EXCLUDED.dst_pool_id,
			dst_gas_limit = EXCLUDED.dst_gas_limit,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at
	`

	cfg.UpdatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, query,
		cfg.Protocol, cfg.Endpoint, cfg.WebhookSecret, cfg.SrcPoolID, cfg.DstPoolID,
		cfg.DstGasLimit, cfg.Active, cfg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert bridge config: %w", err)
	}
	return nil
}

// UpsertTokenSupport toggles the (token, chain) support relation
func (r *ConfigRepository) UpsertTokenSupport(ctx context.Context, ts *entities.TokenSupport) error {
	query := `
		INSERT INTO token_support (token, chain_id, supported, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (token, chain_id) DO UPDATE SET
			supported = EXCLUDED.supported,
			updated_at = EXCLUDED.updated_at
	`

	ts.UpdatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, query, ts.Token, ts.ChainID, ts.Supported, ts.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert token support: %w", err)
	}
	return nil
}

// LoadChainConfigs loads all chain configs
func (r *ConfigRepository) LoadChainConfigs(ctx context.Context) ([]*entities.ChainConfig, error) {
	query := `
		SELECT chain_id, name, layerzero_id, axelar_id, order_target,
		       usdc, usdt, active, protocols, updated_at
		FROM chain_configs
		ORDER BY chain_id
	`

	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load chain configs: %w", err)
	}
	defer rows.Close()

	var configs []*entities.ChainConfig
	for rows.Next() {
		var cfg entities.ChainConfig
		var protocols pq.StringArray

		err := rows.Scan(
			&cfg.ChainID, &cfg.Name, &cfg.LayerZeroID, &cfg.AxelarID, &cfg.OrderTarget,
			&cfg.USDC, &cfg.USDT, &cfg.Active, &protocols, &cfg.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan chain config: %w", err)
		}

		cfg.Protocols = make([]entities.BridgeProtocol, len(protocols))
		for i, p := range protocols {
			cfg.Protocols[i] = entities.BridgeProtocol(p)
		}
		configs = append(configs, &cfg)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return configs, nil
}

// LoadBridgeConfigs loads all bridge protocol configs
func (r *ConfigRepository) LoadBridgeConfigs(ctx context.Context) ([]*entities.BridgeRouteConfig, error) {
	query := `
		SELECT protocol, endpoint, webhook_secret, src_pool_id, dst_pool_id,
		       dst_gas_limit, active, updated_at
		FROM bridge_configs
	`

	var configs []*entities.BridgeRouteConfig
	if err := r.db.SelectContext(ctx, &configs, query); err != nil {
		return nil, fmt.Errorf("load bridge configs: %w", err)
	}
	return configs, nil
}

// LoadTokenSupport loads the full token support relation
func (r *ConfigRepository) LoadTokenSupport(ctx context.Context) ([]*entities.TokenSupport, error) {
	query := `SELECT token, chain_id, supported, updated_at FROM token_support`

	var rows []*entities.TokenSupport
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("load token support: %w", err)
	}
	return rows, nil
}
