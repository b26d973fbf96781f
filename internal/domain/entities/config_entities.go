package entities

import (
	"fmt"
	"time"
)

// ChainConfig describes one supported chain. Chains are never deleted,
// only deactivated, so historical payment requests keep a valid
// reference.
type ChainConfig struct {
	ChainID     int64            `db:"chain_id" json:"chain_id"`
	Name        string           `db:"name" json:"name"`
	LayerZeroID uint32           `db:"layerzero_id" json:"layerzero_id"`
	AxelarID    uint32           `db:"axelar_id" json:"axelar_id"`
	OrderTarget string           `db:"order_target" json:"order_target"`
	USDC        string           `db:"usdc" json:"usdc"`
	USDT        string           `db:"usdt" json:"usdt"`
	Active      bool             `db:"active" json:"active"`
	Protocols   []BridgeProtocol `json:"protocols"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
}

// SupportsProtocol reports whether the chain accepts the given protocol
func (c *ChainConfig) SupportsProtocol(p BridgeProtocol) bool {
	for _, sp := range c.Protocols {
		if sp == p {
			return true
		}
	}
	return false
}

// Validate checks a chain config before it is stored
func (c *ChainConfig) Validate() error {
	if c.ChainID <= 0 {
		return fmt.Errorf("chain id must be positive, got %d", c.ChainID)
	}
	if c.Name == "" {
		return fmt.Errorf("chain name is required")
	}
	for _, p := range c.Protocols {
		if !p.Valid() {
			return fmt.Errorf("unknown protocol %q", p)
		}
	}
	return nil
}

// BridgeRouteConfig holds the transport endpoint and routing parameters
// for one bridge protocol variant.
type BridgeRouteConfig struct {
	Protocol      BridgeProtocol `db:"protocol" json:"protocol"`
	Endpoint      string         `db:"endpoint" json:"endpoint"`
	WebhookSecret string         `db:"webhook_secret" json:"-"`
	SrcPoolID     uint32         `db:"src_pool_id" json:"src_pool_id"`
	DstPoolID     uint32         `db:"dst_pool_id" json:"dst_pool_id"`
	DstGasLimit   uint64         `db:"dst_gas_limit" json:"dst_gas_limit"`
	Active        bool           `db:"active" json:"active"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// Validate checks a bridge config before it is stored
func (b *BridgeRouteConfig) Validate() error {
	if !b.Protocol.Valid() {
		return fmt.Errorf("unknown protocol %q", b.Protocol)
	}
	if b.Protocol != ProtocolDirect && b.Endpoint == "" {
		return fmt.Errorf("transport endpoint is required for %s", b.Protocol)
	}
	return nil
}

// TokenSupport records whether a token is accepted on a chain
type TokenSupport struct {
	Token     string    `db:"token" json:"token"`
	ChainID   int64     `db:"chain_id" json:"chain_id"`
	Supported bool      `db:"supported" json:"supported"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
