// Package registry maintains the routing configuration: supported
// chains, bridge protocol parameters and the token support matrix.
// Reads are served from an immutable in-memory snapshot; writes persist
// first and then republish a fresh snapshot, so a payment in flight
// keeps the configuration it was validated against.
package registry

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/routerpay/router_service/internal/domain/entities"
	domainerrors "github.com/routerpay/router_service/internal/domain/errors"
	"github.com/routerpay/router_service/internal/domain/repositories"
	"github.com/routerpay/router_service/pkg/logger"
)

type tokenKey struct {
	token   string
	chainID int64
}

// snapshot is an immutable view of the whole registry. It is replaced
// wholesale on every write and never mutated in place.
type snapshot struct {
	chains  map[int64]entities.ChainConfig
	bridges map[entities.BridgeProtocol]entities.BridgeRouteConfig
	tokens  map[tokenKey]bool
	version uint64
}

func emptySnapshot() *snapshot {
	return &snapshot{
		chains:  make(map[int64]entities.ChainConfig),
		bridges: make(map[entities.BridgeProtocol]entities.BridgeRouteConfig),
		tokens:  make(map[tokenKey]bool),
	}
}

func (s *snapshot) clone() *snapshot {
	next := &snapshot{
		chains:  make(map[int64]entities.ChainConfig, len(s.chains)),
		bridges: make(map[entities.BridgeProtocol]entities.BridgeRouteConfig, len(s.bridges)),
		tokens:  make(map[tokenKey]bool, len(s.tokens)),
		version: s.version + 1,
	}
	for k, v := range s.chains {
		next.chains[k] = v
	}
	for k, v := range s.bridges {
		next.bridges[k] = v
	}
	for k, v := range s.tokens {
		next.tokens[k] = v
	}
	return next
}

// Service is the configuration registry
type Service struct {
	repo   repositories.ConfigRepository
	events repositories.EventRepository
	log    *logger.Logger

	writeMu sync.Mutex // serializes writers; readers go through current
	current atomic.Value
}

// NewService creates a registry with an empty snapshot
func NewService(repo repositories.ConfigRepository, events repositories.EventRepository, log *logger.Logger) *Service {
	s := &Service{repo: repo, events: events, log: log}
	s.current.Store(emptySnapshot())
	return s
}

func (s *Service) load() *snapshot {
	return s.current.Load().(*snapshot)
}

// LoadFromStore rebuilds the snapshot from the persisted tables.
// Called once at startup; subsequent writes keep it current.
func (s *Service) LoadFromStore(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	chains, err := s.repo.LoadChainConfigs(ctx)
	if err != nil {
		return fmt.Errorf("load chains: %w", err)
	}
	bridges, err := s.repo.LoadBridgeConfigs(ctx)
	if err != nil {
		return fmt.Errorf("load bridges: %w", err)
	}
	tokens, err := s.repo.LoadTokenSupport(ctx)
	if err != nil {
		return fmt.Errorf("load token support: %w", err)
	}

	next := emptySnapshot()
	next.version = s.load().version + 1
	for _, c := range chains {
		next.chains[c.ChainID] = *c
	}
	for _, b := range bridges {
		next.bridges[b.Protocol] = *b
	}
	for _, t := range tokens {
		next.tokens[tokenKey{t.Token, t.ChainID}] = t.Supported
	}
	s.current.Store(next)

	s.log.Info("Registry loaded",
		"chains", len(next.chains),
		"bridges", len(next.bridges),
		"tokens", len(next.tokens))
	return nil
}

// SetChainConfig persists a chain config and republishes the snapshot
func (s *Service) SetChainConfig(ctx context.Context, actor string, cfg *entities.ChainConfig) error {
	if err := cfg.Validate(); err != nil {
		return domainerrors.ValidationError("chain_config", err.Error())
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.repo.UpsertChainConfig(ctx, cfg); err != nil {
		return err
	}

	next := s.load().clone()
	next.chains[cfg.ChainID] = *cfg
	s.current.Store(next)

	s.emitConfigChanged(ctx, actor, map[string]interface{}{
		"kind":     "chain",
		"chain_id": cfg.ChainID,
		"active":   cfg.Active,
	})
	return nil
}

// SetBridgeConfig persists a bridge protocol config and republishes the snapshot
func (s *Service) SetBridgeConfig(ctx context.Context, actor string, cfg *entities.BridgeRouteConfig) error {
	if err := cfg.Validate(); err != nil {
		return domainerrors.ValidationError("bridge_config", err.Error())
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.repo.UpsertBridgeConfig(ctx, cfg); err != nil {
		return err
	}

	next := s.load().clone()
	next.bridges[cfg.Protocol] = *cfg
	s.current.Store(next)

	s.emitConfigChanged(ctx, actor, map[string]interface{}{
		"kind":     "bridge",
		"protocol": string(cfg.Protocol),
		"active":   cfg.Active,
	})
	return nil
}

// SetTokenSupport persists a token support flag and republishes the snapshot
func (s *Service) SetTokenSupport(ctx context.Context, actor string, ts *entities.TokenSupport) error {
	if ts.Token == "" || ts.ChainID <= 0 {
		return domainerrors.ValidationError("token_support", "token and chain id are required")
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.repo.UpsertTokenSupport(ctx, ts); err != nil {
		return err
	}

	next := s.load().clone()
	next.tokens[tokenKey{ts.Token, ts.ChainID}] = ts.Supported
	s.current.Store(next)

	s.emitConfigChanged(ctx, actor, map[string]interface{}{
		"kind":      "token",
		"token":     ts.Token,
		"chain_id":  ts.ChainID,
		"supported": ts.Supported,
	})
	return nil
}

// View is a read handle pinned to one snapshot. Callers making several
// related reads take a View so a concurrent write cannot slide a
// different snapshot in between them.
type View struct {
	snap *snapshot
}

// View pins the current snapshot
func (s *Service) View() *View {
	return &View{snap: s.load()}
}

// GetChainConfig returns the chain config for chainID
func (v *View) GetChainConfig(chainID int64) (*entities.ChainConfig, error) {
	c, ok := v.snap.chains[chainID]
	if !ok {
		return nil, domainerrors.NotFoundError(fmt.Sprintf("chain %d", chainID))
	}
	return &c, nil
}

// GetBridgeConfig returns the bridge config for a protocol
func (v *View) GetBridgeConfig(protocol entities.BridgeProtocol) (*entities.BridgeRouteConfig, error) {
	b, ok := v.snap.bridges[protocol]
	if !ok {
		return nil, domainerrors.NotFoundError(fmt.Sprintf("bridge config %s", protocol))
	}
	return &b, nil
}

// IsChainActive reports whether the chain is registered and active
func (v *View) IsChainActive(chainID int64) bool {
	c, ok := v.snap.chains[chainID]
	return ok && c.Active
}

// IsTokenSupported reports whether the token is accepted on the chain
func (v *View) IsTokenSupported(token string, chainID int64) bool {
	return v.snap.tokens[tokenKey{token, chainID}]
}

// Version returns the snapshot version, bumped on every republish
func (v *View) Version() uint64 {
	return v.snap.version
}

// GetChainConfig returns the chain config for chainID
func (s *Service) GetChainConfig(chainID int64) (*entities.ChainConfig, error) {
	return s.View().GetChainConfig(chainID)
}

// GetBridgeConfig returns the bridge config for a protocol
func (s *Service) GetBridgeConfig(protocol entities.BridgeProtocol) (*entities.BridgeRouteConfig, error) {
	return s.View().GetBridgeConfig(protocol)
}

// IsChainActive reports whether the chain is registered and active
func (s *Service) IsChainActive(chainID int64) bool {
	return s.View().IsChainActive(chainID)
}

// IsTokenSupported reports whether the token is accepted on the chain
func (s *Service) IsTokenSupported(token string, chainID int64) bool {
	return s.View().IsTokenSupported(token, chainID)
}

// Version returns the snapshot version, bumped on every republish
func (s *Service) Version() uint64 {
	return s.load().version
}

func (s *Service) emitConfigChanged(ctx context.Context, actor string, details map[string]interface{}) {
	if s.events == nil {
		return
	}
	err := s.events.Append(ctx, &entities.PaymentEvent{
		EventType: entities.EventConfigChanged,
		Actor:     actor,
		Details:   details,
	})
	if err != nil {
		s.log.Warn("Failed to record config change event", "error", err)
	}
}
