package registry

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routerpay/router_service/internal/domain/entities"
	domainerrors "github.com/routerpay/router_service/internal/domain/errors"
	"github.com/routerpay/router_service/pkg/logger"
)

type fakeConfigRepo struct {
	mu      sync.Mutex
	chains  map[int64]entities.ChainConfig
	bridges map[entities.BridgeProtocol]entities.BridgeRouteConfig
	tokens  map[string]entities.TokenSupport
}

func newFakeConfigRepo() *fakeConfigRepo {
	return &fakeConfigRepo{
		chains:  make(map[int64]entities.ChainConfig),
		bridges: make(map[entities.BridgeProtocol]entities.BridgeRouteConfig),
		tokens:  make(map[string]entities.TokenSupport),
	}
}

func (f *fakeConfigRepo) UpsertChainConfig(ctx context.Context, cfg *entities.ChainConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chains[cfg.ChainID] = *cfg
	return nil
}

func (f *fakeConfigRepo) UpsertBridgeConfig(ctx context.Context, cfg *entities.BridgeRouteConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bridges[cfg.Protocol] = *cfg
	return nil
}

func (f *fakeConfigRepo) UpsertTokenSupport(ctx context.Context, ts *entities.TokenSupport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[ts.Token] = *ts
	return nil
}

func (f *fakeConfigRepo) LoadChainConfigs(ctx context.Context) ([]*entities.ChainConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entities.ChainConfig
	for k := range f.chains {
		c := f.chains[k]
		out = append(out, &c)
	}
	return out, nil
}

func (f *fakeConfigRepo) LoadBridgeConfigs(ctx context.Context) ([]*entities.BridgeRouteConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entities.BridgeRouteConfig
	for k := range f.bridges {
		b := f.bridges[k]
		out = append(out, &b)
	}
	return out, nil
}

func (f *fakeConfigRepo) LoadTokenSupport(ctx context.Context) ([]*entities.TokenSupport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entities.TokenSupport
	for k := range f.tokens {
		t := f.tokens[k]
		out = append(out, &t)
	}
	return out, nil
}

func ethereum() *entities.ChainConfig {
	return &entities.ChainConfig{
		ChainID:     1,
		Name:        "ethereum",
		LayerZeroID: 101,
		OrderTarget: "0xorders",
		Active:      true,
		Protocols:   []entities.BridgeProtocol{entities.ProtocolDirect, entities.ProtocolStargate},
	}
}

func TestSetAndGetChainConfig(t *testing.T) {
	svc := NewService(newFakeConfigRepo(), nil, logger.NewLogger(nil, "test"))
	ctx := context.Background()

	require.NoError(t, svc.SetChainConfig(ctx, "admin", ethereum()))

	got, err := svc.GetChainConfig(1)
	require.NoError(t, err)
	assert.Equal(t, "ethereum", got.Name)
	assert.True(t, svc.IsChainActive(1))
	assert.True(t, got.SupportsProtocol(entities.ProtocolStargate))
}

func TestGetUnknownKeysReturnNotFound(t *testing.T) {
	svc := NewService(newFakeConfigRepo(), nil, logger.NewLogger(nil, "test"))

	_, err := svc.GetChainConfig(999)
	assert.True(t, domainerrors.IsNotFound(err))

	_, err = svc.GetBridgeConfig(entities.ProtocolSquid)
	assert.True(t, domainerrors.IsNotFound(err))

	assert.False(t, svc.IsChainActive(999))
	assert.False(t, svc.IsTokenSupported("USDC", 1))
}

func TestDeactivateChainKeepsRecord(t *testing.T) {
	svc := NewService(newFakeConfigRepo(), nil, logger.NewLogger(nil, "test"))
	ctx := context.Background()

	require.NoError(t, svc.SetChainConfig(ctx, "admin", ethereum()))

	deactivated := ethereum()
	deactivated.Active = false
	require.NoError(t, svc.SetChainConfig(ctx, "admin", deactivated))

	assert.False(t, svc.IsChainActive(1))
	got, err := svc.GetChainConfig(1)
	require.NoError(t, err)
	assert.Equal(t, "ethereum", got.Name)
}

func TestTokenSupportToggle(t *testing.T) {
	svc := NewService(newFakeConfigRepo(), nil, logger.NewLogger(nil, "test"))
	ctx := context.Background()

	require.NoError(t, svc.SetTokenSupport(ctx, "admin", &entities.TokenSupport{Token: "USDC", ChainID: 1, Supported: true}))
	assert.True(t, svc.IsTokenSupported("USDC", 1))
	assert.False(t, svc.IsTokenSupported("USDC", 137))

	require.NoError(t, svc.SetTokenSupport(ctx, "admin", &entities.TokenSupport{Token: "USDC", ChainID: 1, Supported: false}))
	assert.False(t, svc.IsTokenSupported("USDC", 1))
}

func TestSnapshotImmuneToLaterWrites(t *testing.T) {
	svc := NewService(newFakeConfigRepo(), nil, logger.NewLogger(nil, "test"))
	ctx := context.Background()

	require.NoError(t, svc.SetBridgeConfig(ctx, "admin", &entities.BridgeRouteConfig{
		Protocol: entities.ProtocolStargate, Endpoint: "0xold", SrcPoolID: 1, Active: true,
	}))

	// A reader holding a config from before the write keeps it
	before, err := svc.GetBridgeConfig(entities.ProtocolStargate)
	require.NoError(t, err)

	require.NoError(t, svc.SetBridgeConfig(ctx, "admin", &entities.BridgeRouteConfig{
		Protocol: entities.ProtocolStargate, Endpoint: "0xnew", SrcPoolID: 2, Active: true,
	}))

	assert.Equal(t, "0xold", before.Endpoint)
	after, err := svc.GetBridgeConfig(entities.ProtocolStargate)
	require.NoError(t, err)
	assert.Equal(t, "0xnew", after.Endpoint)
}

func TestViewPinsOneSnapshot(t *testing.T) {
	svc := NewService(newFakeConfigRepo(), nil, logger.NewLogger(nil, "test"))
	ctx := context.Background()

	require.NoError(t, svc.SetChainConfig(ctx, "admin", ethereum()))
	require.NoError(t, svc.SetTokenSupport(ctx, "admin", &entities.TokenSupport{Token: "USDC", ChainID: 1, Supported: true}))

	view := svc.View()

	// Writes after the view was taken are invisible through it
	deactivated := ethereum()
	deactivated.Active = false
	require.NoError(t, svc.SetChainConfig(ctx, "admin", deactivated))
	require.NoError(t, svc.SetTokenSupport(ctx, "admin", &entities.TokenSupport{Token: "USDC", ChainID: 1, Supported: false}))

	assert.True(t, view.IsChainActive(1))
	assert.True(t, view.IsTokenSupported("USDC", 1))
	assert.False(t, svc.IsChainActive(1))
	assert.False(t, svc.IsTokenSupported("USDC", 1))
	assert.Less(t, view.Version(), svc.Version())
}

func TestLoadFromStore(t *testing.T) {
	repo := newFakeConfigRepo()
	ctx := context.Background()
	require.NoError(t, repo.UpsertChainConfig(ctx, ethereum()))
	require.NoError(t, repo.UpsertBridgeConfig(ctx, &entities.BridgeRouteConfig{
		Protocol: entities.ProtocolSquid, Endpoint: "0xsquid", Active: true,
	}))
	require.NoError(t, repo.UpsertTokenSupport(ctx, &entities.TokenSupport{Token: "USDT", ChainID: 1, Supported: true}))

	svc := NewService(repo, nil, logger.NewLogger(nil, "test"))
	require.NoError(t, svc.LoadFromStore(ctx))

	assert.True(t, svc.IsChainActive(1))
	assert.True(t, svc.IsTokenSupported("USDT", 1))
	_, err := svc.GetBridgeConfig(entities.ProtocolSquid)
	assert.NoError(t, err)
}

func TestVersionBumpsOnWrite(t *testing.T) {
	svc := NewService(newFakeConfigRepo(), nil, logger.NewLogger(nil, "test"))
	ctx := context.Background()

	v0 := svc.Version()
	require.NoError(t, svc.SetChainConfig(ctx, "admin", ethereum()))
	assert.Greater(t, svc.Version(), v0)
}
