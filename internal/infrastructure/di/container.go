// Package di wires the payment engine together: adapters, repositories,
// domain services and HTTP handlers, in dependency order.
package di

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/routerpay/router_service/internal/adapters/custody"
	"github.com/routerpay/router_service/internal/adapters/orders"
	"github.com/routerpay/router_service/internal/adapters/squid"
	"github.com/routerpay/router_service/internal/adapters/stargate"
	"github.com/routerpay/router_service/internal/api/handlers"
	"github.com/routerpay/router_service/internal/domain/services/admin"
	"github.com/routerpay/router_service/internal/domain/services/dispatch"
	"github.com/routerpay/router_service/internal/domain/services/ledger"
	"github.com/routerpay/router_service/internal/domain/services/payment"
	"github.com/routerpay/router_service/internal/domain/services/registry"
	"github.com/routerpay/router_service/internal/domain/services/settlement"
	"github.com/routerpay/router_service/internal/infrastructure/cache"
	"github.com/routerpay/router_service/internal/infrastructure/config"
	"github.com/routerpay/router_service/internal/infrastructure/repositories"
	"github.com/routerpay/router_service/pkg/auth"
	"github.com/routerpay/router_service/pkg/logger"
)

// registryViews adapts the registry service to the snapshot-view
// interface payment initiation validates against
type registryViews struct {
	svc *registry.Service
}

func (r registryViews) View() payment.RegistryView {
	return r.svc.View()
}

// Container holds all wired components
type Container struct {
	Config *config.Config
	Logger *logger.Logger
	DB     *sqlx.DB
	Redis  cache.RedisClient

	// Repositories
	PaymentRepo *repositories.PaymentRepository
	ConfigRepo  *repositories.ConfigRepository
	EventRepo   *repositories.EventRepository

	// Adapters
	CustodyClient  custody.CustodyClient
	OrdersClient   orders.OrderClient
	StargateClient stargate.SwapClient
	SquidClient    squid.BridgeClient

	// Services
	RegistryService   *registry.Service
	LedgerService     *ledger.Service
	Dispatcher        *dispatch.Dispatcher
	PaymentService    *payment.Service
	SettlementService *settlement.Service
	AdminService      *admin.Service

	// Auth
	JWTManager *auth.JWTManager

	// Handlers
	CoreHandler     *handlers.CoreHandler
	PaymentHandler  *handlers.PaymentHandler
	CallbackHandler *handlers.CallbackHandler
	AdminHandler    *handlers.AdminHandler
}

// NewContainer builds the full dependency graph
func NewContainer(cfg *config.Config, db *sqlx.DB, log *logger.Logger) (*Container, error) {
	c := &Container{
		Config: cfg,
		Logger: log,
		DB:     db,
	}

	// Redis backs the settlement replay fence. The engine stays correct
	// without it, so a failed connection degrades rather than aborts.
	redisClient, err := cache.NewRedisClient(&cfg.Redis, log.Zap())
	if err != nil {
		log.Warn("Redis unavailable - settlement replay fence disabled", "error", err)
	} else {
		c.Redis = redisClient
	}

	c.PaymentRepo = repositories.NewPaymentRepository(db)
	c.ConfigRepo = repositories.NewConfigRepository(db)
	c.EventRepo = repositories.NewEventRepository(db)

	c.CustodyClient = custody.NewClient(custody.Config{
		BaseURL:    cfg.Custody.BaseURL,
		APIKey:     cfg.Custody.APIKey,
		Timeout:    time.Duration(cfg.Custody.Timeout) * time.Second,
		MaxRetries: cfg.Custody.MaxRetries,
	}, log.Zap())

	c.OrdersClient = orders.NewClient(orders.Config{
		BaseURL: cfg.Orders.BaseURL,
		APIKey:  cfg.Orders.APIKey,
		Timeout: time.Duration(cfg.Orders.Timeout) * time.Second,
	}, log.Zap())

	c.StargateClient = stargate.NewClient(stargate.Config{
		BaseURL: cfg.Stargate.BaseURL,
		APIKey:  cfg.Stargate.APIKey,
		Timeout: time.Duration(cfg.Stargate.Timeout) * time.Second,
	}, log.Zap())

	c.SquidClient = squid.NewClient(squid.Config{
		BaseURL: cfg.Squid.BaseURL,
		APIKey:  cfg.Squid.APIKey,
		Timeout: time.Duration(cfg.Squid.Timeout) * time.Second,
	}, log.Zap())

	c.RegistryService = registry.NewService(c.ConfigRepo, c.EventRepo, log)
	if err := c.RegistryService.LoadFromStore(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to load routing registry: %w", err)
	}

	c.LedgerService = ledger.NewService(c.PaymentRepo, c.EventRepo, db, log)

	c.Dispatcher = dispatch.NewDispatcher(log,
		dispatch.NewDirectTransport(c.OrdersClient),
		dispatch.NewStargateTransport(c.StargateClient, c.CustodyClient, c.RegistryService, log),
		dispatch.NewSquidTransport(c.SquidClient, c.CustodyClient, c.RegistryService, log),
	)

	c.AdminService = admin.NewService(
		cfg.Router.FeeBasisPoints,
		cfg.Router.MaxFeeBasisPoints,
		cfg.Router.FeeCollector,
		cfg.Router.TreasuryAddress,
		c.CustodyClient,
		c.EventRepo,
		log,
	)

	c.PaymentService = payment.NewService(
		registryViews{c.RegistryService},
		c.AdminService,
		c.LedgerService,
		c.Dispatcher,
		c.CustodyClient,
		c.EventRepo,
		cfg.Router.TreasuryAddress,
		log,
	)

	c.SettlementService = settlement.NewService(
		c.LedgerService,
		c.OrdersClient,
		c.RegistryService,
		c.EventRepo,
		c.Redis,
		log,
	)

	c.JWTManager = auth.NewJWTManager(
		cfg.JWT.Secret,
		cfg.JWT.Issuer,
		time.Duration(cfg.JWT.AccessTTL)*time.Second,
	)

	c.CoreHandler = handlers.NewCoreHandler(db, c.Redis, log)
	c.PaymentHandler = handlers.NewPaymentHandler(c.PaymentService, c.LedgerService, c.AdminService.FeeBasisPoints, log)
	c.CallbackHandler = handlers.NewCallbackHandler(c.SettlementService, c.RegistryService, log)
	c.AdminHandler = handlers.NewAdminHandler(c.AdminService, c.RegistryService, log)

	return c, nil
}

// Close releases external connections
func (c *Container) Close() error {
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Logger.Warn("Failed to close Redis connection", "error", err)
		}
	}
	return nil
}
