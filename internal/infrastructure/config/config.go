package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Environment string          `mapstructure:"environment"`
	LogLevel    string          `mapstructure:"log_level"`
	Server      ServerConfig    `mapstructure:"server"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Redis       RedisConfig     `mapstructure:"redis"`
	JWT         JWTConfig       `mapstructure:"jwt"`
	Tracing     TracingConfig   `mapstructure:"tracing"`
	Router      RouterConfig    `mapstructure:"router"`
	Custody     CustodyConfig   `mapstructure:"custody"`
	Orders      OrdersConfig    `mapstructure:"orders"`
	Stargate    BridgeAPIConfig `mapstructure:"stargate"`
	Squid       BridgeAPIConfig `mapstructure:"squid"`
	Monitor     MonitorConfig   `mapstructure:"monitor"`
}

type ServerConfig struct {
	Port            int      `mapstructure:"port"`
	Host            string   `mapstructure:"host"`
	ReadTimeout     int      `mapstructure:"read_timeout"`
	WriteTimeout    int      `mapstructure:"write_timeout"`
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	RateLimitPerMin int      `mapstructure:"rate_limit_per_min"`
}

type DatabaseConfig struct {
	URL             string `mapstructure:"url"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret    string `mapstructure:"secret"`
	AccessTTL int    `mapstructure:"access_token_ttl"`
	Issuer    string `mapstructure:"issuer"`
}

type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	CollectorURL string  `mapstructure:"collector_url"`
	SampleRate   float64 `mapstructure:"sample_rate"`
	Insecure     bool    `mapstructure:"insecure"`
}

// RouterConfig holds the payment engine parameters
type RouterConfig struct {
	FeeBasisPoints    int64  `mapstructure:"fee_basis_points"`
	MaxFeeBasisPoints int64  `mapstructure:"max_fee_basis_points"`
	FeeCollector      string `mapstructure:"fee_collector"`
	TreasuryAddress   string `mapstructure:"treasury_address"`
	AdminSubject      string `mapstructure:"admin_subject"`
}

// CustodyConfig points at the token custody collaborator
type CustodyConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	Timeout    int    `mapstructure:"timeout"`
	MaxRetries int    `mapstructure:"max_retries"`
}

// OrdersConfig points at the local settlement collaborator
type OrdersConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Timeout int    `mapstructure:"timeout"`
}

// BridgeAPIConfig points at one bridge transport collaborator
type BridgeAPIConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	APIKey        string `mapstructure:"api_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
	Timeout       int    `mapstructure:"timeout"`
}

// MonitorConfig controls the pending-request monitor worker
type MonitorConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	Schedule         string `mapstructure:"schedule"`
	StuckAfterMinutes int   `mapstructure:"stuck_after_minutes"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors if file doesn't exist)
	godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	overrideFromEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Build database URL if not provided
	if config.Database.URL == "" {
		config.Database.URL = fmt.Sprintf(
			"postgres://%s:%s@%s:%d/%s?sslmode=%s",
			config.Database.User,
			config.Database.Password,
			config.Database.Host,
			config.Database.Port,
			config.Database.Name,
			config.Database.SSLMode,
		)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	// Server defaults
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", 30)
	viper.SetDefault("server.write_timeout", 30)
	viper.SetDefault("server.rate_limit_per_min", 100)

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "router_service")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_open_conns", 50)
	viper.SetDefault("database.max_idle_conns", 10)
	viper.SetDefault("database.conn_max_lifetime", 3600)

	// Redis defaults
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.pool_size", 10)

	// JWT defaults
	viper.SetDefault("jwt.access_token_ttl", 3600)
	viper.SetDefault("jwt.issuer", "router_service")

	// Tracing defaults
	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.collector_url", "localhost:4317")
	viper.SetDefault("tracing.sample_rate", 1.0)

	// Router defaults; fee rate ceiling is 100 bp (1%)
	viper.SetDefault("router.fee_basis_points", 25)
	viper.SetDefault("router.max_fee_basis_points", 100)
	viper.SetDefault("router.admin_subject", "router-admin")

	// Collaborator defaults
	viper.SetDefault("custody.timeout", 30)
	viper.SetDefault("custody.max_retries", 3)
	viper.SetDefault("orders.timeout", 30)
	viper.SetDefault("stargate.timeout", 30)
	viper.SetDefault("squid.timeout", 30)

	// Monitor defaults
	viper.SetDefault("monitor.enabled", true)
	viper.SetDefault("monitor.schedule", "@every 5m")
	viper.SetDefault("monitor.stuck_after_minutes", 60)
}

func overrideFromEnv() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			viper.Set("server.port", p)
		}
	}
	if url := os.Getenv("DATABASE_URL"); url != "" {
		viper.Set("database.url", url)
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		viper.Set("jwt.secret", secret)
	}
	if url := os.Getenv("REDIS_URL"); url != "" {
		// host:port form
		if host, port, ok := strings.Cut(url, ":"); ok {
			viper.Set("redis.host", host)
			if p, err := strconv.Atoi(port); err == nil {
				viper.Set("redis.port", p)
			}
		}
	}
}

func validate(cfg *Config) error {
	if cfg.Environment == "production" && cfg.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required in production")
	}
	if cfg.Router.MaxFeeBasisPoints <= 0 || cfg.Router.MaxFeeBasisPoints > 10000 {
		return fmt.Errorf("router.max_fee_basis_points out of range: %d", cfg.Router.MaxFeeBasisPoints)
	}
	if cfg.Router.FeeBasisPoints < 0 || cfg.Router.FeeBasisPoints > cfg.Router.MaxFeeBasisPoints {
		return fmt.Errorf("router.fee_basis_points %d exceeds ceiling %d",
			cfg.Router.FeeBasisPoints, cfg.Router.MaxFeeBasisPoints)
	}
	return nil
}
