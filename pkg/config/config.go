package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App           AppConfig
	Catalog       CatalogConfig
	Cart          CartConfig
	Session       SessionConfig
	Checkout      CheckoutConfig
	Currency      CurrencyConfig
	Redis         RedisConfig
	DB            DBConfig
	AuthRateLimit AuthRateLimitConfig
	CORS          CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"STOREFRONT_LOG_FORMAT" default:"json"`
	AutoMigrate  bool   `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type CatalogConfig struct {
	BaseURL  string        `envconfig:"STOREFRONT_CATALOG_BASE_URL" default:"https://fakestoreapi.com"`
	Timeout  time.Duration `envconfig:"STOREFRONT_CATALOG_TIMEOUT" default:"10s"`
	CacheTTL time.Duration `envconfig:"STOREFRONT_CATALOG_CACHE_TTL" default:"5m"`
}

type CartConfig struct {
	StoreDriver string        `envconfig:"STOREFRONT_CART_STORE" default:"file"`
	Key         string        `envconfig:"STOREFRONT_CART_KEY" default:"cart"`
	FileDir     string        `envconfig:"STOREFRONT_CART_FILE_DIR" default:".storefront/carts"`
	SnapshotTTL time.Duration `envconfig:"STOREFRONT_CART_SNAPSHOT_TTL" default:"0"`
}

type SessionConfig struct {
	StoreDriver string        `envconfig:"STOREFRONT_SESSION_STORE" default:"memory"`
	TTL         time.Duration `envconfig:"STOREFRONT_SESSION_TTL" default:"24h"`
}

type CheckoutConfig struct {
	Delay time.Duration `envconfig:"STOREFRONT_CHECKOUT_DELAY" default:"1500ms"`
}

type CurrencyConfig struct {
	USDToINRRate      decimal.Decimal `envconfig:"STOREFRONT_USD_TO_INR_RATE" default:"83.5"`
	INRFractionDigits int             `envconfig:"STOREFRONT_INR_FRACTION_DIGITS" default:"0"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	Namespace    string        `envconfig:"STOREFRONT_REDIS_NAMESPACE" default:"sf"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether any redis endpoint has been configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type DBConfig struct {
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"sqlite"`
	DSN    string `envconfig:"STOREFRONT_DB_DSN"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// Enabled reports whether a database DSN has been supplied.
func (d DBConfig) Enabled() bool {
	return strings.TrimSpace(d.DSN) != ""
}

type AuthRateLimitConfig struct {
	LoginWindow  time.Duration `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginIPLimit int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"STOREFRONT_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`
}

func (c *Config) validate() error {
	c.Cart.StoreDriver = strings.ToLower(strings.TrimSpace(c.Cart.StoreDriver))
	switch c.Cart.StoreDriver {
	case CartStoreMemory, CartStoreFile:
	case CartStoreRedis:
		if !c.Redis.Enabled() {
			return fmt.Errorf("%s=%s requires %s or %s", EnvCartStore, CartStoreRedis, EnvRedisURL, EnvRedisAddr)
		}
	case CartStoreSQL:
		if !c.DB.Enabled() {
			return fmt.Errorf("%s=%s requires %s", EnvCartStore, CartStoreSQL, EnvDBDSN)
		}
	default:
		return fmt.Errorf("unsupported %s %q", EnvCartStore, c.Cart.StoreDriver)
	}

	c.Session.StoreDriver = strings.ToLower(strings.TrimSpace(c.Session.StoreDriver))
	switch c.Session.StoreDriver {
	case SessionStoreMemory:
	case SessionStoreRedis:
		if !c.Redis.Enabled() {
			return fmt.Errorf("%s=%s requires %s or %s", EnvSessionStore, SessionStoreRedis, EnvRedisURL, EnvRedisAddr)
		}
	default:
		return fmt.Errorf("unsupported %s %q", EnvSessionStore, c.Session.StoreDriver)
	}

	c.DB.Driver = strings.ToLower(strings.TrimSpace(c.DB.Driver))
	if c.DB.Driver != DBDriverPostgres && c.DB.Driver != DBDriverSQLite {
		return fmt.Errorf("unsupported %s %q", EnvDBDriver, c.DB.Driver)
	}

	if strings.TrimSpace(c.Cart.Key) == "" {
		return fmt.Errorf("%s must not be empty", EnvCartKey)
	}
	if !c.Currency.USDToINRRate.IsPositive() {
		return fmt.Errorf("%s must be positive", EnvUSDToINRRate)
	}
	if c.Currency.INRFractionDigits < 0 {
		return fmt.Errorf("%s must not be negative", EnvINRFractionDigits)
	}
	if c.Checkout.Delay < 0 {
		return fmt.Errorf("%s must not be negative", EnvCheckoutDelay)
	}
	return nil
}
