package config

// EnvPrefix is handed to envconfig; every field carries its full variable name.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	CartStoreMemory = "memory"
	CartStoreFile   = "file"
	CartStoreRedis  = "redis"
	CartStoreSQL    = "sql"

	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv            = "STOREFRONT_APP_ENV"
	EnvPort              = "STOREFRONT_APP_PORT"
	EnvLogLevel          = "STOREFRONT_LOG_LEVEL"
	EnvCatalogBaseURL    = "STOREFRONT_CATALOG_BASE_URL"
	EnvCatalogTimeout    = "STOREFRONT_CATALOG_TIMEOUT"
	EnvCartStore         = "STOREFRONT_CART_STORE"
	EnvCartKey           = "STOREFRONT_CART_KEY"
	EnvCartFileDir       = "STOREFRONT_CART_FILE_DIR"
	EnvSessionStore      = "STOREFRONT_SESSION_STORE"
	EnvCheckoutDelay     = "STOREFRONT_CHECKOUT_DELAY"
	EnvUSDToINRRate      = "STOREFRONT_USD_TO_INR_RATE"
	EnvINRFractionDigits = "STOREFRONT_INR_FRACTION_DIGITS"
	EnvRedisURL          = "STOREFRONT_REDIS_URL"
	EnvRedisAddr         = "STOREFRONT_REDIS_ADDR"
	EnvDBDriver          = "STOREFRONT_DB_DRIVER"
	EnvDBDSN             = "STOREFRONT_DB_DSN"
	EnvCORSOrigins       = "STOREFRONT_CORS_ALLOWED_ORIGINS"
)
