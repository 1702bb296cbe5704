package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	// EnvPrefix namespaces every environment variable the service reads.
	EnvPrefix = "LEADHIVE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "LEADHIVE_DB_DSN"
	EnvDBHost = "LEADHIVE_DB_HOST"
	EnvDBUser = "LEADHIVE_DB_USER"
	EnvDBName = "LEADHIVE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Marketplace  MarketplaceConfig
	CRM          CRMConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Marketplace.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"LEADHIVE_APP_ENV" required:"true"`
	Port         string `envconfig:"LEADHIVE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"LEADHIVE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LEADHIVE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"LEADHIVE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"LEADHIVE_DB_DSN"`
	Driver string `envconfig:"LEADHIVE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"LEADHIVE_DB_HOST"`
	LegacyPort     int    `envconfig:"LEADHIVE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LEADHIVE_DB_USER"`
	LegacyPassword string `envconfig:"LEADHIVE_DB_PASSWORD"`
	LegacyName     string `envconfig:"LEADHIVE_DB_NAME"`
	LegacySSLMode  string `envconfig:"LEADHIVE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LEADHIVE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LEADHIVE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LEADHIVE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LEADHIVE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LEADHIVE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"LEADHIVE_REDIS_ADDR"`
	Password     string        `envconfig:"LEADHIVE_REDIS_PASSWORD"`
	DB           int           `envconfig:"LEADHIVE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LEADHIVE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LEADHIVE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LEADHIVE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LEADHIVE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LEADHIVE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"LEADHIVE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"LEADHIVE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"LEADHIVE_JWT_EXPIRATION_MINUTES" default:"60"`
}

// MarketplaceConfig tunes the purchase ledger and lead lifecycle.
type MarketplaceConfig struct {
	// LeadPrice is the flat price charged when a lead carries no price of its own.
	LeadPrice string `envconfig:"LEADHIVE_LEAD_PRICE" default:"20.00"`
	// VendorTypeLimit caps purchases of one lead by accounts sharing a vendor type.
	VendorTypeLimit int `envconfig:"LEADHIVE_VENDOR_TYPE_LIMIT" default:"5"`
	// FeedbackReward is the fixed credit granted once per purchased lead.
	FeedbackReward string `envconfig:"LEADHIVE_FEEDBACK_REWARD" default:"2.00"`

	FeedbackRateLimit  int           `envconfig:"LEADHIVE_FEEDBACK_RATE_LIMIT" default:"10"`
	FeedbackRateWindow time.Duration `envconfig:"LEADHIVE_FEEDBACK_RATE_WINDOW" default:"1h"`

	// LeadTTL is how long a lead stays purchasable before the expiry job retires it.
	LeadTTL time.Duration `envconfig:"LEADHIVE_LEAD_TTL" default:"720h"`

	leadPrice      decimal.Decimal
	feedbackReward decimal.Decimal
}

func (m *MarketplaceConfig) normalize() error {
	price, err := decimal.NewFromString(strings.TrimSpace(m.LeadPrice))
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", "LEADHIVE_LEAD_PRICE", m.LeadPrice, err)
	}
	if price.IsNegative() {
		return fmt.Errorf("LEADHIVE_LEAD_PRICE must not be negative")
	}
	reward, err := decimal.NewFromString(strings.TrimSpace(m.FeedbackReward))
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", "LEADHIVE_FEEDBACK_REWARD", m.FeedbackReward, err)
	}
	if reward.IsNegative() {
		return fmt.Errorf("LEADHIVE_FEEDBACK_REWARD must not be negative")
	}
	if m.VendorTypeLimit <= 0 {
		return fmt.Errorf("LEADHIVE_VENDOR_TYPE_LIMIT must be positive")
	}
	m.leadPrice = price
	m.feedbackReward = reward
	return nil
}

// LeadPriceAmount returns the parsed flat lead price.
func (m MarketplaceConfig) LeadPriceAmount() decimal.Decimal {
	return m.leadPrice
}

// FeedbackRewardAmount returns the parsed feedback reward credit.
func (m MarketplaceConfig) FeedbackRewardAmount() decimal.Decimal {
	return m.feedbackReward
}

// CRMConfig configures the outbound lead-sync integration.
type CRMConfig struct {
	BaseURL      string        `envconfig:"LEADHIVE_CRM_BASE_URL"`
	APIToken     string        `envconfig:"LEADHIVE_CRM_API_TOKEN"`
	SyncInterval time.Duration `envconfig:"LEADHIVE_CRM_SYNC_INTERVAL" default:"15m"`
	HTTPTimeout  time.Duration `envconfig:"LEADHIVE_CRM_HTTP_TIMEOUT" default:"10s"`
	MaxRetries   int           `envconfig:"LEADHIVE_CRM_MAX_RETRIES" default:"3"`
}

// Enabled reports whether the CRM integration is configured.
func (c CRMConfig) Enabled() bool {
	return strings.TrimSpace(c.BaseURL) != "" && strings.TrimSpace(c.APIToken) != ""
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"LEADHIVE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"LEADHIVE_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
