package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	Service  ServiceConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Cron     CronConfig
	GCP      GCPConfig
	Storage  StorageConfig
	Sendgrid SendgridConfig
	Features FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Cron.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"DIVIDIFY_APP_ENV" required:"true"`
	Port         string   `envconfig:"DIVIDIFY_APP_PORT" default:"8080"`
	LogLevel     string   `envconfig:"DIVIDIFY_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"DIVIDIFY_LOG_WARN_STACK" default:"false"`
	LogFormat    string   `envconfig:"DIVIDIFY_LOG_FORMAT" default:"json"`
	CORSOrigins  []string `envconfig:"DIVIDIFY_CORS_ORIGINS" default:"http://localhost:3000"`
}

// ConsoleLogs reports whether logs should be rendered for humans instead of JSON.
func (a AppConfig) ConsoleLogs() bool {
	return strings.EqualFold(a.LogFormat, "console")
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"DIVIDIFY_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"DIVIDIFY_DB_DSN"`
	Driver string `envconfig:"DIVIDIFY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"DIVIDIFY_DB_HOST"`
	LegacyPort     int    `envconfig:"DIVIDIFY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"DIVIDIFY_DB_USER"`
	LegacyPassword string `envconfig:"DIVIDIFY_DB_PASSWORD"`
	LegacyName     string `envconfig:"DIVIDIFY_DB_NAME"`
	LegacySSLMode  string `envconfig:"DIVIDIFY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"DIVIDIFY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DIVIDIFY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DIVIDIFY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DIVIDIFY_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"DIVIDIFY_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"DIVIDIFY_REDIS_URL"`
	Address      string        `envconfig:"DIVIDIFY_REDIS_ADDR"`
	Password     string        `envconfig:"DIVIDIFY_REDIS_PASSWORD"`
	DB           int           `envconfig:"DIVIDIFY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DIVIDIFY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"DIVIDIFY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DIVIDIFY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DIVIDIFY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DIVIDIFY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string        `envconfig:"DIVIDIFY_JWT_SECRET" required:"true"`
	Issuer            string        `envconfig:"DIVIDIFY_JWT_ISSUER" default:"dividify"`
	Audience          string        `envconfig:"DIVIDIFY_JWT_AUDIENCE"`
	Leeway            time.Duration `envconfig:"DIVIDIFY_JWT_LEEWAY" default:"30s"`
	ExpirationMinutes int           `envconfig:"DIVIDIFY_JWT_EXPIRATION_MINUTES" default:"60"`
}

// CronConfig drives the scheduled dividend batch, whichever trigger starts it.
type CronConfig struct {
	Secret                 string        `envconfig:"DIVIDIFY_CRON_SECRET" required:"true"`
	Spec                   string        `envconfig:"DIVIDIFY_CRON_SPEC" default:"0 6 * * *"`
	LockTTL                time.Duration `envconfig:"DIVIDIFY_CRON_LOCK_TTL" default:"30m"`
	LeaseTTL               time.Duration `envconfig:"DIVIDIFY_CRON_SCHEDULE_LEASE_TTL" default:"10m"`
	Concurrency            int           `envconfig:"DIVIDIFY_CRON_CONCURRENCY" default:"1"`
	MaxConsecutiveFailures int           `envconfig:"DIVIDIFY_CRON_MAX_CONSECUTIVE_FAILURES" default:"5"`
	TriggerRateLimit       int           `envconfig:"DIVIDIFY_CRON_TRIGGER_RATE_LIMIT" default:"10"`
	TriggerRateWindow      time.Duration `envconfig:"DIVIDIFY_CRON_TRIGGER_RATE_WINDOW" default:"1m"`

	// MetricsAddr is where the worker serves /metrics. Empty disables the listener.
	MetricsAddr string `envconfig:"DIVIDIFY_CRON_METRICS_ADDR" default:":9090"`
}

func (c CronConfig) validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("%s must be at least 1", EnvCronConcurrency)
	}
	if c.MaxConsecutiveFailures < 0 {
		return fmt.Errorf("%s must not be negative", EnvCronMaxFailures)
	}
	return nil
}

type GCPConfig struct {
	ProjectID              string `envconfig:"DIVIDIFY_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"DIVIDIFY_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"DIVIDIFY_GOOGLE_APPLICATION_CREDENTIALS"`
}

// StorageConfig names the two buckets documents are written to.
type StorageConfig struct {
	VouchersBucket string `envconfig:"DIVIDIFY_STORAGE_VOUCHERS_BUCKET" default:"dividend-vouchers"`
	MinutesBucket  string `envconfig:"DIVIDIFY_STORAGE_MINUTES_BUCKET" default:"board-minutes"`
}

type SendgridConfig struct {
	APIKey   string `envconfig:"DIVIDIFY_SENDGRID_API_KEY"`
	From     string `envconfig:"DIVIDIFY_SENDGRID_FROM_EMAIL" default:"no-reply@dividify.co.uk"`
	FromName string `envconfig:"DIVIDIFY_SENDGRID_FROM_NAME" default:"Dividify"`
}

// Enabled reports whether outbound email is configured.
func (s SendgridConfig) Enabled() bool {
	return strings.TrimSpace(s.APIKey) != ""
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"DIVIDIFY_AUTO_MIGRATE" default:"false"`
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
