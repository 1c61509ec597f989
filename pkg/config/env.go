package config

// EnvPrefix is handed to envconfig; every field carries an explicit name so it only
// matters for envconfig's usage output.
const EnvPrefix = "DIVIDIFY"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv          = "DIVIDIFY_APP_ENV"
	EnvPort            = "DIVIDIFY_APP_PORT"
	EnvDBDSN           = "DIVIDIFY_DB_DSN"
	EnvDBHost          = "DIVIDIFY_DB_HOST"
	EnvDBUser          = "DIVIDIFY_DB_USER"
	EnvDBName          = "DIVIDIFY_DB_NAME"
	EnvRedisURL        = "DIVIDIFY_REDIS_URL"
	EnvJWTSecret       = "DIVIDIFY_JWT_SECRET"
	EnvCronSecret      = "DIVIDIFY_CRON_SECRET"
	EnvCronSpec        = "DIVIDIFY_CRON_SPEC"
	EnvCronConcurrency = "DIVIDIFY_CRON_CONCURRENCY"
	EnvCronMaxFailures = "DIVIDIFY_CRON_MAX_CONSECUTIVE_FAILURES"
	EnvVouchersBucket  = "DIVIDIFY_STORAGE_VOUCHERS_BUCKET"
	EnvSendgridAPIKey  = "DIVIDIFY_SENDGRID_API_KEY"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
