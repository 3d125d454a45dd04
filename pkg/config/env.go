package config

const (
	EnvPrefix = "STOCKLEDGER"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv                   = "STOCKLEDGER_APP_ENV"
	EnvPort                     = "STOCKLEDGER_APP_PORT"
	EnvRedisURL                 = "STOCKLEDGER_REDIS_URL"
	EnvDBDSN                    = "STOCKLEDGER_DB_DSN"
	EnvDBHost                   = "STOCKLEDGER_DB_HOST"
	EnvDBUser                   = "STOCKLEDGER_DB_USER"
	EnvDBName                   = "STOCKLEDGER_DB_NAME"
	EnvUseSQLite                = "STOCKLEDGER_USE_SQLITE"
	EnvDefaultLowStockThreshold = "STOCKLEDGER_INVENTORY_DEFAULT_LOW_STOCK_THRESHOLD"
	EnvCronSchedule             = "STOCKLEDGER_CRON_SCHEDULE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
