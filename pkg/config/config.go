package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	FeatureFlags  FeatureFlagsConfig
	Eventing      EventingConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	BigQuery      BigQueryConfig
	Outbox        OutboxConfig
	Inventory     InventoryConfig
	Notifications NotificationsConfig
	Analytics     AnalyticsConfig
	Cron          CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Inventory.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOCKLEDGER_APP_ENV" required:"true"`
	Port         string `envconfig:"STOCKLEDGER_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"STOCKLEDGER_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"STOCKLEDGER_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"STOCKLEDGER_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"STOCKLEDGER_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"STOCKLEDGER_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"STOCKLEDGER_DB_DSN"`
	Driver string `envconfig:"STOCKLEDGER_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STOCKLEDGER_DB_HOST"`
	LegacyPort     int    `envconfig:"STOCKLEDGER_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOCKLEDGER_DB_USER"`
	LegacyPassword string `envconfig:"STOCKLEDGER_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOCKLEDGER_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOCKLEDGER_DB_SSLMODE" default:"disable"`

	MaxOpenConns       int           `envconfig:"STOCKLEDGER_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns       int           `envconfig:"STOCKLEDGER_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime    time.Duration `envconfig:"STOCKLEDGER_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime    time.Duration `envconfig:"STOCKLEDGER_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	LockTimeout        time.Duration `envconfig:"STOCKLEDGER_DB_LOCK_TIMEOUT" default:"5s"`
	SlowQueryThreshold time.Duration `envconfig:"STOCKLEDGER_DB_SLOW_QUERY_THRESHOLD" default:"250ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOCKLEDGER_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STOCKLEDGER_REDIS_ADDR"`
	Password     string        `envconfig:"STOCKLEDGER_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOCKLEDGER_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOCKLEDGER_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOCKLEDGER_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOCKLEDGER_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOCKLEDGER_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOCKLEDGER_REDIS_WRITE_TIMEOUT" default:"5s"`
	KeyPrefix    string        `envconfig:"STOCKLEDGER_REDIS_KEY_PREFIX" default:"sl"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"STOCKLEDGER_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"STOCKLEDGER_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"STOCKLEDGER_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
	HTTPIdempotencyTTL   time.Duration `envconfig:"STOCKLEDGER_HTTP_IDEMPOTENCY_TTL" default:"24h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"STOCKLEDGER_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"STOCKLEDGER_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"STOCKLEDGER_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	LedgerTopic              string `envconfig:"STOCKLEDGER_PUBSUB_LEDGER_TOPIC" default:"stockledger-ledger-events"`
	NotificationTopic        string `envconfig:"STOCKLEDGER_PUBSUB_NOTIFICATION_TOPIC" default:"stockledger-notification-events"`
	NotificationSubscription string `envconfig:"STOCKLEDGER_PUBSUB_NOTIFICATION_SUBSCRIPTION" default:"stockledger-notification-worker"`
	AnalyticsSubscription    string `envconfig:"STOCKLEDGER_PUBSUB_ANALYTICS_SUBSCRIPTION" default:"stockledger-analytics-worker"`
	OrderByAggregate         bool   `envconfig:"STOCKLEDGER_PUBSUB_ORDER_BY_AGGREGATE" default:"true"`
}

type BigQueryConfig struct {
	Dataset             string `envconfig:"STOCKLEDGER_BIGQUERY_DATASET" default:"stockledger"`
	StockMovementsTable string `envconfig:"STOCKLEDGER_BIGQUERY_STOCK_MOVEMENTS_TABLE" default:"stock_movements"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"STOCKLEDGER_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"STOCKLEDGER_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"STOCKLEDGER_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// InventoryConfig holds the defaults applied when a record is created and the
// knobs used by the threshold evaluator.
type InventoryConfig struct {
	DefaultLowStockThreshold int           `envconfig:"STOCKLEDGER_INVENTORY_DEFAULT_LOW_STOCK_THRESHOLD" default:"5"`
	SignalCooldown           time.Duration `envconfig:"STOCKLEDGER_INVENTORY_SIGNAL_COOLDOWN" default:"1h"`
	ReplenishmentCoverFactor string        `envconfig:"STOCKLEDGER_INVENTORY_REPLENISHMENT_COVER_FACTOR" default:"1.5"`
}

func (i InventoryConfig) validate() error {
	if i.DefaultLowStockThreshold < 0 {
		return fmt.Errorf("%s must be >= 0", EnvDefaultLowStockThreshold)
	}
	return nil
}

type NotificationsConfig struct {
	WebhookURL     string        `envconfig:"STOCKLEDGER_NOTIFICATIONS_WEBHOOK_URL"`
	WebhookSecret  string        `envconfig:"STOCKLEDGER_NOTIFICATIONS_WEBHOOK_SECRET"`
	WebhookTimeout time.Duration `envconfig:"STOCKLEDGER_NOTIFICATIONS_WEBHOOK_TIMEOUT" default:"5s"`
	WebhookRetries int           `envconfig:"STOCKLEDGER_NOTIFICATIONS_WEBHOOK_RETRIES" default:"2"`
}

type AnalyticsConfig struct {
	CounterTTL time.Duration `envconfig:"STOCKLEDGER_ANALYTICS_COUNTER_TTL" default:"1440h"`
	BatchSize  int           `envconfig:"STOCKLEDGER_ANALYTICS_BATCH_SIZE" default:"25"`
	Linger     time.Duration `envconfig:"STOCKLEDGER_ANALYTICS_LINGER" default:"1s"`
}

type CronConfig struct {
	Schedule            string        `envconfig:"STOCKLEDGER_CRON_SCHEDULE" default:"@every 15m"`
	LockTTL             time.Duration `envconfig:"STOCKLEDGER_CRON_LOCK_TTL" default:"10m"`
	OutboxRetention     time.Duration `envconfig:"STOCKLEDGER_CRON_OUTBOX_RETENTION" default:"720h"`
	DeadLetterRetention time.Duration `envconfig:"STOCKLEDGER_CRON_DEAD_LETTER_RETENTION" default:"2160h"`
	NotificationTTL     time.Duration `envconfig:"STOCKLEDGER_CRON_NOTIFICATION_TTL" default:"2160h"`

	// Jobs limits the cron worker to the named jobs; empty runs all of them.
	Jobs []string `envconfig:"STOCKLEDGER_CRON_JOBS"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" {
		return nil
	}
	if useSQLite {
		db.DSN = "file:stockledger.db?cache=shared"
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
