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
	JWT           JWTConfig
	SystemAuth    SystemAuthConfig
	CORS          CORSConfig
	RateLimit     RateLimitConfig
	Notifications NotificationsConfig
	Cleanup       CleanupConfig
	Storage       StorageConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	BigQuery      BigQueryConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Storage.validate(); err != nil {
		return nil, err
	}
	if cfg.FeatureFlags.PubSub || cfg.FeatureFlags.BigQuery {
		if strings.TrimSpace(cfg.GCP.ProjectID) == "" {
			return nil, fmt.Errorf("%s is required when pubsub or bigquery is enabled", EnvGCPProjectID)
		}
	}
	return &cfg, nil
}

type AppConfig struct {
	Env           string `envconfig:"HATCHERY_APP_ENV" required:"true"`
	Port          string `envconfig:"HATCHERY_APP_PORT" required:"true"`
	LogLevel      string `envconfig:"HATCHERY_LOG_LEVEL" default:"info"`
	LogWarnStack  bool   `envconfig:"HATCHERY_LOG_WARN_STACK" default:"false"`
	LogFile       string `envconfig:"HATCHERY_LOG_FILE"`
	LogMaxSizeMB  int    `envconfig:"HATCHERY_LOG_MAX_SIZE_MB" default:"100"`
	LogMaxBackups int    `envconfig:"HATCHERY_LOG_MAX_BACKUPS" default:"5"`
	LogMaxAgeDays int    `envconfig:"HATCHERY_LOG_MAX_AGE_DAYS" default:"14"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"HATCHERY_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"HATCHERY_DB_DSN"`
	Driver string `envconfig:"HATCHERY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"HATCHERY_DB_HOST"`
	LegacyPort     int    `envconfig:"HATCHERY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"HATCHERY_DB_USER"`
	LegacyPassword string `envconfig:"HATCHERY_DB_PASSWORD"`
	LegacyName     string `envconfig:"HATCHERY_DB_NAME"`
	LegacySSLMode  string `envconfig:"HATCHERY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"HATCHERY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"HATCHERY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"HATCHERY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"HATCHERY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the local sqlite driver was selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"HATCHERY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"HATCHERY_REDIS_ADDR"`
	Password     string        `envconfig:"HATCHERY_REDIS_PASSWORD"`
	DB           int           `envconfig:"HATCHERY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"HATCHERY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"HATCHERY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"HATCHERY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"HATCHERY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"HATCHERY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig verifies tokens minted by the auth service.
type JWTConfig struct {
	Secret string `envconfig:"HATCHERY_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"HATCHERY_JWT_ISSUER" required:"true"`

	AccessTokenTTL time.Duration `envconfig:"HATCHERY_JWT_ACCESS_TOKEN_TTL" default:"60m"`
	ClockSkew      time.Duration `envconfig:"HATCHERY_JWT_CLOCK_SKEW" default:"30s"`
}

// SystemAuthConfig guards the system-only create endpoint.
type SystemAuthConfig struct {
	APIKey string `envconfig:"HATCHERY_SYSTEM_API_KEY"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"HATCHERY_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000,http://localhost:19006"`
}

// RateLimitConfig throttles the write endpoints per caller.
type RateLimitConfig struct {
	Window         time.Duration `envconfig:"HATCHERY_RATE_LIMIT_WINDOW" default:"1m"`
	BroadcastLimit int           `envconfig:"HATCHERY_RATE_LIMIT_BROADCAST" default:"20"`
	CreateLimit    int           `envconfig:"HATCHERY_RATE_LIMIT_CREATE" default:"600"`
}

type NotificationsConfig struct {
	ListLimit      int           `envconfig:"HATCHERY_NOTIFICATIONS_LIST_LIMIT" default:"200"`
	HistoryLimit   int           `envconfig:"HATCHERY_NOTIFICATIONS_HISTORY_LIMIT" default:"50"`
	StoryTTL       time.Duration `envconfig:"HATCHERY_NOTIFICATIONS_STORY_TTL" default:"24h"`
	MediaMessage   string        `envconfig:"HATCHERY_NOTIFICATIONS_MEDIA_MESSAGE" default:"Media shared"`
	MaxFiles       int           `envconfig:"HATCHERY_NOTIFICATIONS_MAX_FILES" default:"5"`
	MaxUploadMB    int           `envconfig:"HATCHERY_NOTIFICATIONS_MAX_UPLOAD_MB" default:"25"`
	PushTimeout    time.Duration `envconfig:"HATCHERY_NOTIFICATIONS_PUSH_TIMEOUT" default:"5s"`
	ChannelPrefix  string        `envconfig:"HATCHERY_NOTIFICATIONS_CHANNEL_PREFIX" default:"notifications"`
	StreamPingTick time.Duration `envconfig:"HATCHERY_NOTIFICATIONS_STREAM_PING" default:"25s"`
}

type CleanupConfig struct {
	RetentionDays int           `envconfig:"HATCHERY_CLEANUP_RETENTION_DAYS" default:"10"`
	FullSchedule  string        `envconfig:"HATCHERY_CLEANUP_FULL_SCHEDULE" default:"0 2 * * *"`
	StorySchedule string        `envconfig:"HATCHERY_CLEANUP_STORY_SCHEDULE" default:"0 */6 * * *"`
	LockTTL       time.Duration `envconfig:"HATCHERY_CLEANUP_LOCK_TTL" default:"30m"`
	RunOnStart    bool          `envconfig:"HATCHERY_CLEANUP_RUN_ON_START" default:"false"`
	Timezone      string        `envconfig:"HATCHERY_CLEANUP_TIMEZONE" default:"UTC"`
}

// Retention returns the configured retention window.
func (c CleanupConfig) Retention() time.Duration {
	if c.RetentionDays <= 0 {
		return 0
	}
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

type StorageConfig struct {
	Driver        string `envconfig:"HATCHERY_STORAGE_DRIVER" default:"none"`
	Bucket        string `envconfig:"HATCHERY_STORAGE_BUCKET"`
	Prefix        string `envconfig:"HATCHERY_STORAGE_PREFIX" default:"notifications/"`
	PublicBaseURL string `envconfig:"HATCHERY_STORAGE_PUBLIC_BASE_URL"`
	S3Region      string `envconfig:"HATCHERY_STORAGE_S3_REGION" default:"us-east-1"`
	S3Endpoint    string `envconfig:"HATCHERY_STORAGE_S3_ENDPOINT"`
}

func (s StorageConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(s.Driver)) {
	case "", StorageDriverNone:
		return nil
	case StorageDriverGCS, StorageDriverS3:
		if strings.TrimSpace(s.Bucket) == "" {
			return fmt.Errorf("%s is required for storage driver %q", EnvStorageBucket, s.Driver)
		}
		return nil
	default:
		return fmt.Errorf("unsupported storage driver %q", s.Driver)
	}
}

type GCPConfig struct {
	ProjectID              string `envconfig:"HATCHERY_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"HATCHERY_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"HATCHERY_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	NotificationRequestSubscription string        `envconfig:"HATCHERY_PUBSUB_NOTIFICATION_REQUEST_SUBSCRIPTION" default:"hb-notification-requests-sub"`
	BroadcastTopic                  string        `envconfig:"HATCHERY_PUBSUB_BROADCAST_TOPIC" default:"hb-notification-broadcasts"`
	IdempotencyTTL                  time.Duration `envconfig:"HATCHERY_PUBSUB_IDEMPOTENCY_TTL" default:"168h"`
}

type BigQueryConfig struct {
	Dataset        string `envconfig:"HATCHERY_BIGQUERY_DATASET" default:"hatchery"`
	SweepTable     string `envconfig:"HATCHERY_BIGQUERY_SWEEP_TABLE" default:"notification_sweeps"`
	BroadcastTable string `envconfig:"HATCHERY_BIGQUERY_BROADCAST_TABLE" default:"notification_broadcasts"`
	CreateTables   bool   `envconfig:"HATCHERY_BIGQUERY_CREATE_TABLES" default:"false"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"HATCHERY_AUTO_MIGRATE" default:"false"`
	PubSub      bool `envconfig:"HATCHERY_FEATURE_PUBSUB" default:"false"`
	BigQuery    bool `envconfig:"HATCHERY_FEATURE_BIGQUERY" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = "file:hatchery.db?cache=shared"
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
