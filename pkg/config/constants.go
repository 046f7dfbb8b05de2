package config

const (
	EnvPrefix = "HATCHERY"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv    = "HATCHERY_APP_ENV"
	EnvPort      = "HATCHERY_APP_PORT"
	EnvLogLevel  = "HATCHERY_LOG_LEVEL"
	EnvLogFile   = "HATCHERY_LOG_FILE"
	EnvDBDSN     = "HATCHERY_DB_DSN"
	EnvDBDriver  = "HATCHERY_DB_DRIVER"
	EnvDBHost    = "HATCHERY_DB_HOST"
	EnvDBUser    = "HATCHERY_DB_USER"
	EnvDBName    = "HATCHERY_DB_NAME"
	EnvRedisURL  = "HATCHERY_REDIS_URL"
	EnvJWTSecret = "HATCHERY_JWT_SECRET"
	EnvJWTIssuer = "HATCHERY_JWT_ISSUER"

	EnvSystemKey = "HATCHERY_SYSTEM_API_KEY"

	EnvStorageDriver = "HATCHERY_STORAGE_DRIVER"
	EnvStorageBucket = "HATCHERY_STORAGE_BUCKET"

	EnvCleanupRetentionDays = "HATCHERY_CLEANUP_RETENTION_DAYS"
	EnvCleanupFullSchedule  = "HATCHERY_CLEANUP_FULL_SCHEDULE"
	EnvCleanupStorySchedule = "HATCHERY_CLEANUP_STORY_SCHEDULE"

	EnvGCPProjectID = "HATCHERY_GCP_PROJECT_ID"
	EnvPubSubSub    = "HATCHERY_PUBSUB_NOTIFICATION_REQUEST_SUBSCRIPTION"
	EnvPubSubTopic  = "HATCHERY_PUBSUB_BROADCAST_TOPIC"
	EnvEnablePubSub = "HATCHERY_FEATURE_PUBSUB"
	EnvEnableBQ     = "HATCHERY_FEATURE_BIGQUERY"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

const (
	StorageDriverNone = "none"
	StorageDriverGCS  = "gcs"
	StorageDriverS3   = "s3"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)
