package config

// EnvPrefix is passed to envconfig; individual struct tags carry the full
// variable names so the prefix stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv       = "INVENTORY_APP_ENV"
	EnvPort         = "INVENTORY_APP_PORT"
	EnvDBDSN        = "INVENTORY_DB_DSN"
	EnvDBHost       = "INVENTORY_DB_HOST"
	EnvDBUser       = "INVENTORY_DB_USER"
	EnvDBName       = "INVENTORY_DB_NAME"
	EnvRedisURL     = "INVENTORY_REDIS_URL"
	EnvGCPProjectID = "INVENTORY_GCP_PROJECT_ID"
	EnvPubSubTopic  = "INVENTORY_PUBSUB_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
