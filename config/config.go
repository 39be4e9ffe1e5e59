package config


type AppConfig struct {
	RabbitMQURL string `env:"RABBITMQ_URL"`
}

type GraphConfig struct {
	BaseURL string `env:"GRAPH_BASE_URL" envDefault:"https://graph.microsoft.com/v1.0"`
	// Access token is supplied already refreshed; token acquisition lives
	// outside this service.
	AccessToken           string `env:"GRAPH_ACCESS_TOKEN"`
	RequestTimeoutSeconds int    `env:"GRAPH_REQUEST_TIMEOUT_SECONDS" envDefault:"30"`
	MaxRetries            int    `env:"GRAPH_MAX_RETRIES" envDefault:"3"`
	BatchFanOut           int    `env:"GRAPH_BATCH_FAN_OUT" envDefault:"4"`
	DriveBasePath         string `env:"GRAPH_DRIVE_BASE_PATH" envDefault:"mail-archive"`
}

type StorageConfig struct {
	LocalRoot     string `env:"LOCAL_ARCHIVE_ROOT" envDefault:"./archive"`
	RetentionDays int    `env:"LOCAL_ARCHIVE_RETENTION_DAYS" envDefault:"0"`
}

type AttachstackDatabaseConfig struct {
	Host            string `env:"ATTACHSTACK_POSTGRES_HOST"`
	Port            string `env:"ATTACHSTACK_POSTGRES_PORT" envDefault:"5432"`
	User            string `env:"ATTACHSTACK_POSTGRES_USER"`
	DBName          string `env:"ATTACHSTACK_POSTGRES_DB_NAME"`
	Password        string `env:"ATTACHSTACK_POSTGRES_PASSWORD"`
	MaxConn         int    `env:"ATTACHSTACK_POSTGRES_DB_MAX_CONN"`
	MaxIdleConn     int    `env:"ATTACHSTACK_POSTGRES_DB_MAX_IDLE_CONN"`
	ConnMaxLifetime int    `env:"ATTACHSTACK_POSTGRES_DB_CONN_MAX_LIFETIME"`
	LogLevel        string `env:"ATTACHSTACK_POSTGRES_LOG_LEVEL" envDefault:"WARN"`
	SSLMode         string `env:"ATTACHSTACK_POSTGRES_SSL_MODE"`
}

func (c *AttachstackDatabaseConfig) Configured() bool {
	return c.Host != ""
}

type R2StorageConfig struct {
	AccountID       string `env:"CLOUDFLARE_R2_ACCOUNT_ID"`
	AccessKeyID     string `env:"CLOUDFLARE_R2_ACCESS_KEY_ID"`
	AccessKeySecret string `env:"CLOUDFLARE_R2_ACCESS_KEY_SECRET"`
	ArchiveBucket   string `env:"BUCKET_NAME_MAIL_ARCHIVE" envDefault:"mail-archive"`
}

func (c *R2StorageConfig) Configured() bool {
	return c.AccountID != "" && c.AccessKeyID != ""
}
