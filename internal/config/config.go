package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/Skotchmaster/storefront/internal/assets"
	pkgcfg "github.com/Skotchmaster/storefront/pkg/config"
)

type Config struct {
	ServerPort  string
	DatabaseURL string
	LogLevel    string

	JWTAccessSecret  []byte
	JWTRefreshSecret []byte
	ResetTokenTTL    time.Duration
	GoogleClientID   string

	CORSOrigins []string
	CSRFEnabled bool

	ShopName    string
	FrontendURL string
	BackendURL  string
	AdminEmail  string

	Mail   MailConfig
	Notify NotifyConfig
	Assets assets.Config

	KafkaBrokers []string

	SearchBackend string
	ESURL         string
	ESUser        string
	ESPassword    string
	ESIndex       string
}

type MailConfig struct {
	Transport string // log | smtp | amqp
	Server    string
	Port      int
	Username  string
	Password  string
	From      string
	StartTLS  bool
	AMQPURL   string
	AMQPQueue string
}

type NotifyConfig struct {
	CustomerInterval time.Duration
	AdminInterval    time.Duration
	QueueSize        int
}

// LoadDotEnv reads .env when present. Variables already set win.
func LoadDotEnv(logger *slog.Logger) {
	if err := godotenv.Load(".env"); err != nil {
		logger.Debug("no .env file, using process environment", "error", err)
	}
}

func Load() Config {
	return Config{
		ServerPort:  pkgcfg.EnvDefault("SERVER_PORT", "8080"),
		DatabaseURL: pkgcfg.EnvDefault("DATABASE_URL", ""),
		LogLevel:    pkgcfg.EnvDefault("LOG_LEVEL", "info"),

		JWTAccessSecret:  []byte(pkgcfg.EnvDefault("JWT_SECRET", "")),
		JWTRefreshSecret: []byte(pkgcfg.EnvDefault("JWT_REFRESH_SECRET", "")),
		ResetTokenTTL:    pkgcfg.EnvDurationDefault("RESET_TOKEN_TTL", time.Hour),
		GoogleClientID:   pkgcfg.EnvDefault("GOOGLE_CLIENT_ID", ""),

		CORSOrigins: pkgcfg.CSV(pkgcfg.EnvDefault("CORS_ORIGINS", "")),
		CSRFEnabled: pkgcfg.EnvBoolDefault("CSRF_ENABLED", false),

		ShopName:    pkgcfg.EnvDefault("SHOP_NAME", "The Outfit Oracle"),
		FrontendURL: strings.TrimRight(pkgcfg.EnvDefault("FRONTEND_URL", "http://localhost:5173"), "/"),
		BackendURL:  strings.TrimRight(pkgcfg.EnvDefault("BACKEND_URL", "http://localhost:8080"), "/"),
		AdminEmail:  pkgcfg.EnvDefault("ADMIN_EMAIL", ""),

		Mail: MailConfig{
			Transport: strings.ToLower(pkgcfg.EnvDefault("MAIL_TRANSPORT", "log")),
			Server:    pkgcfg.EnvDefault("MAIL_SERVER", ""),
			Port:      pkgcfg.EnvIntDefault("MAIL_PORT", 587),
			Username:  pkgcfg.EnvDefault("MAIL_USERNAME", ""),
			Password:  pkgcfg.EnvDefault("MAIL_PASSWORD", ""),
			From:      pkgcfg.EnvDefault("MAIL_FROM", ""),
			StartTLS:  pkgcfg.EnvBoolDefault("MAIL_STARTTLS", true),
			AMQPURL:   pkgcfg.EnvDefault("AMQP_URL", ""),
			AMQPQueue: pkgcfg.EnvDefault("AMQP_MAIL_QUEUE", "mail"),
		},
		Notify: NotifyConfig{
			CustomerInterval: pkgcfg.EnvDurationDefault("NOTIFY_CUSTOMER_INTERVAL", time.Second),
			AdminInterval:    pkgcfg.EnvDurationDefault("NOTIFY_ADMIN_INTERVAL", 10*time.Second),
			QueueSize:        pkgcfg.EnvIntDefault("NOTIFY_QUEUE_SIZE", 256),
		},
		Assets: assets.Config{
			Backend:      strings.ToLower(pkgcfg.EnvDefault("ASSET_BACKEND", "local")),
			UploadsDir:   pkgcfg.EnvDefault("UPLOADS_DIR", assets.DefaultUploadsDir),
			PublicPrefix: pkgcfg.EnvDefault("UPLOADS_PUBLIC_PREFIX", assets.DefaultPublicPrefix),
			MaxWidth:     uint(max(pkgcfg.EnvIntDefault("IMAGE_MAX_WIDTH", 0), 0)),
			Minio: assets.MinioConfig{
				Endpoint:  pkgcfg.EnvDefault("MINIO_ENDPOINT", ""),
				AccessKey: pkgcfg.EnvDefault("MINIO_ACCESS_KEY", ""),
				SecretKey: pkgcfg.EnvDefault("MINIO_SECRET_KEY", ""),
				Bucket:    pkgcfg.EnvDefault("MINIO_BUCKET", ""),
				UseSSL:    pkgcfg.EnvBoolDefault("MINIO_USE_SSL", false),
			},
			MinioPublicURL: pkgcfg.EnvDefault("MINIO_PUBLIC_URL", ""),
			GCS: assets.GCSConfig{
				Bucket:          pkgcfg.EnvDefault("GCS_BUCKET", ""),
				ProjectID:       pkgcfg.EnvDefault("GCS_PROJECT_ID", ""),
				CredentialsFile: pkgcfg.EnvDefault("GCS_CREDENTIALS_FILE", ""),
			},
			GCSPublicURL: pkgcfg.EnvDefault("GCS_PUBLIC_URL", ""),
		},

		KafkaBrokers: pkgcfg.CSV(pkgcfg.EnvDefault("KAFKA_BROKERS", "")),

		SearchBackend: strings.ToLower(pkgcfg.EnvDefault("SEARCH_BACKEND", "db")),
		ESURL:         pkgcfg.EnvDefault("ES_URL", ""),
		ESUser:        pkgcfg.EnvDefault("ES_USER", ""),
		ESPassword:    pkgcfg.EnvDefault("ES_PASSWORD", ""),
		ESIndex:       pkgcfg.EnvDefault("ES_INDEX", "products"),
	}
}

// MustServe exits when settings required by the HTTP server are missing.
func (c Config) MustServe() {
	pkgcfg.MustNonEmpty(c.DatabaseURL, "DATABASE_URL")
	pkgcfg.MustNonEmptyBytes(c.JWTAccessSecret, "JWT_SECRET")
	pkgcfg.MustNonEmptyBytes(c.JWTRefreshSecret, "JWT_REFRESH_SECRET")
	pkgcfg.MustOneOf(c.Mail.Transport, "MAIL_TRANSPORT", "log", "smtp", "amqp")
	pkgcfg.MustOneOf(c.Assets.Backend, "ASSET_BACKEND", "local", "minio", "gcs")
	pkgcfg.MustOneOf(c.SearchBackend, "SEARCH_BACKEND", "db", "elasticsearch")
}
