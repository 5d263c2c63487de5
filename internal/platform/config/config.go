// Package config loads process configuration from the environment. An
// optional .env file in the working directory is read first; real
// environment variables always win over it.
package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	strutil "supplierhub/pkg/platform/strings"
)

const (
	EnvLocal      = "local"
	EnvProduction = "production"

	defaultJWTSigningKey = "dev-secret-key-change-in-production"
	defaultEncryptionKey = "dev-field-encryption-key-change-me"
)

// Config is the full process configuration.
type Config struct {
	Environment string
	LogLevel    string
	Server      Server
	Auth        AuthConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	SMTP        SMTPConfig
	Captcha     CaptchaConfig
	Contact     ContactConfig
}

// IsLocal reports whether the process runs in a developer environment.
func (c Config) IsLocal() bool {
	return c.Environment == EnvLocal
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	MetricsEnabled  bool
}

// AuthConfig holds token and operator credentials.
type AuthConfig struct {
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
	// AdminAPIToken guards ops endpoints via X-Admin-Token. Empty disables them.
	AdminAPIToken string
}

// DatabaseConfig configures the Postgres pool. An empty URL selects in-memory stores.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig configures the Redis client. An empty URL disables Redis.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures event streaming. No brokers disables Kafka.
type KafkaConfig struct {
	Brokers           []string
	ClientID          string
	ContactTopic      string
	AuditTopic        string
	NotificationTopic string
	ConsumerGroup     string
	OutboxPollEvery   time.Duration
	OutboxBatchSize   int
}

// Enabled reports whether brokers are configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// SMTPConfig configures outbound mail. An empty Host selects the log sender.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	// AdminEmail receives moderation notices.
	AdminEmail string
}

// CaptchaConfig configures reCAPTCHA verification.
type CaptchaConfig struct {
	SecretKey string
	VerifyURL string
	MinScore  float64
	Timeout   time.Duration
}

// ContactConfig holds the contact brokering policy knobs.
type ContactConfig struct {
	// DefaultWeeklyLimit applies to buyers without a package.
	DefaultWeeklyLimit int
	QuotaPeriod        time.Duration
	RateLimitAttempts  int
	RateLimitWindow    time.Duration
	EncryptionKey      string
	// NotifyQueue selects the notification transport: memory, redis or kafka.
	NotifyQueue   string
	NotifyWorkers int
	FrontendURL   string
}

// FromEnv builds the configuration from environment variables so main stays lean.
func FromEnv() Config {
	// A missing .env is the normal case outside development.
	_ = godotenv.Load()

	return Config{
		Environment: getEnv("APP_ENV", EnvLocal),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Server: Server{
			Addr:            getEnv("SUPPLIERHUB_ADDR", ":8080"),
			RequestTimeout:  getDuration("REQUEST_TIMEOUT", 15*time.Second),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
			MetricsEnabled:  getBool("METRICS_ENABLED", true),
		},
		Auth: AuthConfig{
			JWTSigningKey: getEnv("JWT_SIGNING_KEY", defaultJWTSigningKey),
			JWTIssuer:     getEnv("JWT_ISSUER", "supplierhub"),
			JWTAudience:   getEnv("JWT_AUDIENCE", "supplierhub-api"),
			AdminAPIToken: os.Getenv("ADMIN_API_TOKEN"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:           getList("KAFKA_BROKERS"),
			ClientID:          getEnv("KAFKA_CLIENT_ID", "supplierhub"),
			ContactTopic:      getEnv("KAFKA_CONTACT_TOPIC", "contact.events"),
			AuditTopic:        getEnv("KAFKA_AUDIT_TOPIC", "audit.events"),
			NotificationTopic: getEnv("KAFKA_NOTIFICATION_TOPIC", "notifications"),
			ConsumerGroup:     getEnv("KAFKA_CONSUMER_GROUP", "supplierhub"),
			OutboxPollEvery:   getDuration("OUTBOX_POLL_INTERVAL", 2*time.Second),
			OutboxBatchSize:   getInt("OUTBOX_BATCH_SIZE", 100),
		},
		SMTP: SMTPConfig{
			Host:       os.Getenv("SMTP_HOST"),
			Port:       getInt("SMTP_PORT", 587),
			Username:   os.Getenv("SMTP_USERNAME"),
			Password:   os.Getenv("SMTP_PASSWORD"),
			From:       getEnv("MAIL_FROM_ADDRESS", "no-reply@vexim.example"),
			FromName:   getEnv("MAIL_FROM_NAME", "VEXIM"),
			AdminEmail: os.Getenv("ADMIN_EMAIL"),
		},
		Captcha: CaptchaConfig{
			SecretKey: os.Getenv("RECAPTCHA_SECRET_KEY"),
			VerifyURL: getEnv("RECAPTCHA_VERIFY_URL", "https://www.google.com/recaptcha/api/siteverify"),
			MinScore:  getFloat("RECAPTCHA_MIN_SCORE", 0.5),
			Timeout:   getDuration("RECAPTCHA_TIMEOUT", 5*time.Second),
		},
		Contact: ContactConfig{
			DefaultWeeklyLimit: getInt("CONTACT_DEFAULT_WEEKLY_LIMIT", 1),
			QuotaPeriod:        getDuration("CONTACT_QUOTA_PERIOD", 7*24*time.Hour),
			RateLimitAttempts:  getInt("CONTACT_FORM_RATE_LIMIT", 5),
			RateLimitWindow:    time.Duration(getInt("CONTACT_FORM_RATE_LIMIT_MINUTES", 60)) * time.Minute,
			EncryptionKey:      getEnv("CONTACT_ENCRYPTION_KEY", defaultEncryptionKey),
			NotifyQueue:        getEnv("NOTIFY_QUEUE", "memory"),
			NotifyWorkers:      getInt("NOTIFY_WORKERS", 2),
			FrontendURL:        getEnv("FRONTEND_URL", "http://localhost:3000"),
		},
	}
}

// Validate rejects configurations that are unsafe outside local development.
func (c Config) Validate() error {
	var errs []error
	if c.Contact.RateLimitAttempts <= 0 {
		errs = append(errs, errors.New("CONTACT_FORM_RATE_LIMIT must be positive"))
	}
	if c.Contact.RateLimitWindow <= 0 {
		errs = append(errs, errors.New("CONTACT_FORM_RATE_LIMIT_MINUTES must be positive"))
	}
	if c.Contact.QuotaPeriod <= 0 {
		errs = append(errs, errors.New("CONTACT_QUOTA_PERIOD must be positive"))
	}
	switch c.Contact.NotifyQueue {
	case "memory", "redis", "kafka":
	default:
		errs = append(errs, errors.New("NOTIFY_QUEUE must be one of memory, redis, kafka"))
	}
	if c.Contact.NotifyQueue == "redis" && c.Redis.URL == "" {
		errs = append(errs, errors.New("NOTIFY_QUEUE=redis requires REDIS_URL"))
	}
	if c.Contact.NotifyQueue == "kafka" && !c.Kafka.Enabled() {
		errs = append(errs, errors.New("NOTIFY_QUEUE=kafka requires KAFKA_BROKERS"))
	}
	if !c.IsLocal() {
		if c.Auth.JWTSigningKey == defaultJWTSigningKey {
			errs = append(errs, errors.New("JWT_SIGNING_KEY must be set outside local"))
		}
		if c.Contact.EncryptionKey == defaultEncryptionKey {
			errs = append(errs, errors.New("CONTACT_ENCRYPTION_KEY must be set outside local"))
		}
		if c.Captcha.SecretKey == "" {
			errs = append(errs, errors.New("RECAPTCHA_SECRET_KEY must be set outside local"))
		}
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getList(key string) []string {
	return strutil.SplitList(os.Getenv(key))
}
