package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App        AppConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Logger     LoggerConfig
	Auth       AuthConfig
	Mailer     MailerConfig
	AdminSetup AdminSetupConfig
	Notify     NotifyConfig
	RateLimit  RateLimitConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	BaseURL               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters for both credential
// verifiers: direct password login and OIDC id-token exchange.
type AuthConfig struct {
	JWTSecret              string
	AccessTokenTTLMinutes  int
	VerificationTTLMinutes int
	BcryptCost             int
	OIDCIssuer             string
	OIDCAudience           string
	OIDCSharedSecret       string
}

// MailerConfig selects and configures the outbound mail driver.
type MailerConfig struct {
	Driver    string // smtp, mailersend or dev
	FromName  string
	FromEmail string
	SMTPHost  string
	SMTPPort  int
	SMTPUser  string
	SMTPPass  string
	APIKey    string
}

// AdminSetupConfig guards the one-time admin promotion endpoint.
// An empty secret disables the endpoint entirely.
type AdminSetupConfig struct {
	Secret string
}

// NotifyConfig holds webhook notification settings.
type NotifyConfig struct {
	WebhookURL string
}

// RateLimitConfig bounds the public resend-verification endpoint and
// repeated failed access-code checks.
type RateLimitConfig struct {
	ResendMaxPerWindow  int
	ResendWindowMinutes int
	VerifyMaxFailures   int
	VerifyWindowMinutes int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "community-access-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			BaseURL:               getEnv("APP_BASE_URL", "http://localhost:8080"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:              getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes:  getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			VerificationTTLMinutes: getEnvAsInt("AUTH_VERIFICATION_TTL_MINUTES", 60*24),
			BcryptCost:             getEnvAsInt("AUTH_BCRYPT_COST", 12),
			OIDCIssuer:             getEnv("AUTH_OIDC_ISSUER", ""),
			OIDCAudience:           getEnv("AUTH_OIDC_AUDIENCE", ""),
			OIDCSharedSecret:       getEnv("AUTH_OIDC_SHARED_SECRET", ""),
		},
		Mailer: MailerConfig{
			Driver:    getEnv("MAILER_DRIVER", "dev"),
			FromName:  getEnv("MAILER_FROM_NAME", "Community Access"),
			FromEmail: getEnv("MAILER_FROM_EMAIL", "noreply@example.com"),
			SMTPHost:  getEnv("SMTP_HOST", "127.0.0.1"),
			SMTPPort:  getEnvAsInt("SMTP_PORT", 1025),
			SMTPUser:  os.Getenv("SMTP_USER"),
			SMTPPass:  os.Getenv("SMTP_PASS"),
			APIKey:    os.Getenv("MAILERSEND_API_KEY"),
		},
		AdminSetup: AdminSetupConfig{
			Secret: os.Getenv("ADMIN_SETUP_SECRET"),
		},
		Notify: NotifyConfig{
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
		RateLimit: RateLimitConfig{
			ResendMaxPerWindow:  getEnvAsInt("RATE_LIMIT_RESEND_MAX", 3),
			ResendWindowMinutes: getEnvAsInt("RATE_LIMIT_RESEND_WINDOW_MINUTES", 15),
			VerifyMaxFailures:   getEnvAsInt("RATE_LIMIT_VERIFY_MAX_FAILURES", 10),
			VerifyWindowMinutes: getEnvAsInt("RATE_LIMIT_VERIFY_WINDOW_MINUTES", 5),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
