package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Port      string `mapstructure:"PORT"`
	GinMode   string `mapstructure:"GIN_MODE"`
	ClientURL string `mapstructure:"CLIENT_URL"`

	FirebaseProjectID                string `mapstructure:"FIREBASE_PROJECT_ID"`
	GoogleApplicationCredentials     string `mapstructure:"GOOGLE_APPLICATION_CREDENTIALS"`
	FirebaseServiceAccountJSONBase64 string `mapstructure:"FIREBASE_SERVICE_ACCOUNT_JSON_BASE64"`
	FirebaseStorageBucket            string `mapstructure:"FIREBASE_STORAGE_BUCKET"`

	StorageBackend  string `mapstructure:"STORAGE_BACKEND"` // "firebase" or "s3"
	S3Endpoint      string `mapstructure:"S3_ENDPOINT"`
	S3Region        string `mapstructure:"S3_REGION"`
	S3Bucket        string `mapstructure:"S3_BUCKET"`
	S3AccessKey     string `mapstructure:"S3_ACCESS_KEY"`
	S3SecretKey     string `mapstructure:"S3_SECRET_KEY"`
	S3PublicBaseURL string `mapstructure:"S3_PUBLIC_BASE_URL"`

	EncryptionKey string `mapstructure:"ENCRYPTION_KEY"` // Base64 encoded, 32 bytes

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	PaypalClientID     string        `mapstructure:"PAYPAL_CLIENT_ID"`
	PaypalClientSecret string        `mapstructure:"PAYPAL_CLIENT_SECRET"`
	PaypalBaseURL      string        `mapstructure:"PAYPAL_BASE_URL"`
	PaymentReturnURL   string        `mapstructure:"PAYMENT_RETURN_URL"`
	PendingOrderTTL    time.Duration `mapstructure:"PENDING_ORDER_TTL"`

	DisplayCurrency    string        `mapstructure:"DISPLAY_CURRENCY"`
	SettlementCurrency string        `mapstructure:"SETTLEMENT_CURRENCY"`
	FxAPIURL           string        `mapstructure:"FX_API_URL"`
	FxFallbackRate     float64       `mapstructure:"FX_FALLBACK_RATE"`
	FxRefreshInterval  time.Duration `mapstructure:"FX_REFRESH_INTERVAL"`

	ClassifierURL string `mapstructure:"CLASSIFIER_URL"`

	MailBackend string `mapstructure:"MAIL_BACKEND"` // "smtp" or "ses"
	SMTPHost    string `mapstructure:"SMTP_HOST"`
	SMTPPort    string `mapstructure:"SMTP_PORT"`
	SMTPUser    string `mapstructure:"SMTP_USER"`
	SMTPPass    string `mapstructure:"SMTP_PASS"`
	SESRegion   string `mapstructure:"SES_REGION"`
	MailFrom    string `mapstructure:"MAIL_FROM"`

	AMQPURL      string `mapstructure:"AMQP_URL"` // empty disables event mirroring
	AMQPExchange string `mapstructure:"AMQP_EXCHANGE"`

	EmailCooldown      time.Duration `mapstructure:"EMAIL_COOLDOWN"`
	SessionSettleDelay time.Duration `mapstructure:"SESSION_SETTLE_DELAY"`
	OutboxPollInterval time.Duration `mapstructure:"OUTBOX_POLL_INTERVAL"`
	OutboxMaxAttempts  int           `mapstructure:"OUTBOX_MAX_ATTEMPTS"`
	PushEnabled        bool          `mapstructure:"PUSH_ENABLED"`
	RateLimitPerMinute int           `mapstructure:"RATE_LIMIT_PER_MINUTE"`
}

var appConfig *Config

var defaults = map[string]interface{}{
	"PORT":                  "8080",
	"GIN_MODE":              "debug",
	"STORAGE_BACKEND":       "firebase",
	"S3_REGION":             "auto",
	"REDIS_ADDR":            "localhost:6379",
	"REDIS_DB":              0,
	"PAYPAL_BASE_URL":       "https://api-m.sandbox.paypal.com",
	"PENDING_ORDER_TTL":     "3h",
	"DISPLAY_CURRENCY":      "PHP",
	"SETTLEMENT_CURRENCY":   "USD",
	"FX_API_URL":            "https://open.er-api.com/v6/latest",
	"FX_FALLBACK_RATE":      0.018,
	"FX_REFRESH_INTERVAL":   "6h",
	"MAIL_BACKEND":          "smtp",
	"SMTP_HOST":             "smtp.mailtrap.io",
	"SMTP_PORT":             "2525",
	"SES_REGION":            "us-east-1",
	"AMQP_EXCHANGE":         "rentshare.events",
	"EMAIL_COOLDOWN":        "60s",
	"SESSION_SETTLE_DELAY":  "500ms",
	"OUTBOX_POLL_INTERVAL":  "10s",
	"OUTBOX_MAX_ATTEMPTS":   5,
	"PUSH_ENABLED":          false,
	"RATE_LIMIT_PER_MINUTE": 10,
}

var envKeys = []string{
	"CLIENT_URL", "FIREBASE_PROJECT_ID", "GOOGLE_APPLICATION_CREDENTIALS",
	"FIREBASE_SERVICE_ACCOUNT_JSON_BASE64", "FIREBASE_STORAGE_BUCKET",
	"S3_ENDPOINT", "S3_BUCKET", "S3_ACCESS_KEY", "S3_SECRET_KEY", "S3_PUBLIC_BASE_URL",
	"ENCRYPTION_KEY", "REDIS_PASSWORD", "PAYPAL_CLIENT_ID", "PAYPAL_CLIENT_SECRET",
	"PAYMENT_RETURN_URL", "CLASSIFIER_URL", "SMTP_USER", "SMTP_PASS", "MAIL_FROM", "AMQP_URL",
}

// LoadConfig loads configuration from environment variables using Viper.
// A .env file in the working directory is read first when not running in release mode.
func LoadConfig() (*Config, error) {
	if !strings.EqualFold(os.Getenv("GIN_MODE"), "release") {
		// Missing .env is fine; the process environment still applies.
		_ = godotenv.Load()
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for key, value := range defaults {
		v.SetDefault(key, value)
		v.BindEnv(key)
	}
	for _, key := range envKeys {
		v.BindEnv(key)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	appConfig = &cfg
	return appConfig, nil
}

// Validate checks required fields and cross-field rules.
func (cfg *Config) Validate() error {
	if cfg.FirebaseProjectID == "" {
		return errors.New("FIREBASE_PROJECT_ID is required")
	}
	if cfg.EncryptionKey == "" {
		return errors.New("ENCRYPTION_KEY is required")
	}
	if cfg.ClientURL == "" {
		return errors.New("CLIENT_URL is required")
	}
	if cfg.PaypalClientID == "" || cfg.PaypalClientSecret == "" {
		return errors.New("PAYPAL_CLIENT_ID and PAYPAL_CLIENT_SECRET are required")
	}
	if cfg.PaymentReturnURL == "" {
		return errors.New("PAYMENT_RETURN_URL is required")
	}
	switch cfg.StorageBackend {
	case "firebase":
		if cfg.FirebaseStorageBucket == "" {
			return errors.New("FIREBASE_STORAGE_BUCKET is required when STORAGE_BACKEND=firebase")
		}
	case "s3":
		if cfg.S3Bucket == "" || cfg.S3AccessKey == "" || cfg.S3SecretKey == "" {
			return errors.New("S3_BUCKET, S3_ACCESS_KEY and S3_SECRET_KEY are required when STORAGE_BACKEND=s3")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.StorageBackend)
	}
	if cfg.MailBackend != "smtp" && cfg.MailBackend != "ses" {
		return fmt.Errorf("unknown MAIL_BACKEND %q", cfg.MailBackend)
	}
	if cfg.FxFallbackRate <= 0 {
		return errors.New("FX_FALLBACK_RATE must be positive")
	}
	return nil
}

// GetConfig returns the loaded application configuration.
// It will panic if LoadConfig has not been called successfully.
func GetConfig() *Config {
	if appConfig == nil {
		panic("config not loaded; call LoadConfig first")
	}
	return appConfig
}
