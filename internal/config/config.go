package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	QPay      QPayConfig
	Email     EmailConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
}

type AppConfig struct {
	Name  string
	Env   string
	Port  string
	Debug bool
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	Timezone string
}

type JWTConfig struct {
	Secret             string
	ExpiryHours        time.Duration
	RefreshExpiryHours time.Duration
}

// QPayConfig holds gateway credentials and the reconciliation tuning knobs.
type QPayConfig struct {
	BaseURL        string
	Username       string
	Password       string
	InvoiceCode    string
	CallbackURL    string
	RequestTimeout time.Duration

	// TokenMargin is subtracted from the issued token lifetime so consumers
	// never present an about-to-expire token.
	TokenMargin time.Duration

	// ReceiptTokenMargin is the minimum remaining validity required to reuse
	// the invoice-creation token for the tax receipt call.
	ReceiptTokenMargin time.Duration

	// StatusCacheTTL bounds how long a payment status view is served from the
	// per-order cache.
	StatusCacheTTL time.Duration

	// CheckInterval is the minimum interval between gateway payment-check
	// calls for the same invoice.
	CheckInterval time.Duration

	VATRate float64
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromName     string
	FromEmail    string
	FrontendURL  string
}

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

type RateLimitConfig struct {
	Requests int
	Duration int
}

func Load() *Config {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables: %v", err)
	}

	// Set defaults
	viper.SetDefault("APP_NAME", "monshop-api")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("APP_DEBUG", true)
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_NAME", "monshop")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_SSL_MODE", "disable")
	viper.SetDefault("DB_TIMEZONE", "Asia/Ulaanbaatar")
	viper.SetDefault("JWT_SECRET", "change-this-secret-in-production")
	viper.SetDefault("JWT_EXPIRY_HOURS", 24)
	viper.SetDefault("JWT_REFRESH_EXPIRY_HOURS", 168)
	viper.SetDefault("QPAY_BASE_URL", "https://merchant.qpay.mn/v2")
	viper.SetDefault("QPAY_INVOICE_CODE", "MONSHOP_INVOICE")
	viper.SetDefault("QPAY_CALLBACK_URL", "http://localhost:8080/api/v1/payments/callback")
	viper.SetDefault("QPAY_REQUEST_TIMEOUT_SECONDS", 15)
	viper.SetDefault("QPAY_TOKEN_MARGIN_SECONDS", 60)
	viper.SetDefault("QPAY_RECEIPT_TOKEN_MARGIN_SECONDS", 120)
	viper.SetDefault("QPAY_STATUS_CACHE_TTL_SECONDS", 15)
	viper.SetDefault("QPAY_CHECK_INTERVAL_SECONDS", 15)
	viper.SetDefault("QPAY_VAT_RATE", 0.1)
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("EMAIL_FROM_NAME", "Monshop")
	viper.SetDefault("FRONTEND_URL", "http://localhost:3000")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("CORS_ALLOWED_HEADERS", []string{})
	viper.SetDefault("RATE_LIMIT_REQUESTS", 100)
	viper.SetDefault("RATE_LIMIT_DURATION", 60)

	return &Config{
		App: AppConfig{
			Name:  viper.GetString("APP_NAME"),
			Env:   viper.GetString("APP_ENV"),
			Port:  viper.GetString("APP_PORT"),
			Debug: viper.GetBool("APP_DEBUG"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			Name:     viper.GetString("DB_NAME"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			SSLMode:  viper.GetString("DB_SSL_MODE"),
			Timezone: viper.GetString("DB_TIMEZONE"),
		},
		JWT: JWTConfig{
			Secret:             viper.GetString("JWT_SECRET"),
			ExpiryHours:        time.Duration(viper.GetInt("JWT_EXPIRY_HOURS")) * time.Hour,
			RefreshExpiryHours: time.Duration(viper.GetInt("JWT_REFRESH_EXPIRY_HOURS")) * time.Hour,
		},
		QPay: QPayConfig{
			BaseURL:            viper.GetString("QPAY_BASE_URL"),
			Username:           viper.GetString("QPAY_USERNAME"),
			Password:           viper.GetString("QPAY_PASSWORD"),
			InvoiceCode:        viper.GetString("QPAY_INVOICE_CODE"),
			CallbackURL:        viper.GetString("QPAY_CALLBACK_URL"),
			RequestTimeout:     time.Duration(viper.GetInt("QPAY_REQUEST_TIMEOUT_SECONDS")) * time.Second,
			TokenMargin:        time.Duration(viper.GetInt("QPAY_TOKEN_MARGIN_SECONDS")) * time.Second,
			ReceiptTokenMargin: time.Duration(viper.GetInt("QPAY_RECEIPT_TOKEN_MARGIN_SECONDS")) * time.Second,
			StatusCacheTTL:     time.Duration(viper.GetInt("QPAY_STATUS_CACHE_TTL_SECONDS")) * time.Second,
			CheckInterval:      time.Duration(viper.GetInt("QPAY_CHECK_INTERVAL_SECONDS")) * time.Second,
			VATRate:            viper.GetFloat64("QPAY_VAT_RATE"),
		},
		Email: EmailConfig{
			SMTPHost:     viper.GetString("SMTP_HOST"),
			SMTPPort:     viper.GetInt("SMTP_PORT"),
			SMTPUsername: viper.GetString("SMTP_USERNAME"),
			SMTPPassword: viper.GetString("SMTP_PASSWORD"),
			FromName:     viper.GetString("EMAIL_FROM_NAME"),
			FromEmail:    viper.GetString("EMAIL_FROM_EMAIL"),
			FrontendURL:  viper.GetString("FRONTEND_URL"),
		},
		CORS: CORSConfig{
			AllowedOrigins: viper.GetStringSlice("CORS_ALLOWED_ORIGINS"),
			AllowedMethods: viper.GetStringSlice("CORS_ALLOWED_METHODS"),
			AllowedHeaders: viper.GetStringSlice("CORS_ALLOWED_HEADERS"),
		},
		RateLimit: RateLimitConfig{
			Requests: viper.GetInt("RATE_LIMIT_REQUESTS"),
			Duration: viper.GetInt("RATE_LIMIT_DURATION"),
		},
	}
}

func (c *DatabaseConfig) DSN() string {
	return "host=" + c.Host +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Name +
		" port=" + c.Port +
		" sslmode=" + c.SSLMode +
		" TimeZone=" + c.Timezone
}
