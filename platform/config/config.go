// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
	GetMigrateOnStart() bool
}

// JWTConfig provides token validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
	GetJWTAudience() string
}

// AccessConfig provides the out-of-band allow-lists that decide actor class.
type AccessConfig interface {
	GetAdminUserIDs() []string
	GetPrivilegedUserIDs() []string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// LeadsConfig provides business rules for the lead lifecycle.
type LeadsConfig interface {
	GetBusinessTimezone() string
	GetCommissionRate() decimal.Decimal
	GetPrivilegedCommissionRate() decimal.Decimal
}

// CalendarConfig provides settings for the Google Calendar adapter.
type CalendarConfig interface {
	GetGoogleCalendarID() string
	GetGoogleClientEmail() string
	GetGooglePrivateKey() string
	GetBusinessTimezone() string
	IsCalendarEnabled() bool
}

// StorageConfig provides settings for MinIO S3-compatible storage.
type StorageConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	GetMinIOBucketLeadImages() string
	GetMinIOPublicBaseURL() string
	IsMinIOEnabled() bool
}

// EmailConfig provides settings for email sending.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// NotificationConfig provides settings for the notification module.
type NotificationConfig interface {
	GetAppBaseURL() string
	GetAdminNotifyEmails() []string
}

// PaymentsConfig provides settings for the payout processor.
type PaymentsConfig interface {
	GetStripeSecretKey() string
	GetPayoutCurrency() string
	GetAppBaseURL() string
	GetPayoutLockTTL() time.Duration
	IsPaymentsEnabled() bool
}

// ScoringConfig provides settings for the AI scoring advisor.
type ScoringConfig interface {
	GetScoringAPIKey() string
	GetScoringBaseURL() string
	GetScoringModel() string
	IsScoringEnabled() bool
}

// SchedulerConfig provides settings for the background worker.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetReconcileSweepInterval() time.Duration
	IsRedisEnabled() bool
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                      string
	LogLevel                 string
	HTTPAddr                 string
	DatabaseURL              string
	MigrateOnStart           bool
	JWTAccessSecret          string
	JWTAudience              string
	AdminUserIDs             []string
	PrivilegedUserIDs        []string
	CORSAllowAll             bool
	CORSOrigins              []string
	CORSAllowCreds           bool
	AppBaseURL               string
	BusinessTimezone         string
	CommissionRate           decimal.Decimal
	PrivilegedCommissionRate decimal.Decimal
	GoogleCalendarID         string
	GoogleClientEmail        string
	GooglePrivateKey         string
	MinIOEndpoint            string
	MinIOAccessKey           string
	MinIOSecretKey           string
	MinIOUseSSL              bool
	MinIOMaxFileSize         int64
	MinIOBucketLeadImages    string
	MinIOPublicBaseURL       string
	EmailEnabled             bool
	SMTPHost                 string
	SMTPPort                 int
	SMTPUsername             string
	SMTPPassword             string
	EmailFromName            string
	EmailFromAddress         string
	AdminNotifyEmails        []string
	StripeSecretKey          string
	PayoutCurrency           string
	PayoutLockTTL            time.Duration
	ScoringAPIKey            string
	ScoringBaseURL           string
	ScoringModel             string
	RedisURL                 string
	RedisTLSInsecure         bool
	AsynqQueueName           string
	AsynqConcurrency         int
	ReconcileSweepInterval   time.Duration
}

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string  { return c.DatabaseURL }
func (c *Config) GetMigrateOnStart() bool { return c.MigrateOnStart }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }
func (c *Config) GetJWTAudience() string     { return c.JWTAudience }

// AccessConfig implementation
func (c *Config) GetAdminUserIDs() []string      { return c.AdminUserIDs }
func (c *Config) GetPrivilegedUserIDs() []string { return c.PrivilegedUserIDs }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// LeadsConfig implementation
func (c *Config) GetBusinessTimezone() string                  { return c.BusinessTimezone }
func (c *Config) GetCommissionRate() decimal.Decimal           { return c.CommissionRate }
func (c *Config) GetPrivilegedCommissionRate() decimal.Decimal { return c.PrivilegedCommissionRate }

// CalendarConfig implementation
func (c *Config) GetGoogleCalendarID() string  { return c.GoogleCalendarID }
func (c *Config) GetGoogleClientEmail() string { return c.GoogleClientEmail }
func (c *Config) GetGooglePrivateKey() string  { return c.GooglePrivateKey }
func (c *Config) IsCalendarEnabled() bool {
	return c.GoogleClientEmail != "" && c.GooglePrivateKey != ""
}

// StorageConfig implementation
func (c *Config) GetMinIOEndpoint() string         { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string        { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string        { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool             { return c.MinIOUseSSL }
func (c *Config) GetMinIOMaxFileSize() int64       { return c.MinIOMaxFileSize }
func (c *Config) GetMinIOBucketLeadImages() string { return c.MinIOBucketLeadImages }
func (c *Config) GetMinIOPublicBaseURL() string    { return c.MinIOPublicBaseURL }
func (c *Config) IsMinIOEnabled() bool             { return c.MinIOEndpoint != "" }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

// NotificationConfig implementation
func (c *Config) GetAppBaseURL() string          { return c.AppBaseURL }
func (c *Config) GetAdminNotifyEmails() []string { return c.AdminNotifyEmails }

// PaymentsConfig implementation
func (c *Config) GetStripeSecretKey() string      { return c.StripeSecretKey }
func (c *Config) GetPayoutCurrency() string       { return c.PayoutCurrency }
func (c *Config) GetPayoutLockTTL() time.Duration { return c.PayoutLockTTL }
func (c *Config) IsPaymentsEnabled() bool         { return c.StripeSecretKey != "" }

// ScoringConfig implementation
func (c *Config) GetScoringAPIKey() string  { return c.ScoringAPIKey }
func (c *Config) GetScoringBaseURL() string { return c.ScoringBaseURL }
func (c *Config) GetScoringModel() string   { return c.ScoringModel }
func (c *Config) IsScoringEnabled() bool    { return c.ScoringAPIKey != "" }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string                      { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool                { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string                { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int                 { return c.AsynqConcurrency }
func (c *Config) GetReconcileSweepInterval() time.Duration { return c.ReconcileSweepInterval }
func (c *Config) IsRedisEnabled() bool                     { return c.RedisURL != "" }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	smtpHost := getEnv("SMTP_HOST", "")
	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true")

	commissionRate, err := decimal.NewFromString(getEnv("COMMISSION_RATE", "0.20"))
	if err != nil {
		return nil, fmt.Errorf("COMMISSION_RATE: %w", err)
	}
	privilegedRate, err := decimal.NewFromString(getEnv("PRIVILEGED_COMMISSION_RATE", commissionRate.String()))
	if err != nil {
		return nil, fmt.Errorf("PRIVILEGED_COMMISSION_RATE: %w", err)
	}

	cfg := &Config{
		Env:                      getEnv("APP_ENV", "development"),
		LogLevel:                 getEnv("LOG_LEVEL", ""),
		HTTPAddr:                 getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:              getEnv("DATABASE_URL", ""),
		MigrateOnStart:           strings.EqualFold(getEnv("MIGRATE_ON_START", "true"), "true"),
		JWTAccessSecret:          getEnv("AUTH_JWT_SECRET", ""),
		JWTAudience:              getEnv("AUTH_JWT_AUDIENCE", "authenticated"),
		AdminUserIDs:             splitCSV(getEnv("ADMIN_USER_IDS", "")),
		PrivilegedUserIDs:        splitCSV(getEnv("PRIVILEGED_USER_IDS", "")),
		CORSAllowAll:             corsAllowAll,
		CORSOrigins:              corsOrigins,
		CORSAllowCreds:           strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		AppBaseURL:               getEnv("APP_BASE_URL", "http://localhost:3000"),
		BusinessTimezone:         getEnv("BUSINESS_TIMEZONE", "America/Denver"),
		CommissionRate:           commissionRate,
		PrivilegedCommissionRate: privilegedRate,
		GoogleCalendarID:         getEnv("GOOGLE_CALENDAR_ID", "primary"),
		GoogleClientEmail:        getEnv("GOOGLE_CLIENT_EMAIL", ""),
		GooglePrivateKey:         strings.ReplaceAll(getEnv("GOOGLE_PRIVATE_KEY", ""), `\n`, "\n"),
		MinIOEndpoint:            getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:           getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:           getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:              strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinIOMaxFileSize:         mustInt64(getEnv("MINIO_MAX_FILE_SIZE", "10485760")),
		MinIOBucketLeadImages:    getEnv("MINIO_BUCKET_LEAD_IMAGES", "lead-images"),
		MinIOPublicBaseURL:       strings.TrimRight(getEnv("MINIO_PUBLIC_BASE_URL", ""), "/"),
		EmailEnabled:             emailEnabled && smtpHost != "",
		SMTPHost:                 smtpHost,
		SMTPPort:                 mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:             getEnv("SMTP_USERNAME", ""),
		SMTPPassword:             getEnv("SMTP_PASSWORD", ""),
		EmailFromName:            getEnv("EMAIL_FROM_NAME", "Sourcing"),
		EmailFromAddress:         getEnv("EMAIL_FROM_ADDRESS", ""),
		AdminNotifyEmails:        splitCSV(getEnv("ADMIN_NOTIFY_EMAILS", "")),
		StripeSecretKey:          getEnv("STRIPE_SECRET_KEY", ""),
		PayoutCurrency:           strings.ToLower(getEnv("PAYOUT_CURRENCY", "usd")),
		PayoutLockTTL:            mustDuration(getEnv("PAYOUT_LOCK_TTL", "2m")),
		ScoringAPIKey:            getEnv("SCORING_API_KEY", ""),
		ScoringBaseURL:           getEnv("SCORING_BASE_URL", "https://api.openai.com/v1"),
		ScoringModel:             getEnv("SCORING_MODEL", "gpt-4"),
		RedisURL:                 getEnv("REDIS_URL", ""),
		RedisTLSInsecure:         strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:           getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:         mustInt(getEnv("ASYNQ_CONCURRENCY", "5")),
		ReconcileSweepInterval:   mustDuration(getEnv("RECONCILE_SWEEP_INTERVAL", "10m")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("AUTH_JWT_SECRET is required")
	}
	if cfg.EmailEnabled && cfg.EmailFromAddress == "" {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.CommissionRate.IsNegative() || cfg.CommissionRate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("COMMISSION_RATE must be between 0 and 1")
	}
	if cfg.PrivilegedCommissionRate.IsNegative() || cfg.PrivilegedCommissionRate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("PRIVILEGED_COMMISSION_RATE must be between 0 and 1")
	}
	if _, err := time.LoadLocation(cfg.BusinessTimezone); err != nil {
		return nil, fmt.Errorf("BUSINESS_TIMEZONE: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt64(value string) int64 {
	result, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return result
}

func mustInt(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
