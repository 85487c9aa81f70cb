package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/koki-kondo/mind-status-app/internal/roster/domain"
	"github.com/koki-kondo/mind-status-app/internal/roster/notify"
	"github.com/koki-kondo/mind-status-app/internal/roster/service"
)

type Config struct {
	Issuer            string        // Issuer claim of session tokens (default: roster-service)
	SessionTTL        time.Duration // Session token lifetime (default: 8h)
	SigningKeyFile    string        // Ed25519 PEM key, created on first start (default: ./signing.pem)
	RegistrationToken string        // Optional: required to register organizations when set

	FrontendURL          string        // Base of the links in invitation and reset mails
	InviteTTL            time.Duration // Enrollment link lifetime (default: 7 days)
	ResetTTL             time.Duration // Reset link lifetime (default: 1h)
	MaxUploadBytes       int64         // Roster upload cap (default: 10 MiB)
	MaxConcurrentImports int           // Imports running at once (default: 2)

	ImportHistoryRetention time.Duration // Age at which import runs are pruned (default: 180 days)
	HousekeepingInterval   time.Duration // Housekeeping interval (default: 1h)

	SMTP notify.SMTPConfig // Mail is only logged when SMTP.Host is empty

	DatabaseFile        string        // Path to SQLite database file (default: ./roster.db)
	PepperFile          string        // Path to file containing pepper for password hashing (default: ./pepper)
	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

func LoadConfig() Config {
	return Config{
		Issuer:            getEnvOrDefault("JWT_ISSUER", "roster-service"),
		SessionTTL:        getEnvDurationOrDefault("JWT_TTL", 8*time.Hour),
		SigningKeyFile:    getEnvOrDefault("SIGNING_KEY_FILE", "signing.pem"),
		RegistrationToken: os.Getenv("REGISTRATION_TOKEN"),

		FrontendURL:          getEnvOrDefault("FRONTEND_URL", "http://localhost:3000"),
		InviteTTL:            getEnvDurationOrDefault("INVITE_TTL", domain.DefaultEnrollmentTTL),
		ResetTTL:             getEnvDurationOrDefault("RESET_TTL", domain.DefaultResetTTL),
		MaxUploadBytes:       int64(getEnvIntOrDefault("MAX_UPLOAD_BYTES", 10<<20)),
		MaxConcurrentImports: getEnvIntOrDefault("MAX_CONCURRENT_IMPORTS", 2),

		ImportHistoryRetention: getEnvDurationOrDefault("IMPORT_HISTORY_RETENTION", service.DefaultImportHistoryRetention),
		HousekeepingInterval:   getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),

		SMTP: notify.SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getEnvIntOrDefault("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getEnvOrDefault("SMTP_FROM", "no-reply@localhost"),
			StartTLS: getEnvBoolOrDefault("SMTP_STARTTLS", true),
		},

		DatabaseFile:        getEnvOrDefault("DATABASE_FILE", "roster.db"),
		PepperFile:          getEnvOrDefault("PEPPER_FILE", "pepper"),
		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
