package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Issuer         string // issuer claim for access tokens (default: ppmk-provision)
	Audience       string // audience claim for access tokens (default: ppmk-connect)
	BootstrapToken string // Optional: enables POST /v1/bootstrap when set

	DatabaseFile string // path to SQLite database file (default: ./provision.db)
	PepperFile   string // path to file containing pepper for password hashing (default: ./pepper)

	// Mail delivery. With no SMTP host the service logs instead of sending.
	SMTPHost        string
	SMTPPort        int
	SMTPUsername    string
	SMTPPassword    string
	MailFrom        string // default: PPMKFriends <no-reply@ppmkfriends.my>
	MailRedirectTo  string // Optional: deliver every message to this sandbox address
	MailMaxAttempts int    // send attempts per message, 1 disables retry (default: 3)

	RowTimeout          time.Duration // per-row provisioning deadline (default: 30s)
	ProvisionRatePerSec float64       // rows started per second (default: 5)
	MaxBatchSize        int           // rows accepted per bulk request (default: 500)

	RepairInterval    time.Duration // repair worker poll interval (default: 1m)
	RepairMaxAttempts int           // attempts before a repair task is abandoned (default: 10)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	CORSAllowOrigin      string        // Optional: origin allowed to call the API from a browser
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	return Config{
		Issuer:         getEnvOrDefault("PROVISION_ISSUER", "ppmk-provision"),
		Audience:       getEnvOrDefault("PROVISION_AUDIENCE", "ppmk-connect"),
		BootstrapToken: os.Getenv("BOOTSTRAP_TOKEN"),

		DatabaseFile: getEnvOrDefault("PROVISION_DATABASE_FILE", "provision.db"),
		PepperFile:   getEnvOrDefault("PROVISION_PEPPER_FILE", "pepper"),

		SMTPHost:        os.Getenv("MAIL_SMTP_HOST"),
		SMTPPort:        getEnvIntOrDefault("MAIL_SMTP_PORT", 587),
		SMTPUsername:    os.Getenv("MAIL_SMTP_USERNAME"),
		SMTPPassword:    os.Getenv("MAIL_SMTP_PASSWORD"),
		MailFrom:        getEnvOrDefault("MAIL_FROM", "PPMKFriends <no-reply@ppmkfriends.my>"),
		MailRedirectTo:  strings.TrimSpace(os.Getenv("MAIL_REDIRECT_TO")),
		MailMaxAttempts: getEnvIntOrDefault("MAIL_MAX_ATTEMPTS", 3),

		RowTimeout:          getEnvDurationOrDefault("PROVISION_ROW_TIMEOUT", 30*time.Second),
		ProvisionRatePerSec: getEnvFloatOrDefault("PROVISION_RATE_PER_SEC", 5),
		MaxBatchSize:        getEnvIntOrDefault("PROVISION_MAX_BATCH_SIZE", 500),

		RepairInterval:    getEnvDurationOrDefault("REPAIR_INTERVAL", time.Minute),
		RepairMaxAttempts: getEnvIntOrDefault("REPAIR_MAX_ATTEMPTS", 10),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		CORSAllowOrigin:      os.Getenv("CORS_ALLOW_ORIGIN"),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
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

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are seconds.
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
