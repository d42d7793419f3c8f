package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	DatabaseURL        string
	CORSAllowedOrigins []string

	// Lead qualification (Gemini)
	GeminiAPIKey     string
	GeminiModel      string
	QualifierTimeout time.Duration

	// Hot-lead notification email
	EmailProvider     string // "sendgrid", "ses" or "stub"
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	NotificationEmail string
	AWSRegion         string

	// Stats cache
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	StatsCacheTTL time.Duration

	// Abuse protection on the public intake endpoint
	LeadRateLimitRPS   float64
	LeadRateLimitBurst int
}

// Load reads configuration from environment variables. The storage
// connection string is mandatory; everything else has a default.
func Load() (*Config, error) {
	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		CORSAllowedOrigins: splitAndTrim(getEnv("CORS_ALLOWED_ORIGINS", "*")),

		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.0-flash-exp"),
		QualifierTimeout: getEnvAsDuration("QUALIFIER_TIMEOUT", 15*time.Second),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "sendgrid"))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", "leads@advisorhq.in"),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "AdvisorHQ Leads"),
		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		AWSRegion:         getEnv("AWS_REGION", "us-east-1"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		StatsCacheTTL: getEnvAsDuration("STATS_CACHE_TTL", 30*time.Second),

		LeadRateLimitRPS:   getEnvAsFloat("LEAD_RATE_LIMIT_RPS", 2),
		LeadRateLimitBurst: getEnvAsInt("LEAD_RATE_LIMIT_BURST", 10),
	}

	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, fmt.Errorf("config: DATABASE_URL environment variable not set")
	}

	return cfg, nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func splitAndTrim(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
