package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Gemini LLM capability
	GeminiAPIKey    string
	GeminiModelID   string
	ClassifyTimeout time.Duration
	GenerateTimeout time.Duration

	// Inbound message guards
	RateLimitPerMinute int
	DedupTTL           time.Duration

	// Booking sessions
	SessionIdleTimeout time.Duration
	HistoryTurns       int

	// Clinic reference data
	ClinicTimezone  string
	DataDir         string
	RefreshInterval time.Duration

	// Platform webhook credentials
	WhatsAppAccessToken   string
	WhatsAppVerifyToken   string
	WhatsAppAppSecret     string
	WhatsAppPhoneNumberID string
	InstagramAccessToken  string
	InstagramVerifyToken  string
	InstagramAppSecret    string
	TikTokAccessToken     string
	TikTokVerifyToken     string
	TikTokClientSecret    string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:   getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		ClassifyTimeout: getEnvAsDuration("LLM_CLASSIFY_TIMEOUT", 5*time.Second),
		GenerateTimeout: getEnvAsDuration("LLM_GENERATE_TIMEOUT", 15*time.Second),

		RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 10),
		DedupTTL:           getEnvAsDuration("DEDUP_TTL", 24*time.Hour),

		SessionIdleTimeout: getEnvAsDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		HistoryTurns:       getEnvAsInt("HISTORY_TURNS", 10),

		ClinicTimezone:  getEnv("CLINIC_TIMEZONE", "Asia/Riyadh"),
		DataDir:         getEnv("CLINIC_DATA_DIR", "data"),
		RefreshInterval: getEnvAsDuration("CLINIC_DATA_REFRESH_INTERVAL", time.Hour),

		WhatsAppAccessToken:   getEnv("WHATSAPP_ACCESS_TOKEN", ""),
		WhatsAppVerifyToken:   getEnv("WHATSAPP_VERIFY_TOKEN", ""),
		WhatsAppAppSecret:     getEnv("WHATSAPP_APP_SECRET", ""),
		WhatsAppPhoneNumberID: getEnv("WHATSAPP_PHONE_NUMBER_ID", ""),
		InstagramAccessToken:  getEnv("INSTAGRAM_ACCESS_TOKEN", ""),
		InstagramVerifyToken:  getEnv("INSTAGRAM_VERIFY_TOKEN", ""),
		InstagramAppSecret:    getEnv("INSTAGRAM_APP_SECRET", ""),
		TikTokAccessToken:     getEnv("TIKTOK_ACCESS_TOKEN", ""),
		TikTokVerifyToken:     getEnv("TIKTOK_VERIFY_TOKEN", ""),
		TikTokClientSecret:    getEnv("TIKTOK_CLIENT_SECRET", ""),
	}
}

// IsProduction reports whether the app runs with production settings.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
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
