package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string
	LogLevel    string

	// S3 archive for uploaded originals. Empty endpoint disables it.
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3BucketName      string
	S3UseSSL          bool

	// AI gateway
	AIGatewayAPIKey         string
	AIGatewayURL            string
	AIModel                 string
	ChatScriptVersion       string
	ExtractionScriptVersion string

	// Auth
	JWTSecret     string
	DevBypassAuth bool

	// Upload limits
	MaxFileSize       int64
	IntakeConcurrency int

	// In-memory state retention
	SessionTTL  time.Duration
	ProgressTTL time.Duration

	// Per-identity limiter for the application API
	RateLimitRPS   float64
	RateLimitBurst int
}

// Load reads a .env file when one is present and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")
	return FromEnv()
}

func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:                    getEnv("PORT", "8080"),
		DatabaseURL:             getEnv("DATABASE_URL", "data/iacolhe.db"),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		S3Endpoint:              getEnv("S3_ENDPOINT", ""),
		S3AccessKeyID:           getEnv("S3_ACCESS_KEY_ID", "minioadmin"),
		S3SecretAccessKey:       getEnv("S3_SECRET_ACCESS_KEY", "minioadmin"),
		S3BucketName:            getEnv("S3_BUCKET_NAME", "documents"),
		AIGatewayAPIKey:         getEnv("AI_GATEWAY_API_KEY", os.Getenv("LOVABLE_API_KEY")),
		AIGatewayURL:            getEnv("AI_GATEWAY_URL", "https://ai.gateway.lovable.dev/v1"),
		AIModel:                 getEnv("AI_MODEL", "google/gemini-2.5-flash"),
		ChatScriptVersion:       getEnv("CHAT_SCRIPT_VERSION", "v1"),
		ExtractionScriptVersion: getEnv("EXTRACTION_SCRIPT_VERSION", "v1"),
		JWTSecret:               getEnv("JWT_SECRET", ""),
	}

	var err error
	if cfg.S3UseSSL, err = getBool("S3_USE_SSL", false); err != nil {
		return nil, err
	}
	if cfg.DevBypassAuth, err = getBool("DEV_BYPASS_AUTH", false); err != nil {
		return nil, err
	}

	maxMB, err := getInt("MAX_FILE_SIZE_MB", 10)
	if err != nil {
		return nil, err
	}
	if maxMB <= 0 {
		return nil, fmt.Errorf("MAX_FILE_SIZE_MB must be positive")
	}
	cfg.MaxFileSize = int64(maxMB) << 20

	if cfg.IntakeConcurrency, err = getInt("INTAKE_CONCURRENCY", 4); err != nil {
		return nil, err
	}
	if cfg.IntakeConcurrency <= 0 {
		cfg.IntakeConcurrency = 1
	}

	if cfg.SessionTTL, err = getDuration("SESSION_TTL", 2*time.Hour); err != nil {
		return nil, err
	}
	if cfg.ProgressTTL, err = getDuration("PROGRESS_TTL", time.Hour); err != nil {
		return nil, err
	}

	if cfg.RateLimitRPS, err = getFloat("RATE_LIMIT_RPS", 5); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = getInt("RATE_LIMIT_BURST", 10); err != nil {
		return nil, err
	}

	if cfg.JWTSecret == "" && !cfg.DevBypassAuth {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

// ArchiveEnabled reports whether uploaded originals go to object storage.
func (c *Config) ArchiveEnabled() bool {
	return c.S3Endpoint != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getFloat(key string, defaultValue float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return v, nil
}
