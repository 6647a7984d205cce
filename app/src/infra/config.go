package infra

import (
	"context"
	"os"
	"strconv"
	"strings"

	"obruk-backend/app/src/infra/utils"
)

// Config is the full environment surface, enumerated once at startup.
type Config struct {
	HTTPPort    string
	GRPCPort    string
	MetricsPort string

	StorageDriver string
	StorageFile   string

	DatabaseDSN      string
	DatabaseHost     string
	DatabasePort     string
	DatabaseUser     string
	DatabasePassword string
	DatabaseName     string

	AIBaseURL          string
	AIHealthTimeoutMS  int
	AIPredictTimeoutMS int
	AISequenceLength   int
	AIBreakerFailures  int
	AIBreakerOpenMS    int

	PageDefaultLimit int
	PageMaxLimit     int

	CORSOrigins []string

	RateLimitPerMinute int
	RateLimitBurst     int
}

func LoadConfig() Config {
	return Config{
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		GRPCPort:    getEnv("GRPC_PORT", "50051"),
		MetricsPort: getEnv("METRICS_PORT", "2112"),

		StorageDriver: getEnv("STORAGE_DRIVER", "file"),
		StorageFile:   getEnv("STORAGE_FILE", "./data/measurements.json"),

		DatabaseDSN:      os.Getenv("DB_DSN"),
		DatabaseHost:     os.Getenv("DB_HOST"),
		DatabasePort:     os.Getenv("DB_PORT"),
		DatabaseUser:     os.Getenv("DB_USER"),
		DatabasePassword: os.Getenv("DB_PASSWORD"),
		DatabaseName:     os.Getenv("DB_NAME"),

		AIBaseURL:          getEnv("AI_BASE_URL", "http://localhost:5000"),
		AIHealthTimeoutMS:  getEnvInt("AI_HEALTH_TIMEOUT_MS", 3000),
		AIPredictTimeoutMS: getEnvInt("AI_PREDICT_TIMEOUT_MS", 10000),
		AISequenceLength:   getEnvInt("AI_SEQUENCE_LENGTH", 10),
		AIBreakerFailures:  getEnvInt("AI_BREAKER_FAILURES", 3),
		AIBreakerOpenMS:    getEnvInt("AI_BREAKER_OPEN_MS", 15000),

		PageDefaultLimit: getEnvInt("PAGE_DEFAULT_LIMIT", 20),
		PageMaxLimit:     getEnvInt("PAGE_MAX_LIMIT", 200),

		CORSOrigins: getEnvList("CORS_ORIGINS", "*"),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MIN", 120),
		RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", 30),
	}
}

func LogConfig(ctx context.Context, logger *Logger, cfg Config) {
	logger.Printf(ctx, "HTTP_PORT=%s", cfg.HTTPPort)
	logger.Printf(ctx, "GRPC_PORT=%s", cfg.GRPCPort)
	logger.Printf(ctx, "METRICS_PORT=%s", utils.EmptyFallback(cfg.MetricsPort, "(disabled)"))
	logger.Printf(ctx, "STORAGE_DRIVER=%s", cfg.StorageDriver)
	logger.Printf(ctx, "STORAGE_FILE=%s", cfg.StorageFile)
	if cfg.DatabaseDSN != "" {
		logger.Printf(ctx, "DB_DSN set (length %d)", len(cfg.DatabaseDSN))
	} else {
		logger.Println(ctx, "DB_DSN not provided")
	}
	logger.Printf(ctx, "DB_HOST=%s", utils.EmptyFallback(cfg.DatabaseHost, "(not set)"))
	logger.Printf(ctx, "DB_PORT=%s", utils.EmptyFallback(cfg.DatabasePort, "(not set)"))
	logger.Printf(ctx, "DB_USER=%s", utils.EmptyFallback(cfg.DatabaseUser, "(not set)"))
	if cfg.DatabasePassword != "" {
		logger.Println(ctx, "DB_PASSWORD set (redacted)")
	} else {
		logger.Println(ctx, "DB_PASSWORD not provided")
	}
	logger.Printf(ctx, "DB_NAME=%s", utils.EmptyFallback(cfg.DatabaseName, "(not set)"))
	logger.Printf(ctx, "AI_BASE_URL=%s", cfg.AIBaseURL)
	logger.Printf(ctx, "AI_HEALTH_TIMEOUT_MS=%d", cfg.AIHealthTimeoutMS)
	logger.Printf(ctx, "AI_PREDICT_TIMEOUT_MS=%d", cfg.AIPredictTimeoutMS)
	logger.Printf(ctx, "AI_SEQUENCE_LENGTH=%d", cfg.AISequenceLength)
	logger.Printf(ctx, "AI_BREAKER_FAILURES=%d", cfg.AIBreakerFailures)
	logger.Printf(ctx, "AI_BREAKER_OPEN_MS=%d", cfg.AIBreakerOpenMS)
	logger.Printf(ctx, "PAGE_DEFAULT_LIMIT=%d", cfg.PageDefaultLimit)
	logger.Printf(ctx, "PAGE_MAX_LIMIT=%d", cfg.PageMaxLimit)
	logger.Printf(ctx, "CORS_ORIGINS=%s", strings.Join(cfg.CORSOrigins, ","))
	logger.Printf(ctx, "RATE_LIMIT_PER_MIN=%d", cfg.RateLimitPerMinute)
	logger.Printf(ctx, "RATE_LIMIT_BURST=%d", cfg.RateLimitBurst)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvList(key, fallback string) []string {
	raw := getEnv(key, fallback)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
