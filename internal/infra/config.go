package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string

	StorageBackend string
	StoragePath    string
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string
	S3Bucket       string
	S3UseSSL       bool

	FetchTimeout      time.Duration
	FeedMaxBytes      int64
	ImageMaxBytes     int64
	TemplateMaxBytes  int64
	FetchHostAllow    []string
	FetchAllowLoop    bool
	FeedCacheTTL      time.Duration
	RunConcurrency    int
	RunPollInterval   time.Duration
	RunProgressEvery  int
	PreviewMaxWidth   int
	PreviewMaxHeight  int
	HTTPReadTimeout   time.Duration
	HTTPWriteTimeout  time.Duration
	HTTPIdleTimeout   time.Duration
	RateLimitPerMin   int
	CORSAllowedOrigin []string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		StorageBackend: getEnv("STORAGE_BACKEND", "file"),
		StoragePath:    getEnv("STORAGE_PATH", "./storage"),
		S3Endpoint:     os.Getenv("S3_ENDPOINT"),
		S3AccessKey:    os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:    os.Getenv("S3_SECRET_KEY"),
		S3Bucket:       getEnv("S3_BUCKET", "framepress"),
		S3UseSSL:       getEnvBool("S3_USE_SSL", false),

		FetchTimeout:      time.Second * time.Duration(getEnvInt("FETCH_TIMEOUT_SECONDS", 10)),
		FeedMaxBytes:      getEnvInt64("FEED_MAX_BYTES", 50*1024*1024),
		ImageMaxBytes:     getEnvInt64("IMAGE_MAX_BYTES", 10*1024*1024),
		TemplateMaxBytes:  getEnvInt64("TEMPLATE_MAX_BYTES", 10*1024*1024),
		FetchHostAllow:    getEnvList("FETCH_HOST_ALLOWLIST"),
		FetchAllowLoop:    getEnvBool("FETCH_ALLOW_LOOPBACK", false),
		FeedCacheTTL:      time.Second * time.Duration(getEnvInt("FEED_CACHE_TTL_SECONDS", 1800)),
		RunConcurrency:    getEnvInt("RUN_CONCURRENCY", 16),
		RunPollInterval:   time.Second * time.Duration(getEnvInt("RUN_POLL_INTERVAL_SECONDS", 2)),
		RunProgressEvery:  getEnvInt("RUN_PROGRESS_EVERY", 10),
		PreviewMaxWidth:   getEnvInt("PREVIEW_MAX_WIDTH", 800),
		PreviewMaxHeight:  getEnvInt("PREVIEW_MAX_HEIGHT", 600),
		HTTPReadTimeout:   time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:  time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:   time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:   getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		CORSAllowedOrigin: getEnvList("CORS_ALLOWED_ORIGINS"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.StorageBackend != "file" && cfg.StorageBackend != "s3" {
		return nil, fmt.Errorf("STORAGE_BACKEND must be file or s3, got %q", cfg.StorageBackend)
	}

	if cfg.StorageBackend == "s3" && cfg.S3Endpoint == "" {
		return nil, fmt.Errorf("S3_ENDPOINT is required when STORAGE_BACKEND=s3")
	}

	if cfg.RunConcurrency <= 0 {
		cfg.RunConcurrency = 1
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
