package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// AppMetrica
	Token    string
	Endpoint string // 空の場合はライブラリのデフォルトエンドポイント

	// Export
	RequestTimeout   time.Duration
	PollBaseDelay    time.Duration
	PollMaxDelay     time.Duration
	PollMaxAttempts  int

	// Rate Limit
	RateLimitGeneral int
	RateLimitExport  int

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.Token = os.Getenv("APPMETRICA_TOKEN")
	if cfg.Token == "" {
		missing = append(missing, "APPMETRICA_TOKEN")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.Endpoint = getEnvString("APPMETRICA_ENDPOINT", "")
	cfg.RequestTimeout = getEnvDuration("EXPORT_REQUEST_TIMEOUT", 30*time.Second)
	cfg.PollBaseDelay = getEnvDuration("EXPORT_POLL_BASE_DELAY", 10*time.Second)
	cfg.PollMaxDelay = getEnvDuration("EXPORT_POLL_MAX_DELAY", 5*time.Minute)
	cfg.PollMaxAttempts = getEnvInt("EXPORT_POLL_MAX_ATTEMPTS", 10)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitExport = getEnvInt("RATE_LIMIT_EXPORT", 10)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
