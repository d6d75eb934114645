package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config はアプリケーション全体の設定です。すべて環境変数から読み込みます。
type Config struct {
	AppEnv         string
	Port           string
	DatabaseURL    string // postgres:// または sqlite://<path>。空ならDBなしで起動
	JWTSecret      string
	BypassAuth     bool
	LogLevel       string
	AllowedOrigins []string
	ClearDelay     time.Duration
	RefillDelay    time.Duration
	TickInterval   time.Duration
}

// Load は本番環境以外では .env を読み込んでから、環境変数で Config を組み立てます。
func Load() Config {
	appEnv := getEnv("APP_ENV", "development")
	if appEnv != "production" {
		if err := godotenv.Load(); err != nil {
			log.Debug().Err(err).Msg("warning: Error loading .env file (this is fine in production)")
		}
	}

	return Config{
		AppEnv:         appEnv,
		Port:           getEnv("PORT", "8080"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		JWTSecret:      os.Getenv("SUPABASE_JWT_SECRET"),
		BypassAuth:     os.Getenv("BYPASS_AUTH") == "true",
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		ClearDelay:     getMillis("CLEAR_DELAY_MS", 350),
		RefillDelay:    getMillis("REFILL_DELAY_MS", 100),
		TickInterval:   getMillis("TICK_INTERVAL_MS", 50),
	}
}

// IsProduction は本番環境かどうかを返します。
func (c Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// getMillis はミリ秒の整数として読み込みます。不正な値や負の値は def になります。
func getMillis(k string, def int) time.Duration {
	n, err := strconv.Atoi(os.Getenv(k))
	if err != nil || n < 0 {
		n = def
	}
	return time.Duration(n) * time.Millisecond
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
