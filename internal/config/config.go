package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port                     string
	AllowedOrigin            string
	DatabaseURL              string
	AutoMigrate              bool
	RedisAddr                string
	RedisPassword            string
	RedisDB                  int
	DashboardCacheTTLSeconds int
	AuthSecret               string
	AccessTokenTTLMinutes    int
	Timezone                 string
	LogoDir                  string
	PublicBaseURL            string
	MaxLogoBytes             int64
	LogLevel                 string
	LogFormat                string
}

func Load() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	ttl, err := strconv.Atoi(getEnv("DASHBOARD_CACHE_TTL_SECONDS", "60"))
	if err != nil || ttl < 1 {
		ttl = 60
	}
	tokenTTL, err := strconv.Atoi(getEnv("ACCESS_TOKEN_TTL_MINUTES", "480"))
	if err != nil || tokenTTL < 1 {
		tokenTTL = 480
	}
	maxLogo, err := strconv.ParseInt(getEnv("MAX_LOGO_BYTES", "2097152"), 10, 64)
	if err != nil || maxLogo < 1 {
		maxLogo = 2 << 20
	}
	autoMigrate, _ := strconv.ParseBool(getEnv("AUTO_MIGRATE", "false"))

	port := getEnv("PORT", "8080")
	cfg := Config{
		Port:                     port,
		AllowedOrigin:            getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:5173"),
		DatabaseURL:              os.Getenv("DATABASE_URL"),
		AutoMigrate:              autoMigrate,
		RedisAddr:                os.Getenv("REDIS_ADDR"),
		RedisPassword:            os.Getenv("REDIS_PASSWORD"),
		RedisDB:                  redisDB,
		DashboardCacheTTLSeconds: ttl,
		AuthSecret:               strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes:    tokenTTL,
		Timezone:                 getEnv("SHOP_TIMEZONE", "Africa/Lagos"),
		LogoDir:                  getEnv("LOGO_DIR", "data/logos"),
		PublicBaseURL:            strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:"+port), "/"),
		MaxLogoBytes:             maxLogo,
		LogLevel:                 getEnv("LOG_LEVEL", "info"),
		LogFormat:                getEnv("LOG_FORMAT", "console"),
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

// Location resolves Timezone; ledger days and dashboard periods follow it.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid SHOP_TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
