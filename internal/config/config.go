package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	StoreFile     = "file"
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

type Config struct {
	Port                  string
	AllowedOrigin         string
	APIBaseURL            string
	APIToken              string
	APITimeoutSeconds     int
	TenantSlug            string
	TenantID              string
	LocalStore            string
	LocalStoreDir         string
	DatabaseURL           string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	ReportCacheTTLSeconds int
	AuthSecret            string
	AccessTokenTTLMinutes int
	Timezone              string
	PLCOGSRatio           decimal.Decimal
	PLTaxRatio            decimal.Decimal
	PPNRate               decimal.Decimal
	InputTaxCategories    []string
	LowStockThreshold     int
	MetricsEnabled        bool
	SeedAdminPassword     string
	SeedCashierPassword   string
}

// LoadDotEnv reads .env files into the environment without overriding
// variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			log.Printf("[config] WARN: could not load %s: %v", path, err)
		}
	}
}

func Load() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	cfg := Config{
		Port:                  getEnv("PORT", "8080"),
		AllowedOrigin:         getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		APIBaseURL:            strings.TrimRight(getEnv("API_BASE_URL", "http://localhost/api/v1"), "/"),
		APIToken:              strings.TrimSpace(os.Getenv("API_TOKEN")),
		APITimeoutSeconds:     positiveInt("API_TIMEOUT_SECONDS", 10),
		TenantSlug:            strings.TrimSpace(os.Getenv("TENANT_SLUG")),
		TenantID:              strings.TrimSpace(os.Getenv("TENANT_ID")),
		LocalStore:            strings.ToLower(getEnv("LOCAL_STORE", StoreFile)),
		LocalStoreDir:         getEnv("LOCAL_STORE_DIR", "data/local"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               redisDB,
		ReportCacheTTLSeconds: nonNegativeInt("REPORT_CACHE_TTL_SECONDS", 30),
		AuthSecret:            strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes: positiveInt("ACCESS_TOKEN_TTL_MINUTES", 480),
		Timezone:              getEnv("TIMEZONE", "Asia/Jakarta"),
		PLCOGSRatio:           ratio("PL_COGS_RATIO", "0.15"),
		PLTaxRatio:            ratio("PL_TAX_RATIO", "0.11"),
		PPNRate:               ratio("PPN_RATE", "0.11"),
		InputTaxCategories:    splitList(getEnv("INPUT_TAX_CATEGORIES", "supplies,inventory,purchase")),
		LowStockThreshold:     nonNegativeInt("LOW_STOCK_THRESHOLD", 5),
		MetricsEnabled:        getEnv("METRICS_ENABLED", "true") == "true",
		SeedAdminPassword:     os.Getenv("SEED_ADMIN_PASSWORD"),
		SeedCashierPassword:   os.Getenv("SEED_CASHIER_PASSWORD"),
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) APITimeout() time.Duration {
	return time.Duration(c.APITimeoutSeconds) * time.Second
}

func (c Config) ReportCacheTTL() time.Duration {
	return time.Duration(c.ReportCacheTTLSeconds) * time.Second
}

func (c Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMinutes) * time.Minute
}

// Location resolves TIMEZONE, falling back to UTC when the zone database
// does not know it.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("[config] WARN: unknown TIMEZONE %q, using UTC", c.Timezone)
		return time.UTC
	}
	return loc
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func positiveInt(key string, fallback int) int {
	n, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func nonNegativeInt(key string, fallback int) int {
	n, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

// ratio parses a fraction in [0, 1].
func ratio(key string, fallback string) decimal.Decimal {
	value, err := decimal.NewFromString(getEnv(key, fallback))
	if err != nil || value.IsNegative() || value.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.RequireFromString(fallback)
	}
	return value
}

func splitList(raw string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
