package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	LogLevel    string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	// RedisAddr enables the distributed quota lock when set. Empty means
	// single-node deployment, where the database guard alone is enough.
	RedisAddr     string
	RedisPassword string

	Governance Governance
	Scheduler  SchedulerConfig
}

// Governance groups the tunables of the financial-governance rules.
type Governance struct {
	// DebtCeiling is the reference amount against which total arrears are
	// normalized by the debt_level scoring rule.
	DebtCeiling int64
	// VoucherAmountCeiling bounds max_amount on issued vouchers.
	VoucherAmountCeiling int64
	// VoucherValidityDays is the default validity window for new vouchers.
	VoucherValidityDays int
	// UnpaidThresholdDays is the overdue age past which a cotisation is
	// classified unpaid rather than late.
	UnpaidThresholdDays int
}

type SchedulerConfig struct {
	Interval  time.Duration
	BatchSize int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "vigie"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		LogLevel:    getenv("LOG_LEVEL", "info"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "vigie"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 3600),

		RedisAddr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword: getenv("REDIS_PASSWORD", ""),

		Governance: Governance{
			DebtCeiling:          getenvInt64("GOVERNANCE_DEBT_CEILING", 1000),
			VoucherAmountCeiling: getenvInt64("GOVERNANCE_VOUCHER_CEILING", 500000),
			VoucherValidityDays:  getenvInt("GOVERNANCE_VOUCHER_VALIDITY_DAYS", 30),
			UnpaidThresholdDays:  getenvInt("GOVERNANCE_UNPAID_THRESHOLD_DAYS", 30),
		},
		Scheduler: SchedulerConfig{
			Interval:  getenvDuration("SCHEDULER_INTERVAL", time.Minute),
			BatchSize: getenvInt("SCHEDULER_BATCH_SIZE", 100),
		},
	}
}

// Module wires configuration loading for the application.
var Module = fx.Module("config",
	fx.Provide(Load),
)

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
