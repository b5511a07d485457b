package config

import (
	"fmt"
	"log"
	"time"

	"github.com/SscSPs/koperasi_core/internal/core/money"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL   string
	IsProduction  bool
	LogLevel      string
	RunMigrations bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Ledger LedgerConfig
	Shu    ShuConfig

	WorkerConcurrency int
}

// LedgerConfig bounds journal postings and balance mutations.
type LedgerConfig struct {
	MaxLineAmount      money.Money
	MaxHierarchyDepth  int
	BalanceLockTimeout time.Duration
}

// ShuConfig tunes the SHU calculation.
type ShuConfig struct {
	ChunkSize          int
	BatchSize          int
	CalculationTimeout time.Duration
	LockWait           time.Duration
	LockTTL            time.Duration
}

// DefaultLedgerConfig is used when no configuration is loaded (tests, tools).
func DefaultLedgerConfig() LedgerConfig {
	return LedgerConfig{
		MaxLineAmount:      money.MustParse("999999999999.99"),
		MaxHierarchyDepth:  10,
		BalanceLockTimeout: 5 * time.Second,
	}
}

// DefaultShuConfig is used when no configuration is loaded (tests, tools).
func DefaultShuConfig() ShuConfig {
	return ShuConfig{
		ChunkSize:          500,
		BatchSize:          100,
		CalculationTimeout: 10 * time.Minute,
		LockWait:           2 * time.Second,
		LockTTL:            15 * time.Minute,
	}
}

func setDefaults(v *viper.Viper) {
	ledger := DefaultLedgerConfig()
	shu := DefaultShuConfig()

	v.SetDefault("PGSQL_URL", "")
	v.SetDefault("IS_PRODUCTION", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("RUN_MIGRATIONS", true)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("LEDGER_MAX_LINE_AMOUNT", ledger.MaxLineAmount.String())
	v.SetDefault("LEDGER_MAX_HIERARCHY_DEPTH", ledger.MaxHierarchyDepth)
	v.SetDefault("BALANCE_LOCK_TIMEOUT", ledger.BalanceLockTimeout.String())
	v.SetDefault("SHU_CHUNK_SIZE", shu.ChunkSize)
	v.SetDefault("SHU_BATCH_SIZE", shu.BatchSize)
	v.SetDefault("SHU_CALCULATION_TIMEOUT", shu.CalculationTimeout.String())
	v.SetDefault("SHU_LOCK_WAIT", shu.LockWait.String())
	v.SetDefault("SHU_LOCK_TTL", shu.LockTTL.String())
	v.SetDefault("WORKER_CONCURRENCY", 4)
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DatabaseURL:       v.GetString("PGSQL_URL"),
		IsProduction:      v.GetBool("IS_PRODUCTION"),
		LogLevel:          v.GetString("LOG_LEVEL"),
		RunMigrations:     v.GetBool("RUN_MIGRATIONS"),
		RedisAddr:         v.GetString("REDIS_ADDR"),
		RedisPassword:     v.GetString("REDIS_PASSWORD"),
		RedisDB:           v.GetInt("REDIS_DB"),
		WorkerConcurrency: v.GetInt("WORKER_CONCURRENCY"),
	}
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	maxLine, err := money.Parse(v.GetString("LEDGER_MAX_LINE_AMOUNT"))
	if err != nil {
		return nil, fmt.Errorf("invalid LEDGER_MAX_LINE_AMOUNT: %w", err)
	}
	if !maxLine.IsPositive() {
		return nil, fmt.Errorf("LEDGER_MAX_LINE_AMOUNT must be positive, got %s", maxLine)
	}
	cfg.Ledger = LedgerConfig{
		MaxLineAmount:      maxLine,
		MaxHierarchyDepth:  v.GetInt("LEDGER_MAX_HIERARCHY_DEPTH"),
		BalanceLockTimeout: durationOr(v, "BALANCE_LOCK_TIMEOUT", DefaultLedgerConfig().BalanceLockTimeout),
	}

	shuDefaults := DefaultShuConfig()
	cfg.Shu = ShuConfig{
		ChunkSize:          v.GetInt("SHU_CHUNK_SIZE"),
		BatchSize:          v.GetInt("SHU_BATCH_SIZE"),
		CalculationTimeout: durationOr(v, "SHU_CALCULATION_TIMEOUT", shuDefaults.CalculationTimeout),
		LockWait:           durationOr(v, "SHU_LOCK_WAIT", shuDefaults.LockWait),
		LockTTL:            durationOr(v, "SHU_LOCK_TTL", shuDefaults.LockTTL),
	}
	if cfg.Shu.ChunkSize <= 0 || cfg.Shu.BatchSize <= 0 {
		return nil, fmt.Errorf("SHU_CHUNK_SIZE and SHU_BATCH_SIZE must be positive")
	}
	// the plan lock is never renewed, so it has to outlive the whole run
	if cfg.Shu.LockTTL <= cfg.Shu.CalculationTimeout+cfg.Shu.LockWait {
		return nil, fmt.Errorf("SHU_LOCK_TTL (%s) must exceed SHU_CALCULATION_TIMEOUT (%s) plus SHU_LOCK_WAIT (%s)",
			cfg.Shu.LockTTL, cfg.Shu.CalculationTimeout, cfg.Shu.LockWait)
	}
	if cfg.Ledger.MaxHierarchyDepth <= 0 {
		return nil, fmt.Errorf("LEDGER_MAX_HIERARCHY_DEPTH must be positive")
	}
	if cfg.WorkerConcurrency <= 0 {
		cfg.WorkerConcurrency = 1
	}

	return cfg, nil
}

func durationOr(v *viper.Viper, key string, fallback time.Duration) time.Duration {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("Warning: Invalid value for %s ('%s'). Defaulting to %s.\n", key, raw, fallback)
		return fallback
	}
	return d
}
