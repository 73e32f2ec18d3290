package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Addr               string        `env:"APP_ADDR" envDefault:":8080"`
	Environment        string        `env:"APP_ENV" envDefault:"development"`
	DatabaseURL        string        `env:"DATABASE_URL"`
	MigrationsDir      string        `env:"MIGRATIONS_DIR" envDefault:"migrations"`
	JWTSecret          string        `env:"JWT_SECRET"`
	TokenTTL           time.Duration `env:"TOKEN_TTL" envDefault:"8h"`
	DataEncryptionKey  string        `env:"DATA_ENCRYPTION_KEY"`
	RatesFile          string        `env:"RATES_FILE" envDefault:"config/rates.yaml"`
	CompanyName        string        `env:"COMPANY_NAME" envDefault:"Entreprise"`
	SeedAdminEmail     string        `env:"SEED_ADMIN_EMAIL"`
	SeedAdminPassword  string        `env:"SEED_ADMIN_PASSWORD"`
	RunMigrations      bool          `env:"RUN_MIGRATIONS" envDefault:"true"`
	RunSeed            bool          `env:"RUN_SEED" envDefault:"true"`
	MaxBodyBytes       int64         `env:"MAX_BODY_BYTES" envDefault:"1048576"`
	MaxImportBytes     int64         `env:"MAX_IMPORT_BYTES" envDefault:"10485760"`
	RateLimitPerMinute int           `env:"RATE_LIMIT_PER_MINUTE" envDefault:"120"`
	MetricsEnabled     bool          `env:"METRICS_ENABLED" envDefault:"true"`
	StorageDir         string        `env:"STORAGE_DIR" envDefault:"storage"`
	Redis              RedisConfig
	S3                 S3Config
}

type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB" envDefault:"0"`
	Prefix   string        `env:"REDIS_PREFIX" envDefault:"paie:"`
	TTL      time.Duration `env:"REDIS_CACHE_TTL" envDefault:"10m"`
}

type S3Config struct {
	Endpoint        string `env:"S3_ENDPOINT"`
	AccessKeyID     string `env:"S3_ACCESS_KEY"`
	SecretAccessKey string `env:"S3_SECRET_KEY"`
	Bucket          string `env:"S3_BUCKET" envDefault:"payslips"`
	Region          string `env:"S3_REGION" envDefault:"us-east-1"`
	UseSSL          bool   `env:"S3_USE_SSL" envDefault:"false"`
}

// Load reads an optional .env file, then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using process environment")
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.IsProduction() {
		if len(strings.TrimSpace(c.JWTSecret)) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
		}
		if strings.TrimSpace(c.DataEncryptionKey) == "" {
			return fmt.Errorf("DATA_ENCRYPTION_KEY must be set in production for encryption at rest")
		}
		if c.RunSeed && strings.TrimSpace(c.SeedAdminPassword) == "" {
			return fmt.Errorf("SEED_ADMIN_PASSWORD must be set or RUN_SEED disabled in production")
		}
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.MaxImportBytes < c.MaxBodyBytes {
		return fmt.Errorf("MAX_IMPORT_BYTES must be at least MAX_BODY_BYTES")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.S3.Endpoint != "" && (c.S3.AccessKeyID == "" || c.S3.SecretAccessKey == "") {
		return fmt.Errorf("S3_ACCESS_KEY and S3_SECRET_KEY must be set when S3_ENDPOINT is configured")
	}
	return nil
}
