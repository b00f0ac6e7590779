// Package config содержит логику чтения конфигурации сервера маркетплейса пикеров.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DefaultJWTSecret используется, если секрет не задан. Годится только для разработки.
const DefaultJWTSecret = "default_secret"

// Config содержит параметры конфигурации сервера.
type Config struct {
	RunAddress     string `env:"RUN_ADDRESS"`
	DatabaseURI    string `env:"DATABASE_URI"`
	MetricsAddress string `env:"METRICS_ADDRESS"`

	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL"`

	VerificationCodeTTL    time.Duration `env:"VERIFICATION_CODE_TTL"`
	DownloadTokenTTL       time.Duration `env:"DOWNLOAD_TOKEN_TTL"`
	DownloadTokenSingleUse bool          `env:"DOWNLOAD_TOKEN_SINGLE_USE"`
	PendingOrderTTL        time.Duration `env:"PENDING_ORDER_TTL"`
	ReaperInterval         time.Duration `env:"REAPER_INTERVAL"`

	StorageDir string `env:"STORAGE_DIR"`
	S3         S3Config

	OrderRatePerMinute int `env:"ORDER_RATE_PER_MINUTE"`
	OrderRateBurst     int `env:"ORDER_RATE_BURST"`
}

// S3Config параметры объектного хранилища. Пустой Bucket означает локальный диск.
type S3Config struct {
	Bucket    string `env:"S3_BUCKET"`
	Region    string `env:"S3_REGION"`
	Endpoint  string `env:"S3_ENDPOINT"`
	AccessKey string `env:"S3_ACCESS_KEY"`
	SecretKey string `env:"S3_SECRET_KEY"`
}

// Parse считывает конфигурацию. Переменные окружения, в том числе из файла
// .env в рабочем каталоге, имеют приоритет над флагами командной строки.
func Parse() (*Config, error) {
	cfg := &Config{}

	flag.StringVar(&cfg.RunAddress, "a", "localhost:3000", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.MetricsAddress, "m", "", "address for a separate metrics server")
	flag.StringVar(&cfg.JWTSecret, "s", DefaultJWTSecret, "secret for signing access tokens")
	flag.DurationVar(&cfg.TokenTTL, "token-ttl", 24*time.Hour, "access token lifetime")
	flag.DurationVar(&cfg.VerificationCodeTTL, "code-ttl", 5*time.Minute, "verification code lifetime")
	flag.DurationVar(&cfg.DownloadTokenTTL, "download-ttl", time.Hour, "download token lifetime")
	flag.BoolVar(&cfg.DownloadTokenSingleUse, "download-single-use", false, "invalidate download tokens after first use")
	flag.DurationVar(&cfg.PendingOrderTTL, "pending-ttl", time.Hour, "payment window for external wallet orders")
	flag.DurationVar(&cfg.ReaperInterval, "i", 5*time.Minute, "interval between expired credential sweeps")
	flag.StringVar(&cfg.StorageDir, "storage", "uploads", "directory for uploaded artifacts")
	flag.StringVar(&cfg.S3.Bucket, "s3-bucket", "", "S3 bucket for artifacts")
	flag.StringVar(&cfg.S3.Region, "s3-region", "us-east-1", "S3 region")
	flag.StringVar(&cfg.S3.Endpoint, "s3-endpoint", "", "custom S3 endpoint")
	flag.IntVar(&cfg.OrderRatePerMinute, "order-rate", 30, "orders per minute allowed for one user")
	flag.IntVar(&cfg.OrderRateBurst, "order-burst", 10, "order burst allowed for one user")

	flag.Parse()

	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadDotEnv дополняет окружение значениями из файла. Уже заданные
// переменные не перезаписываются, отсутствие файла не ошибка.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.RunAddress == "" {
		return errors.New("run address is required")
	}
	if c.JWTSecret == "" {
		return errors.New("jwt secret is required")
	}

	durations := []struct {
		name string
		d    time.Duration
	}{
		{"TOKEN_TTL", c.TokenTTL},
		{"VERIFICATION_CODE_TTL", c.VerificationCodeTTL},
		{"DOWNLOAD_TOKEN_TTL", c.DownloadTokenTTL},
		{"PENDING_ORDER_TTL", c.PendingOrderTTL},
		{"REAPER_INTERVAL", c.ReaperInterval},
	}
	for _, d := range durations {
		if d.d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.name, d.d)
		}
	}

	if c.OrderRatePerMinute <= 0 || c.OrderRateBurst <= 0 {
		return errors.New("order rate limits must be positive")
	}
	return nil
}
