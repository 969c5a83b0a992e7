package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr     string
	MySQLDSN     string
	RedisAddr    string
	CacheTTL     time.Duration
	PaymentDelay time.Duration
}

// LoadConfig reads configuration from the environment, with a .env file as a
// fallback for local runs. Every value has a working local default.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		HTTPAddr:  getenv("HTTP_ADDR", ":8080"),
		MySQLDSN:  getenv("MYSQL_DSN", "root:root@tcp(localhost:3306)/shop?parseTime=true"),
		RedisAddr: getenv("REDIS_ADDR", "localhost:6379"),
	}

	var err error
	if cfg.CacheTTL, err = getduration("CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.PaymentDelay, err = getduration("PAYMENT_DELAY", 100*time.Millisecond); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getduration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
