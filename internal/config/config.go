// Package config loads the demo binary's settings from the environment,
// layered over optional dotenv files.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type RedisConfig struct {
	Addr     string `env:"ADDR" envDefault:"localhost:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

type BreakerConfig struct {
	Name             string        `env:"NAME" envDefault:"tripwire-demo"`
	FailureThreshold int           `env:"FAILURE_THRESHOLD" envDefault:"5"`
	RecoveryTimeout  time.Duration `env:"RECOVERY_TIMEOUT" envDefault:"30s"`
}

type Config struct {
	Environment string        `env:"ENVIRONMENT" envDefault:"development"`
	TargetURL   string        `env:"TARGET_URL" envDefault:"http://localhost:8080/health"`
	Redis       RedisConfig   `envPrefix:"REDIS_"`
	Breaker     BreakerConfig `envPrefix:"BREAKER_"`
}

func (c Config) IsProd() bool {
	return c.Environment == "production"
}

func loadEnv(filename string) error {
	err := godotenv.Load(filename)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("error loading file %s: %w", filename, err)
}

// Load layers .env.local then .env under the live environment, then
// parses the result.
func Load() (Config, error) {
	var errs error

	for _, file := range []string{".env.local", ".env"} {
		if err := loadEnv(file); err != nil {
			errs = errors.Join(errs, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		errs = errors.Join(errs, fmt.Errorf("error parsing env: %w", err))
	}

	return cfg, errs
}
