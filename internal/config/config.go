// Package config содержит логику чтения конфигурации клиента платформы.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации клиента платформы.
type Config struct {
	APIAddress        string        `env:"PAYDA_API_ADDRESS"`
	SessionFile       string        `env:"PAYDA_SESSION_FILE"`
	ThemeFile         string        `env:"PAYDA_THEME_FILE"`
	PoolPollInterval  time.Duration `env:"PAYDA_POOL_POLL_INTERVAL"`
	StatsPollInterval time.Duration `env:"PAYDA_STATS_POLL_INTERVAL"`
	RequestTimeout    time.Duration `env:"PAYDA_REQUEST_TIMEOUT"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envAPIAddress := cfg.APIAddress
	envSessionFile := cfg.SessionFile
	envThemeFile := cfg.ThemeFile
	envPoolInterval := cfg.PoolPollInterval
	envStatsInterval := cfg.StatsPollInterval
	envRequestTimeout := cfg.RequestTimeout

	flag.StringVar(&cfg.APIAddress, "a", "http://localhost:8080", "address of the platform backend")
	flag.StringVar(&cfg.SessionFile, "s", "payda-session.json", "path to the persisted session slot")
	flag.StringVar(&cfg.ThemeFile, "t", "payda-theme", "path to the persisted theme slot")
	flag.DurationVar(&cfg.PoolPollInterval, "pool-interval", 3*time.Second, "coupon pool refresh interval")
	flag.DurationVar(&cfg.StatsPollInterval, "stats-interval", 30*time.Second, "platform stats refresh interval")
	flag.DurationVar(&cfg.RequestTimeout, "timeout", 10*time.Second, "timeout for one-shot API requests")

	flag.Parse()

	if envAPIAddress != "" {
		cfg.APIAddress = envAPIAddress
	}
	if envSessionFile != "" {
		cfg.SessionFile = envSessionFile
	}
	if envThemeFile != "" {
		cfg.ThemeFile = envThemeFile
	}
	if envPoolInterval != 0 {
		cfg.PoolPollInterval = envPoolInterval
	}
	if envStatsInterval != 0 {
		cfg.StatsPollInterval = envStatsInterval
	}
	if envRequestTimeout != 0 {
		cfg.RequestTimeout = envRequestTimeout
	}

	if cfg.APIAddress == "" {
		cfg.APIAddress = "http://localhost:8080"
	}

	return cfg, nil
}
