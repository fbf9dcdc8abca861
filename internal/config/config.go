// Package config содержит логику чтения конфигурации сервиса SajuKing.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации сервиса SajuKing.
type Config struct {
	RunAddress   string `env:"RUN_ADDRESS"`
	DatabaseURI  string `env:"DATABASE_URI"`
	CookieSecret string `env:"COOKIE_SECRET"`

	PortOneAPIURL     string `env:"PORTONE_API_URL" envDefault:"https://api.portone.io"`
	PortOneAPISecret  string `env:"PORTONE_API_SECRET"`
	PortOneStoreID    string `env:"PORTONE_STORE_ID"`
	PortOneChannelKey string `env:"PORTONE_CHANNEL_KEY"`

	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`

	PremiumPrice          int64 `env:"PREMIUM_PRICE" envDefault:"9900"`
	TaskWorkers           int   `env:"TASK_WORKERS" envDefault:"2"`
	ChatRatePerMinute     int   `env:"CHAT_RATE_PER_MINUTE" envDefault:"10"`
	ChatAddrRatePerMinute int   `env:"CHAT_ADDR_RATE_PER_MINUTE" envDefault:"30"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envCookieSecret := cfg.CookieSecret

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.CookieSecret, "s", "", "secret for signing device cookies")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envCookieSecret != "" {
		cfg.CookieSecret = envCookieSecret
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	if cfg.PremiumPrice <= 0 {
		return nil, fmt.Errorf("premium price must be positive, got %d", cfg.PremiumPrice)
	}

	return cfg, nil
}

// PaymentsConfigured сообщает, заданы ли идентификаторы магазина PortOne.
func (c *Config) PaymentsConfigured() bool {
	return c.PortOneStoreID != "" && c.PortOneChannelKey != ""
}
