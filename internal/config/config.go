// Package config loads the flat, validated configuration record the
// rest of the pipeline is built around. Every field is sourced from
// an environment variable exactly once at startup and then passed by
// reference; nothing re-reads the environment after Load returns.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	URL           string
	MigrationsDir string
	ReadyTimeout  time.Duration
}

type RedisConfig struct {
	Host string
	Port int
}

type BasicAuthConfig struct {
	Username string
	Password string
}

type ScraperConfig struct {
	Concurrency   int
	Timeout       time.Duration
	UserAgent     string
	MaxURLsPerJob int
}

type PuppeteerConfig struct {
	Headless      bool
	DisableImages bool
}

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      BasicAuthConfig
	Scraper   ScraperConfig
	Puppeteer PuppeteerConfig
}

// Load populates a Config from the process environment. DATABASE_URL
// is the only required variable; everything else has a default
// matching spec §6.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("HOST", "0.0.0.0"),
			Port: getEnvInt("PORT", 3001),
		},
		Database: DatabaseConfig{
			URL:           os.Getenv("DATABASE_URL"),
			MigrationsDir: getEnv("DB_MIGRATIONS_DIR", "db/migrations"),
			ReadyTimeout:  time.Duration(getEnvInt("DB_READY_TIMEOUT_MS", 30000)) * time.Millisecond,
		},
		Redis: RedisConfig{
			Host: getEnv("REDIS_HOST", "localhost"),
			Port: getEnvInt("REDIS_PORT", 6379),
		},
		Auth: BasicAuthConfig{
			Username: getEnv("BASIC_AUTH_USERNAME", "admin"),
			Password: getEnv("BASIC_AUTH_PASSWORD", "admin123"),
		},
		Scraper: ScraperConfig{
			Concurrency:   getEnvInt("SCRAPER_CONCURRENCY", 3),
			Timeout:       time.Duration(getEnvInt("SCRAPER_TIMEOUT", 30000)) * time.Millisecond,
			UserAgent:     getEnv("SCRAPER_USER_AGENT", "Mozilla/5.0 (compatible; MediaScraperBot/1.0)"),
			MaxURLsPerJob: getEnvInt("MAX_URLS_PER_REQUEST", 100),
		},
		Puppeteer: PuppeteerConfig{
			Headless:      getEnvBool("PUPPETEER_HEADLESS", true),
			DisableImages: getEnvBool("PUPPETEER_DISABLE_IMAGES", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate performs basic sanity checks so obviously broken
// configuration fails fast at startup rather than during the first
// request.
func (cfg *Config) Validate() error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if strings.TrimSpace(cfg.Database.URL) == "" {
		return errors.New("DATABASE_URL must be set")
	}
	if cfg.Scraper.Concurrency <= 0 {
		return errors.New("SCRAPER_CONCURRENCY must be positive")
	}
	if cfg.Scraper.MaxURLsPerJob <= 0 {
		return errors.New("MAX_URLS_PER_REQUEST must be positive")
	}
	if strings.TrimSpace(cfg.Auth.Username) == "" || strings.TrimSpace(cfg.Auth.Password) == "" {
		return errors.New("BASIC_AUTH_USERNAME and BASIC_AUTH_PASSWORD must be set")
	}
	return nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
