// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port int `yaml:"port"`
	// ScanToken guards the scheduled-scan endpoint (Authorization: Bearer ...).
	ScanToken string `yaml:"scan_token"`
	// AdminAPIKey is exchanged for a short-lived admin session.
	AdminAPIKey  string        `yaml:"admin_api_key"`
	SessionTTL   time.Duration `yaml:"session_ttl"`
	CookieDomain string        `yaml:"cookie_domain"`
	SecureCookie bool          `yaml:"secure_cookie"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type BillingConfig struct {
	// WebhookSecret is the shared secret webhook signatures are verified with.
	WebhookSecret string `yaml:"webhook_secret"`
	APIKey        string `yaml:"api_key"`
	// Plans maps provider price references to internal plan id/name pairs.
	Plans []PlanMapping `yaml:"plans"`
}

type PlanMapping struct {
	PriceID string `yaml:"price_id"`
	PlanID  string `yaml:"plan_id"`
	Name    string `yaml:"name"`
}

type MailConfig struct {
	SendGridKey string `yaml:"sendgrid_key"`
	Sender      string `yaml:"sender"`
	SenderName  string `yaml:"sender_name"`
}

type SchedulerConfig struct {
	// Interval for the in-process expiry worker; 0 disables it (external
	// cron hits the scan endpoint instead).
	Interval time.Duration `yaml:"interval"`
	// LookaheadDays is the renewal-nudge window.
	LookaheadDays int `yaml:"lookahead_days"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Billing   BillingConfig   `yaml:"billing"`
	Mail      MailConfig      `yaml:"mail"`
	Scheduler SchedulerConfig `yaml:"scheduler"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.SessionTTL <= 0 {
		cfg.Server.SessionTTL = 30 * time.Minute
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Scheduler.LookaheadDays <= 0 {
		cfg.Scheduler.LookaheadDays = 7
	}

	// Fail fast on required connection parameters; nothing here is
	// recoverable at runtime.
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Billing.WebhookSecret == "" {
		return nil, errors.New("billing.webhook_secret is required")
	}
	if cfg.Server.ScanToken == "" {
		return nil, errors.New("server.scan_token is required")
	}
	if len(cfg.Billing.Plans) == 0 {
		return nil, errors.New("billing.plans must map at least one price")
	}
	if !dev && cfg.Mail.SendGridKey == "" {
		return nil, errors.New("mail.sendgrid_key is required outside dev mode")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
