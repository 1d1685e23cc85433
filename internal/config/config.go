package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type AdminConfig struct {
	Port      int    `yaml:"port"`
	JWTSecret string `yaml:"jwt_secret"`
	APIKey    string `yaml:"api_key"` // static bearer key for service-to-service calls
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type EmailConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	From    string `yaml:"from"`
}

type BillingConfig struct {
	NotifyTimeout time.Duration `yaml:"notify_timeout"` // per-notification send budget
	Concurrency   int           `yaml:"concurrency"`    // reconciler worker count
}

type SchedulerConfig struct {
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
	NotifyWorkers     int           `yaml:"notify_workers"`
}

type IntakeConfig struct {
	RateLimit  int           `yaml:"rate_limit"`  // requests per window per client IP
	RateWindow time.Duration `yaml:"rate_window"` // fixed window size
}

type Config struct {
	Log       LogConfig       `yaml:"log"`
	Admin     AdminConfig     `yaml:"admin"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Email     EmailConfig     `yaml:"email"`
	Billing   BillingConfig   `yaml:"billing"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Intake    IntakeConfig    `yaml:"intake"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig() (*Config, error) {
	var configPath string = ""
	var dev bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config yaml")
	flag.BoolVar(&dev, "dev", false, "development mode")
	flag.Parse()

	b, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Admin.Port <= 0 {
		cfg.Admin.Port = 8080
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Billing.NotifyTimeout <= 0 {
		cfg.Billing.NotifyTimeout = 10 * time.Second
	}
	if cfg.Billing.Concurrency <= 0 {
		cfg.Billing.Concurrency = 4
	}
	if cfg.Scheduler.ReconcileInterval <= 0 {
		cfg.Scheduler.ReconcileInterval = time.Hour
	}
	if cfg.Scheduler.NotifyWorkers <= 0 {
		cfg.Scheduler.NotifyWorkers = 4
	}
	if cfg.Intake.RateLimit <= 0 {
		cfg.Intake.RateLimit = 5
	}
	if cfg.Intake.RateWindow <= 0 {
		cfg.Intake.RateWindow = time.Minute
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.Addr == "" {
		return nil, errors.New("redis.addr is required")
	}
	if cfg.Admin.JWTSecret == "" && cfg.Admin.APIKey == "" {
		return nil, errors.New("admin.jwt_secret or admin.api_key is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
