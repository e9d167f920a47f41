package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	SLA        SLAConfig        `yaml:"sla"`
	PMEngine   PMEngineConfig   `yaml:"pm_engine"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RequestIPHeader string  `yaml:"request_ip_header"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// SLABudgetConfig is a response/resolution time budget, in minutes.
type SLABudgetConfig struct {
	ResponseMinutes   int `yaml:"response_minutes"`
	ResolutionMinutes int `yaml:"resolution_minutes"`
}

// SLAConfig holds the system-wide default SLA budgets, keyed by priority.
// Hotel-specific overrides live in the database and take precedence.
type SLAConfig struct {
	CacheTTLSeconds int                        `yaml:"cache_ttl_seconds"`
	Defaults        map[string]SLABudgetConfig `yaml:"defaults"`
}

// PMEngineConfig holds the preventive-maintenance engine configuration.
type PMEngineConfig struct {
	Enabled         bool          `yaml:"enabled"`
	IntervalSeconds int           `yaml:"interval_seconds"`
	Interval        time.Duration `yaml:"-"` // Ignored by YAML parser
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if cfg.PMEngine.IntervalSeconds <= 0 {
		cfg.PMEngine.IntervalSeconds = 300
	}
	cfg.PMEngine.Interval = time.Duration(cfg.PMEngine.IntervalSeconds) * time.Second

	if cfg.SLA.CacheTTLSeconds <= 0 {
		cfg.SLA.CacheTTLSeconds = 60
	}
	if cfg.SLA.Defaults == nil {
		cfg.SLA.Defaults = DefaultSLABudgets()
	} else {
		for priority, budget := range DefaultSLABudgets() {
			if _, ok := cfg.SLA.Defaults[priority]; !ok {
				cfg.SLA.Defaults[priority] = budget
			}
		}
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	return &cfg, nil
}

// DefaultSLABudgets returns the built-in fallback budgets used when neither a
// hotel-specific configuration nor a YAML override exists for a priority.
func DefaultSLABudgets() map[string]SLABudgetConfig {
	return map[string]SLABudgetConfig{
		"Critical": {ResponseMinutes: 30, ResolutionMinutes: 240},
		"High":     {ResponseMinutes: 60, ResolutionMinutes: 480},
		"Medium":   {ResponseMinutes: 240, ResolutionMinutes: 1440},
		"Low":      {ResponseMinutes: 1440, ResolutionMinutes: 4320},
	}
}
