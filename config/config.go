package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Sniper   SniperConfig   `yaml:"sniper"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	Strategy StrategyConfig `yaml:"strategy"`
	Source   SourceConfig   `yaml:"source"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type SniperConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type MonitorConfig struct {
	ScanDelay          time.Duration `yaml:"scan_delay"`
	FloorCacheTTL      time.Duration `yaml:"floor_cache_ttl"`
	BalanceMaxAge      time.Duration `yaml:"balance_max_age"`
	ListingLimit       int           `yaml:"listing_limit"`
	BatchSize          int           `yaml:"batch_size"`
	SeenLimit          int           `yaml:"seen_limit"`
	AnalyticsEveryN    int           `yaml:"analytics_every_n"`
	CollectionsFile    string        `yaml:"collections_file"`
	DryRun             bool          `yaml:"dry_run"`
	ExecutorConcurrent int           `yaml:"executor_concurrent"`
}

type StrategyConfig struct {
	UseAnalytics      bool    `yaml:"use_analytics"`
	MinProfit         float64 `yaml:"min_profit"`
	MarketFee         float64 `yaml:"market_fee"`
	MinVelocity       int     `yaml:"min_velocity"`
	HighVelocity      int     `yaml:"high_velocity"`
	TrendingThreshold float64 `yaml:"trending_threshold"`
	TrendingDiscount  float64 `yaml:"trending_discount"`
	HighDiscount      float64 `yaml:"high_discount"`
	ModerateDiscount  float64 `yaml:"moderate_discount"`
}

type SourceConfig struct {
	Market    MarketSourceConfig    `yaml:"market"`
	Analytics AnalyticsSourceConfig `yaml:"analytics"`
	Auth      AuthConfig            `yaml:"auth"`
}

type MarketSourceConfig struct {
	BaseURL        string               `yaml:"base_url"`
	Timeout        time.Duration        `yaml:"timeout"`
	ConnectionPool ConnectionPoolConfig `yaml:"connection_pool"`
	RateLimit      RateLimitConfig      `yaml:"rate_limit"`
}

type AnalyticsSourceConfig struct {
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// AuthConfig carries the marketplace credential and the endpoint used to
// rotate it. Tokens are normally injected through the environment, not the
// YAML file.
type AuthConfig struct {
	Token          string `yaml:"token"`
	AnalyticsToken string `yaml:"analytics_token"`
	RefreshURL     string `yaml:"refresh_url"`
	EnvFile        string `yaml:"env_file"`
}

type ConnectionPoolConfig struct {
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxConnsPerHost int           `yaml:"max_conns_per_host"`
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second"`
	BurstSize         int `yaml:"burst_size"`
}

type StorageConfig struct {
	S3    S3Config    `yaml:"s3"`
	Audit AuditConfig `yaml:"audit"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type AuditConfig struct {
	FlushInterval time.Duration `yaml:"flush_interval"`
	Buffer        int           `yaml:"buffer"`
	Prefix        string        `yaml:"prefix"`
	Compression   string        `yaml:"compression"`
}

type LoggingConfig struct {
	Level         string `yaml:"level"`
	Format        string `yaml:"format"`
	Output        string `yaml:"output"`
	MaxAge        int    `yaml:"max_age"`
	DashboardName string `yaml:"dashboard_name"`
}

const defaultConfigPath = "config/config.yml"

var envConfigPaths = map[string]string{
	environmentProduction: "config/config.production.yml",
	environmentStaging:    "config/config.staging.yml",
}

func LoadConfig(path string) (*Config, error) {
	path = resolveEnvSpecificPath(path, defaultConfigPath, envConfigPaths)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{
		Monitor: MonitorConfig{
			ScanDelay:          400 * time.Millisecond,
			FloorCacheTTL:      30 * time.Second,
			BalanceMaxAge:      10 * time.Second,
			ListingLimit:       3,
			BatchSize:          5,
			SeenLimit:          1000,
			AnalyticsEveryN:    5,
			ExecutorConcurrent: 5,
		},
		Strategy: StrategyConfig{
			MinProfit:         0.3,
			MarketFee:         0.05,
			MinVelocity:       3,
			HighVelocity:      10,
			TrendingThreshold: 1.5,
			TrendingDiscount:  5,
			HighDiscount:      8,
			ModerateDiscount:  12,
		},
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Credentials come from the environment when present
	if v := os.Getenv("GIFTSNIPER_AUTH"); v != "" {
		config.Source.Auth.Token = strings.TrimSpace(v)
	}
	if v := os.Getenv("GIFTSNIPER_ANALYTICS_AUTH"); v != "" {
		config.Source.Auth.AnalyticsToken = strings.TrimSpace(v)
	}
	if config.Source.Auth.AnalyticsToken == "" {
		config.Source.Auth.AnalyticsToken = config.Source.Auth.Token
	}

	if config.Storage.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			config.Storage.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			config.Storage.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.Storage.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			config.Storage.S3.Bucket = strings.TrimSpace(v)
		}
	}
	config.Storage.S3.Bucket = strings.TrimSpace(config.Storage.S3.Bucket)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Sniper.Name == "" {
		return fmt.Errorf("sniper.name is required")
	}
	if cfg.Sniper.Version == "" {
		return fmt.Errorf("sniper.version is required")
	}

	if cfg.Monitor.ScanDelay <= 0 {
		return fmt.Errorf("monitor.scan_delay must be greater than 0")
	}
	if cfg.Monitor.FloorCacheTTL <= 0 {
		return fmt.Errorf("monitor.floor_cache_ttl must be greater than 0")
	}
	if cfg.Monitor.ListingLimit <= 0 {
		return fmt.Errorf("monitor.listing_limit must be greater than 0")
	}
	if cfg.Monitor.BatchSize <= 0 {
		return fmt.Errorf("monitor.batch_size must be greater than 0")
	}
	if cfg.Monitor.SeenLimit <= 0 {
		return fmt.Errorf("monitor.seen_limit must be greater than 0")
	}
	if cfg.Monitor.ExecutorConcurrent <= 0 {
		return fmt.Errorf("monitor.executor_concurrent must be greater than 0")
	}
	if cfg.Monitor.CollectionsFile == "" {
		return fmt.Errorf("monitor.collections_file is required")
	}

	if cfg.Strategy.MarketFee < 0 || cfg.Strategy.MarketFee >= 1 {
		return fmt.Errorf("strategy.market_fee must be in [0,1)")
	}
	if cfg.Strategy.MinProfit < 0 {
		return fmt.Errorf("strategy.min_profit must not be negative")
	}
	if cfg.Strategy.MinVelocity < 0 {
		return fmt.Errorf("strategy.min_velocity must not be negative")
	}
	if cfg.Strategy.TrendingThreshold <= 0 {
		return fmt.Errorf("strategy.trending_threshold must be greater than 0")
	}

	if cfg.Source.Market.BaseURL == "" {
		return fmt.Errorf("source.market.base_url is required")
	}
	if cfg.Source.Auth.Token == "" {
		return fmt.Errorf("source.auth.token is required (set GIFTSNIPER_AUTH)")
	}
	// A static token goes stale; live deployments must be able to rotate it
	if cfg.Source.Auth.RefreshURL == "" && IsProductionLike(AppEnvironment()) && !cfg.Monitor.DryRun {
		return fmt.Errorf("source.auth.refresh_url is required outside development")
	}

	if cfg.Storage.S3.Enabled {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when S3 is enabled")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when S3 is enabled")
		}
		if cfg.Storage.S3.AccessKeyID == "" || cfg.Storage.S3.SecretAccessKey == "" {
			return fmt.Errorf("storage.s3.access_key_id and storage.s3.secret_access_key are required when S3 is enabled")
		}
		if cfg.Storage.Audit.FlushInterval <= 0 {
			return fmt.Errorf("storage.audit.flush_interval must be greater than 0 when S3 is enabled")
		}
	}

	return nil
}
