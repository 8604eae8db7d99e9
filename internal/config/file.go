package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// File is the on-disk YAML layout. Every field is optional; set fields
// override defaults and are themselves overridden by env and flags.
type File struct {
	Log struct {
		Level string `yaml:"level"`
		JSON  *bool  `yaml:"json"`
	} `yaml:"log"`

	HTTP struct {
		Timeout   string   `yaml:"timeout"`
		UserAgent string   `yaml:"user_agent"`
		Proxy     string   `yaml:"proxy"`
		Proxies   []string `yaml:"proxies"`
		RateLimit struct {
			RPS   float64 `yaml:"rps"`
			Burst int     `yaml:"burst"`
		} `yaml:"rate_limit"`
	} `yaml:"http"`

	Source string `yaml:"source"`

	Browser struct {
		PoolSize    int    `yaml:"pool_size"`
		Headless    *bool  `yaml:"headless"`
		ChromePath  string `yaml:"chrome_path"`
		WaitTimeout string `yaml:"wait_timeout"`
		RateLimit   struct {
			RPS   float64 `yaml:"rps"`
			Burst int     `yaml:"burst"`
		} `yaml:"rate_limit"`
	} `yaml:"browser"`

	Cache struct {
		TTL          string `yaml:"ttl"`
		MaxSizeBytes int64  `yaml:"max_size_bytes"`
	} `yaml:"cache"`

	Delivery struct {
		Endpoint string `yaml:"endpoint"`
		Enabled  *bool  `yaml:"enabled"`
	} `yaml:"delivery"`

	Apify struct {
		Token   string `yaml:"token"`
		Actor   string `yaml:"actor"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"apify"`

	Oxylabs struct {
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		Endpoint string `yaml:"endpoint"`
	} `yaml:"oxylabs"`

	Batch struct {
		Concurrency    int    `yaml:"concurrency"`
		MaxRetries     *int   `yaml:"max_retries"`
		RetryBaseDelay string `yaml:"retry_base_delay"`
	} `yaml:"batch"`

	Server struct {
		Addr           string   `yaml:"addr"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`
}

// LoadFile reads and parses a YAML config file
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &f, nil
}

// apply overlays the set fields of f onto cfg
func (f *File) apply(cfg *Config) error {
	if f.Log.Level != "" {
		cfg.LogLevel = strings.ToLower(f.Log.Level)
	}
	if f.Log.JSON != nil {
		cfg.JSONLog = *f.Log.JSON
	}

	if err := setDuration(&cfg.HTTPTimeout, "http.timeout", f.HTTP.Timeout); err != nil {
		return err
	}
	if f.HTTP.UserAgent != "" {
		cfg.UserAgent = f.HTTP.UserAgent
	}
	if f.HTTP.Proxy != "" {
		cfg.Proxy = f.HTTP.Proxy
	}
	if len(f.HTTP.Proxies) > 0 {
		cfg.Proxies = f.HTTP.Proxies
	}
	if f.HTTP.RateLimit.RPS > 0 {
		cfg.StaticRateLimitRPS = f.HTTP.RateLimit.RPS
	}
	if f.HTTP.RateLimit.Burst > 0 {
		cfg.StaticRateLimitBurst = f.HTTP.RateLimit.Burst
	}

	if f.Source != "" {
		cfg.Source = strings.ToLower(f.Source)
	}

	if f.Browser.PoolSize > 0 {
		cfg.BrowserPoolSize = f.Browser.PoolSize
	}
	if f.Browser.Headless != nil {
		cfg.BrowserHeadless = *f.Browser.Headless
	}
	if f.Browser.ChromePath != "" {
		cfg.ChromePath = f.Browser.ChromePath
	}
	if err := setDuration(&cfg.WaitTimeout, "browser.wait_timeout", f.Browser.WaitTimeout); err != nil {
		return err
	}
	if f.Browser.RateLimit.RPS > 0 {
		cfg.BrowserRateLimitRPS = f.Browser.RateLimit.RPS
	}
	if f.Browser.RateLimit.Burst > 0 {
		cfg.BrowserRateLimitBurst = f.Browser.RateLimit.Burst
	}

	if err := setDuration(&cfg.CacheTTL, "cache.ttl", f.Cache.TTL); err != nil {
		return err
	}
	if f.Cache.MaxSizeBytes > 0 {
		cfg.CacheMaxSizeBytes = f.Cache.MaxSizeBytes
	}

	if f.Delivery.Endpoint != "" {
		cfg.ImportAPIURL = f.Delivery.Endpoint
	}
	if f.Delivery.Enabled != nil {
		cfg.Deliver = *f.Delivery.Enabled
	}

	if f.Apify.Token != "" {
		cfg.ApifyToken = f.Apify.Token
	}
	if f.Apify.Actor != "" {
		cfg.ApifyActor = f.Apify.Actor
	}
	if f.Apify.BaseURL != "" {
		cfg.ApifyBaseURL = f.Apify.BaseURL
	}
	if f.Oxylabs.Username != "" {
		cfg.OxylabsUsername = f.Oxylabs.Username
	}
	if f.Oxylabs.Password != "" {
		cfg.OxylabsPassword = f.Oxylabs.Password
	}
	if f.Oxylabs.Endpoint != "" {
		cfg.OxylabsEndpoint = f.Oxylabs.Endpoint
	}

	if f.Batch.Concurrency > 0 {
		cfg.Concurrency = f.Batch.Concurrency
	}
	if f.Batch.MaxRetries != nil {
		cfg.MaxRetries = *f.Batch.MaxRetries
	}
	if err := setDuration(&cfg.RetryBaseDelay, "batch.retry_base_delay", f.Batch.RetryBaseDelay); err != nil {
		return err
	}

	if f.Server.Addr != "" {
		cfg.ServerAddr = f.Server.Addr
	}
	if len(f.Server.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = f.Server.AllowedOrigins
	}
	return nil
}

func setDuration(dst *time.Duration, key, v string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
