package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// Config holds application configuration values
type Config struct {
	// Logging
	LogLevel string
	JSONLog  bool

	// HTTP/Scraping
	HTTPTimeout time.Duration
	UserAgent   string
	Proxy       string
	Proxies     []string
	Source      string

	// Rate Limiting
	StaticRateLimitRPS    float64
	StaticRateLimitBurst  int
	BrowserRateLimitRPS   float64
	BrowserRateLimitBurst int

	// Browser Pool
	BrowserPoolSize int
	BrowserHeadless bool
	ChromePath      string
	WaitTimeout     time.Duration

	// Caching
	CacheTTL          time.Duration
	CacheMaxSizeBytes int64

	// Delivery
	ImportAPIURL string
	Deliver      bool

	// Third-party scraping APIs
	ApifyToken      string
	ApifyActor      string
	ApifyBaseURL    string
	OxylabsUsername string
	OxylabsPassword string
	OxylabsEndpoint string

	// Batch / retry
	Concurrency    int
	MaxRetries     int
	RetryBaseDelay time.Duration

	// HTTP API
	ServerAddr     string
	AllowedOrigins []string
}

// Default returns a Config populated with default values only
func Default() *Config {
	return &Config{
		LogLevel:              DefaultLogLevel,
		JSONLog:               DefaultJSONLog,
		HTTPTimeout:           DefaultHTTPTimeout,
		UserAgent:             DefaultUserAgent,
		Source:                DefaultSource,
		StaticRateLimitRPS:    DefaultStaticRateLimitRPS,
		StaticRateLimitBurst:  DefaultStaticRateLimitBurst,
		BrowserRateLimitRPS:   DefaultBrowserRateLimitRPS,
		BrowserRateLimitBurst: DefaultBrowserRateLimitBurst,
		BrowserPoolSize:       DefaultBrowserPoolSize,
		BrowserHeadless:       DefaultBrowserHeadless,
		WaitTimeout:           DefaultWaitTimeout,
		CacheTTL:              DefaultCacheTTL,
		CacheMaxSizeBytes:     DefaultCacheMaxSizeBytes,
		ImportAPIURL:          DefaultImportAPIURL,
		Deliver:               true,
		ApifyActor:            DefaultApifyActor,
		ApifyBaseURL:          DefaultApifyBaseURL,
		OxylabsEndpoint:       DefaultOxylabsEndpoint,
		Concurrency:           DefaultConcurrency,
		MaxRetries:            DefaultMaxRetries,
		RetryBaseDelay:        DefaultRetryBaseDelay,
		ServerAddr:            DefaultServerAddr,
	}
}

// Load builds a Config by layering defaults, an optional YAML file
// (--config or SOURCER_CONFIG), environment variables, and CLI flags.
// Caller should pass the root *cobra.Command so flags can be read.
func Load(cmd *cobra.Command) (*Config, error) {
	cfg := Default()

	if path := configPath(cmd, os.Getenv); path != "" {
		f, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		if err := f.apply(cfg); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", path, err)
		}
	}

	applyEnv(cfg, os.Getenv)

	if cmd != nil {
		applyFlags(cfg, cmd)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func configPath(cmd *cobra.Command, getenv func(string) string) string {
	if cmd != nil {
		if f := cmd.Flags().Lookup("config"); f != nil && f.Value.String() != "" {
			return f.Value.String()
		}
	}
	return getenv("SOURCER_CONFIG")
}

func applyEnv(cfg *Config, getenv func(string) string) {
	if v := getenv("SOURCER_USER_AGENT"); v != "" {
		cfg.UserAgent = v
	}
	if v := getenv("SOURCER_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := getenv("SOURCER_PROXIES"); v != "" {
		cfg.Proxies = splitList(v)
	}
	if v := getenv("SOURCER_CHROME_PATH"); v != "" {
		cfg.ChromePath = v
	}
	if v := getenv("SOURCER_SOURCE"); v != "" {
		cfg.Source = strings.ToLower(v)
	}
	if v := getenv("SOURCER_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Concurrency = n
		}
	}
	if v := getenv("SOURCER_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxRetries = n
		}
	}
	if v := getenv("SOURCER_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CacheTTL = d
		}
	}
	if v := getenv("NEXTJS_IMPORT_API_URL"); v != "" {
		cfg.ImportAPIURL = v
	}
	if v := getenv("APIFY_API_TOKEN"); v != "" {
		cfg.ApifyToken = v
	}
	if v := getenv("OXYLABS_USERNAME"); v != "" {
		cfg.OxylabsUsername = v
	}
	if v := getenv("OXYLABS_PASSWORD"); v != "" {
		cfg.OxylabsPassword = v
	}
	if v := getenv("SOURCER_ADDR"); v != "" {
		cfg.ServerAddr = v
	}
}

func applyFlags(cfg *Config, cmd *cobra.Command) {
	flags := cmd.Flags()
	str := func(name string) string {
		if f := flags.Lookup(name); f != nil && f.Changed {
			return f.Value.String()
		}
		return ""
	}
	on := func(name string) bool {
		return str(name) == "true"
	}

	if s := str("user-agent"); s != "" {
		cfg.UserAgent = s
	}
	if s := str("proxy"); s != "" {
		cfg.Proxy = s
	}
	if s := str("timeout"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			cfg.HTTPTimeout = d
		}
	}
	if s := str("source"); s != "" {
		cfg.Source = strings.ToLower(s)
	}
	if s := str("endpoint"); s != "" {
		cfg.ImportAPIURL = s
	}
	if s := str("concurrency"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			cfg.Concurrency = n
		}
	}
	if on("no-deliver") {
		cfg.Deliver = false
	}
	if on("headful") {
		cfg.BrowserHeadless = false
	}
	if on("json") {
		cfg.JSONLog = true
	}
	if on("quiet") {
		cfg.LogLevel = "error"
	}
	if on("verbose") {
		cfg.LogLevel = "debug"
	}
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
