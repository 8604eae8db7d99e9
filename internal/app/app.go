// Package app provides the core application initialization and lifecycle management.
package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/law-makers/sourcer/internal/batch"
	"github.com/law-makers/sourcer/internal/cache"
	"github.com/law-makers/sourcer/internal/config"
	"github.com/law-makers/sourcer/internal/delivery"
	"github.com/law-makers/sourcer/internal/extract"
	"github.com/law-makers/sourcer/internal/pipeline"
	"github.com/law-makers/sourcer/internal/proxy"
	"github.com/law-makers/sourcer/internal/ratelimit"
	"github.com/law-makers/sourcer/internal/retry"
	"github.com/law-makers/sourcer/internal/source"
	"github.com/law-makers/sourcer/internal/source/apify"
	"github.com/law-makers/sourcer/internal/source/auto"
	"github.com/law-makers/sourcer/internal/source/browser"
	"github.com/law-makers/sourcer/internal/source/oxylabs"
	"github.com/law-makers/sourcer/internal/source/static"
	urlutil "github.com/law-makers/sourcer/internal/utils/url"
	"github.com/law-makers/sourcer/pkg/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// API hosts get their own budget so a batch of 1688 pages does not starve them
const (
	apiRateLimitRPS   = 5.0
	apiRateLimitBurst = 10
)

// Application holds all application dependencies and manages their lifecycle.
//
// It is created once per command and shared by the command's handlers.
// Use Close() to ensure proper resource cleanup on shutdown.
type Application struct {
	Config     *config.Config
	Logger     *zerolog.Logger
	Cache      *cache.MemoryCache
	HTTPClient *http.Client
	Proxies    *proxy.ProxyPool
	Assembler  *extract.Assembler
	Sources    source.Registry
	Browser    *browser.Source
	Delivery   *delivery.Client
	Runner     *pipeline.Runner
	Batch      *batch.Scraper
	startTime  time.Time
}

// New creates and initializes a new Application with all dependencies.
//
// It performs the following initialization steps:
//   - Configures logging based on the provided config
//   - Creates the in-memory page cache and per-host rate limiters
//   - Builds every page source; Chrome is only started on first use
//   - Creates the delivery client, the pipeline runner and the batch scraper
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	logger := SetupLogging(cfg)

	memCache := cache.NewMemoryCache(cfg.CacheMaxSizeBytes)
	logger.Debug().
		Int64("max_size_bytes", cfg.CacheMaxSizeBytes).
		Dur("ttl", cfg.CacheTTL).
		Msg("Memory cache initialized")

	staticLimiter := ratelimit.NewDomainLimiter(cfg.StaticRateLimitRPS, cfg.StaticRateLimitBurst)
	browserLimiter := ratelimit.NewDomainLimiter(cfg.BrowserRateLimitRPS, cfg.BrowserRateLimitBurst)
	apiLimiter := ratelimit.NewDomainLimiter(apiRateLimitRPS, apiRateLimitBurst)
	logger.Debug().
		Float64("static_rps", cfg.StaticRateLimitRPS).
		Float64("browser_rps", cfg.BrowserRateLimitRPS).
		Msg("Rate limiters initialized")

	// per-request deadlines come from contexts, so the client itself has none
	httpClient := &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	proxies := cfg.Proxies
	if len(proxies) == 0 && cfg.Proxy != "" {
		proxies = []string{cfg.Proxy}
	}
	proxyPool := proxy.NewProxyPool(proxies)

	retryCfg := RetryConfig(cfg)
	assembler := extract.NewAssembler(extract.DefaultRules())

	staticSource := static.New(static.Options{
		Cache:     memCache,
		CacheTTL:  cfg.CacheTTL,
		Limiter:   staticLimiter,
		Client:    httpClient,
		Proxies:   proxyPool,
		Timeout:   cfg.HTTPTimeout,
		UserAgent: cfg.UserAgent,
	})

	browserProxy := cfg.Proxy
	if browserProxy == "" && len(cfg.Proxies) > 0 {
		browserProxy = cfg.Proxies[0]
	}
	browserSource := browser.New(browser.Options{
		Pool: browser.PoolOptions{
			Size:       cfg.BrowserPoolSize,
			Headless:   cfg.BrowserHeadless,
			UserAgent:  cfg.UserAgent,
			Proxy:      browserProxy,
			ChromePath: cfg.ChromePath,
		},
		Limiter:      browserLimiter,
		Timeout:      cfg.HTTPTimeout * 2,
		WaitTimeout:  cfg.WaitTimeout,
		WaitSelector: extract.WaitSelector,
	})

	sources := source.Registry{
		models.SourceStatic:  staticSource,
		models.SourceBrowser: browserSource,
		models.SourceAuto:    auto.New(staticSource, browserSource, assembler.Rules()),
		models.SourceOxylabs: oxylabs.New(oxylabs.Options{
			Endpoint: cfg.OxylabsEndpoint,
			Username: cfg.OxylabsUsername,
			Password: cfg.OxylabsPassword,
			Client:   httpClient,
			Limiter:  apiLimiter,
			Retry:    retryCfg,
		}),
		models.SourceApify: apify.New(apify.Options{
			BaseURL: cfg.ApifyBaseURL,
			Token:   cfg.ApifyToken,
			Actor:   cfg.ApifyActor,
			Client:  httpClient,
			Limiter: apiLimiter,
			Retry:   retryCfg,
		}),
	}
	logger.Debug().Int("sources", len(sources)).Msg("Sources initialized")

	deliveryClient := delivery.New(delivery.Options{
		Endpoint: cfg.ImportAPIURL,
		Client:   httpClient,
		Retry:    retryCfg,
		Timeout:  cfg.HTTPTimeout,
	})
	if host := urlutil.Host(cfg.ImportAPIURL); host != "" {
		logger.Debug().Str("host", host).Bool("enabled", cfg.Deliver).Msg("Delivery configured")
	}

	runner := pipeline.NewRunner(sources, assembler, deliveryClient)

	app := &Application{
		Config:     cfg,
		Logger:     &logger,
		Cache:      memCache,
		HTTPClient: httpClient,
		Proxies:    proxyPool,
		Assembler:  assembler,
		Sources:    sources,
		Browser:    browserSource,
		Delivery:   deliveryClient,
		Runner:     runner,
		Batch:      batch.New(runner, cfg.Concurrency),
		startTime:  time.Now(),
	}

	logger.Debug().Msg("Application initialized successfully")
	return app, nil
}

// SetupLogging configures the global zerolog logger from cfg and returns it
func SetupLogging(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var w io.Writer
	if cfg.JSONLog {
		w = os.Stderr
	} else {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()

	log.Debug().
		Str("level", level.String()).
		Bool("json", cfg.JSONLog).
		Msg("Logger initialized")
	return log.Logger
}

// RetryConfig derives the remote API retry policy from cfg
func RetryConfig(cfg *config.Config) retry.Config {
	rc := retry.DefaultConfig()
	rc.MaxAttempts = cfg.MaxRetries + 1
	if cfg.RetryBaseDelay > 0 {
		rc.InitialBackoff = cfg.RetryBaseDelay
	}
	return rc
}

// RetryPolicy returns the retry policy shared by remote calls
func (a *Application) RetryPolicy() retry.Config {
	return RetryConfig(a.Config)
}

// Options returns pipeline options for url using the configured source and
// delivery settings
func (a *Application) Options(url string) pipeline.Options {
	return pipeline.Options{
		Request: models.RequestOptions{
			URL:    url,
			Source: models.SourceKind(a.Config.Source),
		},
		Deliver: a.Config.Deliver,
	}
}

// Close gracefully shuts down the application and all its resources.
//
// It stops Chrome if it was started, closes the cache and drops idle
// connections. Errors are logged but do not prevent other shutdown steps.
func (a *Application) Close(ctx context.Context) error {
	a.Logger.Debug().Msg("Shutting down application")

	if a.Browser != nil {
		if err := a.Browser.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Error closing browser pool")
		}
	}

	if a.Cache != nil {
		stats := a.Cache.Stats()
		a.Logger.Debug().
			Uint64("hits", stats.Hits).
			Uint64("misses", stats.Misses).
			Float64("hit_rate", stats.HitRate()).
			Msg("Cache statistics")
		a.Cache.Close()
	}

	if a.HTTPClient != nil {
		a.HTTPClient.CloseIdleConnections()
	}

	a.Logger.Debug().Dur("uptime", a.Uptime()).Msg("Application shutdown complete")
	return nil
}

// Uptime returns how long the application has been running.
func (a *Application) Uptime() time.Duration {
	return time.Since(a.startTime)
}
