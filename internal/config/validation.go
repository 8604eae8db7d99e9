package config

import (
	"fmt"
	"net/url"
	"slices"
)

func validate(c *Config) error {
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be > 0")
	}
	if c.BrowserPoolSize <= 0 || c.BrowserPoolSize > DefaultMaxBrowserPoolSize {
		return fmt.Errorf("browser pool size must be between 1 and %d", DefaultMaxBrowserPoolSize)
	}
	if c.CacheMaxSizeBytes <= 0 {
		return fmt.Errorf("cache max size must be > 0")
	}
	if c.Concurrency <= 0 || c.Concurrency > DefaultMaxConcurrency {
		return fmt.Errorf("concurrency must be between 1 and %d", DefaultMaxConcurrency)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must be >= 0")
	}
	if !slices.Contains(Sources, c.Source) {
		return fmt.Errorf("unknown source %q (must be one of %v)", c.Source, Sources)
	}
	if c.Deliver {
		u, err := url.Parse(c.ImportAPIURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("import API URL %q is not a valid http(s) URL", c.ImportAPIURL)
		}
	}
	for _, p := range c.Proxies {
		if _, err := url.Parse(p); err != nil {
			return fmt.Errorf("invalid proxy %q: %w", p, err)
		}
	}
	return nil
}
