package config

import "time"

// Default constants for application configuration
const (
	DefaultLogLevel              = "info"
	DefaultJSONLog               = false
	DefaultUserAgent             = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	DefaultSource                = "auto"
	DefaultCacheTTL              = 10 * time.Minute
	DefaultHTTPTimeout           = 30 * time.Second
	DefaultStaticRateLimitRPS    = 2.0
	DefaultStaticRateLimitBurst  = 4
	DefaultBrowserRateLimitRPS   = 1.0
	DefaultBrowserRateLimitBurst = 2
	DefaultBrowserPoolSize       = 2
	DefaultMaxBrowserPoolSize    = 10
	DefaultBrowserHeadless       = true
	DefaultCacheMaxSizeBytes     = 100 * 1024 * 1024 // 100MB
	DefaultWaitTimeout           = 20 * time.Second
	DefaultPoolAcquireTTL        = 10 * time.Second
	DefaultConcurrency           = 4
	DefaultMaxConcurrency        = 32
	DefaultMaxRetries            = 3
	DefaultRetryBaseDelay        = 2 * time.Second

	DefaultImportAPIURL    = "http://localhost:3000/api/import-product"
	DefaultOxylabsEndpoint = "https://realtime.oxylabs.io/v1/queries"
	DefaultApifyBaseURL    = "https://api.apify.com/v2"
	DefaultApifyActor      = "ecomscrape~1688-product-details-page-scraper"
	DefaultServerAddr      = ":8080"
)

// Sources lists the accepted values for the source setting
var Sources = []string{"auto", "static", "browser", "oxylabs", "apify"}
