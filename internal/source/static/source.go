// Package static fetches product pages with plain HTTP requests. It is the
// cheapest source and the first one tried in auto mode.
package static

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/law-makers/sourcer/internal/auth"
	"github.com/law-makers/sourcer/internal/cache"
	"github.com/law-makers/sourcer/internal/proxy"
	"github.com/law-makers/sourcer/internal/ratelimit"
	"github.com/law-makers/sourcer/internal/source"
	"github.com/law-makers/sourcer/pkg/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html/charset"
)

// maxBodyBytes caps how much of a page is read into memory
const maxBodyBytes = 10 << 20

// Options configures a static Source
type Options struct {
	Cache     cache.Cache
	CacheTTL  time.Duration
	Limiter   ratelimit.RateLimiter
	Client    *http.Client
	Proxies   *proxy.ProxyPool
	Timeout   time.Duration
	UserAgent string
	// Sessions loads saved login cookies; defaults to auth.LoadSession
	Sessions auth.Loader
}

// Source implements source.Source over net/http
type Source struct {
	cache     cache.Cache
	cacheTTL  time.Duration
	limiter   ratelimit.RateLimiter
	clients   *proxy.Clients
	proxies   *proxy.ProxyPool
	timeout   time.Duration
	userAgent string
	sessions  auth.Loader
}

// New creates a static Source
func New(opts Options) *Source {
	if opts.Client == nil {
		opts.Client = &http.Client{}
	}
	if opts.Sessions == nil {
		opts.Sessions = auth.LoadSession
	}
	return &Source{
		cache:     opts.Cache,
		cacheTTL:  opts.CacheTTL,
		limiter:   opts.Limiter,
		clients:   proxy.NewClients(opts.Client),
		proxies:   opts.Proxies,
		timeout:   opts.Timeout,
		userAgent: opts.UserAgent,
		sessions:  opts.Sessions,
	}
}

// Name returns the source kind
func (s *Source) Name() models.SourceKind {
	return models.SourceStatic
}

// Fetch downloads the page markup
func (s *Source) Fetch(ctx context.Context, opts models.RequestOptions) (*models.RawPage, error) {
	start := time.Now()
	key := cache.Key(models.SourceStatic, opts.URL)

	// pages fetched with a login session are user specific and not cached
	if s.cache != nil && opts.SessionName == "" {
		if page, ok := s.cache.Get(key); ok {
			return page, nil
		}
	}

	log.Debug().
		Str("url", opts.URL).
		Str("source", string(s.Name())).
		Msg("Starting fetch")

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, opts.URL); err != nil {
			return nil, source.NewSourceError(ErrCodeFor(err), "rate limiter wait aborted", err)
		}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = s.timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := s.newRequest(ctx, opts)
	if err != nil {
		return nil, err
	}

	proxyURL := opts.Proxy
	if proxyURL == "" {
		proxyURL = s.proxies.GetNext()
	}
	client, err := s.clients.For(proxyURL)
	if err != nil {
		return nil, source.NewSourceError(source.ErrCodeValidation, "invalid proxy", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		s.proxies.MarkFailed(proxyURL)
		serr := source.NewSourceError(ErrCodeFor(err), "request failed", err).WithRetry()
		if proxyURL != "" {
			serr.WithDetail("proxy", proxyURL)
		}
		return nil, serr
	}
	defer resp.Body.Close()
	s.proxies.MarkHealthy(proxyURL)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, source.StatusError(resp, strings.TrimSpace(string(snippet)))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, source.NewSourceError(ErrCodeFor(err), "failed to read body", err).WithRetry()
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, source.NewSourceError(source.ErrCodeNoContent, "empty response body", nil)
	}
	body, err := decodeBody(raw, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, source.NewSourceError(source.ErrCodeParseError, "failed to decode body", err)
	}

	page := &models.RawPage{
		URL:          opts.URL,
		Source:       models.SourceStatic,
		StatusCode:   resp.StatusCode,
		HTML:         body,
		FetchedAt:    time.Now(),
		ResponseTime: time.Since(start).Milliseconds(),
	}

	if s.cache != nil && opts.SessionName == "" {
		s.cache.Set(key, page, s.cacheTTL)
	}

	log.Debug().
		Str("url", opts.URL).
		Int("status", resp.StatusCode).
		Int64("response_time_ms", page.ResponseTime).
		Int("bytes", len(body)).
		Msg("Fetch completed")

	return page, nil
}

func (s *Source) newRequest(ctx context.Context, opts models.RequestOptions) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opts.URL, nil)
	if err != nil {
		return nil, source.NewSourceError(source.ErrCodeValidation, "failed to create request", err)
	}

	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")

	if opts.SessionName != "" {
		session, err := s.sessions(opts.SessionName)
		if err != nil {
			log.Warn().Err(err).Str("session", opts.SessionName).Msg("Failed to load session")
		} else {
			for _, c := range session.HTTPCookies() {
				req.AddCookie(c)
			}
			for k, v := range session.Headers {
				req.Header.Set(k, v)
			}
			log.Debug().Int("cookies", len(session.Cookies)).Msg("Session cookies attached")
		}
	}

	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// decodeBody converts legacy encodings (1688 still serves some pages as GBK)
// to UTF-8.
func decodeBody(raw []byte, contentType string) (string, error) {
	r, err := charset.NewReader(bytes.NewReader(raw), contentType)
	if err != nil {
		return "", fmt.Errorf("failed to detect charset: %w", err)
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ErrCodeFor classifies a transport error
func ErrCodeFor(err error) source.ErrorCode {
	if errors.Is(err, context.DeadlineExceeded) {
		return source.ErrCodeTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return source.ErrCodeTimeout
	}
	return source.ErrCodeNetworkError
}
