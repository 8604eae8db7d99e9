// Package browser renders product pages in headless Chrome via chromedp,
// for offers whose markup is assembled client-side.
package browser

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/law-makers/sourcer/internal/auth"
	"github.com/law-makers/sourcer/internal/ratelimit"
	"github.com/law-makers/sourcer/internal/source"
	"github.com/law-makers/sourcer/pkg/models"
	"github.com/rs/zerolog/log"
)

// Options configures a browser Source
type Options struct {
	Pool         PoolOptions
	Limiter      ratelimit.RateLimiter
	Timeout      time.Duration
	WaitTimeout  time.Duration
	WaitSelector string
	Sessions     auth.Loader
}

// Source implements source.Source with a lazily started browser pool
type Source struct {
	opts    Options
	mu      sync.Mutex
	pool    *Pool
	newPool func(PoolOptions) (*Pool, error)
}

// New creates a browser Source. Chrome is not started until the first Fetch.
func New(opts Options) *Source {
	if opts.Sessions == nil {
		opts.Sessions = auth.LoadSession
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = 20 * time.Second
	}
	return &Source{opts: opts, newPool: NewPool}
}

// Name returns the source kind
func (s *Source) Name() models.SourceKind {
	return models.SourceBrowser
}

// EnsurePool starts the browser pool if it is not running yet
func (s *Source) EnsurePool() (*Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pool != nil {
		return s.pool, nil
	}

	log.Debug().Msg("Initializing browser pool on demand")
	pool, err := s.newPool(s.opts.Pool)
	if err != nil {
		return nil, source.NewSourceError(source.ErrCodeBrowserCrash, "failed to start browser", err)
	}
	s.pool = pool
	return pool, nil
}

// Close stops the browser pool if it was started
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pool == nil {
		return nil
	}
	err := s.pool.Close()
	s.pool = nil
	return err
}

// Fetch navigates to the page, waits for product markup and snapshots the DOM
func (s *Source) Fetch(ctx context.Context, opts models.RequestOptions) (*models.RawPage, error) {
	start := time.Now()

	log.Debug().
		Str("url", opts.URL).
		Str("source", string(s.Name())).
		Msg("Starting fetch")

	if s.opts.Limiter != nil {
		if err := s.opts.Limiter.Wait(ctx, opts.URL); err != nil {
			return nil, source.NewSourceError(source.ErrCodeTimeout, "rate limiter wait aborted", err)
		}
	}

	pool, err := s.EnsurePool()
	if err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = s.opts.Timeout
	}
	acquireCtx, cancelAcquire := context.WithTimeout(ctx, timeout)
	tab, err := pool.Acquire(acquireCtx)
	cancelAcquire()
	if err != nil {
		return nil, source.NewSourceError(source.ErrCodeTimeout, "no browser tab available", err).WithRetry()
	}
	defer pool.Release(tab)

	runCtx, cancel := context.WithTimeout(tab.Ctx, timeout)
	defer cancel()
	// propagate caller cancellation into the tab
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var mu sync.Mutex
	var statusCode int64
	chromedp.ListenTarget(runCtx, func(ev any) {
		if e, ok := ev.(*network.EventResponseReceived); ok && e.Type == network.ResourceTypeDocument {
			mu.Lock()
			if statusCode == 0 {
				statusCode = e.Response.Status
			}
			mu.Unlock()
		}
	})

	tasks := chromedp.Tasks{network.Enable()}
	if headers := s.headers(opts); len(headers) > 0 {
		tasks = append(tasks, network.SetExtraHTTPHeaders(headers))
	}
	if cookies := s.cookies(opts); len(cookies) > 0 {
		tasks = append(tasks, network.SetCookies(cookies))
	}
	tasks = append(tasks, chromedp.Navigate(opts.URL))

	if err := chromedp.Run(runCtx, tasks); err != nil {
		return nil, classify(ctx, runCtx, err)
	}

	s.waitReady(runCtx, opts)

	var html string
	if err := chromedp.Run(runCtx, chromedp.Evaluate(`document.documentElement.outerHTML`, &html)); err != nil {
		return nil, classify(ctx, runCtx, err)
	}
	if html == "" {
		return nil, source.NewSourceError(source.ErrCodeNoContent, "empty document", nil)
	}

	mu.Lock()
	status := int(statusCode)
	mu.Unlock()
	if err := documentStatusError(status); err != nil {
		return nil, err
	}

	page := &models.RawPage{
		URL:          opts.URL,
		Source:       models.SourceBrowser,
		StatusCode:   status,
		HTML:         html,
		FetchedAt:    time.Now(),
		ResponseTime: time.Since(start).Milliseconds(),
	}

	log.Debug().
		Str("url", opts.URL).
		Int("status", status).
		Int64("response_time_ms", page.ResponseTime).
		Int("bytes", len(html)).
		Msg("Fetch completed")

	return page, nil
}

// waitReady blocks until the readiness selector appears. A timeout is not
// fatal: whatever has rendered so far is still extracted.
func (s *Source) waitReady(ctx context.Context, opts models.RequestOptions) {
	selector := opts.WaitSelector
	if selector == "" {
		selector = s.opts.WaitSelector
	}
	if selector == "" {
		return
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.opts.WaitTimeout)
	defer cancel()

	if err := chromedp.Run(waitCtx, chromedp.WaitReady(selector, chromedp.ByQuery)); err != nil {
		log.Warn().
			Err(err).
			Str("url", opts.URL).
			Str("selector", selector).
			Msg("Timed out waiting for product markup, extracting anyway")
	}
}

func (s *Source) headers(opts models.RequestOptions) network.Headers {
	headers := network.Headers{}
	for k, v := range opts.Headers {
		headers[k] = v
	}
	return headers
}

func (s *Source) cookies(opts models.RequestOptions) []*network.CookieParam {
	if opts.SessionName == "" {
		return nil
	}
	session, err := s.opts.Sessions(opts.SessionName)
	if err != nil {
		log.Warn().Err(err).Str("session", opts.SessionName).Msg("Failed to load session")
		return nil
	}

	params := make([]*network.CookieParam, 0, len(session.Cookies))
	for _, c := range session.Cookies {
		p := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		}
		if p.Domain == "" {
			p.URL = opts.URL
		}
		if c.Expires > 0 {
			exp := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
			p.Expires = &exp
		}
		params = append(params, p)
	}
	return params
}

// documentStatusError reports a failed document response the same way the
// static source does, so a missing offer is NOT_FOUND on either path
func documentStatusError(status int) error {
	if status < 400 {
		return nil
	}
	return source.ErrorForStatus(status, "")
}

func classify(parent, run context.Context, err error) error {
	switch {
	case parent.Err() != nil:
		return source.NewSourceError(source.ErrCodeTimeout, "fetch cancelled", parent.Err())
	case errors.Is(err, context.DeadlineExceeded) || run.Err() != nil:
		return source.NewSourceError(source.ErrCodeTimeout, "page load timed out", err).WithRetry()
	default:
		return source.NewSourceError(source.ErrCodeBrowserCrash, "chromedp execution failed", err).WithRetry()
	}
}
