package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"
)

// ErrPoolClosed is returned by Acquire after Close
var ErrPoolClosed = errors.New("browser pool is closed")

// MaxPoolSize bounds the number of concurrent tabs
const MaxPoolSize = 10

// Pool manages reusable browser tabs sharing one Chrome process
type Pool struct {
	size        int
	tabs        chan *Tab
	allocCtx    context.Context
	allocCancel context.CancelFunc
	mu          sync.Mutex
	closed      bool
}

// Tab wraps a chromedp context with its cancel function
type Tab struct {
	Ctx    context.Context
	Cancel context.CancelFunc
}

// PoolOptions configures the browser pool
type PoolOptions struct {
	Size       int
	Headless   bool
	UserAgent  string
	Proxy      string
	ChromePath string
	ExtraArgs  []chromedp.ExecAllocatorOption
}

// AllocatorOptions builds the Chrome flags shared by every tab
func AllocatorOptions(opts PoolOptions) []chromedp.ExecAllocatorOption {
	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-breakpad", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-hang-monitor", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("log-level", "3"),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("lang", "zh-CN"),
		chromedp.WindowSize(1920, 1080),
	}

	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if path := FindChrome(opts.ChromePath); path != "" {
		allocOpts = append([]chromedp.ExecAllocatorOption{chromedp.ExecPath(path)}, allocOpts...)
	}
	if opts.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", "new"))
	} else {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}
	if opts.Proxy != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(opts.Proxy))
	}
	return append(allocOpts, opts.ExtraArgs...)
}

// NewPool starts Chrome and warms opts.Size tabs
func NewPool(opts PoolOptions) (*Pool, error) {
	if opts.Size <= 0 {
		opts.Size = 2
	}
	if opts.Size > MaxPoolSize {
		opts.Size = MaxPoolSize
	}

	log.Debug().Int("size", opts.Size).Msg("Creating browser pool")

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), AllocatorOptions(opts)...)

	pool := &Pool{
		size:        opts.Size,
		tabs:        make(chan *Tab, opts.Size),
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
	}

	for i := 0; i < opts.Size; i++ {
		tabCtx, tabCancel := chromedp.NewContext(allocCtx)
		if err := chromedp.Run(tabCtx, chromedp.Navigate("about:blank")); err != nil {
			tabCancel()
			pool.Close()
			return nil, fmt.Errorf("failed to warm up browser tab %d: %w", i, err)
		}
		pool.tabs <- &Tab{Ctx: tabCtx, Cancel: tabCancel}
	}

	log.Info().Int("pool_size", opts.Size).Msg("Browser pool ready")
	return pool, nil
}

// Acquire takes a tab from the pool, blocking until one is free or ctx is done
func (p *Pool) Acquire(ctx context.Context) (*Tab, error) {
	select {
	case tab, ok := <-p.tabs:
		if !ok {
			return nil, ErrPoolClosed
		}
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.closed {
			tab.Cancel()
			return nil, ErrPoolClosed
		}
		return tab, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for a browser tab: %w", ctx.Err())
	}
}

// Release resets a tab and returns it to the pool
func (p *Pool) Release(tab *Tab) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		tab.Cancel()
		return
	}
	p.mu.Unlock()

	// a tab whose browser died is replaced rather than recycled
	if err := chromedp.Run(tab.Ctx, chromedp.Navigate("about:blank")); err != nil {
		log.Warn().Err(err).Msg("Discarding broken browser tab")
		tab.Cancel()
		tabCtx, tabCancel := chromedp.NewContext(p.allocCtx)
		tab = &Tab{Ctx: tabCtx, Cancel: tabCancel}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		tab.Cancel()
		return
	}
	select {
	case p.tabs <- tab:
	default:
		tab.Cancel()
	}
}

// Close shuts down every tab and the Chrome process
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	close(p.tabs)
	for tab := range p.tabs {
		tab.Cancel()
	}
	p.allocCancel()

	log.Info().Msg("Browser pool closed")
	return nil
}

// Size returns the pool size
func (p *Pool) Size() int {
	return p.size
}

// Available returns the number of idle tabs
func (p *Pool) Available() int {
	return len(p.tabs)
}
