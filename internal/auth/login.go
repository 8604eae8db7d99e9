package auth

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"
)

// DefaultLoginURL is the 1688 buyer sign-in page
const DefaultLoginURL = "https://login.1688.com/member/signin.htm"

// LoggedInSelector appears in the 1688 header once a buyer is signed in
const LoggedInSelector = ".member-name, .sm-widget-login-name"

// LoginOptions configures the interactive login behavior
type LoginOptions struct {
	SessionName string
	URL         string
	// WaitSelector is waited on after login; empty means press Enter
	WaitSelector string
	Timeout      time.Duration
	Headers      map[string]string
	// ChromePath is the browser executable; empty lets chromedp look it up
	ChromePath          string
	RemoteDebuggingPort int
}

// InteractiveLogin opens a visible browser so the user can sign in, then
// captures the cookies it ends up with
func InteractiveLogin(opts LoginOptions) (*SessionData, error) {
	if opts.SessionName == "" {
		return nil, fmt.Errorf("session name is required")
	}
	if opts.URL == "" {
		opts.URL = DefaultLoginURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Minute
	}

	if os.Getenv("DISPLAY") == "" && opts.RemoteDebuggingPort == 0 {
		return nil, fmt.Errorf("interactive login requires a display server (DISPLAY not set)\n\n" +
			"In headless environments use:\n" +
			"   sourcer sessions import <name> --file=cookies.json\n\n" +
			"or pass --remote-debug=<port> and drive the browser from chrome://inspect.")
	}

	log.Info().
		Str("session", opts.SessionName).
		Str("url", opts.URL).
		Msg("Starting interactive login")

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()

	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("headless", opts.RemoteDebuggingPort > 0 && os.Getenv("DISPLAY") == ""),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("log-level", "3"),
		chromedp.WindowSize(1280, 800),
	}
	if opts.ChromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ChromePath))
	}
	if opts.RemoteDebuggingPort > 0 {
		allocOpts = append(allocOpts,
			chromedp.Flag("remote-debugging-port", strconv.Itoa(opts.RemoteDebuggingPort)),
			chromedp.Flag("remote-debugging-address", "0.0.0.0"),
		)
		log.Info().Int("port", opts.RemoteDebuggingPort).Msg("Remote debugging enabled")
		fmt.Printf("\nRemote debugging enabled on port %d\n", opts.RemoteDebuggingPort)
		fmt.Printf("   1. Forward port %d to your machine\n", opts.RemoteDebuggingPort)
		fmt.Printf("   2. Open chrome://inspect in your local Chrome\n")
		fmt.Printf("   3. Add target localhost:%d and click 'inspect'\n", opts.RemoteDebuggingPort)
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(log.Printf))
	defer browserCancel()

	fmt.Println("\nBrowser opened. Please sign in to 1688 manually.")

	if err := chromedp.Run(browserCtx, network.Enable(), chromedp.Navigate(opts.URL)); err != nil {
		return nil, fmt.Errorf("failed to navigate: %w", err)
	}

	if opts.WaitSelector != "" {
		log.Info().Str("selector", opts.WaitSelector).Msg("Waiting for login completion")
		fmt.Printf("   Waiting for element: %s\n", opts.WaitSelector)
		if err := chromedp.Run(browserCtx, chromedp.WaitVisible(opts.WaitSelector, chromedp.ByQuery)); err != nil {
			return nil, fmt.Errorf("login timeout or failed: %w", err)
		}
	} else {
		fmt.Println("\n   Press Enter once you have completed login...")
		fmt.Scanln()
	}

	var cookies []*network.Cookie
	err := chromedp.Run(browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = network.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to extract cookies: %w", err)
	}
	if len(cookies) == 0 {
		return nil, fmt.Errorf("no cookies found - login may have failed")
	}

	log.Info().Int("cookie_count", len(cookies)).Msg("Cookies extracted")

	session := &SessionData{
		Name:      opts.SessionName,
		URL:       opts.URL,
		Cookies:   FromBrowserCookies(cookies),
		Headers:   opts.Headers,
		CreatedAt: time.Now(),
	}
	session.ExpiryFromCookies()
	return session, nil
}

// FromBrowserCookies converts DevTools cookies to the stored form
func FromBrowserCookies(cookies []*network.Cookie) []Cookie {
	out := make([]Cookie, 0, len(cookies))
	for _, c := range cookies {
		if c == nil {
			continue
		}
		out = append(out, Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: string(c.SameSite),
		})
	}
	return out
}
