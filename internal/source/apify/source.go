// Package apify runs the 1688 product-details actor on Apify and maps the
// first dataset item to a product.
package apify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/law-makers/sourcer/internal/ratelimit"
	"github.com/law-makers/sourcer/internal/retry"
	"github.com/law-makers/sourcer/internal/source"
	"github.com/law-makers/sourcer/pkg/models"
	"github.com/rs/zerolog/log"
)

// Run states reported by the actor-runs endpoint
const (
	StatusSucceeded = "SUCCEEDED"
	StatusFailed    = "FAILED"
	StatusTimedOut  = "TIMED-OUT"
	StatusAborted   = "ABORTED"
)

const (
	// DefaultRunTimeout bounds how long a run is waited for
	DefaultRunTimeout = 300 * time.Second
	// waitForFinish is the server-side long-poll in seconds; Apify caps it at 60
	waitForFinish = 60
)

// Options configures an Apify Source
type Options struct {
	BaseURL string
	Token   string
	Actor   string
	Client  *http.Client
	Limiter ratelimit.RateLimiter
	Retry   retry.Config
	// RunTimeout is the overall deadline for start, polling and dataset listing
	RunTimeout time.Duration
	// PollInterval is the pause between status polls for a run still in progress
	PollInterval time.Duration
}

// Source implements source.Source over the Apify REST API
type Source struct {
	opts Options
}

// New creates an Apify Source
func New(opts Options) *Source {
	if opts.Client == nil {
		opts.Client = &http.Client{}
	}
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = DefaultRunTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = retry.DefaultConfig()
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	// the REST API addresses actors as "user~name"
	opts.Actor = strings.Replace(opts.Actor, "/", "~", 1)
	return &Source{opts: opts}
}

// Name returns the source kind
func (s *Source) Name() models.SourceKind {
	return models.SourceApify
}

type runInput struct {
	URLs  []string `json:"urls"`
	Proxy struct {
		UseApifyProxy    bool     `json:"useApifyProxy"`
		ApifyProxyGroups []string `json:"apifyProxyGroups"`
	} `json:"proxy"`
}

// Run is the subset of an actor run the source needs
type Run struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	DefaultDatasetID string `json:"defaultDatasetId"`
}

// Terminal reports whether the run has stopped
func (r Run) Terminal() bool {
	switch r.Status {
	case StatusSucceeded, StatusFailed, StatusTimedOut, StatusAborted:
		return true
	}
	return false
}

// Fetch runs the actor for one URL and maps the result
func (s *Source) Fetch(ctx context.Context, opts models.RequestOptions) (*models.RawPage, error) {
	if s.opts.Token == "" {
		return nil, source.NewSourceError(source.ErrCodeAuth, "APIFY_API_TOKEN must be set", source.ErrMissingCredentials)
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.opts.RunTimeout)
	defer cancel()

	run, err := s.start(ctx, opts.URL)
	if err != nil {
		return nil, err
	}

	logger := log.With().Str("url", opts.URL).Str("run_id", run.ID).Logger()
	logger.Debug().Str("actor", s.opts.Actor).Str("status", run.Status).Msg("Actor run started")

	for !run.Terminal() {
		select {
		case <-ctx.Done():
			return nil, source.NewSourceError(source.ErrCodeTimeout, "actor run did not finish in time", ctx.Err()).
				WithDetail("run_id", run.ID).
				WithDetail("status", run.Status)
		case <-time.After(s.opts.PollInterval):
		}
		if run, err = s.poll(ctx, run.ID); err != nil {
			if ctx.Err() != nil && source.Code(err) != source.ErrCodeTimeout {
				return nil, source.NewSourceError(source.ErrCodeTimeout, "actor run did not finish in time", err)
			}
			return nil, err
		}
		logger.Debug().Str("status", run.Status).Msg("Actor run polled")
	}

	if run.Status != StatusSucceeded {
		return nil, source.NewSourceError(source.ErrCodeAPIError, fmt.Sprintf("actor run failed or timed out with status: %s", run.Status), nil).
			WithDetail("run_id", run.ID).
			WithDetail("status", run.Status)
	}

	items, err := s.items(ctx, run.DefaultDatasetID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, source.NewSourceError(source.ErrCodeNoContent, "actor returned no dataset items", nil).
			WithDetail("run_id", run.ID)
	}

	product := items[0].product()
	page := &models.RawPage{
		URL:          opts.URL,
		Source:       models.SourceApify,
		StatusCode:   http.StatusOK,
		Product:      &product,
		FetchedAt:    time.Now(),
		ResponseTime: time.Since(start).Milliseconds(),
	}

	logger.Debug().
		Int("items", len(items)).
		Int("images", len(product.ImageURLs)).
		Int64("response_time_ms", page.ResponseTime).
		Msg("Actor run completed")

	return page, nil
}

func (s *Source) start(ctx context.Context, pageURL string) (Run, error) {
	in := runInput{URLs: []string{pageURL}}
	in.Proxy.UseApifyProxy = true
	in.Proxy.ApifyProxyGroups = []string{"RESIDENTIAL"}

	body, err := json.Marshal(in)
	if err != nil {
		return Run{}, source.NewSourceError(source.ErrCodeValidation, "failed to encode actor input", err)
	}

	endpoint := fmt.Sprintf("%s/acts/%s/runs?waitForFinish=%d", s.opts.BaseURL, url.PathEscape(s.opts.Actor), waitForFinish)

	var out struct {
		Data Run `json:"data"`
	}
	err = retry.WithRetry(ctx, s.opts.Retry, func() error {
		return s.do(ctx, http.MethodPost, endpoint, body, &out)
	})
	if err != nil {
		return Run{}, err
	}
	if out.Data.ID == "" {
		return Run{}, source.NewSourceError(source.ErrCodeAPIError, "actor run response has no id", nil)
	}
	return out.Data, nil
}

func (s *Source) poll(ctx context.Context, runID string) (Run, error) {
	endpoint := fmt.Sprintf("%s/actor-runs/%s?waitForFinish=%d", s.opts.BaseURL, url.PathEscape(runID), waitForFinish)

	var out struct {
		Data Run `json:"data"`
	}
	err := retry.WithRetry(ctx, s.opts.Retry, func() error {
		return s.do(ctx, http.MethodGet, endpoint, nil, &out)
	})
	return out.Data, err
}

func (s *Source) items(ctx context.Context, datasetID string) ([]Item, error) {
	if datasetID == "" {
		return nil, source.NewSourceError(source.ErrCodeAPIError, "actor run has no default dataset", nil)
	}
	endpoint := fmt.Sprintf("%s/datasets/%s/items?clean=true&format=json", s.opts.BaseURL, url.PathEscape(datasetID))

	var items []Item
	err := retry.WithRetry(ctx, s.opts.Retry, func() error {
		return s.do(ctx, http.MethodGet, endpoint, nil, &items)
	})
	return items, err
}

func (s *Source) do(ctx context.Context, method, endpoint string, body []byte, out any) error {
	if s.opts.Limiter != nil {
		if err := s.opts.Limiter.Wait(ctx, endpoint); err != nil {
			return source.NewSourceError(source.ErrCodeTimeout, "rate limiter wait aborted", err)
		}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return retry.Permanent(source.NewSourceError(source.ErrCodeValidation, "failed to create request", err))
	}
	req.Header.Set("Authorization", "Bearer "+s.opts.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.opts.Client.Do(req)
	if err != nil {
		code := source.ErrCodeNetworkError
		if ctx.Err() != nil {
			code = source.ErrCodeTimeout
		}
		return source.NewSourceError(code, "apify request failed", err).WithRetry()
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return source.StatusError(resp, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return source.NewSourceError(source.ErrCodeParseError, "failed to decode apify response", err)
	}
	return nil
}
