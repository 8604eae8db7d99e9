// Package oxylabs obtains parsed product records from the Oxylabs realtime
// scraper API instead of fetching markup directly.
package oxylabs

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/law-makers/sourcer/internal/ratelimit"
	"github.com/law-makers/sourcer/internal/retry"
	"github.com/law-makers/sourcer/internal/source"
	"github.com/law-makers/sourcer/pkg/models"
	"github.com/rs/zerolog/log"
)

// DefaultTimeout matches the realtime API's recommended timeout for rendered jobs
const DefaultTimeout = 180 * time.Second

// Options configures an Oxylabs Source
type Options struct {
	Endpoint string
	Username string
	Password string
	Client   *http.Client
	Limiter  ratelimit.RateLimiter
	Retry    retry.Config
	Timeout  time.Duration
}

// Source implements source.Source over the Oxylabs realtime API
type Source struct {
	opts Options
}

// New creates an Oxylabs Source
func New(opts Options) *Source {
	if opts.Client == nil {
		opts.Client = &http.Client{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = retry.DefaultConfig()
	}
	return &Source{opts: opts}
}

// Name returns the source kind
func (s *Source) Name() models.SourceKind {
	return models.SourceOxylabs
}

type query struct {
	Source     string `json:"source"`
	URL        string `json:"url"`
	Parse      bool   `json:"parse"`
	ParserType string `json:"parser_type"`
	Render     string `json:"render"`
}

type response struct {
	Results []struct {
		Content *content `json:"content"`
	} `json:"results"`
}

type content struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       price   `json:"price"`
	Images      []media `json:"images"`
	Videos      []media `json:"videos"`
}

// price is usually {"current_price": ...} but some parsers emit a bare value
type price float64

func (p *price) UnmarshalJSON(b []byte) error {
	var obj struct {
		Current source.Price `json:"current_price"`
	}
	if err := json.Unmarshal(b, &obj); err == nil {
		*p = price(obj.Current)
		return nil
	}
	var v source.Price
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*p = price(v)
	return nil
}

type media struct {
	URL string `json:"url"`
}

// Fetch submits the page to the realtime API and maps the parsed result
func (s *Source) Fetch(ctx context.Context, opts models.RequestOptions) (*models.RawPage, error) {
	if s.opts.Username == "" || s.opts.Password == "" {
		return nil, source.NewSourceError(source.ErrCodeAuth, "OXYLABS_USERNAME and OXYLABS_PASSWORD must be set", source.ErrMissingCredentials)
	}

	start := time.Now()
	log.Debug().
		Str("url", opts.URL).
		Str("source", string(s.Name())).
		Msg("Submitting realtime query")

	if s.opts.Limiter != nil {
		if err := s.opts.Limiter.Wait(ctx, s.opts.Endpoint); err != nil {
			return nil, source.NewSourceError(source.ErrCodeTimeout, "rate limiter wait aborted", err)
		}
	}

	body, err := json.Marshal(query{
		Source:     "universal",
		URL:        opts.URL,
		Parse:      true,
		ParserType: "ecommerce_product",
		Render:     "html",
	})
	if err != nil {
		return nil, source.NewSourceError(source.ErrCodeValidation, "failed to encode query", err)
	}

	var status int
	var decoded response
	err = retry.WithRetry(ctx, s.opts.Retry, func() error {
		var err error
		status, err = s.post(ctx, opts, body, &decoded)
		return err
	})
	if err != nil {
		return nil, err
	}

	if len(decoded.Results) == 0 || decoded.Results[0].Content == nil {
		return nil, source.NewSourceError(source.ErrCodeNoContent, "no parsed content in response", nil)
	}

	product := toProduct(decoded.Results[0].Content)
	page := &models.RawPage{
		URL:          opts.URL,
		Source:       models.SourceOxylabs,
		StatusCode:   status,
		Product:      &product,
		FetchedAt:    time.Now(),
		ResponseTime: time.Since(start).Milliseconds(),
	}

	log.Debug().
		Str("url", opts.URL).
		Int64("response_time_ms", page.ResponseTime).
		Int("images", len(product.ImageURLs)).
		Msg("Realtime query completed")

	return page, nil
}

func (s *Source) post(ctx context.Context, opts models.RequestOptions, body []byte, out *response) (int, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = s.opts.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.opts.Endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, retry.Permanent(source.NewSourceError(source.ErrCodeValidation, "failed to create request", err))
	}
	req.SetBasicAuth(s.opts.Username, s.opts.Password)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.opts.Client.Do(req)
	if err != nil {
		return 0, source.NewSourceError(transportCode(ctx), "realtime query failed", err).WithRetry()
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp.StatusCode, source.StatusError(resp, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, source.NewSourceError(source.ErrCodeParseError, "failed to decode response", err)
	}
	return resp.StatusCode, nil
}

func toProduct(c *content) models.Product {
	p := models.Product{
		ProductName:        c.Title,
		ProductDescription: c.Description,
		ProductPrice:       float64(c.Price),
	}
	for _, img := range c.Images {
		if img.URL != "" {
			p.ImageURLs = append(p.ImageURLs, img.URL)
		}
	}
	for _, v := range c.Videos {
		if v.URL != "" {
			p.VideoURLs = append(p.VideoURLs, v.URL)
		}
	}
	return p
}

func transportCode(ctx context.Context) source.ErrorCode {
	if ctx.Err() != nil {
		return source.ErrCodeTimeout
	}
	return source.ErrCodeNetworkError
}
