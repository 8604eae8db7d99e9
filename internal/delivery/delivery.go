// Package delivery posts assembled product records to the storefront's
// import endpoint.
package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/law-makers/sourcer/internal/reqctx"
	"github.com/law-makers/sourcer/internal/retry"
	"github.com/law-makers/sourcer/pkg/models"
)

// Deliverer sends a payload to the import service
type Deliverer interface {
	Deliver(ctx context.Context, payload models.Payload) (*Response, error)
}

// Response is the import service's reply
type Response struct {
	StatusCode     int
	IdempotencyKey string
	// Body is the decoded JSON reply, nil when the body was empty or not JSON
	Body map[string]any
}

// Options configures a Client
type Options struct {
	Endpoint string
	Client   *http.Client
	Retry    retry.Config
	Timeout  time.Duration
}

// Client posts payloads over HTTP
type Client struct {
	endpoint string
	client   *http.Client
	retry    retry.Config
	timeout  time.Duration
	newKey   func() string
}

// New creates a delivery Client
func New(opts Options) *Client {
	if opts.Client == nil {
		opts.Client = &http.Client{}
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = retry.DefaultConfig()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Client{
		endpoint: opts.Endpoint,
		client:   opts.Client,
		retry:    opts.Retry,
		timeout:  opts.Timeout,
		newKey:   uuid.NewString,
	}
}

// BuildPayload wraps a product in the import document. The translated block
// starts as a copy of the original; translation happens downstream.
func BuildPayload(pageURL string, src models.SourceKind, p models.Product) models.Payload {
	return models.Payload{
		Original: p,
		Translated: models.Translated{
			ProductName:        p.ProductName,
			ProductDescription: p.ProductDescription,
		},
		Message: fmt.Sprintf("Data scraped from %s using %s.", pageURL, describe(src)),
	}
}

func describe(src models.SourceKind) string {
	switch src {
	case models.SourceStatic:
		return "HTTP"
	case models.SourceBrowser:
		return "headless Chrome"
	case models.SourceOxylabs:
		return "Oxylabs 1688.com Scraper API"
	case models.SourceApify:
		return "Apify 1688.com Product Details Scraper"
	default:
		return string(src)
	}
}

// Deliver posts payload, retrying transient failures. Every attempt carries
// the same Idempotency-Key so the import service can drop duplicates.
func (c *Client) Deliver(ctx context.Context, payload models.Payload) (*Response, error) {
	logger := reqctx.Logger(ctx)

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	key := c.newKey()
	var resp *Response
	err = retry.WithRetry(ctx, c.retry, func() error {
		var err error
		resp, err = c.post(ctx, body, key)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("delivery to %s failed: %w", c.endpoint, err)
	}

	logger.Info().
		Int("status", resp.StatusCode).
		Str("idempotency_key", key).
		Msg("Product delivered")

	return resp, nil
}

func (c *Client) post(ctx context.Context, body []byte, key string) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Idempotency-Key", key)
	if rc := reqctx.GetRequestContext(ctx); rc.RequestID != "unknown" {
		req.Header.Set("X-Request-ID", rc.RequestID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, retry.NewHTTPError(resp.StatusCode, resp.Status, errorMessage(raw))
	}

	out := &Response{StatusCode: resp.StatusCode, IdempotencyKey: key}
	if len(bytes.TrimSpace(raw)) > 0 {
		var decoded map[string]any
		if err := json.Unmarshal(raw, &decoded); err == nil {
			out.Body = decoded
		}
	}
	return out, nil
}

// errorMessage pulls message or error out of a JSON error body, falling back
// to the raw text
func errorMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	msg := strings.TrimSpace(string(raw))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
