// Package reqctx tags each scrape with a request ID so the log lines of one
// offer can be followed through source, extraction and delivery.
package reqctx

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type key int

const requestKey key = 0

type RequestContext struct {
	RequestID string
	URL       string
	StartTime time.Time
}

// WithRequestContext attaches a fresh request ID for url to ctx
func WithRequestContext(ctx context.Context, url string) context.Context {
	return context.WithValue(ctx, requestKey, &RequestContext{
		RequestID: generateID(),
		URL:       url,
		StartTime: time.Now(),
	})
}

func GetRequestContext(ctx context.Context) *RequestContext {
	if rc, ok := ctx.Value(requestKey).(*RequestContext); ok {
		return rc
	}
	return &RequestContext{
		RequestID: "unknown",
		StartTime: time.Now(),
	}
}

// Logger returns the global logger enriched with the request's fields
func Logger(ctx context.Context) zerolog.Logger {
	rc := GetRequestContext(ctx)
	lc := log.With().Str("request_id", rc.RequestID)
	if rc.URL != "" {
		lc = lc.Str("url", rc.URL)
	}
	return lc.Logger()
}

// Elapsed reports the time since the request started
func Elapsed(ctx context.Context) time.Duration {
	return time.Since(GetRequestContext(ctx).StartTime)
}

func generateID() string {
	return uuid.NewString()
}

// RequestError wraps an error with request context
type RequestError struct {
	RequestID string
	Err       error
}

// Error implements the error interface
func (e *RequestError) Error() string {
	return fmt.Sprintf("[%s] %v", e.RequestID, e.Err)
}

// Unwrap returns the underlying error
func (e *RequestError) Unwrap() error {
	return e.Err
}

// NewRequestError creates a new RequestError from context
func NewRequestError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	rc := GetRequestContext(ctx)
	return &RequestError{
		RequestID: rc.RequestID,
		Err:       err,
	}
}
