// Package source defines how product pages are obtained. Each backend
// (plain HTTP, headless Chrome, Oxylabs, Apify) implements Source and lives
// in its own subpackage.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/law-makers/sourcer/internal/extract"
	"github.com/law-makers/sourcer/pkg/models"
)

// Source fetches one product page
type Source interface {
	// Fetch retrieves the page described by opts. The returned page carries
	// either markup or an already-parsed product.
	Fetch(ctx context.Context, opts models.RequestOptions) (*models.RawPage, error)

	// Name returns the source kind
	Name() models.SourceKind
}

// Common source errors
var (
	ErrBrowserNotFound    = errors.New("chrome browser not found")
	ErrMissingCredentials = errors.New("missing API credentials")
	ErrUnknownSource      = errors.New("unknown source")
)

// ErrorCode represents a specific error condition
type ErrorCode string

const (
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeTimeout      ErrorCode = "TIMEOUT"
	ErrCodeValidation   ErrorCode = "VALIDATION"
	ErrCodeBrowserCrash ErrorCode = "BROWSER_CRASH"
	ErrCodeNetworkError ErrorCode = "NETWORK_ERROR"
	ErrCodeParseError   ErrorCode = "PARSE_ERROR"
	ErrCodeSessionError ErrorCode = "SESSION_ERROR"
	ErrCodeHTTPStatus   ErrorCode = "HTTP_STATUS"
	ErrCodeAuth         ErrorCode = "AUTH"
	ErrCodeNoContent    ErrorCode = "NO_CONTENT"
	ErrCodeAPIError     ErrorCode = "API_ERROR"
)

// SourceError wraps errors with a code and context
type SourceError struct {
	Code       ErrorCode
	Message    string
	Underlying error
	Retry      bool
	Details    map[string]any
}

// Error implements the error interface
func (e *SourceError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *SourceError) Unwrap() error {
	return e.Underlying
}

// Is matches another SourceError by code, or the underlying error
func (e *SourceError) Is(target error) bool {
	if t, ok := target.(*SourceError); ok {
		return e.Code == t.Code
	}
	return errors.Is(e.Underlying, target)
}

// Retryable reports whether retrying the fetch may succeed
func (e *SourceError) Retryable() bool {
	return e.Retry
}

// NewSourceError creates a new SourceError
func NewSourceError(code ErrorCode, message string, err error) *SourceError {
	return &SourceError{
		Code:       code,
		Message:    message,
		Underlying: err,
		Details:    make(map[string]any),
	}
}

// WithRetry marks the error as retryable
func (e *SourceError) WithRetry() *SourceError {
	e.Retry = true
	return e
}

// WithDetail adds a detail to the error
func (e *SourceError) WithDetail(key string, value any) *SourceError {
	e.Details[key] = value
	return e
}

// StatusError classifies a non-2xx response
func StatusError(resp *http.Response, body string) *SourceError {
	return ErrorForStatus(resp.StatusCode, body)
}

// ErrorForStatus classifies a non-2xx status code. 408, 429 and 5xx are retryable.
func ErrorForStatus(status int, body string) *SourceError {
	code := ErrCodeHTTPStatus
	switch status {
	case http.StatusNotFound:
		code = ErrCodeNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		code = ErrCodeAuth
	}

	err := NewSourceError(code, fmt.Sprintf("unexpected status %d %s", status, http.StatusText(status)), nil).
		WithDetail("status", status)
	if body != "" {
		err.WithDetail("body", body)
	}
	if status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= 500 {
		err.WithRetry()
	}
	return err
}

// Code returns the ErrorCode carried by err, or "" if none
func Code(err error) ErrorCode {
	var se *SourceError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// Registry maps source kinds to implementations
type Registry map[models.SourceKind]Source

// Get returns the source registered for kind
func (r Registry) Get(kind models.SourceKind) (Source, error) {
	if kind == "" {
		kind = models.SourceAuto
	}
	s, ok := r[kind]
	if !ok || s == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, kind)
	}
	return s, nil
}

// ParseKind validates a user supplied source name
func ParseKind(name string) (models.SourceKind, error) {
	switch k := models.SourceKind(name); k {
	case models.SourceAuto, models.SourceStatic, models.SourceBrowser, models.SourceOxylabs, models.SourceApify:
		return k, nil
	case "":
		return models.SourceAuto, nil
	default:
		return "", fmt.Errorf("%w: %q (must be auto, static, browser, oxylabs, or apify)", ErrUnknownSource, name)
	}
}

// Price decodes a price that scraping APIs emit either as a JSON number or
// as a display string such as "¥12.50".
type Price float64

// UnmarshalJSON implements json.Unmarshaler
func (p *Price) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		f, err := n.Float64()
		if err == nil {
			*p = Price(f)
			return nil
		}
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		// null, objects and arrays carry no usable price
		*p = 0
		return nil
	}
	f, _ := extract.ParsePrice(s)
	*p = Price(f)
	return nil
}
