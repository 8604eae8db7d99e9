package static

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/law-makers/sourcer/internal/auth"
	"github.com/law-makers/sourcer/internal/cache"
	"github.com/law-makers/sourcer/internal/ratelimit"
	"github.com/law-makers/sourcer/internal/source"
	"github.com/law-makers/sourcer/pkg/models"
)

func newTestSource(c cache.Cache, sessions auth.Loader) *Source {
	return New(Options{
		Cache:     c,
		CacheTTL:  time.Minute,
		Limiter:   ratelimit.NewDomainLimiter(100, 100),
		Client:    &http.Client{Timeout: 5 * time.Second},
		Timeout:   5 * time.Second,
		UserAgent: "TestSourcer/1.0",
		Sessions:  sessions,
	})
}

func TestFetch_ReturnsMarkup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "TestSourcer/1.0" {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		if r.Header.Get("X-Test") != "1" {
			t.Errorf("Expected custom header to be forwarded")
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><body><h1 class="d-title">Widget</h1></body></html>`))
	}))
	defer server.Close()

	s := newTestSource(nil, nil)
	page, err := s.Fetch(context.Background(), models.RequestOptions{
		URL:     server.URL,
		Headers: map[string]string{"X-Test": "1"},
	})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if page.StatusCode != http.StatusOK || page.Source != models.SourceStatic {
		t.Errorf("unexpected page meta %+v", page)
	}
	if page.HTML == "" || page.Product != nil {
		t.Errorf("Expected markup only, got %+v", page)
	}
}

func TestFetch_DecodesGBK(t *testing.T) {
	// "商品" in GBK
	gbk := []byte{0xc9, 0xcc, 0xc6, 0xb7}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=gbk")
		w.Write([]byte("<html><body><h1>"))
		w.Write(gbk)
		w.Write([]byte("</h1></body></html>"))
	}))
	defer server.Close()

	page, err := newTestSource(nil, nil).Fetch(context.Background(), models.RequestOptions{URL: server.URL})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if want := "<h1>商品</h1>"; !strings.Contains(page.HTML, want) {
		t.Errorf("Expected decoded %q in %q", want, page.HTML)
	}
}

func TestFetch_StatusErrors(t *testing.T) {
	tests := []struct {
		status    int
		code      source.ErrorCode
		retryable bool
	}{
		{http.StatusNotFound, source.ErrCodeNotFound, false},
		{http.StatusServiceUnavailable, source.ErrCodeHTTPStatus, true},
	}

	for _, tt := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))

		_, err := newTestSource(nil, nil).Fetch(context.Background(), models.RequestOptions{URL: server.URL})
		server.Close()

		var se *source.SourceError
		if !errors.As(err, &se) {
			t.Fatalf("status %d: expected SourceError, got %v", tt.status, err)
		}
		if se.Code != tt.code || se.Retryable() != tt.retryable {
			t.Errorf("status %d: got code %s retry %v", tt.status, se.Code, se.Retryable())
		}
	}
}

func TestFetch_EmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	_, err := newTestSource(nil, nil).Fetch(context.Background(), models.RequestOptions{URL: server.URL})
	if source.Code(err) != source.ErrCodeNoContent {
		t.Errorf("Expected NO_CONTENT, got %v", err)
	}
}

func TestFetch_BlankBodyWithCharset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=gbk")
		w.Write([]byte("  \n\t"))
	}))
	defer server.Close()

	_, err := newTestSource(nil, nil).Fetch(context.Background(), models.RequestOptions{URL: server.URL})
	if source.Code(err) != source.ErrCodeNoContent {
		t.Errorf("Expected NO_CONTENT, got %v", err)
	}
	var se *source.SourceError
	if errors.As(err, &se) && se.Retryable() {
		t.Error("Expected an empty page not to be retried")
	}
}

func TestFetch_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	_, err := newTestSource(nil, nil).Fetch(context.Background(), models.RequestOptions{
		URL:     server.URL,
		Timeout: 50 * time.Millisecond,
	})
	if source.Code(err) != source.ErrCodeTimeout {
		t.Errorf("Expected TIMEOUT, got %v", err)
	}
}

func TestFetch_UsesCache(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer server.Close()

	mc := cache.NewMemoryCache(1 << 20)
	defer mc.Close()
	s := newTestSource(mc, nil)

	for i := 0; i < 3; i++ {
		if _, err := s.Fetch(context.Background(), models.RequestOptions{URL: server.URL}); err != nil {
			t.Fatalf("Fetch %d failed: %v", i, err)
		}
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Errorf("Expected 1 network hit, got %d", got)
	}
}

func TestFetch_SessionCookies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("cookie2")
		if err != nil || c.Value != "secret" {
			t.Errorf("Expected session cookie, got %v %v", c, err)
		}
		if r.Header.Get("Referer") != "https://www.1688.com/" {
			t.Errorf("Expected session header, got %q", r.Header.Get("Referer"))
		}
		w.Write([]byte("<html>ok</html>"))
	}))
	defer server.Close()

	loader := func(name string) (*auth.SessionData, error) {
		if name != "buyer" {
			return nil, errors.New("unknown session")
		}
		return &auth.SessionData{
			Name:    name,
			Cookies: []auth.Cookie{{Name: "cookie2", Value: "secret"}},
			Headers: map[string]string{"Referer": "https://www.1688.com/"},
		}, nil
	}

	mc := cache.NewMemoryCache(1 << 20)
	defer mc.Close()

	s := newTestSource(mc, loader)
	if _, err := s.Fetch(context.Background(), models.RequestOptions{URL: server.URL, SessionName: "buyer"}); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if mc.Stats().Entries != 0 {
		t.Error("Expected session pages to bypass the cache")
	}
}
