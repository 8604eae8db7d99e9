package oxylabs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/law-makers/sourcer/internal/retry"
	"github.com/law-makers/sourcer/internal/source"
	"github.com/law-makers/sourcer/pkg/models"
)

func newTestSource(endpoint string) *Source {
	return New(Options{
		Endpoint: endpoint,
		Username: "user",
		Password: "pass",
		Timeout:  5 * time.Second,
		Retry:    retry.Config{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, Multiplier: 1},
	})
}

func TestFetch_MapsParsedContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "user" || pass != "pass" {
			t.Errorf("Expected basic auth, got %q %q %v", user, pass, ok)
		}

		var q map[string]any
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		if q["source"] != "universal" || q["parse"] != true || q["parser_type"] != "ecommerce_product" || q["render"] != "html" {
			t.Errorf("unexpected query %v", q)
		}
		if q["url"] != "https://detail.1688.com/offer/1.html" {
			t.Errorf("unexpected url %v", q["url"])
		}

		w.Write([]byte(`{"results":[{"content":{
			"title":"Steel Bottle",
			"description":"Keeps drinks cold",
			"price":{"current_price":12.5},
			"images":[{"url":"https://cbu01.alicdn.com/a.jpg"},{"url":""}],
			"videos":[{"url":"https://cloud.video.taobao.com/v.mp4"}]
		}}]}`))
	}))
	defer server.Close()

	page, err := newTestSource(server.URL).Fetch(context.Background(), models.RequestOptions{URL: "https://detail.1688.com/offer/1.html"})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if page.Source != models.SourceOxylabs || page.Product == nil || page.HTML != "" {
		t.Fatalf("Expected a parsed product, got %+v", page)
	}

	p := page.Product
	if p.ProductName != "Steel Bottle" || p.ProductDescription != "Keeps drinks cold" || p.ProductPrice != 12.5 {
		t.Errorf("unexpected product %+v", p)
	}
	if len(p.ImageURLs) != 1 || len(p.VideoURLs) != 1 {
		t.Errorf("Expected empty image URLs to be skipped, got %v %v", p.ImageURLs, p.VideoURLs)
	}
}

func TestFetch_PriceShapes(t *testing.T) {
	tests := []struct {
		body string
		want float64
	}{
		{`{"current_price":"¥8.80"}`, 8.8},
		{`9.5`, 9.5},
		{`"12"`, 12},
		{`null`, 0},
	}

	for _, tt := range tests {
		var c content
		if err := json.Unmarshal([]byte(`{"price":`+tt.body+`}`), &c); err != nil {
			t.Errorf("%s: unexpected error %v", tt.body, err)
			continue
		}
		if float64(c.Price) != tt.want {
			t.Errorf("%s: got %v, want %v", tt.body, float64(c.Price), tt.want)
		}
	}
}

func TestFetch_NoContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[]}`))
	}))
	defer server.Close()

	_, err := newTestSource(server.URL).Fetch(context.Background(), models.RequestOptions{URL: "https://detail.1688.com/offer/1.html"})
	if source.Code(err) != source.ErrCodeNoContent {
		t.Errorf("Expected NO_CONTENT, got %v", err)
	}
}

func TestFetch_MissingCredentials(t *testing.T) {
	s := New(Options{Endpoint: "http://127.0.0.1:1"})
	_, err := s.Fetch(context.Background(), models.RequestOptions{URL: "https://detail.1688.com/offer/1.html"})
	if !errors.Is(err, source.ErrMissingCredentials) {
		t.Errorf("Expected ErrMissingCredentials, got %v", err)
	}
}

func TestFetch_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"results":[{"content":{"title":"ok"}}]}`))
	}))
	defer server.Close()

	page, err := newTestSource(server.URL).Fetch(context.Background(), models.RequestOptions{URL: "https://detail.1688.com/offer/1.html"})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if page.Product.ProductName != "ok" || atomic.LoadInt32(&calls) != 3 {
		t.Errorf("Expected success on third attempt, got %q after %d calls", page.Product.ProductName, calls)
	}
}

func TestFetch_AuthFailureNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := newTestSource(server.URL).Fetch(context.Background(), models.RequestOptions{URL: "https://detail.1688.com/offer/1.html"})
	if source.Code(err) != source.ErrCodeAuth {
		t.Errorf("Expected AUTH, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("Expected a single attempt, got %d", got)
	}
}
