package delivery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/law-makers/sourcer/internal/reqctx"
	"github.com/law-makers/sourcer/internal/retry"
	"github.com/law-makers/sourcer/pkg/models"
)

func fastRetry() retry.Config {
	cfg := retry.DefaultConfig()
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = time.Millisecond
	return cfg
}

func TestBuildPayload(t *testing.T) {
	p := models.NewProduct()
	p.ProductName = "Widget"

	payload := BuildPayload("https://detail.1688.com/offer/1.html", models.SourceOxylabs, p)
	if payload.Translated.ProductName != "Widget" || payload.Translated.ProductDescription != models.DefaultProductDescription {
		t.Errorf("Expected translated block to mirror original, got %+v", payload.Translated)
	}
	want := "Data scraped from https://detail.1688.com/offer/1.html using Oxylabs 1688.com Scraper API."
	if payload.Message != want {
		t.Errorf("got message %q, want %q", payload.Message, want)
	}

	raw, _ := json.Marshal(payload)
	for _, key := range []string{`"original"`, `"translated"`, `"message"`, `"imageUrls":[]`} {
		if !strings.Contains(string(raw), key) {
			t.Errorf("Expected %s in %s", key, raw)
		}
	}
}

func TestDeliver_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected request %s %s", r.Method, r.Header.Get("Content-Type"))
		}
		if r.Header.Get("Idempotency-Key") == "" || r.Header.Get("X-Request-ID") == "" {
			t.Errorf("Expected idempotency and request id headers, got %v", r.Header)
		}
		var got models.Payload
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("bad payload: %v", err)
		}
		if got.Original.ProductName != "Widget" {
			t.Errorf("unexpected payload %+v", got)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"productId":"p_1"}`))
	}))
	defer server.Close()

	p := models.NewProduct()
	p.ProductName = "Widget"

	ctx := reqctx.WithRequestContext(context.Background(), "https://detail.1688.com/offer/1.html")
	resp, err := New(Options{Endpoint: server.URL, Retry: fastRetry()}).Deliver(ctx, BuildPayload("u", models.SourceStatic, p))
	if err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}
	if resp.StatusCode != http.StatusCreated || resp.Body["productId"] != "p_1" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestDeliver_RetriesWithSameKey(t *testing.T) {
	var mu sync.Mutex
	var keys []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		n := len(keys)
		mu.Unlock()
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := New(Options{Endpoint: server.URL, Retry: fastRetry()})
	if _, err := c.Deliver(context.Background(), BuildPayload("u", models.SourceStatic, models.NewProduct())); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(keys) != 3 {
		t.Fatalf("Expected 3 attempts, got %d", len(keys))
	}
	if keys[0] != keys[1] || keys[1] != keys[2] {
		t.Errorf("Expected a stable idempotency key, got %v", keys)
	}
}

func TestDeliver_ClientErrorNotRetried(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"productName is required"}`))
	}))
	defer server.Close()

	_, err := New(Options{Endpoint: server.URL, Retry: fastRetry()}).Deliver(context.Background(), BuildPayload("u", models.SourceStatic, models.NewProduct()))
	if err == nil || !strings.Contains(err.Error(), "productName is required") {
		t.Errorf("Expected server message in error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected a single attempt, got %d", calls)
	}
}
