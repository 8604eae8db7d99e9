package downloader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/law-makers/sourcer/internal/retry"
)

func fastRetry() retry.Config {
	cfg := retry.DefaultConfig()
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = time.Millisecond
	return cfg
}

func TestDownload_Success(t *testing.T) {
	content := "jpeg bytes"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Referer") != defaultReferer {
			t.Errorf("Expected 1688 referer, got %q", r.Header.Get("Referer"))
		}
		if r.Header.Get("User-Agent") != "Test/1.0" {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		w.Write([]byte(content))
	}))
	defer server.Close()

	dir := t.TempDir()
	dl := New(Options{UserAgent: "Test/1.0", Retry: fastRetry()})

	result := dl.Download(context.Background(), Job{URL: server.URL + "/a.jpg", Filename: "1_img_01.jpg"}, dir)
	if !result.Success() {
		t.Fatalf("Download failed: %v", result.Error)
	}
	if result.FilePath != filepath.Join(dir, "1_img_01.jpg") || result.Size != int64(len(content)) {
		t.Errorf("unexpected result %+v", result)
	}

	data, err := os.ReadFile(result.FilePath)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(data) != content {
		t.Errorf("Content mismatch: got %q, want %q", string(data), content)
	}
}

func TestDownload_RetriesServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	result := New(Options{Retry: fastRetry()}).Download(context.Background(), Job{URL: server.URL, Filename: "f.jpg"}, t.TempDir())
	if !result.Success() || calls.Load() != 2 {
		t.Errorf("Expected success on second attempt, got %v after %d calls", result.Error, calls.Load())
	}
}

func TestDownload_NotFoundLeavesNoFile(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	dir := t.TempDir()
	result := New(Options{Retry: fastRetry()}).Download(context.Background(), Job{URL: server.URL, Filename: "gone.jpg"}, dir)
	if result.Success() {
		t.Fatal("Expected failure for 404")
	}
	if calls.Load() != 1 {
		t.Errorf("Expected 404 not to be retried, got %d calls", calls.Load())
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("Expected empty directory, found %d entries", len(entries))
	}
}

func TestWorkerPool_Concurrency(t *testing.T) {
	var mu sync.Mutex
	active, peak := 0, 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		active++
		if active > peak {
			peak = active
		}
		mu.Unlock()

		time.Sleep(20 * time.Millisecond)

		mu.Lock()
		active--
		mu.Unlock()
		w.Write([]byte("data"))
	}))
	defer server.Close()

	jobs := []Job{
		{URL: server.URL + "/1.jpg", Filename: "1.jpg"},
		{URL: server.URL + "/2.jpg", Filename: "2.jpg"},
		{URL: server.URL + "/3.jpg", Filename: "3.jpg"},
		{URL: server.URL + "/4.jpg", Filename: "4.jpg"},
	}

	var seen atomic.Int32
	pool := NewWorkerPool(New(Options{Retry: fastRetry()}), 2)
	pool.OnResult = func(DownloadResult) { seen.Add(1) }

	results, err := pool.DownloadBatch(context.Background(), jobs, filepath.Join(t.TempDir(), "media"))
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != len(jobs) || seen.Load() != int32(len(jobs)) {
		t.Fatalf("Expected %d results, got %d (callbacks %d)", len(jobs), len(results), seen.Load())
	}
	for i, r := range results {
		if !r.Success() || r.Job.Filename != jobs[i].Filename {
			t.Errorf("result %d: %+v", i, r)
		}
	}
	if peak > 2 {
		t.Errorf("Expected at most 2 concurrent downloads, saw %d", peak)
	}
}

func TestWorkerPool_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := NewWorkerPool(New(Options{}), 2).DownloadBatch(ctx, []Job{{URL: "http://127.0.0.1:1/x.jpg", Filename: "x.jpg"}}, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Error == nil {
		t.Errorf("Expected cancelled result, got %+v", results)
	}
}
