// Package downloader saves a product's gallery images and videos to disk.
package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/law-makers/sourcer/internal/retry"
	"github.com/rs/zerolog/log"
)

// alicdn rejects hotlinked media without a 1688 referer
const defaultReferer = "https://detail.1688.com/"

// DownloadResult represents the result of a download operation
type DownloadResult struct {
	Job      Job
	FilePath string
	Size     int64
	Error    error
	Duration time.Duration
}

// Success reports whether the file was written
func (r DownloadResult) Success() bool {
	return r.Error == nil
}

// Options configures a Downloader
type Options struct {
	Client    *http.Client
	Timeout   time.Duration
	UserAgent string
	Referer   string
	Headers   map[string]string
	Retry     retry.Config
}

// Downloader streams media files to disk
type Downloader struct {
	client  *http.Client
	timeout time.Duration
	headers http.Header
	retry   retry.Config
}

// New creates a Downloader
func New(opts Options) *Downloader {
	if opts.Client == nil {
		opts.Client = &http.Client{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Referer == "" {
		opts.Referer = defaultReferer
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = retry.DefaultConfig()
	}

	headers := http.Header{}
	headers.Set("Referer", opts.Referer)
	if opts.UserAgent != "" {
		headers.Set("User-Agent", opts.UserAgent)
	}
	for k, v := range opts.Headers {
		headers.Set(k, v)
	}

	return &Downloader{
		client:  opts.Client,
		timeout: opts.Timeout,
		headers: headers,
		retry:   opts.Retry,
	}
}

// Download fetches job.URL into dir/job.Filename. The file only appears once
// the body has been fully written.
func (d *Downloader) Download(ctx context.Context, job Job, dir string) DownloadResult {
	start := time.Now()
	result := DownloadResult{Job: job, FilePath: filepath.Join(dir, job.Filename)}

	err := retry.WithRetry(ctx, d.retry, func() error {
		n, err := d.fetch(ctx, job.URL, result.FilePath)
		result.Size = n
		return err
	})
	result.Error = err
	result.Duration = time.Since(start)

	if err != nil {
		log.Debug().Err(err).Str("url", job.URL).Msg("Download failed")
		return result
	}

	log.Debug().
		Str("url", job.URL).
		Str("file", result.FilePath).
		Int64("bytes", result.Size).
		Dur("duration", result.Duration).
		Msg("Download completed")
	return result
}

func (d *Downloader) fetch(ctx context.Context, fileURL, path string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return 0, retry.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header = d.headers.Clone()

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, retry.NewHTTPError(resp.StatusCode, resp.Status, "")
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".download-*")
	if err != nil {
		return 0, retry.Permanent(fmt.Errorf("failed to create file: %w", err))
	}

	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("failed to write file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return 0, retry.Permanent(fmt.Errorf("failed to move file into place: %w", err))
	}
	return n, nil
}
