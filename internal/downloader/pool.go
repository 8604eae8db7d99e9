package downloader

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// MaxWorkers bounds download concurrency
const MaxWorkers = 50

// WorkerPool runs downloads with bounded concurrency
type WorkerPool struct {
	downloader  *Downloader
	concurrency int
	// OnResult is called after each download; it may be called concurrently
	OnResult func(DownloadResult)
}

// NewWorkerPool creates a pool of at most concurrency workers
func NewWorkerPool(d *Downloader, concurrency int) *WorkerPool {
	if concurrency <= 0 {
		concurrency = 5
	}
	if concurrency > MaxWorkers {
		concurrency = MaxWorkers
	}
	return &WorkerPool{downloader: d, concurrency: concurrency}
}

// DownloadBatch fetches every job into dir. Results are returned in job
// order; jobs not started before ctx is cancelled carry ctx's error.
func (wp *WorkerPool) DownloadBatch(ctx context.Context, jobs []Job, dir string) ([]DownloadResult, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	results := make([]DownloadResult, len(jobs))
	g := new(errgroup.Group)
	g.SetLimit(wp.concurrency)

	for i, job := range jobs {
		if ctx.Err() != nil {
			results[i] = DownloadResult{Job: job, Error: ctx.Err()}
			continue
		}
		g.Go(func() error {
			res := wp.downloader.Download(ctx, job, dir)
			results[i] = res
			if wp.OnResult != nil {
				wp.OnResult(res)
			}
			return nil
		})
	}
	g.Wait()

	log.Debug().Int("jobs", len(jobs)).Int("workers", wp.concurrency).Msg("Download batch finished")
	return results, nil
}
