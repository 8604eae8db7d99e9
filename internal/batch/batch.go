// Package batch scrapes many product URLs concurrently and streams the
// results as they complete.
package batch

import (
	"context"

	"github.com/law-makers/sourcer/internal/pipeline"
	"github.com/law-makers/sourcer/internal/reqctx"
	"github.com/law-makers/sourcer/pkg/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Runner processes a single URL
type Runner interface {
	Run(ctx context.Context, opts pipeline.Options) models.ScrapeResult
}

// Scraper runs a Runner over many requests with bounded concurrency
type Scraper struct {
	runner      Runner
	concurrency int
}

// New creates a batch Scraper. If concurrency <= 0 it is derived from the
// number of CPUs.
func New(runner Runner, concurrency int) *Scraper {
	if concurrency <= 0 {
		concurrency = OptimalConcurrency()
	}
	return &Scraper{
		runner:      runner,
		concurrency: concurrency,
	}
}

// Concurrency returns the worker limit
func (s *Scraper) Concurrency() int {
	return s.concurrency
}

// Scrape processes requests and sends exactly one result per request on the
// returned channel, which is closed when all are done. Once ctx is cancelled
// no further runs start; the remaining requests are reported with ctx's error.
func (s *Scraper) Scrape(ctx context.Context, requests []pipeline.Options) <-chan models.ScrapeResult {
	results := make(chan models.ScrapeResult, len(requests))

	go func() {
		defer close(results)

		var g errgroup.Group
		g.SetLimit(s.concurrency)

		groups := GroupByHost(requests)
		log.Debug().
			Int("urls", len(requests)).
			Int("hosts", len(groups)).
			Int("concurrency", s.concurrency).
			Msg("Starting batch")

		for _, group := range groups {
			for _, req := range group.Requests {
				if ctx.Err() != nil {
					results <- cancelled(ctx, req)
					continue
				}
				g.Go(func() error {
					results <- s.runner.Run(ctx, req)
					return nil
				})
			}
		}

		g.Wait()
	}()

	return results
}

func cancelled(ctx context.Context, req pipeline.Options) models.ScrapeResult {
	rctx := reqctx.WithRequestContext(ctx, req.Request.URL)
	return models.ScrapeResult{
		URL:       req.Request.URL,
		RequestID: reqctx.GetRequestContext(rctx).RequestID,
		Error:     reqctx.NewRequestError(rctx, ctx.Err()),
	}
}
