// Package pipeline runs one product URL end to end: fetch from a source,
// assemble the record, build the import payload and optionally deliver it.
package pipeline

import (
	"context"
	"strings"

	"github.com/law-makers/sourcer/internal/delivery"
	"github.com/law-makers/sourcer/internal/extract"
	"github.com/law-makers/sourcer/internal/reqctx"
	"github.com/law-makers/sourcer/internal/source"
	urlutil "github.com/law-makers/sourcer/internal/utils/url"
	"github.com/law-makers/sourcer/pkg/models"
)

// Options controls a single run
type Options struct {
	Request models.RequestOptions
	Deliver bool
}

// Runner wires sources, the assembler and delivery together
type Runner struct {
	sources   source.Registry
	assembler *extract.Assembler
	delivery  delivery.Deliverer
}

// NewRunner creates a Runner. deliverer may be nil when delivery is disabled.
func NewRunner(sources source.Registry, assembler *extract.Assembler, deliverer delivery.Deliverer) *Runner {
	return &Runner{
		sources:   sources,
		assembler: assembler,
		delivery:  deliverer,
	}
}

// Run processes one URL. Only an unavailable page fails the run; extraction
// itself always yields a record, and a failed delivery keeps the record.
func (r *Runner) Run(ctx context.Context, opts Options) (result models.ScrapeResult) {
	pageURL := strings.TrimSpace(opts.Request.URL)
	opts.Request.URL = pageURL

	ctx = reqctx.WithRequestContext(ctx, pageURL)
	logger := reqctx.Logger(ctx)
	result = models.ScrapeResult{
		URL:       pageURL,
		RequestID: reqctx.GetRequestContext(ctx).RequestID,
	}
	defer func() { result.Elapsed = reqctx.Elapsed(ctx) }()

	if err := urlutil.ValidateURL(pageURL); err != nil {
		result.Error = reqctx.NewRequestError(ctx, source.NewSourceError(source.ErrCodeValidation, "invalid product URL", err))
		return result
	}

	src, err := r.sources.Get(opts.Request.Source)
	if err != nil {
		result.Error = reqctx.NewRequestError(ctx, err)
		return result
	}

	logger.Info().Str("source", string(src.Name())).Msg("Scraping product")

	page, err := src.Fetch(ctx, opts.Request)
	if err != nil {
		logger.Error().Err(err).Str("code", string(source.Code(err))).Msg("Fetch failed")
		result.Error = reqctx.NewRequestError(ctx, err)
		return result
	}
	result.Source = page.Source

	product, err := r.product(page)
	if err != nil {
		result.Error = reqctx.NewRequestError(ctx, err)
		return result
	}
	result.Product = &product

	payload := delivery.BuildPayload(pageURL, page.Source, product)
	result.Payload = &payload

	if opts.Deliver && r.delivery != nil {
		resp, err := r.delivery.Deliver(ctx, payload)
		if err != nil {
			logger.Error().Err(err).Msg("Delivery failed")
			result.Error = reqctx.NewRequestError(ctx, err)
			return result
		}
		result.Delivered = true
		result.DeliveryResponse = resp.Body
	}

	logger.Info().
		Str("source", string(page.Source)).
		Str("name", product.ProductName).
		Float64("price", product.ProductPrice).
		Int("images", len(product.ImageURLs)).
		Int("videos", len(product.VideoURLs)).
		Bool("delivered", result.Delivered).
		Dur("elapsed", reqctx.Elapsed(ctx)).
		Msg("Scrape completed")

	return result
}

func (r *Runner) product(page *models.RawPage) (models.Product, error) {
	if page.Product != nil {
		return r.assembler.Normalize(*page.Product, page.URL), nil
	}
	doc, err := extract.ParseHTMLString(page.HTML)
	if err != nil {
		return models.Product{}, source.NewSourceError(source.ErrCodeParseError, "failed to parse page", err)
	}
	return r.assembler.Assemble(doc, page.URL), nil
}
