// Package auto picks between the static and browser sources per page: the
// cheap HTTP fetch is tried first, then the page's inline script state, and
// Chrome is only started when neither can be extracted from.
package auto

import (
	"context"
	"errors"

	"github.com/law-makers/sourcer/internal/extract"
	"github.com/law-makers/sourcer/internal/source"
	"github.com/law-makers/sourcer/pkg/models"
	"github.com/rs/zerolog/log"
)

// Source implements source.Source by composing a static and a browser source
type Source struct {
	static  source.Source
	browser source.Source
	rules   extract.RuleSet
}

// New creates an auto Source. browser may be nil, in which case the static
// result is always returned.
func New(static, browser source.Source, rules extract.RuleSet) *Source {
	return &Source{static: static, browser: browser, rules: rules}
}

// Name returns the source kind
func (s *Source) Name() models.SourceKind {
	return models.SourceAuto
}

// Fetch tries the static source and falls back to the browser
func (s *Source) Fetch(ctx context.Context, opts models.RequestOptions) (*models.RawPage, error) {
	page, err := s.static.Fetch(ctx, opts)
	if err != nil {
		if !fallbackOnError(ctx, err) || s.browser == nil {
			return nil, err
		}
		log.Debug().
			Err(err).
			Str("url", opts.URL).
			Msg("Static fetch failed, rendering in browser")
		return s.browser.Fetch(ctx, opts)
	}

	sig := Inspect(page.HTML, s.rules)
	log.Debug().
		Str("url", opts.URL).
		Int("scripts", sig.Scripts).
		Str("framework", sig.Framework).
		Bool("name_found", sig.NameFound).
		Bool("blocked", sig.Blocked).
		Msg("Static markup inspected")

	if !sig.NeedsBrowser() {
		return page, nil
	}

	// a client-rendered shell often still carries the offer in its inline
	// state, which is far cheaper to read than starting Chrome
	if !sig.Blocked {
		if p, ok := ProductFromState(InlineState(page.HTML, opts.URL)); ok {
			log.Debug().Str("url", opts.URL).Str("name", p.ProductName).Msg("Product read from inline state")
			parsed := *page
			parsed.HTML = ""
			parsed.Product = p
			return &parsed, nil
		}
	}

	if s.browser == nil {
		return page, nil
	}

	rendered, err := s.browser.Fetch(ctx, opts)
	if err != nil {
		// markup already in hand still yields a record with defaults
		log.Warn().
			Err(err).
			Str("url", opts.URL).
			Msg("Browser fallback failed, using static markup")
		return page, nil
	}
	return rendered, nil
}

// fallbackOnError reports whether a static failure is worth a browser attempt.
// A missing offer or a cancelled caller will not be fixed by rendering.
func fallbackOnError(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return false
	}
	switch source.Code(err) {
	case source.ErrCodeNotFound, source.ErrCodeValidation:
		return false
	}
	return true
}
