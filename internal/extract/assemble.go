package extract

import (
	"math"
	"strings"

	"github.com/law-makers/sourcer/pkg/models"
	"github.com/rs/zerolog/log"
)

// Assembler builds product records from documents using a fixed RuleSet.
// It holds no mutable state and is safe for concurrent use.
type Assembler struct {
	rules RuleSet
}

// NewAssembler creates an Assembler for rules
func NewAssembler(rules RuleSet) *Assembler {
	return &Assembler{rules: rules}
}

// Rules returns the rule set in use
func (a *Assembler) Rules() RuleSet {
	return a.rules
}

// Assemble runs every field cascade against doc and composes the record.
// pageURL, when known, resolves relative asset references.
func (a *Assembler) Assemble(doc Document, pageURL string) models.Product {
	product := models.NewProduct()
	if doc == nil {
		return product
	}
	norm := URLNormalizer{Base: pageURL}

	if m := a.rules.Name.Run(doc, nil); len(m) > 0 {
		product.ProductName = m[0].Value
		logMatch(a.rules.Name, m[0])
	}

	if m := a.rules.Description.Run(doc, nil); len(m) > 0 {
		product.ProductDescription = m[0].Value
		logMatch(a.rules.Description, m[0])
	}

	if m := a.rules.Price.Run(doc, priceAcceptor); len(m) > 0 {
		if v, ok := ParsePrice(m[0].Value); ok {
			product.ProductPrice = v
			logMatch(a.rules.Price, m[0])
		}
	}

	product.ImageURLs = collect(a.rules.Images, doc, norm)
	product.VideoURLs = collect(a.rules.Videos, doc, norm)

	log.Debug().
		Str("url", pageURL).
		Str("name", product.ProductName).
		Float64("price", product.ProductPrice).
		Int("images", len(product.ImageURLs)).
		Int("videos", len(product.VideoURLs)).
		Msg("Product assembled")

	return product
}

// Normalize applies defaults and URL canonicalization to a record that was
// parsed elsewhere, so API sources yield the same shape as markup sources.
func (a *Assembler) Normalize(p models.Product, pageURL string) models.Product {
	out := models.NewProduct()
	norm := URLNormalizer{Base: pageURL}

	if name := strings.TrimSpace(p.ProductName); name != "" {
		out.ProductName = name
	}
	if desc := strings.TrimSpace(p.ProductDescription); desc != "" {
		out.ProductDescription = desc
	}
	if p.ProductPrice > 0 && !math.IsInf(p.ProductPrice, 0) && !math.IsNaN(p.ProductPrice) {
		out.ProductPrice = p.ProductPrice
	}
	out.ImageURLs = norm.Dedupe(p.ImageURLs)
	out.VideoURLs = norm.Dedupe(p.VideoURLs)
	return out
}

func collect(c Cascade, doc Document, norm URLNormalizer) []string {
	matches := c.Run(doc, norm.Normalize)
	urls := make([]string, 0, len(matches))
	for _, m := range matches {
		urls = append(urls, m.Value)
		log.Debug().Str("field", c.Field).Str("selector", m.Selector).Str("value", m.Value).Msg("Collected asset")
	}
	return urls
}

func logMatch(c Cascade, m Match) {
	log.Debug().
		Str("field", c.Field).
		Str("selector", m.Selector).
		Msg("Field matched")
}
