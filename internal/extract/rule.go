package extract

import "strings"

// Extractor selects which property of a matched element a rule reads
type Extractor int

const (
	// ExtractText reads the trimmed text content
	ExtractText Extractor = iota
	// ExtractAttr reads the first present, non-empty attribute from Attrs
	ExtractAttr
	// ExtractHTML reads the outer HTML, keeping embedded markup
	ExtractHTML
)

// String returns the name of the extractor
func (e Extractor) String() string {
	switch e {
	case ExtractText:
		return "text"
	case ExtractAttr:
		return "attr"
	case ExtractHTML:
		return "html"
	default:
		return "unknown"
	}
}

// Rule is one selector plus the property to read from what it matches
type Rule struct {
	Selector  string
	Extractor Extractor
	// Attrs is the attribute fallback order for ExtractAttr
	Attrs []string
}

// Text builds a rule reading text content
func Text(selector string) Rule {
	return Rule{Selector: selector, Extractor: ExtractText}
}

// Attr builds a rule reading the first present attribute in order
func Attr(selector string, attrs ...string) Rule {
	return Rule{Selector: selector, Extractor: ExtractAttr, Attrs: attrs}
}

// HTML builds a rule reading outer HTML
func HTML(selector string) Rule {
	return Rule{Selector: selector, Extractor: ExtractHTML}
}

// read extracts the configured property from el. accept filters candidate
// values; for attribute rules a rejected attribute falls through to the next name.
func (r Rule) read(el Element, accept func(string) (string, bool)) (string, bool) {
	switch r.Extractor {
	case ExtractAttr:
		for _, name := range r.Attrs {
			raw, ok := el.Attr(name)
			if !ok || strings.TrimSpace(raw) == "" {
				continue
			}
			if v, ok := accept(raw); ok {
				return v, true
			}
		}
		return "", false
	case ExtractHTML:
		return accept(el.OuterHTML())
	default:
		return accept(el.Text())
	}
}

// nonEmpty accepts any value that is not blank
func nonEmpty(v string) (string, bool) {
	v = strings.TrimSpace(v)
	return v, v != ""
}
