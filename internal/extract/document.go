// Package extract turns product page markup into a canonical product record.
//
// Extraction is driven by ordered rule tables: each field owns a Cascade of
// selector rules that is evaluated either first-match-wins (name, description,
// price) or collect-all (images, videos). Missing or malformed values never
// surface as errors; a field that no rule can fill keeps its default.
package extract

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Element is a single node matched by a selector
type Element interface {
	// Text returns the trimmed text content of the element
	Text() string
	// Attr returns the value of the named attribute, if present
	Attr(name string) (string, bool)
	// OuterHTML returns the element serialized with its own tag
	OuterHTML() string
}

// Document is a queryable, fully materialized page
type Document interface {
	// First returns the first element matching selector
	First(selector string) (Element, bool)
	// All returns every element matching selector in document order
	All(selector string) []Element
}

// goqueryDocument adapts a goquery document to Document
type goqueryDocument struct {
	doc *goquery.Document
}

// FromGoquery wraps an already parsed goquery document
func FromGoquery(doc *goquery.Document) Document {
	return &goqueryDocument{doc: doc}
}

// ParseHTML parses raw markup into a Document
func ParseHTML(r io.Reader) (Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return FromGoquery(doc), nil
}

// ParseHTMLString is ParseHTML for an in-memory string
func ParseHTMLString(html string) (Document, error) {
	return ParseHTML(strings.NewReader(html))
}

func (d *goqueryDocument) First(selector string) (Element, bool) {
	sel := d.doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil, false
	}
	return goqueryElement{sel: sel}, true
}

func (d *goqueryDocument) All(selector string) []Element {
	matches := d.doc.Find(selector)
	elements := make([]Element, 0, matches.Length())
	matches.Each(func(i int, sel *goquery.Selection) {
		elements = append(elements, goqueryElement{sel: sel})
	})
	return elements
}

type goqueryElement struct {
	sel *goquery.Selection
}

func (e goqueryElement) Text() string {
	return strings.TrimSpace(e.sel.Text())
}

func (e goqueryElement) Attr(name string) (string, bool) {
	return e.sel.Attr(name)
}

func (e goqueryElement) OuterHTML() string {
	html, err := goquery.OuterHtml(e.sel)
	if err != nil {
		return ""
	}
	return html
}
