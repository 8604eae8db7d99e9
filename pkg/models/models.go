package models

import "time"

// Product is the canonical product record produced by the extraction pipeline.
// Every field is always populated; missing data degrades to the defaults below.
type Product struct {
	ProductName        string   `json:"productName"`
	ProductDescription string   `json:"productDescription"`
	ProductPrice       float64  `json:"productPrice"`
	ImageURLs          []string `json:"imageUrls"`
	VideoURLs          []string `json:"videoUrls"`
}

// Default field values used when no extraction rule matches
const (
	DefaultProductName        = "Unknown Product Name"
	DefaultProductDescription = "No description available."
	DefaultProductPrice       = 0.0
)

// NewProduct returns a record with every field at its default
func NewProduct() Product {
	return Product{
		ProductName:        DefaultProductName,
		ProductDescription: DefaultProductDescription,
		ProductPrice:       DefaultProductPrice,
		ImageURLs:          []string{},
		VideoURLs:          []string{},
	}
}

// Translated carries the fields the import service translates downstream
type Translated struct {
	ProductName        string `json:"productName"`
	ProductDescription string `json:"productDescription"`
}

// Payload is the document posted to the import endpoint
type Payload struct {
	Original   Product    `json:"original"`
	Translated Translated `json:"translated"`
	Message    string     `json:"message"`
}

// SourceKind selects the backend used to obtain a product page
type SourceKind string

const (
	SourceAuto    SourceKind = "auto"
	SourceStatic  SourceKind = "static"
	SourceBrowser SourceKind = "browser"
	SourceOxylabs SourceKind = "oxylabs"
	SourceApify   SourceKind = "apify"
)

// RawPage is what a source hands to the extraction pipeline.
// Exactly one of HTML or Product is meaningful: HTML sources return markup,
// API sources return an already-parsed product.
type RawPage struct {
	URL          string     `json:"url"`
	Source       SourceKind `json:"source"`
	StatusCode   int        `json:"status_code,omitempty"`
	HTML         string     `json:"html,omitempty"`
	Product      *Product   `json:"product,omitempty"`
	FetchedAt    time.Time  `json:"fetched_at"`
	ResponseTime int64      `json:"response_time_ms"`
}

// RequestOptions contains options for fetching a product page
type RequestOptions struct {
	URL          string
	Source       SourceKind
	Headers      map[string]string
	SessionName  string
	Timeout      time.Duration
	Proxy        string
	WaitSelector string
}

// ScrapeResult is the outcome of one pipeline run
type ScrapeResult struct {
	URL       string     `json:"url"`
	RequestID string     `json:"requestId"`
	Source    SourceKind `json:"source,omitempty"`
	Product   *Product   `json:"product,omitempty"`
	Payload   *Payload   `json:"payload,omitempty"`
	Delivered bool       `json:"delivered"`
	// DeliveryResponse is the import service's decoded reply
	DeliveryResponse map[string]any `json:"deliveryResponse,omitempty"`
	Elapsed          time.Duration  `json:"elapsedNs"`
	Error            error          `json:"-"`
}

// Failed reports whether the run produced no record
func (r ScrapeResult) Failed() bool {
	return r.Product == nil
}
