package extract

import (
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/law-makers/sourcer/pkg/models"
)

func assemble(t *testing.T, html string) models.Product {
	t.Helper()
	doc, err := ParseHTMLString(html)
	if err != nil {
		t.Fatalf("ParseHTMLString failed: %v", err)
	}
	return NewAssembler(DefaultRules()).Assemble(doc, "https://detail.1688.com/offer/1.html")
}

func TestAssemble_EmptyDocumentYieldsDefaults(t *testing.T) {
	got := assemble(t, `<html><body><p>nothing here</p></body></html>`)

	if !reflect.DeepEqual(got, models.NewProduct()) {
		t.Errorf("Expected all defaults, got %+v", got)
	}
}

func TestAssemble_NameOnly(t *testing.T) {
	got := assemble(t, `<html><body><h1 class="d-title">Widget</h1></body></html>`)

	want := models.Product{
		ProductName:        "Widget",
		ProductDescription: "No description available.",
		ProductPrice:       0.0,
		ImageURLs:          []string{},
		VideoURLs:          []string{},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
}

func TestAssemble_DuplicateImagesCollapse(t *testing.T) {
	got := assemble(t, `<html><body>
		<img class="main-image" src="https://cbu01.alicdn.com/img/ibank/O1CN01abc.jpg">
		<img data-src="https://cbu01.alicdn.com/img/ibank/O1CN01abc.jpg_60x60.jpg">
	</body></html>`)

	want := []string{"https://cbu01.alicdn.com/img/ibank/O1CN01abc.jpg"}
	if !reflect.DeepEqual(got.ImageURLs, want) {
		t.Errorf("Expected %v, got %v", want, got.ImageURLs)
	}
}

func TestAssemble_FullPage(t *testing.T) {
	got := assemble(t, `<html>
	<head><meta property="og:title" content="OG Name"></head>
	<body>
		<h1 class="title">  Stainless Steel Bottle  </h1>
		<div class="price-area"><span>面议</span></div>
		<span class="price-value">¥1,234.50 RMB</span>
		<div class="detail-desc-module"><p>Great <b>bottle</b></p></div>
		<img class="mod-detail-img" src="data:image/gif;base64,R0lG" data-lazyload-src="//cbu01.alicdn.com/a.jpg_400x400.jpg">
		<img src="https://cbu01.alicdn.com/b.jpg_.webp">
		<img src="https://other.example.com/logo.png">
		<video class="mod-detail-video"><source src="https://cloud.video.alicdn.com/v.mp4"></video>
		<source src="https://cloud.video.alicdn.com/v.mp4">
	</body></html>`)

	if got.ProductName != "Stainless Steel Bottle" {
		t.Errorf("Expected trimmed h1.title name, got %q", got.ProductName)
	}
	if got.ProductPrice != 1234.50 {
		t.Errorf("Expected price 1234.50, got %v", got.ProductPrice)
	}
	if !strings.Contains(got.ProductDescription, "<b>bottle</b>") || !strings.HasPrefix(got.ProductDescription, `<div class="detail-desc-module">`) {
		t.Errorf("Expected description to keep markup, got %q", got.ProductDescription)
	}

	wantImages := []string{"https://cbu01.alicdn.com/a.jpg", "https://cbu01.alicdn.com/b.jpg"}
	if !reflect.DeepEqual(got.ImageURLs, wantImages) {
		t.Errorf("Expected images %v, got %v", wantImages, got.ImageURLs)
	}
	wantVideos := []string{"https://cloud.video.alicdn.com/v.mp4"}
	if !reflect.DeepEqual(got.VideoURLs, wantVideos) {
		t.Errorf("Expected videos %v, got %v", wantVideos, got.VideoURLs)
	}
}

func TestAssemble_MetaTitleFallback(t *testing.T) {
	got := assemble(t, `<html><head><meta property="og:title" content="From OG"></head><body><h1 class="d-title"> </h1></body></html>`)
	if got.ProductName != "From OG" {
		t.Errorf("Expected og:title fallback, got %q", got.ProductName)
	}
}

func TestAssemble_UnparsablePriceKeepsDefault(t *testing.T) {
	got := assemble(t, `<html><body><span class="price-text">N/A</span></body></html>`)
	if got.ProductPrice != 0.0 {
		t.Errorf("Expected default price, got %v", got.ProductPrice)
	}
}

func TestAssemble_NilDocument(t *testing.T) {
	got := NewAssembler(DefaultRules()).Assemble(nil, "")
	if !reflect.DeepEqual(got, models.NewProduct()) {
		t.Errorf("Expected defaults for nil document, got %+v", got)
	}
}

func TestAssemble_ConcurrentUse(t *testing.T) {
	a := NewAssembler(DefaultRules())
	doc, err := ParseHTMLString(`<h1 class="d-title">Widget</h1><span class="price-text">9.9</span>`)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := a.Assemble(doc, "")
			if p.ProductName != "Widget" || p.ProductPrice != 9.9 {
				t.Errorf("unexpected product %+v", p)
			}
		}()
	}
	wg.Wait()
}

func TestNormalize_PreParsedProduct(t *testing.T) {
	a := NewAssembler(DefaultRules())
	got := a.Normalize(models.Product{
		ProductName:  "  ",
		ProductPrice: -1,
		ImageURLs:    []string{"https://x.alicdn.com/a.jpg_60x60.jpg", "https://x.alicdn.com/a.jpg"},
	}, "")

	if got.ProductName != models.DefaultProductName {
		t.Errorf("Expected default name, got %q", got.ProductName)
	}
	if got.ProductDescription != models.DefaultProductDescription {
		t.Errorf("Expected default description, got %q", got.ProductDescription)
	}
	if got.ProductPrice != 0 {
		t.Errorf("Expected negative price clamped to default, got %v", got.ProductPrice)
	}
	if !reflect.DeepEqual(got.ImageURLs, []string{"https://x.alicdn.com/a.jpg"}) {
		t.Errorf("Expected deduped images, got %v", got.ImageURLs)
	}
	if got.VideoURLs == nil {
		t.Error("Expected non-nil video list")
	}
}
