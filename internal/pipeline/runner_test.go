package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/law-makers/sourcer/internal/delivery"
	"github.com/law-makers/sourcer/internal/extract"
	"github.com/law-makers/sourcer/internal/reqctx"
	"github.com/law-makers/sourcer/internal/source"
	"github.com/law-makers/sourcer/pkg/models"
)

type stubSource struct {
	kind models.SourceKind
	page *models.RawPage
	err  error
	got  models.RequestOptions
}

func (s *stubSource) Name() models.SourceKind { return s.kind }

func (s *stubSource) Fetch(ctx context.Context, opts models.RequestOptions) (*models.RawPage, error) {
	s.got = opts
	return s.page, s.err
}

type stubDeliverer struct {
	payloads []models.Payload
	err      error
}

func (d *stubDeliverer) Deliver(ctx context.Context, p models.Payload) (*delivery.Response, error) {
	d.payloads = append(d.payloads, p)
	if d.err != nil {
		return nil, d.err
	}
	return &delivery.Response{StatusCode: 200, Body: map[string]any{"ok": true}}, nil
}

const offerURL = "https://detail.1688.com/offer/1.html"

func newRunner(src *stubSource, d delivery.Deliverer) *Runner {
	return NewRunner(source.Registry{src.kind: src}, extract.NewAssembler(extract.DefaultRules()), d)
}

func TestRun_MarkupSource(t *testing.T) {
	src := &stubSource{kind: models.SourceAuto, page: &models.RawPage{
		URL:    offerURL,
		Source: models.SourceStatic,
		HTML:   `<html><body><h1 class="d-title">Widget</h1><span class="price-text">¥9.90</span></body></html>`,
	}}
	d := &stubDeliverer{}

	res := newRunner(src, d).Run(context.Background(), Options{
		Request: models.RequestOptions{URL: "  " + offerURL + " "},
		Deliver: true,
	})
	if res.Error != nil {
		t.Fatalf("unexpected error: %v", res.Error)
	}
	if src.got.URL != offerURL {
		t.Errorf("Expected trimmed URL, got %q", src.got.URL)
	}
	if res.Product.ProductName != "Widget" || res.Product.ProductPrice != 9.9 {
		t.Errorf("unexpected product %+v", res.Product)
	}
	if res.Source != models.SourceStatic || res.RequestID == "" || res.Elapsed <= 0 {
		t.Errorf("unexpected result meta %+v", res)
	}
	if !res.Delivered || len(d.payloads) != 1 || res.DeliveryResponse["ok"] != true {
		t.Errorf("Expected one delivery, got %+v", res)
	}
	if d.payloads[0].Message != "Data scraped from "+offerURL+" using HTTP." {
		t.Errorf("unexpected message %q", d.payloads[0].Message)
	}
}

func TestRun_ParsedSource(t *testing.T) {
	src := &stubSource{kind: models.SourceApify, page: &models.RawPage{
		URL:    offerURL,
		Source: models.SourceApify,
		Product: &models.Product{
			ProductName: "  Bottle ",
			ImageURLs:   []string{"//cbu01.alicdn.com/a.jpg", "https://cbu01.alicdn.com/a.jpg"},
		},
	}}

	res := newRunner(src, nil).Run(context.Background(), Options{
		Request: models.RequestOptions{URL: offerURL, Source: models.SourceApify},
		Deliver: true,
	})
	if res.Error != nil {
		t.Fatalf("unexpected error: %v", res.Error)
	}
	p := res.Product
	if p.ProductName != "Bottle" || p.ProductDescription != models.DefaultProductDescription {
		t.Errorf("Expected normalized product, got %+v", p)
	}
	if len(p.ImageURLs) != 1 || p.ImageURLs[0] != "https://cbu01.alicdn.com/a.jpg" {
		t.Errorf("Expected deduped absolute image, got %v", p.ImageURLs)
	}
	if res.Delivered {
		t.Error("Expected no delivery without a deliverer")
	}
}

func TestRun_FetchFailure(t *testing.T) {
	boom := source.NewSourceError(source.ErrCodeNotFound, "gone", nil)
	src := &stubSource{kind: models.SourceAuto, err: boom}

	res := newRunner(src, &stubDeliverer{}).Run(context.Background(), Options{Request: models.RequestOptions{URL: offerURL}})
	if !res.Failed() || !errors.Is(res.Error, boom) {
		t.Fatalf("Expected fetch error, got %+v", res)
	}
	var re *reqctx.RequestError
	if !errors.As(res.Error, &re) || re.RequestID != res.RequestID {
		t.Errorf("Expected error tagged with the request id, got %v", res.Error)
	}
}

func TestRun_InvalidURL(t *testing.T) {
	src := &stubSource{kind: models.SourceAuto}
	res := newRunner(src, nil).Run(context.Background(), Options{Request: models.RequestOptions{URL: "ftp://x"}})
	if source.Code(res.Error) != source.ErrCodeValidation {
		t.Errorf("Expected VALIDATION, got %v", res.Error)
	}
}

func TestRun_UnknownSource(t *testing.T) {
	src := &stubSource{kind: models.SourceAuto}
	res := newRunner(src, nil).Run(context.Background(), Options{Request: models.RequestOptions{URL: offerURL, Source: models.SourceOxylabs}})
	if !errors.Is(res.Error, source.ErrUnknownSource) {
		t.Errorf("Expected ErrUnknownSource, got %v", res.Error)
	}
}

func TestRun_DeliveryFailureKeepsRecord(t *testing.T) {
	src := &stubSource{kind: models.SourceAuto, page: &models.RawPage{URL: offerURL, Source: models.SourceStatic, HTML: "<html></html>"}}
	d := &stubDeliverer{err: errors.New("connection refused")}

	res := newRunner(src, d).Run(context.Background(), Options{Request: models.RequestOptions{URL: offerURL}, Deliver: true})
	if res.Error == nil || res.Delivered {
		t.Errorf("Expected delivery error, got %+v", res)
	}
	if res.Failed() || res.Product.ProductName != models.DefaultProductName {
		t.Errorf("Expected default record to survive, got %+v", res.Product)
	}
}
