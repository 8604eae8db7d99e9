package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/law-makers/sourcer/internal/app"
	"github.com/law-makers/sourcer/internal/auth"
	"github.com/law-makers/sourcer/internal/source"
	"github.com/law-makers/sourcer/pkg/models"
)

const offerPage = `<html><head><meta property="og:title" content="OG Name"></head><body>
<h1 class="d-title">Insulated Bottle</h1>
<span class="price-text">¥12.50</span>
<div class="desc-content"><p>Keeps drinks cold</p></div>
<img class="mod-detail-img" data-lazyload-src="//cbu01.alicdn.com/img/a.jpg_60x60.jpg">
</body></html>`

func TestExtractProduct(t *testing.T) {
	p, err := extractProduct(strings.NewReader(offerPage), "https://detail.1688.com/offer/1.html")
	if err != nil {
		t.Fatal(err)
	}
	if p.ProductName != "Insulated Bottle" || p.ProductPrice != 12.5 {
		t.Errorf("unexpected product %+v", p)
	}
	if len(p.ImageURLs) != 1 || p.ImageURLs[0] != "https://cbu01.alicdn.com/img/a.jpg" {
		t.Errorf("unexpected images %v", p.ImageURLs)
	}
}

func TestExtractCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "offer.html")
	if err := os.WriteFile(path, []byte(offerPage), 0644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"extract", path, "--url", "https://detail.1688.com/offer/1.html", "--quiet"})
	defer rootCmd.SetArgs(nil)
	defer rootCmd.SetOut(nil)

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	var payload models.Payload
	if err := json.Unmarshal(out.Bytes(), &payload); err != nil {
		t.Fatalf("invalid payload: %v\n%s", err, out.String())
	}
	if payload.Original.ProductName != "Insulated Bottle" || payload.Translated.ProductName != "Insulated Bottle" {
		t.Errorf("unexpected payload %+v", payload)
	}
	if !strings.HasSuffix(payload.Message, "using HTTP.") {
		t.Errorf("unexpected message %q", payload.Message)
	}
}

func TestParseCookies(t *testing.T) {
	got, err := parseCookies(strings.NewReader("cookie2=abc; _tb_token_=t\n"), "header", "https://www.1688.com/")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Domain != ".www.1688.com" || got[1].Value != "t" {
		t.Errorf("unexpected cookies %+v", got)
	}
	if _, err := parseCookies(strings.NewReader(""), "har", ""); err == nil {
		t.Error("Expected unsupported format error")
	}
}

func TestPrintBatchSummary(t *testing.T) {
	p := models.NewProduct()
	results := []models.ScrapeResult{
		{URL: "https://detail.1688.com/offer/1.html", Product: &p, Delivered: true},
		{URL: "https://detail.1688.com/offer/2.html", Product: &p, Error: errors.New("delivery refused")},
		{URL: "https://detail.1688.com/offer/3.html", Error: source.NewSourceError(source.ErrCodeNotFound, "gone", nil)},
	}

	var buf bytes.Buffer
	failed := printBatchSummary(&buf, results, time.Second)
	if failed != 2 {
		t.Errorf("Expected 2 failures, got %d", failed)
	}
	out := buf.String()
	for _, want := range []string{"[NOT_FOUND]", "[ERROR] delivery refused", "offer/3.html"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in summary:\n%s", want, out)
		}
	}
}

func TestExpiryText(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	if got := expiryText(&auth.SessionData{}, now); got != "no expiry" {
		t.Errorf("got %q", got)
	}
	past := &auth.SessionData{ExpiresAt: now.Add(-2 * time.Hour)}
	if got := expiryText(past, now); !strings.Contains(got, "expired 2h0m0s ago") {
		t.Errorf("got %q", got)
	}
	future := &auth.SessionData{ExpiresAt: now.Add(90 * time.Minute)}
	if got := expiryText(future, now); !strings.Contains(got, "in 1h30m0s") {
		t.Errorf("got %q", got)
	}
}

func TestWrapText(t *testing.T) {
	got := wrapText("one two three four\n- item stays\n\nnext paragraph", 9)
	want := "one two\nthree\nfour\n- item stays\n\nnext\nparagraph"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestErrorLine(t *testing.T) {
	coded := errorLine(source.NewSourceError(source.ErrCodeTimeout, "slow", nil))
	if !strings.Contains(coded, "Error [TIMEOUT]") {
		t.Errorf("unexpected line %q", coded)
	}
	if plain := errorLine(errors.New("boom")); !strings.Contains(plain, "Error: boom") {
		t.Errorf("unexpected line %q", plain)
	}
}

func TestAppContext(t *testing.T) {
	cmd := &cobra.Command{}
	if GetAppFromCmd(cmd) != nil {
		t.Fatal("Expected no app on a fresh command")
	}
	a := &app.Application{}
	SetApp(cmd, a)
	if GetAppFromCmd(cmd) != a {
		t.Error("Expected stored app")
	}
	if _, err := appFrom(&cobra.Command{}); err == nil {
		t.Error("Expected error without an app")
	}
}

func TestCommandsNeedingApp(t *testing.T) {
	for _, c := range []*cobra.Command{scrapeCmd, batchCmd, mediaCmd, serveCmd} {
		if c.Annotations[needsApp] == "" {
			t.Errorf("%s should build the application", c.Name())
		}
	}
	for _, c := range []*cobra.Command{extractCmd, loginCmd, sessionsListCmd} {
		if c.Annotations[needsApp] != "" {
			t.Errorf("%s should not build the application", c.Name())
		}
	}
}
