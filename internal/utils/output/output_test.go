package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/law-makers/sourcer/pkg/models"
)

const offerURL = "https://detail.1688.com/offer/1.html"

func sampleResults() []models.ScrapeResult {
	p := models.NewProduct()
	p.ProductName = "Steel Bottle"
	p.ProductPrice = 12.5
	p.ProductDescription = `<div class="x"><p style="color:red">Keeps cold</p><img data-lazyload-src="//cbu01.alicdn.com/d.jpg" src="blank.gif"><script>track()</script></div>`
	p.ImageURLs = []string{"https://cbu01.alicdn.com/a.jpg", "https://cbu01.alicdn.com/b.jpg"}

	return []models.ScrapeResult{
		{URL: offerURL, RequestID: "r1", Source: models.SourceStatic, Product: &p, Delivered: true, Elapsed: 1500 * time.Millisecond},
		{URL: "https://detail.1688.com/offer/2.html", RequestID: "r2", Error: errors.New("page not found")},
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatJSON, "JSON": FormatJSON, "csv": FormatCSV, "markdown": FormatMarkdown, "md": FormatMarkdown} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("Expected error for xml")
	}
	if FormatFromPath("out/RESULTS.CSV") != FormatCSV || FormatFromPath("out.txt") != FormatJSON {
		t.Error("unexpected format from path")
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleResults()); err != nil {
		t.Fatal(err)
	}

	var got []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(got))
	}
	if got[0]["elapsedMs"] != float64(1500) || got[0]["delivered"] != true {
		t.Errorf("unexpected first record %v", got[0])
	}
	if got[1]["error"] != "page not found" {
		t.Errorf("Expected error text, got %v", got[1]["error"])
	}
	if _, ok := got[1]["product"]; ok {
		t.Error("Expected no product on failed record")
	}
}

func TestWriteJSON_Single(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleResults()[:1]); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(strings.TrimSpace(buf.String()), "{") {
		t.Errorf("Expected a bare object, got %s", buf.String())
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleResults()); err != nil {
		t.Fatal(err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected header plus 2 rows, got %d", len(rows))
	}
	if rows[1][2] != "Steel Bottle" || rows[1][3] != "12.50" || rows[1][4] != "2" {
		t.Errorf("unexpected row %v", rows[1])
	}
	if rows[2][9] != "page not found" || rows[2][4] != "0" {
		t.Errorf("unexpected failure row %v", rows[2])
	}
}

func TestWriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMarkdown(&buf, sampleResults()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	for _, want := range []string{
		"## Steel Bottle",
		"¥12.50",
		"Keeps cold",
		"https://cbu01.alicdn.com/d.jpg",
		"### Images (2)",
		"## Failed: https://detail.1688.com/offer/2.html",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in markdown:\n%s", want, out)
		}
	}
	if strings.Contains(out, "track()") {
		t.Error("Expected scripts to be stripped")
	}
}

func TestCleanHTML(t *testing.T) {
	got, err := CleanHTML(`<p class="a" style="b"><a href="/x" onclick="y">link</a></p><img data-src="//c.jpg"><button>Buy</button>`)
	if err != nil {
		t.Fatal(err)
	}
	want := `<p><a href="/x">link</a></p><img src="//c.jpg"/>`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDescriptionMarkdown_PlainText(t *testing.T) {
	got, err := DescriptionMarkdown("  No description available. ", offerURL)
	if err != nil || got != models.DefaultProductDescription {
		t.Errorf("got %q, %v", got, err)
	}
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	if err := Save(path, sampleResults()); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(raw), "url,source,product_name") {
		t.Errorf("Expected CSV header, got %q", raw)
	}
}
