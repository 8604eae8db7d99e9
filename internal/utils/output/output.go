// Package output renders scrape results as JSON, CSV or Markdown.
package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/law-makers/sourcer/pkg/models"
)

// Format is an output encoding
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "md"
)

// ParseFormat accepts json, csv, md or markdown
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("unsupported format %q (use json, csv or md)", s)
}

// FormatFromPath picks a format from a file extension, defaulting to JSON
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV
	case ".md", ".markdown":
		return FormatMarkdown
	default:
		return FormatJSON
	}
}

// Write encodes results to w
func Write(w io.Writer, format Format, results []models.ScrapeResult) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, results)
	case FormatMarkdown:
		return WriteMarkdown(w, results)
	default:
		return WriteJSON(w, results)
	}
}

// Save writes results to path in the format its extension implies
func Save(path string, results []models.ScrapeResult) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(file, FormatFromPath(path), results); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func errorText(r models.ScrapeResult) string {
	if r.Error == nil {
		return ""
	}
	return r.Error.Error()
}
