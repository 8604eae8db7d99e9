package output

import (
	"encoding/json"
	"io"

	"github.com/law-makers/sourcer/pkg/models"
)

// Record is the exported shape of one result
type Record struct {
	models.ScrapeResult
	ElapsedMS int64  `json:"elapsedMs"`
	Error     string `json:"error,omitempty"`
}

// NewRecord flattens a result for export
func NewRecord(r models.ScrapeResult) Record {
	return Record{
		ScrapeResult: r,
		ElapsedMS:    r.Elapsed.Milliseconds(),
		Error:        errorText(r),
	}
}

// WriteJSON writes an indented array of records. A single result is written
// as a bare object.
func WriteJSON(w io.Writer, results []models.ScrapeResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	if len(results) == 1 {
		return enc.Encode(NewRecord(results[0]))
	}
	records := make([]Record, len(results))
	for i, r := range results {
		records[i] = NewRecord(r)
	}
	return enc.Encode(records)
}
