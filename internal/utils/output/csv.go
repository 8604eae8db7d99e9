package output

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/law-makers/sourcer/pkg/models"
)

var csvHeader = []string{
	"url", "source", "product_name", "product_price", "image_count", "image_urls",
	"video_urls", "delivered", "elapsed_ms", "error",
}

// WriteCSV writes one row per result. URL lists are joined with spaces;
// descriptions are left out since they are HTML.
func WriteCSV(w io.Writer, results []models.ScrapeResult) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(csvHeader); err != nil {
		return err
	}

	for _, r := range results {
		row := []string{r.URL, string(r.Source), "", "", "0", "", "", strconv.FormatBool(r.Delivered),
			strconv.FormatInt(r.Elapsed.Milliseconds(), 10), errorText(r)}
		if p := r.Product; p != nil {
			row[2] = p.ProductName
			row[3] = strconv.FormatFloat(p.ProductPrice, 'f', 2, 64)
			row[4] = strconv.Itoa(len(p.ImageURLs))
			row[5] = strings.Join(p.ImageURLs, " ")
			row[6] = strings.Join(p.VideoURLs, " ")
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
