package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/law-makers/sourcer/internal/pipeline"
	"github.com/law-makers/sourcer/internal/ui"
	headersutil "github.com/law-makers/sourcer/internal/utils/headers"
	"github.com/law-makers/sourcer/internal/utils/output"
	"github.com/law-makers/sourcer/pkg/models"
)

var (
	outputPath  string
	printFormat string
	headers     []string
	sessionName string
)

var scrapeCmd = withApp(&cobra.Command{
	Use:   "scrape <url>",
	Short: "Scrape one 1688.com product page",
	Long: `Fetches a 1688.com offer page, extracts the product record and posts it to the
import API (unless --no-deliver is given).

The record is printed as a summary; use --format to print JSON, CSV or Markdown
instead, or --output to save it to a file.`,
	Example: `  # Scrape and deliver with the default auto source
  sourcer scrape https://detail.1688.com/offer/6543210987.html

  # Render in Chrome with a saved login and print JSON only
  sourcer scrape https://detail.1688.com/offer/6543210987.html --source=browser --session=buyer --format=json --no-deliver

  # Use the Apify actor and save Markdown
  sourcer scrape https://detail.1688.com/offer/6543210987.html --source=apify -o product.md`,
	Args: cobra.ExactArgs(1),
	RunE: runScrape,
})

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Save the record to a file (.json, .csv or .md)")
	scrapeCmd.Flags().StringVarP(&printFormat, "format", "f", "", "Print the record as json, csv or md instead of a summary")
	scrapeCmd.Flags().StringArrayVarP(&headers, "header", "H", nil, `Extra request header (e.g. -H "Referer: https://s.1688.com/")`)
	scrapeCmd.Flags().StringVar(&sessionName, "session", "", "Name of a saved login session to use")
}

// requestOptions builds pipeline options for url from the shared request flags
func requestOptions(cmd *cobra.Command, url string) (pipeline.Options, error) {
	a, err := appFrom(cmd)
	if err != nil {
		return pipeline.Options{}, err
	}
	headerMap, err := headersutil.ParseHeaders(headers)
	if err != nil {
		return pipeline.Options{}, err
	}

	opts := a.Options(url)
	opts.Request.Headers = headerMap
	opts.Request.SessionName = sessionName
	opts.Request.Proxy = a.Config.Proxy
	opts.Request.Timeout = a.Config.HTTPTimeout
	return opts, nil
}

func runScrape(cmd *cobra.Command, args []string) error {
	a, err := appFrom(cmd)
	if err != nil {
		return err
	}
	opts, err := requestOptions(cmd, args[0])
	if err != nil {
		return err
	}

	result := a.Runner.Run(cmd.Context(), opts)

	if outputPath != "" && !result.Failed() {
		if err := output.Save(outputPath, []models.ScrapeResult{result}); err != nil {
			return fmt.Errorf("failed to save output: %w", err)
		}
	}

	if printFormat != "" {
		format, err := output.ParseFormat(printFormat)
		if err != nil {
			return err
		}
		if err := output.Write(os.Stdout, format, []models.ScrapeResult{result}); err != nil {
			return err
		}
	} else {
		printSummary(os.Stdout, result)
		if outputPath != "" && !result.Failed() {
			fmt.Printf("%s\n\n", ui.Success("✓ Saved to "+outputPath))
		}
	}

	return result.Error
}

// printSummary renders a human-readable view of one result
func printSummary(w io.Writer, r models.ScrapeResult) {
	fmt.Fprintln(w)
	if r.Failed() {
		fmt.Fprintf(w, "%s %s\n", ui.Error("✗"), r.URL)
		return
	}

	p := r.Product
	fmt.Fprintf(w, "%s %s\n\n", ui.Success("✓"), ui.Bold(p.ProductName))
	fmt.Fprintf(w, "  %s\n", ui.Label("URL", r.URL))
	fmt.Fprintf(w, "  %s\n", ui.Label("Source", string(r.Source)))
	fmt.Fprintf(w, "  %s\n", ui.Label("Price", fmt.Sprintf("¥%.2f", p.ProductPrice)))
	fmt.Fprintf(w, "  %s\n", ui.Label("Images", fmt.Sprintf("%d", len(p.ImageURLs))))
	fmt.Fprintf(w, "  %s\n", ui.Label("Videos", fmt.Sprintf("%d", len(p.VideoURLs))))
	fmt.Fprintf(w, "  %s\n", ui.Label("Elapsed", r.Elapsed.Round(time.Millisecond).String()))

	switch {
	case r.Delivered:
		fmt.Fprintf(w, "  %s\n", ui.Label("Delivered", ui.Success("yes")))
	case r.Error != nil:
		fmt.Fprintf(w, "  %s\n", ui.Label("Delivered", ui.Error("failed")))
	}

	desc := strings.TrimSpace(p.ProductDescription)
	if md, err := output.DescriptionMarkdown(desc, r.URL); err == nil {
		desc = md
	}
	if runes := []rune(desc); len(runes) > 400 {
		desc = string(runes[:400]) + "..."
	}
	fmt.Fprintf(w, "\n%s\n%s\n\n", ui.Bold("Description"), ui.Dim(desc))
}
