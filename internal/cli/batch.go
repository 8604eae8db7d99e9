package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/law-makers/sourcer/internal/batch"
	"github.com/law-makers/sourcer/internal/pipeline"
	"github.com/law-makers/sourcer/internal/source"
	"github.com/law-makers/sourcer/internal/ui"
	"github.com/law-makers/sourcer/internal/utils/output"
	"github.com/law-makers/sourcer/pkg/models"
)

var urlFile string

var batchCmd = withApp(&cobra.Command{
	Use:   "batch [url...]",
	Short: "Scrape many product pages concurrently",
	Long: `Scrapes every URL given as an argument or listed in --file (one per line,
"-" for stdin). Pages are scheduled per host with bounded concurrency and each
record is delivered as soon as it is ready.

A failed URL does not stop the batch; failures are listed at the end and the
command exits non-zero if any URL failed.`,
	Example: `  # Scrape a list of offers with 8 workers and save the records
  sourcer batch --file offers.txt --concurrency 8 -o results.json

  # Pipe URLs in and print CSV without delivering
  cat offers.txt | sourcer batch --file - --no-deliver --format csv`,
	RunE: runBatch,
})

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVarP(&urlFile, "file", "i", "", `File with one URL per line ("-" for stdin)`)
	batchCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Save all records to a file (.json, .csv or .md)")
	batchCmd.Flags().StringVarP(&printFormat, "format", "f", "", "Print records as json, csv or md instead of a summary")
	batchCmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "Extra request header for every page")
	batchCmd.Flags().StringVar(&sessionName, "session", "", "Name of a saved login session to use")
}

func collectURLs(args []string) ([]string, error) {
	urls := append([]string(nil), args...)
	if urlFile == "" {
		return urls, nil
	}

	var r io.Reader = os.Stdin
	if urlFile != "-" {
		f, err := os.Open(urlFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open URL file: %w", err)
		}
		defer f.Close()
		r = f
	}
	fromFile, err := batch.ReadURLs(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read URL file: %w", err)
	}
	return append(urls, fromFile...), nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	a, err := appFrom(cmd)
	if err != nil {
		return err
	}

	urls, err := collectURLs(args)
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		return fmt.Errorf("no URLs given: pass them as arguments or with --file")
	}

	requests := make([]pipeline.Options, 0, len(urls))
	for _, u := range urls {
		opts, err := requestOptions(cmd, u)
		if err != nil {
			return err
		}
		requests = append(requests, opts)
	}

	bar := progressbar.NewOptions(len(requests),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(fmt.Sprintf("Scraping (%d workers)", a.Batch.Concurrency())),
		progressbar.OptionShowCount(),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionClearOnFinish(),
	)

	start := time.Now()
	results := make([]models.ScrapeResult, 0, len(requests))
	for r := range a.Batch.Scrape(cmd.Context(), requests) {
		results = append(results, r)
		bar.Add(1)
	}
	bar.Finish()

	if outputPath != "" {
		if err := output.Save(outputPath, results); err != nil {
			return fmt.Errorf("failed to save output: %w", err)
		}
	}

	if printFormat != "" {
		format, err := output.ParseFormat(printFormat)
		if err != nil {
			return err
		}
		if err := output.Write(os.Stdout, format, results); err != nil {
			return err
		}
	}

	failed := printBatchSummary(os.Stderr, results, time.Since(start))
	if outputPath != "" {
		fmt.Fprintf(os.Stderr, "  %s\n\n", ui.Label("Saved to", outputPath))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d URLs failed", failed, len(results))
	}
	return nil
}

// printBatchSummary writes totals and the failures, returning the number of
// results that carry an error
func printBatchSummary(w io.Writer, results []models.ScrapeResult, elapsed time.Duration) int {
	var scraped, delivered, failed int
	for _, r := range results {
		if !r.Failed() {
			scraped++
		}
		if r.Delivered {
			delivered++
		}
		if r.Error != nil {
			failed++
		}
	}

	fmt.Fprintf(w, "\n%s\n", ui.Bold("Batch Summary"))
	fmt.Fprintf(w, "  %s\n", ui.Label("Total", fmt.Sprintf("%d", len(results))))
	fmt.Fprintf(w, "  %s\n", ui.Label("Scraped", ui.Success(fmt.Sprintf("%d", scraped))))
	fmt.Fprintf(w, "  %s\n", ui.Label("Delivered", fmt.Sprintf("%d", delivered)))
	fmt.Fprintf(w, "  %s\n", ui.Label("Failed", ui.Error(fmt.Sprintf("%d", failed))))
	fmt.Fprintf(w, "  %s\n", ui.Label("Elapsed", elapsed.Round(time.Millisecond).String()))

	if failed > 0 {
		fmt.Fprintf(w, "\n%s\n", ui.Bold("Failures"))
		for _, r := range results {
			if r.Error == nil {
				continue
			}
			code := string(source.Code(r.Error))
			if code == "" {
				code = "ERROR"
			}
			fmt.Fprintf(w, "  %s %s %s\n", ui.Error("✗"), r.URL, ui.Dim("["+code+"] "+r.Error.Error()))
		}
	}
	fmt.Fprintln(w)
	return failed
}
