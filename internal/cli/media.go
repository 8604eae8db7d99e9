package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/law-makers/sourcer/internal/downloader"
	"github.com/law-makers/sourcer/internal/ui"
	"github.com/law-makers/sourcer/pkg/models"
)

var (
	mediaType   string
	workers     int
	mediaOutDir string
)

var mediaCmd = withApp(&cobra.Command{
	Use:   "media <url>",
	Short: "Download a product's gallery images and videos",
	Long: `Scrapes a 1688.com offer page and downloads the images and videos found in
its record with a pool of concurrent workers. Files are named after the offer id
and their position in the gallery, so re-running overwrites rather than duplicates.

The record is not delivered to the import API.`,
	Example: `  # Download everything into ./downloads
  sourcer media https://detail.1688.com/offer/6543210987.html

  # Only the videos, rendered in Chrome
  sourcer media https://detail.1688.com/offer/6543210987.html --type=video --source=browser`,
	Args: cobra.ExactArgs(1),
	RunE: runMedia,
})

func init() {
	rootCmd.AddCommand(mediaCmd)

	mediaCmd.Flags().StringVarP(&mediaType, "type", "t", "all", "Media to download: image, video, or all")
	mediaCmd.Flags().IntVarP(&workers, "workers", "w", 5, fmt.Sprintf("Concurrent downloads (1-%d)", downloader.MaxWorkers))
	mediaCmd.Flags().StringVarP(&mediaOutDir, "output", "o", "./downloads", "Directory to save files into")
	mediaCmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "Extra request header for the page")
	mediaCmd.Flags().StringVar(&sessionName, "session", "", "Name of a saved login session to use")
}

func runMedia(cmd *cobra.Command, args []string) error {
	a, err := appFrom(cmd)
	if err != nil {
		return err
	}
	kind, err := downloader.ParseMediaType(mediaType)
	if err != nil {
		return err
	}
	opts, err := requestOptions(cmd, args[0])
	if err != nil {
		return err
	}
	opts.Deliver = false

	result := a.Runner.Run(cmd.Context(), opts)
	if result.Failed() {
		return result.Error
	}

	jobs := downloader.Plan(*result.Product, result.URL, kind)
	if len(jobs) == 0 {
		fmt.Println("\n" + ui.Info("No media found in this product record."))
		if result.Source == models.SourceStatic {
			fmt.Println(ui.Info("Tip: galleries are often lazy-loaded; try --source=browser"))
		}
		return nil
	}

	dir, err := filepath.Abs(mediaOutDir)
	if err != nil {
		return fmt.Errorf("invalid output directory: %w", err)
	}

	log.Debug().Int("files", len(jobs)).Str("dir", dir).Int("workers", workers).Msg("Starting downloads")
	fmt.Printf("\n%s %s\n\n", ui.Bold(result.Product.ProductName), ui.Dim(fmt.Sprintf("(%d files)", len(jobs))))

	bar := progressbar.DefaultBytes(-1, "Downloading")
	pool := downloader.NewWorkerPool(downloader.New(downloader.Options{
		Client:    a.HTTPClient,
		UserAgent: a.Config.UserAgent,
		Retry:     a.RetryPolicy(),
	}), workers)
	pool.OnResult = func(r downloader.DownloadResult) {
		bar.Add64(r.Size)
	}

	results, err := pool.DownloadBatch(cmd.Context(), jobs, dir)
	bar.Finish()
	if err != nil {
		return err
	}

	var ok, failed int
	var total int64
	fmt.Println()
	for i, r := range results {
		if r.Success() {
			ok++
			total += r.Size
			fmt.Printf("%s [%d/%d] %s %s\n", ui.Success("✓"), i+1, len(results), r.Job.Filename,
				ui.Dim(fmt.Sprintf("%s in %v", formatBytes(r.Size), r.Duration.Round(time.Millisecond))))
			continue
		}
		failed++
		fmt.Printf("%s [%d/%d] %s\n      %s\n", ui.Error("✗"), i+1, len(results), r.Job.URL, ui.Error(r.Error.Error()))
	}

	fmt.Printf("\n%s\n", ui.Bold("Summary"))
	fmt.Printf("  %s\n", ui.Label("Downloaded", ui.Success(fmt.Sprintf("%d", ok))))
	fmt.Printf("  %s\n", ui.Label("Failed", ui.Error(fmt.Sprintf("%d", failed))))
	fmt.Printf("  %s\n", ui.Label("Total Size", formatBytes(total)))
	fmt.Printf("  %s\n\n", ui.Label("Directory", dir))

	if failed > 0 {
		return fmt.Errorf("%d download(s) failed", failed)
	}
	return nil
}

// formatBytes formats byte count as human-readable string
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
