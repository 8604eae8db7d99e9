package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/law-makers/sourcer/internal/delivery"
	"github.com/law-makers/sourcer/internal/extract"
	"github.com/law-makers/sourcer/internal/utils/output"
	"github.com/law-makers/sourcer/pkg/models"
)

var pageURL string

var extractCmd = &cobra.Command{
	Use:   "extract <file.html>",
	Short: "Extract a product record from a saved page",
	Long: `Runs the extraction rules over an HTML file saved from a 1688.com offer page
(or stdin with "-") and prints the import payload. Nothing is fetched or delivered.

Useful for checking the rules against a page that a live scrape got wrong.`,
	Example: `  # Extract from a page saved in the browser
  sourcer extract offer.html --url https://detail.1688.com/offer/6543210987.html

  # Print as Markdown
  curl -s https://detail.1688.com/offer/6543210987.html | sourcer extract - --format md`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVar(&pageURL, "url", "https://detail.1688.com/", "Page URL used to resolve relative links")
	extractCmd.Flags().StringVarP(&printFormat, "format", "f", "", "Print the record as json, csv or md instead of the payload")
}

func runExtract(cmd *cobra.Command, args []string) error {
	var r io.Reader = os.Stdin
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open page: %w", err)
		}
		defer f.Close()
		r = f
	}

	product, err := extractProduct(r, pageURL)
	if err != nil {
		return err
	}

	if printFormat != "" {
		format, err := output.ParseFormat(printFormat)
		if err != nil {
			return err
		}
		result := models.ScrapeResult{URL: pageURL, Source: models.SourceStatic, Product: &product}
		return output.Write(cmd.OutOrStdout(), format, []models.ScrapeResult{result})
	}

	payload := delivery.BuildPayload(pageURL, models.SourceStatic, product)
	return writeJSON(cmd.OutOrStdout(), payload)
}

func extractProduct(r io.Reader, pageURL string) (models.Product, error) {
	doc, err := extract.ParseHTML(r)
	if err != nil {
		return models.Product{}, fmt.Errorf("failed to parse page: %w", err)
	}
	return extract.NewAssembler(extract.DefaultRules()).Assemble(doc, pageURL), nil
}
