package output

import (
	"fmt"
	"io"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"
	urlutil "github.com/law-makers/sourcer/internal/utils/url"
	"github.com/law-makers/sourcer/pkg/models"
)

// DescriptionMarkdown converts a product description to Markdown. Links and
// images are resolved against pageURL. Plain-text descriptions pass through.
func DescriptionMarkdown(description, pageURL string) (string, error) {
	if !strings.Contains(description, "<") {
		return strings.TrimSpace(description), nil
	}

	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	converter.AddRules(
		md.Rule{
			Filter: []string{"a"},
			Replacement: func(content string, selec *goquery.Selection, opt *md.Options) *string {
				href, exists := selec.Attr("href")
				if !exists {
					return nil
				}
				str := fmt.Sprintf("[%s](%s)", strings.TrimSpace(selec.Text()), urlutil.ResolveURL(pageURL, href))
				return &str
			},
		},
		md.Rule{
			Filter: []string{"img"},
			Replacement: func(content string, selec *goquery.Selection, opt *md.Options) *string {
				src, exists := selec.Attr("src")
				if !exists || src == "" {
					empty := ""
					return &empty
				}
				alt, _ := selec.Attr("alt")
				str := fmt.Sprintf("![%s](%s)", alt, urlutil.ResolveURL(pageURL, src))
				return &str
			},
		},
	)

	cleaned, err := CleanHTML(description)
	if err != nil {
		return "", err
	}
	out, err := converter.ConvertString(cleaned)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// WriteMarkdown writes a product card per result
func WriteMarkdown(w io.Writer, results []models.ScrapeResult) error {
	var sb strings.Builder

	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n---\n\n")
		}
		if r.Product == nil {
			fmt.Fprintf(&sb, "## Failed: %s\n\n> %s\n", r.URL, errorText(r))
			continue
		}

		p := r.Product
		fmt.Fprintf(&sb, "## %s\n\n", p.ProductName)
		fmt.Fprintf(&sb, "- **URL:** %s\n", r.URL)
		fmt.Fprintf(&sb, "- **Source:** %s\n", r.Source)
		fmt.Fprintf(&sb, "- **Price:** ¥%.2f\n", p.ProductPrice)
		if r.Delivered {
			sb.WriteString("- **Delivered:** yes\n")
		}
		if r.Error != nil {
			fmt.Fprintf(&sb, "- **Error:** %s\n", r.Error)
		}

		desc, err := DescriptionMarkdown(p.ProductDescription, r.URL)
		if err != nil {
			return fmt.Errorf("failed to convert description for %s: %w", r.URL, err)
		}
		fmt.Fprintf(&sb, "\n### Description\n\n%s\n", desc)

		if len(p.ImageURLs) > 0 {
			fmt.Fprintf(&sb, "\n### Images (%d)\n\n", len(p.ImageURLs))
			for _, u := range p.ImageURLs {
				fmt.Fprintf(&sb, "- %s\n", u)
			}
		}
		if len(p.VideoURLs) > 0 {
			fmt.Fprintf(&sb, "\n### Videos (%d)\n\n", len(p.VideoURLs))
			for _, u := range p.VideoURLs {
				fmt.Fprintf(&sb, "- %s\n", u)
			}
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}
