package output

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// keptAttrs lists the attributes that survive cleaning, per tag
var keptAttrs = map[string][]string{
	"a":   {"href", "title"},
	"img": {"src", "alt", "title"},
}

// CleanHTML strips scripts, form controls and presentational attributes
// from a description fragment. Lazy-loaded gallery images get their real
// source promoted to src.
func CleanHTML(htmlContent string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}

	doc.Find("script, style, link, meta, noscript, iframe, svg, form, input, button, select, textarea, canvas").Remove()

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		for _, attr := range []string{"data-lazyload-src", "data-src"} {
			if v, ok := s.Attr(attr); ok && v != "" {
				s.SetAttr("src", v)
				return
			}
		}
	})

	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		if len(s.Nodes) == 0 {
			return
		}
		node := s.Nodes[0]
		keep := keptAttrs[node.Data]
		var attrs []html.Attribute
		for _, attr := range node.Attr {
			for _, k := range keep {
				if attr.Key == k {
					attrs = append(attrs, attr)
					break
				}
			}
		}
		node.Attr = attrs
	})

	body, err := doc.Find("body").Html()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(body), nil
}
