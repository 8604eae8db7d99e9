package auto

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/law-makers/sourcer/internal/extract"
)

// Signals summarises what a plain HTTP fetch of a product page returned
type Signals struct {
	Scripts   int
	Framework string
	NameFound bool
	Blocked   bool
}

// blockMarkers identify the login redirect and slider captcha pages 1688
// serves to clients it does not trust
var blockMarkers = []string{
	"login.1688.com",
	"login.taobao.com",
	"_____tmd_____/punish",
	"nc_1_wrapper",
	"x5secdata",
}

// DetectFramework reports client-side rendering markers in html, or ""
func DetectFramework(html string) string {
	lower := strings.ToLower(html)

	switch {
	case strings.Contains(lower, "data-reactroot") || strings.Contains(lower, "__next_data__"):
		return "React"
	case strings.Contains(lower, "data-v-app") || strings.Contains(lower, "__nuxt__"):
		return "Vue"
	case strings.Contains(lower, "ng-version") || strings.Contains(lower, "ng-app"):
		return "Angular"
	case strings.Contains(lower, "data-svelte"):
		return "Svelte"
	}
	return ""
}

// Inspect parses html and gathers the signals used to choose a source
func Inspect(html string, rules extract.RuleSet) Signals {
	var sig Signals

	lower := strings.ToLower(html)
	for _, m := range blockMarkers {
		if strings.Contains(lower, m) {
			sig.Blocked = true
			break
		}
	}
	sig.Framework = DetectFramework(html)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return sig
	}
	sig.Scripts = doc.Find("script").Length()
	sig.NameFound = len(rules.Name.Run(extract.FromGoquery(doc), nil)) > 0
	return sig
}

// NeedsBrowser reports whether the static markup is unusable and the page
// should be rendered instead. A page whose title rules match is kept even if
// it ships a framework bundle, since the server already rendered it.
func (s Signals) NeedsBrowser() bool {
	return s.Blocked || !s.NameFound
}
