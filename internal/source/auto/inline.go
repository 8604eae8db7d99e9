package auto

import (
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dop251/goja"
	"github.com/rs/zerolog/log"

	"github.com/law-makers/sourcer/internal/extract"
	"github.com/law-makers/sourcer/pkg/models"
)

// scriptBudget bounds the time spent running a page's inline scripts
var scriptBudget = 2 * time.Second

// offerGlobals are the window globals 1688 detail pages assign their offer
// state to before the client bundle renders it
var offerGlobals = []string{"__INIT_DATA", "__GLOBAL_DATA", "iDetailData", "iDetailConfig"}

// InlineState runs the inline scripts of html in a bare JS runtime and
// returns the exported offer globals that were assigned. Scripts that touch
// a real DOM fail and are skipped.
func InlineState(html, pageURL string) map[string]any {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	vm := goja.New()
	location := map[string]any{"href": pageURL}
	noop := func(goja.FunctionCall) goja.Value { return goja.Undefined() }
	vm.Set("window", vm.GlobalObject())
	vm.Set("self", vm.GlobalObject())
	vm.Set("location", location)
	vm.Set("document", map[string]any{"location": location, "cookie": ""})
	vm.Set("navigator", map[string]any{"userAgent": "Mozilla/5.0"})
	vm.Set("console", map[string]any{"log": noop, "warn": noop, "error": noop})

	timer := time.AfterFunc(scriptBudget, func() { vm.Interrupt("inline script budget exceeded") })
	defer timer.Stop()

	ran := 0
	doc.Find("script").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if _, external := sel.Attr("src"); external {
			return true
		}
		if typ, ok := sel.Attr("type"); ok && !isJSType(typ) {
			return true
		}
		code := strings.TrimSpace(sel.Text())
		if code == "" {
			return true
		}
		ran++
		if _, err := vm.RunString(code); err != nil {
			if _, interrupted := err.(*goja.InterruptedError); interrupted {
				log.Debug().Str("url", pageURL).Msg("Inline scripts interrupted")
				return false
			}
		}
		return true
	})

	state := make(map[string]any)
	for _, name := range offerGlobals {
		v := vm.Get(name)
		if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
			continue
		}
		state[name] = v.Export()
	}

	log.Debug().
		Str("url", pageURL).
		Int("scripts", ran).
		Int("globals", len(state)).
		Msg("Inline state evaluated")
	return state
}

func isJSType(typ string) bool {
	switch strings.ToLower(strings.TrimSpace(typ)) {
	case "", "text/javascript", "application/javascript", "module":
		return true
	}
	return false
}

type path []string

// Field locations inside the offer globals, most specific first
var (
	titlePaths = []path{
		{"__INIT_DATA", "globalData", "tempModel", "offerTitle"},
		{"__INIT_DATA", "data", "offerTitle"},
		{"__GLOBAL_DATA", "offerBaseInfo", "offerTitle"},
		{"iDetailConfig", "offerTitle"},
		{"iDetailData", "subject"},
	}
	descriptionPaths = []path{
		{"__INIT_DATA", "globalData", "offerDetail", "description"},
		{"__GLOBAL_DATA", "offerBaseInfo", "description"},
	}
	pricePaths = []path{
		{"__INIT_DATA", "globalData", "orderParamModel", "orderParam", "skuParam", "skuRangePrices", "0", "price"},
		{"__INIT_DATA", "globalData", "tempModel", "price"},
		{"__GLOBAL_DATA", "offerBaseInfo", "price"},
		{"iDetailConfig", "refPrice"},
		{"iDetailData", "price"},
	}
	imagePaths = []path{
		{"__INIT_DATA", "globalData", "images"},
		{"__GLOBAL_DATA", "offerImgList"},
		{"iDetailData", "imageList"},
	}
	videoPaths = []path{
		{"__INIT_DATA", "globalData", "video", "videoUrl"},
		{"__GLOBAL_DATA", "video", "videoUrl"},
		{"iDetailConfig", "videoUrl"},
	}
)

// image entries are either plain strings or objects carrying one of these
var imageKeys = []string{"fullPathImageURI", "originalImageURI", "imageURI", "url"}

// ProductFromState maps evaluated offer globals to a product. It reports
// false when no title was found, since a record without one is no better
// than rendering the page.
func ProductFromState(state map[string]any) (*models.Product, bool) {
	name := firstString(state, titlePaths)
	if name == "" {
		return nil, false
	}

	p := models.Product{
		ProductName:        name,
		ProductDescription: firstString(state, descriptionPaths),
		ImageURLs:          []string{},
		VideoURLs:          []string{},
	}
	for _, pp := range pricePaths {
		if v, ok := priceOf(lookup(state, pp)); ok {
			p.ProductPrice = v
			break
		}
	}
	for _, pp := range imagePaths {
		items, ok := lookup(state, pp).([]any)
		if !ok {
			continue
		}
		for _, item := range items {
			if u := imageURL(item); u != "" {
				p.ImageURLs = append(p.ImageURLs, u)
			}
		}
	}
	if v := firstString(state, videoPaths); v != "" {
		p.VideoURLs = append(p.VideoURLs, v)
	}
	return &p, true
}

func lookup(v any, p path) any {
	for _, key := range p {
		switch node := v.(type) {
		case map[string]any:
			v = node[key]
		case []any:
			i, err := strconv.Atoi(key)
			if err != nil || i < 0 || i >= len(node) {
				return nil
			}
			v = node[i]
		default:
			return nil
		}
	}
	return v
}

func firstString(state map[string]any, paths []path) string {
	for _, p := range paths {
		if s, ok := lookup(state, p).(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

func priceOf(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), n > 0
	case float64:
		return n, n > 0
	case string:
		return extract.ParsePrice(n)
	}
	return 0, false
}

func imageURL(item any) string {
	switch v := item.(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]any:
		for _, k := range imageKeys {
			if s, ok := v[k].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}
