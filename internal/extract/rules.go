package extract

// RuleSet holds the cascade for every field of the product record
type RuleSet struct {
	Name        Cascade
	Description Cascade
	Price       Cascade
	Images      Cascade
	Videos      Cascade
}

// imageAttrs is the lazy-loading fallback order used by 1688 galleries
var imageAttrs = []string{"src", "data-lazyload-src", "data-src"}

// DefaultRules returns the 1688.com detail page tables
func DefaultRules() RuleSet {
	return RuleSet{
		Name: Cascade{
			Field: "name",
			Mode:  FirstMatch,
			Rules: []Rule{
				Text("h1.d-title"),
				Text("h1.title-text"),
				Text("h1.title"),
				Text("div.product-name h1"),
				Text("span.name"),
				Text("#J_Title"),
				Attr(`meta[property="og:title"]`, "content"),
				Text("div.title-content h1"),
				Text("div#productTitle h1"),
			},
		},
		Description: Cascade{
			Field: "description",
			Mode:  FirstMatch,
			Rules: []Rule{
				HTML("div.desc-content"),
				HTML("div.detail-desc-module"),
				HTML("div.desc-container"),
				HTML("div.mod-detail-description"),
				HTML("#desc-module"),
			},
		},
		Price: Cascade{
			Field: "price",
			Mode:  FirstMatch,
			Rules: []Rule{
				Text("span.price-text"),
				Text("span.price-value"),
				Text("div.price-area span"),
				Text("#mod-detail-price .price"),
				Text("#J_Price .price"),
			},
		},
		Images: Cascade{
			Field: "images",
			Mode:  CollectAll,
			Rules: []Rule{
				Attr("img.mod-detail-img", imageAttrs...),
				Attr("img.main-image", imageAttrs...),
				Attr(`img[src*=".alicdn.com"]`, imageAttrs...),
				Attr(`img[data-lazyload-src*=".alicdn.com"]`, imageAttrs...),
				Attr(`img[data-src*=".alicdn.com"]`, imageAttrs...),
			},
		},
		Videos: Cascade{
			Field: "videos",
			Mode:  CollectAll,
			Rules: []Rule{
				Attr("video.mod-detail-video source", "src"),
				Attr(`video[src*=".alicdn.com"]`, "src"),
				Attr(`source[src*=".alicdn.com"]`, "src"),
			},
		},
	}
}

// WaitSelector is the readiness probe a browser waits on before snapshotting
const WaitSelector = "h1, span.price-text, div.desc-content"
