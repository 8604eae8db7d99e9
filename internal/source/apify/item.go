package apify

import (
	"encoding/json"
	"strings"

	"github.com/law-makers/sourcer/internal/source"
	"github.com/law-makers/sourcer/pkg/models"
)

// Item is one dataset record produced by the product-details actor. Only the
// fields mapped into a product are decoded.
type Item struct {
	Title       text         `json:"title"`
	Subject     text         `json:"subject"`
	Description text         `json:"description"`
	Price       source.Price `json:"price"`
	Wholesale   struct {
		Final struct {
			TradeWithoutPromotion struct {
				OfferMinPrice source.Price `json:"offer_min_price"`
			} `json:"trade_without_promotion"`
		} `json:"final_price_model"`
	} `json:"wholesale_price_model"`
	MainImages []struct {
		FullPath string `json:"full_path_image_u_r_i"`
	} `json:"main_images"`
	WholesaleSkus struct {
		SkuProps []skuProp `json:"sku_props"`
	} `json:"wholesale_skus"`
}

type skuProp struct {
	Value json.RawMessage `json:"value"`
}

// images returns the image URLs of a property's values. Properties without
// per-value images carry a plain string or object instead of a list.
func (p skuProp) images() []string {
	var values []struct {
		ImageURL string `json:"image_url"`
	}
	if err := json.Unmarshal(p.Value, &values); err != nil {
		return nil
	}
	var urls []string
	for _, v := range values {
		if v.ImageURL != "" {
			urls = append(urls, v.ImageURL)
		}
	}
	return urls
}

// text accepts a JSON string and treats any other shape as empty
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		*t = ""
		return nil
	}
	*t = text(s)
	return nil
}

func (it Item) product() models.Product {
	p := models.Product{
		ProductName:        strings.TrimSpace(string(it.Title)),
		ProductDescription: strings.TrimSpace(string(it.Description)),
		ProductPrice:       float64(it.Wholesale.Final.TradeWithoutPromotion.OfferMinPrice),
	}
	if p.ProductName == "" {
		p.ProductName = strings.TrimSpace(string(it.Subject))
	}
	if p.ProductPrice <= 0 {
		p.ProductPrice = float64(it.Price)
	}

	seen := make(map[string]bool)
	add := func(u string) {
		if u != "" && !seen[u] {
			seen[u] = true
			p.ImageURLs = append(p.ImageURLs, u)
		}
	}
	for _, img := range it.MainImages {
		add(img.FullPath)
	}
	for _, prop := range it.WholesaleSkus.SkuProps {
		for _, u := range prop.images() {
			add(u)
		}
	}
	return p
}
