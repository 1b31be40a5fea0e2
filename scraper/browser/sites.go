package browser

import (
	"sort"
	"strings"
)

var catalogue = map[string]Site{
	"amazon": {
		Name:      "amazon",
		BaseURL:   "https://www.amazon.in",
		SearchURL: "https://www.amazon.in/s?k={query}",
		Selectors: Selectors{
			Card: []string{
				`div[data-component-type="s-search-result"]`,
				`div[data-asin]:not([data-asin=""])`,
				`.s-result-item[data-asin]`,
			},
			Title:    []string{"h2 a span.a-text-normal", "h2 a span", "h2 span"},
			Price:    []string{".a-price .a-offscreen", ".a-price-whole", `[data-a-color="price"] .a-offscreen`},
			Link:     []string{"h2 a", "a.a-link-normal"},
			Rating:   []string{".a-icon-alt", `[aria-label*="out of"]`},
			Reviews:  []string{`a[href*="customerReviews"] span`, `span[aria-label*="ratings"]`},
			Delivery: []string{`[data-cy="delivery-recipe"]`, ".a-color-base.a-text-bold"},
		},
	},
	"flipkart": {
		Name:           "flipkart",
		BaseURL:        "https://www.flipkart.com",
		SearchURL:      "https://www.flipkart.com/search?q={query}",
		QuerySeparator: "%20",
		Selectors: Selectors{
			Card:     []string{"div[data-id]", "._1AtVbE", "._13oc-S"},
			Title:    []string{"div._4rR01T", "a.s1Q9rs", "a._1fQZEK", "a.IRpwTa"},
			Price:    []string{"div._30jeq3", "._25b18c", `[class*="_30jeq3"]`},
			Link:     []string{"a._1fQZEK", "a.s1Q9rs", "a.IRpwTa", "a[href]"},
			Rating:   []string{"._3LWZlK", `div[class*="_3LWZlK"]`},
			Reviews:  []string{"span._2_R_DZ", "span._13vcmD"},
			Delivery: []string{"div._3tcB5a", "span._1TPvTK"},
		},
	},
	"ebay": {
		Name:      "ebay",
		BaseURL:   "https://www.ebay.com",
		SearchURL: "https://www.ebay.com/sch/i.html?_nkw={query}",
		Selectors: Selectors{
			Card:     []string{"li.s-item", ".srp-results li.s-item", "ul.srp-results li"},
			Title:    []string{".s-item__title", "h3.s-item__title"},
			Price:    []string{".s-item__price", "span.s-item__price"},
			Link:     []string{"a.s-item__link"},
			Reviews:  []string{".s-item__reviews-count span", ".s-item__reviews-count"},
			Delivery: []string{".s-item__delivery-days", ".s-item__shipping"},
		},
	},
	"croma": {
		Name:      "croma",
		BaseURL:   "https://www.croma.com",
		SearchURL: "https://www.croma.com/searchB?q={query}",
		Selectors: Selectors{
			Card:  []string{"li.product-item", "div.cp-product", ".plp-card-main"},
			Title: []string{"h3.product-title", ".plp-product-title", ".cp-product-title", "h3"},
			Price: []string{".amount", ".new-price", ".cp-price"},
			Link:  []string{"h3 a", "a[href]"},
		},
	},
	"myntra": {
		Name:           "myntra",
		BaseURL:        "https://www.myntra.com",
		SearchURL:      "https://www.myntra.com/{query}",
		QuerySeparator: "-",
		Selectors: Selectors{
			Card:    []string{"li.product-base", ".product-base"},
			Title:   []string{".product-productMetaInfo", ".product-product"},
			Price:   []string{".product-discountedPrice", ".product-price"},
			Link:    []string{"a"},
			Rating:  []string{".product-ratingsContainer span"},
			Reviews: []string{".product-ratingsCount"},
		},
	},
}

// Catalogue returns the built-in sites sorted by name.
func Catalogue() []Site {
	names := Names()
	sites := make([]Site, 0, len(names))
	for _, n := range names {
		sites = append(sites, catalogue[n])
	}
	return sites
}

// Names lists the built-in site names in order.
func Names() []string {
	names := make([]string, 0, len(catalogue))
	for n := range catalogue {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Lookup finds a built-in site by case-insensitive name.
func Lookup(name string) (Site, bool) {
	s, ok := catalogue[strings.ToLower(strings.TrimSpace(name))]
	return s, ok
}
