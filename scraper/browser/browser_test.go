package browser

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseRating(t *testing.T) {
	tests := []struct {
		in    string
		want  float64
		valid bool
	}{
		{"4.3 out of 5 stars", 4.3, true},
		{"4", 4, true},
		{"", 0, false},
		{"No ratings", 0, false},
	}
	for _, tt := range tests {
		got := ParseRating(tt.in)
		if got.Valid != tt.valid || got.Value != tt.want {
			t.Errorf("ParseRating(%q) = %+v, want %v (valid=%v)", tt.in, got, tt.want, tt.valid)
		}
	}
}

func TestParseReviews(t *testing.T) {
	tests := []struct {
		in    string
		want  int
		valid bool
	}{
		{"(12,345)", 12345, true},
		{"2.3K ratings", 2300, true},
		{"1.2L", 120000, true},
		{"87", 87, true},
		{"99999999999999999999 ratings", 0, false},
		{"30000L", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got := ParseReviews(tt.in)
		if got.Valid != tt.valid || got.Value != tt.want {
			t.Errorf("ParseReviews(%q) = %+v, want %d (valid=%v)", tt.in, got, tt.want, tt.valid)
		}
	}
}

func TestParseDeliveryDays(t *testing.T) {
	now := time.Date(2026, time.October, 17, 15, 0, 0, 0, time.UTC)
	tests := []struct {
		in    string
		want  float64
		valid bool
	}{
		{"Get it Today", 0, true},
		{"FREE delivery Tomorrow", 1, true},
		{"Delivery in 3-5 days", 3, true},
		{"Ships in 2 business days", 2, true},
		{"Delivery by Mon, 20 Oct", 3, true},
		{"Arrives Oct 25", 8, true},
		{"Delivery by 2 Jan", 77, true},
		{"Free shipping", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got := ParseDeliveryDays(tt.in, now)
		if got.Valid != tt.valid || got.Value != tt.want {
			t.Errorf("ParseDeliveryDays(%q) = %+v, want %v (valid=%v)", tt.in, got, tt.want, tt.valid)
		}
	}
}

func TestSiteURLFor(t *testing.T) {
	amazon, _ := Lookup("amazon")
	if got := amazon.URLFor("usb c cable"); got != "https://www.amazon.in/s?k=usb+c+cable" {
		t.Errorf("amazon: got %q", got)
	}
	flipkart, _ := Lookup("Flipkart")
	if got := flipkart.URLFor("usb c"); got != "https://www.flipkart.com/search?q=usb%20c" {
		t.Errorf("flipkart: got %q", got)
	}
	myntra, _ := Lookup("myntra")
	if got := myntra.URLFor("red shoes"); got != "https://www.myntra.com/red-shoes" {
		t.Errorf("myntra: got %q", got)
	}
}

func TestCatalogueSitesAreValid(t *testing.T) {
	sites := Catalogue()
	if len(sites) != 5 {
		t.Fatalf("expected 5 built-in sites, got %d", len(sites))
	}
	for _, s := range sites {
		if err := s.Validate(); err != nil {
			t.Errorf("%s: %v", s.Name, err)
		}
	}
	if sites[0].Name != "amazon" {
		t.Errorf("catalogue should be sorted, first is %q", sites[0].Name)
	}
}

func TestSiteValidate(t *testing.T) {
	s := Site{Name: "x", BaseURL: "https://x.example", SearchURL: "https://x.example/s"}
	if err := s.Validate(); !errors.Is(err, ErrInvalidSite) {
		t.Errorf("missing placeholder should be invalid, got %v", err)
	}
}

func TestToRawListingsDedupesAndParses(t *testing.T) {
	now := time.Now()
	cards := []card{
		{Title: "A", Price: "₹999", URL: "https://x.example/a", Rating: "4.1 out of 5", Reviews: "(1,024)"},
		{Title: "A again", Price: "₹999", URL: "https://x.example/a"},
		{Title: "B", Price: "₹1,299", Delivery: "Tomorrow"},
	}
	got := toRawListings("x", cards, now)
	if len(got) != 2 {
		t.Fatalf("expected 2 listings after dedupe, got %d", len(got))
	}
	if got[0].Source != "x" || got[0].Rating.Value != 4.1 || got[0].Reviews.Value != 1024 {
		t.Errorf("first listing: %+v", got[0])
	}
	if got[1].DeliveryDays.Value != 1 || got[1].URL != "" {
		t.Errorf("second listing: %+v", got[1])
	}
}

func TestExtractScriptEmbedsSelectors(t *testing.T) {
	site, _ := Lookup("ebay")
	script, err := extractScript(site.Selectors, 5)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(script, `"li.s-item"`) || !strings.Contains(script, ", 5)") {
		t.Errorf("script missing selectors or limit:\n%s", script)
	}
}

func TestFindChromeBinaryPrefersConfigured(t *testing.T) {
	if got := findChromeBinary("/opt/chrome"); got != "/opt/chrome" {
		t.Errorf("got %q", got)
	}
}
