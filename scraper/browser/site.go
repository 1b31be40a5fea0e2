package browser

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// QueryPlaceholder marks where the escaped query goes in Site.SearchURL.
const QueryPlaceholder = "{query}"

var ErrInvalidSite = errors.New("invalid site")

// Selectors lists CSS selectors per field, tried in order until one matches.
type Selectors struct {
	Card     []string `yaml:"card" json:"card"`
	Title    []string `yaml:"title" json:"title"`
	Price    []string `yaml:"price" json:"price"`
	Link     []string `yaml:"link" json:"link"`
	Rating   []string `yaml:"rating" json:"rating"`
	Reviews  []string `yaml:"reviews" json:"reviews"`
	Delivery []string `yaml:"delivery" json:"delivery"`
}

// Site describes one marketplace's search results page.
type Site struct {
	Name      string `yaml:"name"`
	BaseURL   string `yaml:"base_url"`
	SearchURL string `yaml:"search_url"`
	// QuerySeparator replaces spaces in the escaped query; "+" when empty.
	QuerySeparator string        `yaml:"query_separator"`
	Timeout        time.Duration `yaml:"timeout"`
	Selectors      Selectors     `yaml:"selectors"`
}

// Validate reports the first problem that would stop the site from being scraped.
func (s Site) Validate() error {
	switch {
	case strings.TrimSpace(s.Name) == "":
		return fmt.Errorf("%w: missing name", ErrInvalidSite)
	case !strings.HasPrefix(s.BaseURL, "http"):
		return fmt.Errorf("%w: %s: base_url must be absolute", ErrInvalidSite, s.Name)
	case !strings.Contains(s.SearchURL, QueryPlaceholder):
		return fmt.Errorf("%w: %s: search_url needs %s", ErrInvalidSite, s.Name, QueryPlaceholder)
	case len(s.Selectors.Card) == 0 || len(s.Selectors.Title) == 0 || len(s.Selectors.Price) == 0:
		return fmt.Errorf("%w: %s: card, title and price selectors are required", ErrInvalidSite, s.Name)
	case s.Timeout < 0:
		return fmt.Errorf("%w: %s: negative timeout", ErrInvalidSite, s.Name)
	}
	return nil
}

// URLFor fills the search URL template with query.
func (s Site) URLFor(query string) string {
	escaped := url.QueryEscape(strings.TrimSpace(query))
	if sep := s.QuerySeparator; sep != "" && sep != "+" {
		escaped = strings.ReplaceAll(escaped, "+", sep)
	}
	return strings.ReplaceAll(s.SearchURL, QueryPlaceholder, escaped)
}
