// Package static provides an in-memory source used for demo mode and tests.
package static

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"shopeasy/models"
)

// Source returns a fixed set of listings after an optional delay.
type Source struct {
	name     string
	baseURL  string
	listings []models.RawListing
	delay    time.Duration
	err      error
	timeout  time.Duration
}

// Option configures a static Source.
type Option func(*Source)

// WithDelay makes Search wait d before answering, honouring cancellation.
func WithDelay(d time.Duration) Option {
	return func(s *Source) { s.delay = d }
}

// WithError makes Search fail with err.
func WithError(err error) Option {
	return func(s *Source) { s.err = err }
}

// WithTimeout declares a per-source timeout for the aggregator.
func WithTimeout(d time.Duration) Option {
	return func(s *Source) { s.timeout = d }
}

// New creates a static Source. Listings with an empty Source field are
// attributed to name.
func New(name, baseURL string, listings []models.RawListing, opts ...Option) *Source {
	s := &Source{name: name, baseURL: baseURL}
	for _, l := range listings {
		if l.Source == "" {
			l.Source = name
		}
		s.listings = append(s.listings, l)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Source) Name() string    { return s.name }
func (s *Source) BaseURL() string { return s.baseURL }

// Timeout implements scraper.TimeoutSource; zero means use the default.
func (s *Source) Timeout() time.Duration { return s.timeout }

// SearchURL implements scraper.SearchLinker.
func (s *Source) SearchURL(query string) string {
	return strings.TrimRight(s.baseURL, "/") + "/search?q=" + url.QueryEscape(query)
}

func (s *Source) Search(ctx context.Context, query string, maxResults int) ([]models.RawListing, error) {
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.delay):
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.err != nil {
		return nil, fmt.Errorf("%s: %w", s.name, s.err)
	}

	out := make([]models.RawListing, 0, len(s.listings))
	for _, l := range s.listings {
		if maxResults > 0 && len(out) >= maxResults {
			break
		}
		l.Title = strings.ReplaceAll(l.Title, "{query}", query)
		if l.ScrapedAt.IsZero() {
			l.ScrapedAt = time.Now()
		}
		out = append(out, l)
	}
	return out, nil
}

// Demo returns the sources used by demo mode: three marketplaces with
// hand-written offers whose titles echo the query.
func Demo() []*Source {
	return []*Source{
		New("amazon", "https://www.amazon.in", []models.RawListing{
			{Title: "{query} - Amazon Deal", RawPrice: "₹1,999.00", URL: "/dp/demo1", Rating: models.Float(4.2), Reviews: models.Int(1850), DeliveryDays: models.Float(2), ReturnPolicy: models.Float(7)},
			{Title: "{query} - Amazon Basics", RawPrice: "₹2,349", URL: "/dp/demo2", Rating: models.Float(3.9), Reviews: models.Int(320), DeliveryDays: models.Float(4)},
		}),
		New("flipkart", "https://www.flipkart.com", []models.RawListing{
			{Title: "{query} - Flipkart Offer", RawPrice: "₹2,199", URL: "/p/demo3", Rating: models.Float(4.0), Reviews: models.Int(5400), DeliveryDays: models.Float(3), ReturnPolicy: models.Float(0.7)},
		}),
		New("croma", "https://www.croma.com", []models.RawListing{
			{Title: "{query} - Croma Exclusive", RawPrice: "₹2,499", DeliveryDays: models.Float(1), ReturnPolicy: models.Float(1)},
		}),
	}
}
