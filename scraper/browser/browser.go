// Package browser scrapes marketplace search pages with a headless Chrome
// driven by chromedp. One Source serves one Site.
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"

	"shopeasy/models"
	"shopeasy/utils"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Options configures the browser every Source launches.
type Options struct {
	ChromeBin  string
	Headless   bool
	MaxRetries int
	// Settle is how long to wait after navigation for client-side rendering.
	Settle time.Duration
}

// Source scrapes one Site. Each Search launches its own browser and closes
// it before returning, so concurrent searches never share a session.
type Source struct {
	site       Site
	opts       Options
	logger     *utils.Logger
	retryDelay time.Duration
}

// New creates a Source for site.
func New(site Site, opts Options, logger *utils.Logger) *Source {
	if opts.Settle <= 0 {
		opts.Settle = 3 * time.Second
	}
	return &Source{site: site, opts: opts, logger: logger, retryDelay: 2 * time.Second}
}

func (s *Source) Name() string    { return s.site.Name }
func (s *Source) BaseURL() string { return s.site.BaseURL }

// Timeout implements scraper.TimeoutSource.
func (s *Source) Timeout() time.Duration { return s.site.Timeout }

// SearchURL implements scraper.SearchLinker.
func (s *Source) SearchURL(query string) string { return s.site.URLFor(query) }

// card mirrors the object returned by the extraction script.
type card struct {
	Title    string `json:"title"`
	Price    string `json:"price"`
	URL      string `json:"url"`
	Rating   string `json:"rating"`
	Reviews  string `json:"reviews"`
	Delivery string `json:"delivery"`
}

// Search loads the site's result page for query and extracts up to
// maxResults cards.
func (s *Source) Search(ctx context.Context, query string, maxResults int) ([]models.RawListing, error) {
	pageURL := s.site.URLFor(query)
	s.logger.Debug("[source:%s] Loading %s", s.site.Name, pageURL)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, s.allocatorOptions()...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...any) {}))
	defer cancelBrowser()

	script, err := extractScript(s.site.Selectors, maxResults)
	if err != nil {
		return nil, fmt.Errorf("browser: %s: build script: %w", s.site.Name, err)
	}

	retry := &utils.RetryConfig{MaxAttempts: s.opts.MaxRetries, BaseDelay: s.retryDelay, Logger: s.logger}

	var cards []card
	err = retry.Do(ctx, "scrape-"+s.site.Name, func(ctx context.Context) error {
		tabCtx, cancel := chromedp.NewContext(browserCtx)
		defer cancel()

		cards = nil
		return chromedp.Run(tabCtx,
			chromedp.Navigate(pageURL),
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.Sleep(s.opts.Settle),
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight / 2)`, nil),
			chromedp.Sleep(s.opts.Settle/2),
			chromedp.Evaluate(script, &cards),
		)
	})
	if err != nil {
		return nil, fmt.Errorf("browser: %s: %w", s.site.Name, err)
	}

	listings := toRawListings(s.site.Name, cards, time.Now())
	s.logger.Debug("[source:%s] Found %d cards, kept %d", s.site.Name, len(cards), len(listings))
	return listings, nil
}

func toRawListings(source string, cards []card, now time.Time) []models.RawListing {
	seen := utils.NewURLSet()
	out := make([]models.RawListing, 0, len(cards))
	for _, c := range cards {
		if c.URL != "" && !seen.Add(c.URL) {
			continue
		}
		out = append(out, models.RawListing{
			Title:        c.Title,
			RawPrice:     c.Price,
			Source:       source,
			URL:          c.URL,
			Rating:       ParseRating(c.Rating),
			Reviews:      ParseReviews(c.Reviews),
			DeliveryDays: ParseDeliveryDays(c.Delivery, now),
			ScrapedAt:    now,
		})
	}
	return out
}

func (s *Source) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(userAgent),
	)
	if bin := findChromeBinary(s.opts.ChromeBin); bin != "" {
		opts = append(opts, chromedp.ExecPath(bin))
	}
	return opts
}

// extractScript builds the in-page extraction function. Selector lists are
// passed as JSON so site definitions never need escaping.
func extractScript(sel Selectors, limit int) (string, error) {
	encoded, err := json.Marshal(sel)
	if err != nil {
		return "", err
	}
	if limit < 1 {
		limit = 1
	}
	return fmt.Sprintf(`
		(function(sel, limit) {
			function first(root, list) {
				for (var i = 0; list && i < list.length; i++) {
					var el = root.querySelector(list[i]);
					if (el) return el;
				}
				return null;
			}
			function text(el) {
				if (!el) return '';
				return (el.innerText || el.textContent || el.getAttribute('aria-label') || '').trim();
			}
			var cards = [];
			for (var i = 0; i < sel.card.length; i++) {
				cards = document.querySelectorAll(sel.card[i]);
				if (cards.length > 0) break;
			}
			var out = [];
			for (var j = 0; j < cards.length && out.length < limit; j++) {
				var c = cards[j];
				var title = text(first(c, sel.title));
				if (!title) continue;
				var link = first(c, sel.link);
				out.push({
					title:    title,
					price:    text(first(c, sel.price)),
					url:      link ? (link.href || link.getAttribute('href') || '') : '',
					rating:   text(first(c, sel.rating)),
					reviews:  text(first(c, sel.reviews)),
					delivery: text(first(c, sel.delivery))
				});
			}
			return out;
		})(%s, %d)
	`, encoded, limit), nil
}

// findChromeBinary locates Chrome/Chromium, preferring the configured path.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
