// Package scraper defines the boundary between the aggregation core and the
// site-specific adapters that fetch listings.
package scraper

import (
	"context"
	"time"

	"shopeasy/models"
)

// Source fetches raw listings for a query from one marketplace. Search must
// release any resource it acquires (browser session, connection) before it
// returns, on success and on failure, and must give up once ctx is done.
type Source interface {
	Name() string
	BaseURL() string
	Search(ctx context.Context, query string, maxResults int) ([]models.RawListing, error)
}

// TimeoutSource is implemented by sources that declare their own time budget.
type TimeoutSource interface {
	Timeout() time.Duration
}

// SearchLinker is implemented by sources that can point a user at the
// marketplace's own search page for a query.
type SearchLinker interface {
	SearchURL(query string) string
}
