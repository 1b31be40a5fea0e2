package models

import "time"

// RawListing holds an offer exactly as a source adapter produced it.
// Nothing in it is trusted until it has been through the normalizer.
type RawListing struct {
	Title    string
	RawPrice string
	// Price is set instead of RawPrice when the adapter already parsed a number.
	Price        OptFloat
	Source       string
	URL          string
	Rating       OptFloat
	Reviews      OptInt
	DeliveryDays OptFloat
	// ReturnPolicy arrives on either a 0-1 or a 0-10 scale.
	ReturnPolicy OptFloat
	ScrapedAt    time.Time
}

// Listing is a validated offer. Price is always > 0, Title and Source are
// never empty and URL is absolute.
type Listing struct {
	Title        string    `json:"title"`
	Price        float64   `json:"price"`
	Source       string    `json:"platform"`
	URL          string    `json:"url"`
	Rating       OptFloat  `json:"rating"`
	Reviews      OptInt    `json:"num_reviews"`
	DeliveryDays OptFloat  `json:"delivery_time"`
	ReturnPolicy OptFloat  `json:"return_policy_score"`
	ScrapedAt    time.Time `json:"scraped_at"`
}

// Label highlights one listing of a recommendation set.
type Label string

const (
	LabelBestValue       Label = "Best Value"
	LabelCheapest        Label = "Cheapest"
	LabelHighestRated    Label = "Highest Rated"
	LabelFastestDelivery Label = "Fastest Delivery"
	LabelMostReviewed    Label = "Most Reviewed"
)

// SubScores are the per-factor scores of a listing, each in [0,1].
type SubScores struct {
	Price        float64 `json:"price_score"`
	Rating       float64 `json:"rating_score"`
	Reviews      float64 `json:"reviews_score"`
	Delivery     float64 `json:"delivery_score"`
	ReturnPolicy float64 `json:"return_score"`
}

// ScoredListing is a Listing with its score breakdown.
type ScoredListing struct {
	Listing
	Scores SubScores `json:"breakdown"`
	// Score is the weighted composite rounded to 4 decimals.
	Score  float64 `json:"final_score"`
	Labels []Label `json:"labels,omitempty"`
}

// HasLabel reports whether l already carries label.
func (s *ScoredListing) HasLabel(l Label) bool {
	for _, have := range s.Labels {
		if have == l {
			return true
		}
	}
	return false
}
