package models

import (
	"time"
)

// Outcome is how one source adapter task ended.
type Outcome string

const (
	OutcomeOK        Outcome = "ok"
	OutcomeFailed    Outcome = "failed"
	OutcomeTimeout   Outcome = "timeout"
	OutcomeCancelled Outcome = "cancelled"
)

// SourceDiagnostic records what happened to one source during a request.
type SourceDiagnostic struct {
	Source   string         `json:"source"`
	Outcome  Outcome        `json:"outcome"`
	Error    string         `json:"error,omitempty"`
	Raw      int            `json:"raw"`
	Accepted int            `json:"accepted"`
	Rejected map[string]int `json:"rejected,omitempty"`
	Duration time.Duration  `json:"duration_ns"`
}

// Diagnostics is the per-source record of one aggregation request.
type Diagnostics struct {
	Sources []SourceDiagnostic `json:"sources"`
}

// Succeeded counts sources that completed without error.
func (d Diagnostics) Succeeded() int {
	n := 0
	for _, s := range d.Sources {
		if s.Outcome == OutcomeOK {
			n++
		}
	}
	return n
}

// AllFailed is true when no configured source completed.
func (d Diagnostics) AllFailed() bool {
	return len(d.Sources) > 0 && d.Succeeded() == 0
}

// Find returns the diagnostic for source, if any.
func (d Diagnostics) Find(source string) (SourceDiagnostic, bool) {
	for _, s := range d.Sources {
		if s.Source == source {
			return s, true
		}
	}
	return SourceDiagnostic{}, false
}

// PriceRange is the spread of prices in a batch.
type PriceRange struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Spread float64 `json:"difference"`
}

// SourceStats aggregates prices for a single source.
type SourceStats struct {
	Source    string  `json:"platform"`
	MeanPrice float64 `json:"avg_price"`
	MinPrice  float64 `json:"min_price"`
	MaxPrice  float64 `json:"max_price"`
	Count     int     `json:"count"`
}

// Report holds summary statistics over a batch of valid listings.
type Report struct {
	Empty      bool          `json:"empty"`
	Total      int           `json:"total_results"`
	Sources    []string      `json:"platforms"`
	Cheapest   *Listing      `json:"cheapest"`
	MeanPrice  OptFloat      `json:"average_price"`
	PriceRange *PriceRange   `json:"price_range"`
	PerSource  []SourceStats `json:"platform_stats"`
	BestDeals  []Listing     `json:"best_deals"`
}

// SearchRun is the persisted record of one search request.
type SearchRun struct {
	ID          string
	Query       string
	CreatedAt   time.Time
	TotalFound  int
	Diagnostics Diagnostics
	Results     []ScoredListing
}
