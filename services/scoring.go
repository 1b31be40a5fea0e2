package services

import (
	"math"
	"sort"

	"shopeasy/models"
)

const (
	// MaxRating is the top of the rating scale.
	MaxRating = 5.0
	// DefaultDeliveryCeilingDays is imputed for listings without a delivery time.
	DefaultDeliveryCeilingDays = 30.0
)

// Scorer computes batch-relative sub-scores and composite scores.
// It holds no state between calls.
type Scorer struct {
	weights         models.Weights
	deliveryCeiling float64
}

// NewScorer normalises weights once; a ceiling <= 0 uses the 30 day default.
func NewScorer(weights models.Weights, deliveryCeilingDays float64) *Scorer {
	if deliveryCeilingDays <= 0 || math.IsNaN(deliveryCeilingDays) || math.IsInf(deliveryCeilingDays, 0) {
		deliveryCeilingDays = DefaultDeliveryCeilingDays
	}
	return &Scorer{
		weights:         weights.Normalized(),
		deliveryCeiling: deliveryCeilingDays,
	}
}

// Weights returns the normalised weights the scorer uses by default.
func (s *Scorer) Weights() models.Weights {
	return s.weights
}

// Score scores listings with the scorer's own weights.
func (s *Scorer) Score(listings []models.Listing) []models.ScoredListing {
	return s.ScoreWith(listings, s.weights)
}

// ScoreWith scores listings with w, normalised first. Every factor is scaled
// against the min/max of this batch only, so the same listing can score
// differently in another batch.
func (s *Scorer) ScoreWith(listings []models.Listing, w models.Weights) []models.ScoredListing {
	if len(listings) == 0 {
		return []models.ScoredListing{}
	}
	w = w.Normalized()

	price := priceScores(listings)
	rating := ratingScores(listings)
	reviews := reviewScores(listings)

	out := make([]models.ScoredListing, len(listings))
	for i, l := range listings {
		sub := models.SubScores{
			Price:        price[i],
			Rating:       rating[i],
			Reviews:      reviews[i],
			Delivery:     s.deliveryScore(l.DeliveryDays),
			ReturnPolicy: clip01(l.ReturnPolicy.Or(0)),
		}
		composite := sub.Price*w.Price +
			sub.Rating*w.Rating +
			sub.Reviews*w.Reviews +
			sub.Delivery*w.DeliveryTime +
			sub.ReturnPolicy*w.ReturnPolicy

		out[i] = models.ScoredListing{
			Listing: l,
			Scores:  sub,
			Score:   round4(clip01(models.Finite(composite))),
		}
	}
	return out
}

// priceScores inverts min-max so the cheapest listing gets 1 and the dearest 0.
func priceScores(listings []models.Listing) []float64 {
	lo, hi := listings[0].Price, listings[0].Price
	for _, l := range listings[1:] {
		lo = math.Min(lo, l.Price)
		hi = math.Max(hi, l.Price)
	}

	out := make([]float64, len(listings))
	for i, l := range listings {
		if hi == lo {
			out[i] = 1
			continue
		}
		out[i] = clip01((hi - l.Price) / (hi - lo))
	}
	return out
}

// ratingScores imputes missing ratings with the batch median, or 0 when nobody is rated.
func ratingScores(listings []models.Listing) []float64 {
	var present []float64
	for _, l := range listings {
		if l.Rating.Present() {
			present = append(present, l.Rating.Value)
		}
	}
	fill := median(present)

	out := make([]float64, len(listings))
	for i, l := range listings {
		out[i] = clip01(l.Rating.Or(fill) / MaxRating)
	}
	return out
}

// reviewScores uses log(1+n) over the batch maximum; missing counts are 0.
func reviewScores(listings []models.Listing) []float64 {
	logs := make([]float64, len(listings))
	maxLog := 0.0
	for i, l := range listings {
		n := l.Reviews.Or(0)
		if n < 0 {
			n = 0
		}
		logs[i] = math.Log1p(float64(n))
		maxLog = math.Max(maxLog, logs[i])
	}

	out := make([]float64, len(listings))
	if maxLog == 0 {
		return out
	}
	for i := range logs {
		out[i] = clip01(logs[i] / maxLog)
	}
	return out
}

func (s *Scorer) deliveryScore(days models.OptFloat) float64 {
	return clip01(1 - days.Or(s.deliveryCeiling)/s.deliveryCeiling)
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
