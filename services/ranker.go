package services

import (
	"sort"

	"shopeasy/models"
)

// Rank orders a copy of scored by composite score descending. Ties fall back
// to price ascending, then source, title and URL so the order never depends
// on input order.
func Rank(scored []models.ScoredListing) []models.ScoredListing {
	ranked := cloneScored(scored)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		switch {
		case a.Score != b.Score:
			return a.Score > b.Score
		case a.Price != b.Price:
			return a.Price < b.Price
		case a.Source != b.Source:
			return a.Source < b.Source
		case a.Title != b.Title:
			return a.Title < b.Title
		default:
			return a.URL < b.URL
		}
	})
	return ranked
}

// labelRule picks the qualifying listings for one label. ok is false when no
// listing in the slice has the signal at all.
type labelRule struct {
	label models.Label
	pick  func(top []models.ScoredListing) (candidates []int, ok bool)
}

var labelRules = []labelRule{
	{models.LabelBestValue, extremes(func(l models.ScoredListing) (float64, bool) { return l.Score, true }, true)},
	{models.LabelCheapest, extremes(func(l models.ScoredListing) (float64, bool) { return l.Price, true }, false)},
	{models.LabelHighestRated, extremes(func(l models.ScoredListing) (float64, bool) {
		return l.Rating.Value, l.Rating.Present()
	}, true)},
	{models.LabelFastestDelivery, extremes(func(l models.ScoredListing) (float64, bool) {
		return l.DeliveryDays.Value, l.DeliveryDays.Present()
	}, false)},
	{models.LabelMostReviewed, extremes(func(l models.ScoredListing) (float64, bool) {
		return float64(l.Reviews.Value), l.Reviews.Valid
	}, true)},
}

// LabelTop returns a copy of ranked whose first topN entries carry labels.
// Labels are handed out in priority order, each to at most one listing. The
// Best Value holder never takes another label; when it is the only qualifier
// the label is left unassigned. Among listings tied for a label, one that
// holds no label yet is preferred.
func LabelTop(ranked []models.ScoredListing, topN int) []models.ScoredListing {
	out := cloneScored(ranked)
	for i := range out {
		out[i].Labels = nil
	}
	if topN > len(out) {
		topN = len(out)
	}
	if topN <= 0 {
		return out
	}
	top := out[:topN]

	for _, rule := range labelRules {
		candidates, ok := rule.pick(top)
		if !ok {
			continue
		}
		chosen := -1
		for _, idx := range candidates {
			if top[idx].HasLabel(models.LabelBestValue) {
				continue
			}
			if chosen < 0 {
				chosen = idx
			}
			if len(top[idx].Labels) == 0 {
				chosen = idx
				break
			}
		}
		if chosen < 0 {
			continue
		}
		top[chosen].Labels = append(top[chosen].Labels, rule.label)
	}
	return out
}

// extremes returns the indices (in slice order) holding the max (or min) value.
func extremes(value func(models.ScoredListing) (float64, bool), max bool) func([]models.ScoredListing) ([]int, bool) {
	return func(top []models.ScoredListing) ([]int, bool) {
		var (
			best    float64
			found   bool
			indices []int
		)
		for i, l := range top {
			v, ok := value(l)
			if !ok {
				continue
			}
			better := !found || (max && v > best) || (!max && v < best)
			switch {
			case better:
				best, found = v, true
				indices = []int{i}
			case v == best:
				indices = append(indices, i)
			}
		}
		return indices, found
	}
}

func cloneScored(in []models.ScoredListing) []models.ScoredListing {
	out := make([]models.ScoredListing, len(in))
	for i, l := range in {
		out[i] = l
		if l.Labels != nil {
			out[i].Labels = append([]models.Label(nil), l.Labels...)
		}
	}
	return out
}
