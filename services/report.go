package services

import (
	"math"
	"sort"

	"shopeasy/models"
)

// BestDealsCount is how many lowest-priced listings a report keeps.
const BestDealsCount = 5

// Summarize builds comparison statistics over listings. It never modifies
// its input and returns an explicit empty report for an empty batch.
func Summarize(listings []models.Listing) models.Report {
	report := models.Report{
		Sources:   []string{},
		PerSource: []models.SourceStats{},
		BestDeals: []models.Listing{},
	}

	if len(listings) == 0 {
		report.Empty = true
		return report
	}

	report.Total = len(listings)

	seen := make(map[string]struct{})
	cheapest := listings[0]
	lo, hi := listings[0].Price, listings[0].Price
	var mean priceMean
	for _, l := range listings {
		if _, ok := seen[l.Source]; !ok {
			seen[l.Source] = struct{}{}
			report.Sources = append(report.Sources, l.Source)
		}
		if l.Price < cheapest.Price {
			cheapest = l
		}
		lo = math.Min(lo, l.Price)
		hi = math.Max(hi, l.Price)
		mean.add(l.Price)
	}

	report.Cheapest = &cheapest
	report.MeanPrice = models.Float(mean.value())
	report.PriceRange = &models.PriceRange{Min: lo, Max: hi, Spread: hi - lo}
	report.PerSource = ComparePlatforms(listings)

	byPrice := append([]models.Listing(nil), listings...)
	sort.SliceStable(byPrice, func(i, j int) bool {
		return byPrice[i].Price < byPrice[j].Price
	})
	if len(byPrice) > BestDealsCount {
		byPrice = byPrice[:BestDealsCount]
	}
	report.BestDeals = byPrice

	return report
}

// ComparePlatforms aggregates prices per source, cheapest average first.
// Averages are rounded to cents.
func ComparePlatforms(listings []models.Listing) []models.SourceStats {
	index := make(map[string]int)
	stats := []models.SourceStats{}
	means := []priceMean{}

	for _, l := range listings {
		i, ok := index[l.Source]
		if !ok {
			i = len(stats)
			index[l.Source] = i
			stats = append(stats, models.SourceStats{Source: l.Source, MinPrice: l.Price, MaxPrice: l.Price})
			means = append(means, priceMean{})
		}
		s := &stats[i]
		s.Count++
		s.MinPrice = math.Min(s.MinPrice, l.Price)
		s.MaxPrice = math.Max(s.MaxPrice, l.Price)
		means[i].add(l.Price)
	}

	for i := range stats {
		stats[i].MeanPrice = round2(means[i].value())
		stats[i].MinPrice = round2(stats[i].MinPrice)
		stats[i].MaxPrice = round2(stats[i].MaxPrice)
	}

	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].MeanPrice != stats[j].MeanPrice {
			return stats[i].MeanPrice < stats[j].MeanPrice
		}
		return stats[i].Source < stats[j].Source
	})
	return stats
}

// FilterByPrice keeps listings priced within the optional bounds.
func FilterByPrice(listings []models.Listing, min, max models.OptFloat) []models.Listing {
	if !min.Present() && !max.Present() {
		return listings
	}
	out := make([]models.Listing, 0, len(listings))
	for _, l := range listings {
		if min.Present() && l.Price < min.Value {
			continue
		}
		if max.Present() && l.Price > max.Value {
			continue
		}
		out = append(out, l)
	}
	return out
}

// priceMean averages prices. When the plain sum overflows, the incremental
// mean is used instead so prices near the float64 limit stay finite.
type priceMean struct {
	sum     float64
	running float64
	n       int
}

func (m *priceMean) add(v float64) {
	m.n++
	m.sum += v
	m.running += (v - m.running) / float64(m.n)
}

func (m priceMean) value() float64 {
	if m.n == 0 {
		return 0
	}
	if math.IsInf(m.sum, 0) {
		return m.running
	}
	return m.sum / float64(m.n)
}

// round2 rounds to cents. Values too large to carry cents are returned as is.
func round2(f float64) float64 {
	if math.Abs(f) >= 1e15 {
		return models.Finite(f)
	}
	return models.Finite(math.Round(f*100) / 100)
}
