package browser

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"shopeasy/models"
)

var (
	numberRe   = regexp.MustCompile(`\d+(?:\.\d+)?`)
	countRe    = regexp.MustCompile(`(\d[\d,]*(?:\.\d+)?)\s*([kKlL])?`)
	daysRe     = regexp.MustCompile(`(\d+)\s*(?:-\s*\d+\s*)?(?:business\s+|working\s+)?days?`)
	dayMonthRe = regexp.MustCompile(`(\d{1,2})\s+(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)`)
	monthDayRe = regexp.MustCompile(`(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+(\d{1,2})\b`)
)

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

// ParseRating reads the first number in text such as "4.3 out of 5 stars".
func ParseRating(text string) models.OptFloat {
	m := numberRe.FindString(text)
	if m == "" {
		return models.OptFloat{}
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return models.OptFloat{}
	}
	return models.Float(v)
}

// ParseReviews reads a review count such as "(12,345)", "2.3K ratings" or
// "1.2L". K is thousands and L is lakhs.
func ParseReviews(text string) models.OptInt {
	m := countRe.FindStringSubmatch(text)
	if m == nil {
		return models.OptInt{}
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return models.OptInt{}
	}
	switch strings.ToLower(m[2]) {
	case "k":
		v *= 1_000
	case "l":
		v *= 100_000
	}
	// no real listing gets near this; larger text is page noise
	if v > math.MaxInt32 {
		return models.OptInt{}
	}
	return models.Int(int(math.Round(v)))
}

// ParseDeliveryDays reads an estimate like "Get it by Tomorrow", "3-5 days"
// or "Delivery by Mon, 20 Oct" into days from now.
func ParseDeliveryDays(text string, now time.Time) models.OptFloat {
	t := strings.ToLower(text)
	switch {
	case t == "":
		return models.OptFloat{}
	case strings.Contains(t, "today"):
		return models.Float(0)
	case strings.Contains(t, "tomorrow"):
		return models.Float(1)
	}

	if m := daysRe.FindStringSubmatch(t); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			return models.Float(float64(n))
		}
	}

	var day int
	var month time.Month
	if m := dayMonthRe.FindStringSubmatch(t); m != nil {
		day, _ = strconv.Atoi(m[1])
		month = months[m[2]]
	} else if m := monthDayRe.FindStringSubmatch(t); m != nil {
		day, _ = strconv.Atoi(m[2])
		month = months[m[1]]
	}
	if day == 0 || month == 0 {
		return models.OptFloat{}
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	target := time.Date(now.Year(), month, day, 0, 0, 0, 0, now.Location())
	if target.Before(today) {
		target = target.AddDate(1, 0, 0)
	}
	return models.Float(math.Round(target.Sub(today).Hours() / 24))
}
