package services

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"shopeasy/models"
	"shopeasy/utils"
)

// DefaultTitleMaxLen caps listing titles, counted in characters.
const DefaultTitleMaxLen = 200

// Rejection reasons. The aggregator counts rejected listings by these.
var (
	ErrEmptyTitle      = errors.New("empty title")
	ErrInvalidPrice    = errors.New("invalid price")
	ErrMissingSource   = errors.New("missing source")
	ErrUnresolvableURL = errors.New("unresolvable url")
)

var rejectReasons = []error{ErrEmptyTitle, ErrInvalidPrice, ErrMissingSource, ErrUnresolvableURL}

// RejectReason returns the short reason behind a Normalize error.
func RejectReason(err error) string {
	for _, reason := range rejectReasons {
		if errors.Is(err, reason) {
			return reason.Error()
		}
	}
	return "other"
}

// Normalizer turns RawListings into valid Listings or rejects them.
type Normalizer struct {
	logger      *utils.Logger
	titleMaxLen int
}

// NewNormalizer creates a Normalizer; titleMaxLen <= 0 uses DefaultTitleMaxLen.
func NewNormalizer(logger *utils.Logger, titleMaxLen int) *Normalizer {
	if titleMaxLen <= 0 {
		titleMaxLen = DefaultTitleMaxLen
	}
	return &Normalizer{logger: logger, titleMaxLen: titleMaxLen}
}

// Normalize validates raw. baseURL is the declaring source's home page and
// stands in for a missing or unusable deep link.
func (n *Normalizer) Normalize(raw models.RawListing, baseURL string) (models.Listing, error) {
	title := truncateRunes(normaliseText(raw.Title), n.titleMaxLen)
	if title == "" {
		return models.Listing{}, ErrEmptyTitle
	}

	source := strings.TrimSpace(raw.Source)
	if source == "" {
		return models.Listing{}, ErrMissingSource
	}

	price, err := n.price(raw)
	if err != nil {
		return models.Listing{}, err
	}

	link, ok := resolveURL(raw.URL, baseURL)
	if !ok {
		return models.Listing{}, fmt.Errorf("%w: %q", ErrUnresolvableURL, raw.URL)
	}

	return models.Listing{
		Title:        title,
		Price:        price,
		Source:       source,
		URL:          link,
		Rating:       rating(raw.Rating),
		Reviews:      reviews(raw.Reviews),
		DeliveryDays: delivery(raw.DeliveryDays),
		ReturnPolicy: ReturnPolicyScore(raw.ReturnPolicy),
		ScrapedAt:    raw.ScrapedAt,
	}, nil
}

// NormalizeAll runs Normalize over a source's batch and counts rejections by reason.
func (n *Normalizer) NormalizeAll(raw []models.RawListing, baseURL string) ([]models.Listing, map[string]int) {
	result := make([]models.Listing, 0, len(raw))
	rejected := make(map[string]int)

	for _, r := range raw {
		l, err := n.Normalize(r, baseURL)
		if err != nil {
			rejected[RejectReason(err)]++
			n.logger.Debug("[normalizer] Dropping %q from %s: %v", r.Title, r.Source, err)
			continue
		}
		result = append(result, l)
	}

	n.logger.Debug("[normalizer] Normalized %d → %d listings (dropped %d)",
		len(raw), len(result), len(raw)-len(result))
	return result, rejected
}

func (n *Normalizer) price(raw models.RawListing) (float64, error) {
	if raw.Price.Valid {
		if !raw.Price.Present() || raw.Price.Value <= 0 {
			return 0, fmt.Errorf("%w: %v", ErrInvalidPrice, raw.Price.Value)
		}
		return raw.Price.Value, nil
	}

	p := ParsePrice(raw.RawPrice)
	if p <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, raw.RawPrice)
	}
	return p, nil
}

// ParsePrice reads a price out of free text such as "₹1,999.00". Everything
// but digits and dots is dropped; when several dots remain only the last is
// the decimal point. Unparseable or non-positive text yields 0.
func ParsePrice(text string) float64 {
	var b strings.Builder
	for _, r := range text {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()

	if strings.Count(cleaned, ".") > 1 {
		last := strings.LastIndex(cleaned, ".")
		cleaned = strings.ReplaceAll(cleaned[:last], ".", "") + cleaned[last:]
	}

	p, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || p <= 0 {
		return 0
	}
	return p
}

// ReturnPolicyScore maps a 0-1 or 0-10 value into [0,1]. Values above 1 are
// read as tenths; exactly 1 is already normalised.
func ReturnPolicyScore(v models.OptFloat) models.OptFloat {
	if !v.Present() {
		return models.OptFloat{}
	}
	s := v.Value
	if s > 1 {
		s /= 10
	}
	return models.Float(clip01(s))
}

func rating(v models.OptFloat) models.OptFloat {
	if !v.Present() || v.Value < 0 || v.Value > 5 {
		return models.OptFloat{}
	}
	return v
}

func reviews(v models.OptInt) models.OptInt {
	if !v.Valid || v.Value < 0 {
		return models.OptInt{}
	}
	return v
}

func delivery(v models.OptFloat) models.OptFloat {
	if !v.Present() || v.Value < 0 {
		return models.OptFloat{}
	}
	return v
}

// resolveURL makes raw absolute against base, falling back to base itself.
func resolveURL(raw, base string) (string, bool) {
	base = strings.TrimSpace(base)
	baseURL, baseErr := url.Parse(base)
	baseOK := baseErr == nil && isAbsoluteHTTP(baseURL)

	raw = strings.TrimSpace(raw)
	if raw != "" {
		if u, err := url.Parse(raw); err == nil {
			if isAbsoluteHTTP(u) {
				return u.String(), true
			}
			if baseOK && u.Scheme == "" {
				if resolved := baseURL.ResolveReference(u); isAbsoluteHTTP(resolved) {
					return resolved.String(), true
				}
			}
		}
	}

	if baseOK {
		return baseURL.String(), true
	}
	return "", false
}

func isAbsoluteHTTP(u *url.URL) bool {
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	fields := strings.FieldsFunc(s, unicode.IsSpace)
	return strings.Join(fields, " ")
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return strings.TrimSpace(string(r[:max]))
}

func clip01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
