package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"shopeasy/models"
	"shopeasy/notify"
	"shopeasy/scraper"
	"shopeasy/scraper/static"
	"shopeasy/utils"
)

var ErrEmptyQuery = errors.New("empty query")

// RunRecorder persists finished searches.
type RunRecorder interface {
	SaveRun(ctx context.Context, run models.SearchRun) error
}

// SearchObserver is told how each search ended: "ok", "empty" or "error".
type SearchObserver interface {
	ObserveSearch(result string)
}

// SearchConfig bounds a search.
type SearchConfig struct {
	DefaultLimit int
	MaxLimit     int
	MaxPerSource int
}

// SearchRequest is one user query plus its per-request options.
type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
	// Weights override the process weights for this request only.
	Weights      *models.Weights `json:"weights,omitempty"`
	MinPrice     models.OptFloat `json:"min_price"`
	MaxPrice     models.OptFloat `json:"max_price"`
	Threshold    models.OptFloat `json:"threshold"`
	Email        string          `json:"email,omitempty"`
	NotifyReport bool            `json:"send_report"`
	Demo         bool            `json:"demo"`
}

// FallbackLink points at a marketplace's own search page.
type FallbackLink struct {
	Source string `json:"platform"`
	URL    string `json:"url"`
}

// SearchResponse is the ranked outcome of a SearchRequest.
type SearchResponse struct {
	RunID          string                 `json:"run_id"`
	Query          string                 `json:"query"`
	CreatedAt      time.Time              `json:"created_at"`
	TotalFound     int                    `json:"total_found"`
	Count          int                    `json:"count"`
	Results        []models.ScoredListing `json:"top_results"`
	Report         models.Report          `json:"report"`
	Platforms      []models.SourceStats   `json:"platform_comparison"`
	Diagnostics    models.Diagnostics     `json:"diagnostics"`
	Weights        models.Weights         `json:"weights"`
	SampleFallback bool                   `json:"sample_fallback"`
	FallbackLinks  []FallbackLink         `json:"fallback_links,omitempty"`
	ThresholdMet   bool                   `json:"threshold_met"`
	// Listings holds every valid listing behind the results, for export.
	Listings []models.Listing `json:"-"`
}

// SearchService runs the aggregate, score, rank and label pipeline.
type SearchService struct {
	live     *Aggregator
	demo     *Aggregator
	scorer   *Scorer
	cfg      SearchConfig
	runs     RunRecorder
	notifier notify.Notifier
	observer SearchObserver
	logger   *utils.Logger
}

// SearchOption configures optional SearchService collaborators.
type SearchOption func(*SearchService)

func WithRunRecorder(r RunRecorder) SearchOption {
	return func(s *SearchService) { s.runs = r }
}

func WithNotifier(n notify.Notifier) SearchOption {
	return func(s *SearchService) { s.notifier = n }
}

func WithSearchObserver(o SearchObserver) SearchOption {
	return func(s *SearchService) { s.observer = o }
}

// WithDemoAggregator replaces the built-in demo sources.
func WithDemoAggregator(a *Aggregator) SearchOption {
	return func(s *SearchService) { s.demo = a }
}

// NewSearchService creates a SearchService over the live aggregator.
func NewSearchService(live *Aggregator, scorer *Scorer, cfg SearchConfig, logger *utils.Logger, opts ...SearchOption) *SearchService {
	if cfg.DefaultLimit < 1 {
		cfg.DefaultLimit = 10
	}
	if cfg.MaxLimit < cfg.DefaultLimit {
		cfg.MaxLimit = cfg.DefaultLimit
	}
	if cfg.MaxPerSource < 1 {
		cfg.MaxPerSource = 5
	}
	s := &SearchService{live: live, scorer: scorer, cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	if s.demo == nil {
		demo := static.Demo()
		sources := make([]scraper.Source, len(demo))
		for i, d := range demo {
			sources[i] = d
		}
		s.demo = NewAggregator(sources, live.normalizer, AggregatorOptions{}, logger)
	}
	return s
}

// Limit clamps a requested result count to [1, MaxLimit]; 0 means the default.
func (s *SearchService) Limit(requested int) int {
	switch {
	case requested == 0:
		return s.cfg.DefaultLimit
	case requested < 1:
		return 1
	case requested > s.cfg.MaxLimit:
		return s.cfg.MaxLimit
	}
	return requested
}

// Sources lists the live sources.
func (s *SearchService) Sources() []scraper.Source {
	return s.live.Sources()
}

// Search answers req. Partial source failure is never an error; only an
// empty query or a cancelled request is.
func (s *SearchService) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	limit := s.Limit(req.Limit)

	agg := s.live
	if req.Demo {
		agg = s.demo
	}

	s.logger.Info("[search] %q (limit %d, demo %v)", query, limit, req.Demo)
	res := agg.Aggregate(ctx, query, s.cfg.MaxPerSource)
	if err := ctx.Err(); err != nil {
		s.observe("error")
		return nil, fmt.Errorf("search: %w", err)
	}

	listings := FilterByPrice(res.Listings, req.MinPrice, req.MaxPrice)

	weights := s.scorer.Weights()
	if req.Weights != nil && req.Weights.Sum() > 0 {
		weights = req.Weights.Normalized()
	}

	ranked := Rank(s.scorer.ScoreWith(listings, weights))
	labelled := LabelTop(ranked, limit)
	top := labelled[:min(limit, len(labelled))]

	resp := &SearchResponse{
		RunID:       uuid.NewString(),
		Query:       query,
		CreatedAt:   time.Now().UTC(),
		TotalFound:  len(listings),
		Count:       len(top),
		Results:     top,
		Report:      Summarize(listings),
		Platforms:   ComparePlatforms(listings),
		Diagnostics: res.Diagnostics,
		Weights:     weights,
		Listings:    listings,
	}

	if len(top) == 0 {
		resp.SampleFallback = true
		resp.FallbackLinks = fallbackLinks(agg.Sources(), query)
		s.logger.Warn("[search] No valid listings for %q, returning %d direct search links",
			query, len(resp.FallbackLinks))
		s.observe("empty")
	} else {
		s.observe("ok")
	}

	if c := resp.Report.Cheapest; c != nil && req.Threshold.Present() && c.Price <= req.Threshold.Value {
		resp.ThresholdMet = true
	}

	s.record(ctx, resp)
	s.notify(ctx, req, resp)
	return resp, nil
}

func fallbackLinks(sources []scraper.Source, query string) []FallbackLink {
	links := make([]FallbackLink, 0, len(sources))
	for _, src := range sources {
		link := src.BaseURL()
		if l, ok := src.(scraper.SearchLinker); ok {
			link = l.SearchURL(query)
		}
		links = append(links, FallbackLink{Source: src.Name(), URL: link})
	}
	return links
}

func (s *SearchService) record(ctx context.Context, resp *SearchResponse) {
	if s.runs == nil {
		return
	}
	run := models.SearchRun{
		ID:          resp.RunID,
		Query:       resp.Query,
		CreatedAt:   resp.CreatedAt,
		TotalFound:  resp.TotalFound,
		Diagnostics: resp.Diagnostics,
		Results:     resp.Results,
	}
	if err := s.runs.SaveRun(ctx, run); err != nil {
		s.logger.Error("[search] Failed to store run %s: %v", resp.RunID, err)
	}
}

func (s *SearchService) notify(ctx context.Context, req SearchRequest, resp *SearchResponse) {
	if s.notifier == nil {
		return
	}
	base := notify.Event{
		RunID:      resp.RunID,
		Query:      resp.Query,
		Recipient:  req.Email,
		Threshold:  req.Threshold,
		Cheapest:   resp.Report.Cheapest,
		TopResults: resp.Results,
		CreatedAt:  resp.CreatedAt,
	}

	if resp.ThresholdMet {
		e := base
		e.Kind = notify.KindPriceAlert
		if err := s.notifier.Notify(ctx, e); err != nil {
			s.logger.Error("[search] Price alert for %q failed: %v", resp.Query, err)
		}
	}
	if req.NotifyReport {
		e := base
		e.Kind = notify.KindReport
		if err := s.notifier.Notify(ctx, e); err != nil {
			s.logger.Error("[search] Report for %q failed: %v", resp.Query, err)
		}
	}
}

func (s *SearchService) observe(result string) {
	if s.observer != nil {
		s.observer.ObserveSearch(result)
	}
}
