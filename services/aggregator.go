package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"shopeasy/models"
	"shopeasy/scraper"
	"shopeasy/utils"
)

// DefaultSourceTimeout bounds one adapter call when the source declares none.
const DefaultSourceTimeout = 45 * time.Second

// SourceObserver is told about every finished adapter task.
type SourceObserver interface {
	ObserveSource(d models.SourceDiagnostic)
}

// AggregatorOptions tunes an Aggregator. Zero values are usable.
type AggregatorOptions struct {
	Timeout  time.Duration
	Gate     *utils.RateGate
	Observer SourceObserver
}

// AggregateResult is the merged, unordered set of valid listings plus what
// happened to each source.
type AggregateResult struct {
	Listings    []models.Listing
	Diagnostics models.Diagnostics
}

// Aggregator fans a query out to every source and merges what comes back.
type Aggregator struct {
	sources    []scraper.Source
	normalizer *Normalizer
	timeout    time.Duration
	gate       *utils.RateGate
	observer   SourceObserver
	logger     *utils.Logger
}

// NewAggregator creates an Aggregator over sources.
func NewAggregator(sources []scraper.Source, normalizer *Normalizer, opts AggregatorOptions, logger *utils.Logger) *Aggregator {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultSourceTimeout
	}
	return &Aggregator{
		sources:    sources,
		normalizer: normalizer,
		timeout:    opts.Timeout,
		gate:       opts.Gate,
		observer:   opts.Observer,
		logger:     logger,
	}
}

// Sources returns the configured sources.
func (a *Aggregator) Sources() []scraper.Source {
	return a.sources
}

type sourceOutcome struct {
	listings   []models.Listing
	diagnostic models.SourceDiagnostic
}

// Aggregate runs every source concurrently, each under its own timeout, and
// waits for all of them. A failing or slow source only costs its own
// listings. An empty result with every source failed is still a result.
func (a *Aggregator) Aggregate(ctx context.Context, query string, maxPerSource int) AggregateResult {
	outcomes := make([]sourceOutcome, len(a.sources))

	var wg sync.WaitGroup
	for i, src := range a.sources {
		wg.Add(1)
		go func(i int, src scraper.Source) {
			defer wg.Done()
			outcomes[i] = a.runSource(ctx, src, query, maxPerSource)
		}(i, src)
	}
	wg.Wait()

	result := AggregateResult{
		Listings:    []models.Listing{},
		Diagnostics: models.Diagnostics{Sources: make([]models.SourceDiagnostic, 0, len(outcomes))},
	}
	for _, o := range outcomes {
		result.Listings = append(result.Listings, o.listings...)
		result.Diagnostics.Sources = append(result.Diagnostics.Sources, o.diagnostic)
	}

	if result.Diagnostics.AllFailed() {
		a.logger.Warn("[aggregator] All %d sources failed for %q", len(a.sources), query)
	}
	a.logger.Info("[aggregator] %q: %d valid listings from %d/%d sources",
		query, len(result.Listings), result.Diagnostics.Succeeded(), len(a.sources))
	return result
}

type searchResult struct {
	raw []models.RawListing
	err error
}

func (a *Aggregator) runSource(ctx context.Context, src scraper.Source, query string, maxPerSource int) sourceOutcome {
	start := time.Now()
	name := src.Name()

	timeout := a.timeout
	if ts, ok := src.(scraper.TimeoutSource); ok && ts.Timeout() > 0 {
		timeout = ts.Timeout()
	}

	taskCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan searchResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- searchResult{err: fmt.Errorf("adapter panic: %v", r)}
			}
		}()
		if err := a.gate.Wait(taskCtx, name); err != nil {
			done <- searchResult{err: err}
			return
		}
		raw, err := src.Search(taskCtx, query, maxPerSource)
		done <- searchResult{raw: raw, err: err}
	}()

	var res searchResult
	select {
	case res = <-done:
	case <-taskCtx.Done():
		res = searchResult{err: taskCtx.Err()}
	}

	diag := models.SourceDiagnostic{Source: name, Outcome: models.OutcomeOK}
	var listings []models.Listing

	switch {
	case res.err == nil:
		raw := res.raw
		if maxPerSource > 0 && len(raw) > maxPerSource {
			raw = raw[:maxPerSource]
		}
		var rejected map[string]int
		listings, rejected = a.normalizer.NormalizeAll(raw, src.BaseURL())
		diag.Raw = len(raw)
		diag.Accepted = len(listings)
		if len(rejected) > 0 {
			diag.Rejected = rejected
		}
		a.logger.Info("[source:%s] %d raw → %d valid listings", name, diag.Raw, diag.Accepted)
	case ctx.Err() != nil:
		diag.Outcome = models.OutcomeCancelled
		diag.Error = ctx.Err().Error()
		a.logger.Warn("[source:%s] cancelled: %v", name, ctx.Err())
	case errors.Is(res.err, context.DeadlineExceeded):
		diag.Outcome = models.OutcomeTimeout
		diag.Error = fmt.Sprintf("timed out after %s", timeout)
		a.logger.Warn("[source:%s] timed out after %s", name, timeout)
	default:
		diag.Outcome = models.OutcomeFailed
		diag.Error = res.err.Error()
		a.logger.Error("[source:%s] failed: %v", name, res.err)
	}

	diag.Duration = time.Since(start)
	if a.observer != nil {
		a.observer.ObserveSource(diag)
	}
	return sourceOutcome{listings: listings, diagnostic: diag}
}
