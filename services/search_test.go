package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopeasy/models"
	"shopeasy/notify"
	"shopeasy/scraper"
	"shopeasy/scraper/static"
)

type memoryRuns struct {
	runs []models.SearchRun
	err  error
}

func (m *memoryRuns) SaveRun(_ context.Context, run models.SearchRun) error {
	m.runs = append(m.runs, run)
	return m.err
}

type recordingNotifier struct {
	events []notify.Event
}

func (r *recordingNotifier) Notify(_ context.Context, e notify.Event) error {
	r.events = append(r.events, e)
	return errors.New("smtp down")
}

type countingObserver struct{ results []string }

func (c *countingObserver) ObserveSearch(result string) { c.results = append(c.results, result) }

func shopSources() []scraper.Source {
	return []scraper.Source{
		static.New("amazon", "https://www.amazon.in", []models.RawListing{
			{Title: "{query} A", RawPrice: "₹1,500", URL: "/a", Rating: models.Float(4.5), Reviews: models.Int(900)},
			{Title: "{query} B", RawPrice: "₹1,100", URL: "/b", Rating: models.Float(3.9), Reviews: models.Int(50)},
		}),
		static.New("flipkart", "https://www.flipkart.com", []models.RawListing{
			{Title: "{query} C", RawPrice: "₹1,300", URL: "/c", DeliveryDays: models.Float(1)},
		}),
		static.New("croma", "https://www.croma.com", nil, static.WithError(errors.New("captcha"))),
	}
}

func newTestSearch(sources []scraper.Source, opts ...SearchOption) *SearchService {
	agg := newTestAggregator(sources, AggregatorOptions{Timeout: time.Second})
	return NewSearchService(agg, NewScorer(models.DefaultWeights(), 30),
		SearchConfig{DefaultLimit: 10, MaxLimit: 20, MaxPerSource: 5}, newTestLogger(), opts...)
}

func TestSearchEmptyQuery(t *testing.T) {
	s := newTestSearch(shopSources())
	_, err := s.Search(context.Background(), SearchRequest{Query: "   "})
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestSearchRanksAndLabels(t *testing.T) {
	runs := &memoryRuns{}
	obs := &countingObserver{}
	s := newTestSearch(shopSources(), WithRunRecorder(runs), WithSearchObserver(obs))

	resp, err := s.Search(context.Background(), SearchRequest{Query: " kettle "})
	require.NoError(t, err)

	assert.Equal(t, "kettle", resp.Query)
	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, 3, resp.TotalFound)
	assert.Equal(t, 3, resp.Count)
	assert.False(t, resp.SampleFallback)

	for i := 1; i < len(resp.Results); i++ {
		assert.GreaterOrEqual(t, resp.Results[i-1].Score, resp.Results[i].Score)
	}
	assert.True(t, resp.Results[0].HasLabel(models.LabelBestValue))

	croma, ok := resp.Diagnostics.Find("croma")
	require.True(t, ok)
	assert.Equal(t, models.OutcomeFailed, croma.Outcome)

	require.Len(t, runs.runs, 1)
	assert.Equal(t, resp.RunID, runs.runs[0].ID)
	assert.Equal(t, []string{"ok"}, obs.results)
}

func TestSearchLimitClamping(t *testing.T) {
	s := newTestSearch(shopSources())
	assert.Equal(t, 10, s.Limit(0))
	assert.Equal(t, 1, s.Limit(-3))
	assert.Equal(t, 20, s.Limit(500))
	assert.Equal(t, 7, s.Limit(7))

	resp, err := s.Search(context.Background(), SearchRequest{Query: "kettle", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 1)
	assert.Equal(t, 3, resp.TotalFound)
}

func TestSearchWeightOverride(t *testing.T) {
	s := newTestSearch(shopSources())
	priceOnly := models.Weights{Price: 1}

	resp, err := s.Search(context.Background(), SearchRequest{Query: "kettle", Weights: &priceOnly})
	require.NoError(t, err)
	assert.Equal(t, 1100.0, resp.Results[0].Price)
	assert.Equal(t, 1.0, resp.Weights.Price)

	zero := models.Weights{}
	resp, err = s.Search(context.Background(), SearchRequest{Query: "kettle", Weights: &zero})
	require.NoError(t, err)
	assert.Equal(t, s.scorer.Weights(), resp.Weights, "zero override falls back to process weights")
}

func TestSearchPriceFilter(t *testing.T) {
	s := newTestSearch(shopSources())
	resp, err := s.Search(context.Background(), SearchRequest{Query: "kettle", MaxPrice: models.Float(1200)})
	require.NoError(t, err)
	require.Equal(t, 1, resp.TotalFound)
	assert.Equal(t, 1100.0, resp.Results[0].Price)
}

func TestSearchFallbackLinksWhenNothingFound(t *testing.T) {
	obs := &countingObserver{}
	s := newTestSearch([]scraper.Source{
		static.New("amazon", "https://www.amazon.in", nil, static.WithError(errors.New("blocked"))),
		static.New("ebay", "https://www.ebay.com", nil),
	}, WithSearchObserver(obs))

	resp, err := s.Search(context.Background(), SearchRequest{Query: "red shoes"})
	require.NoError(t, err)
	assert.True(t, resp.SampleFallback)
	assert.Empty(t, resp.Results)
	assert.True(t, resp.Report.Empty)
	require.Len(t, resp.FallbackLinks, 2)
	assert.Equal(t, "https://www.amazon.in/search?q=red+shoes", resp.FallbackLinks[0].URL)
	assert.Equal(t, []string{"empty"}, obs.results)
}

func TestSearchThresholdAlertAndReport(t *testing.T) {
	n := &recordingNotifier{}
	runs := &memoryRuns{err: errors.New("disk full")}
	s := newTestSearch(shopSources(), WithNotifier(n), WithRunRecorder(runs))

	resp, err := s.Search(context.Background(), SearchRequest{
		Query:        "kettle",
		Threshold:    models.Float(1200),
		Email:        "me@example.com",
		NotifyReport: true,
	})
	require.NoError(t, err, "notifier and storage failures must not fail the search")
	assert.True(t, resp.ThresholdMet)

	require.Len(t, n.events, 2)
	assert.Equal(t, notify.KindPriceAlert, n.events[0].Kind)
	assert.Equal(t, 1100.0, n.events[0].Cheapest.Price)
	assert.Equal(t, notify.KindReport, n.events[1].Kind)
	assert.Equal(t, "me@example.com", n.events[1].Recipient)
}

func TestSearchThresholdNotMet(t *testing.T) {
	n := &recordingNotifier{}
	s := newTestSearch(shopSources(), WithNotifier(n))
	resp, err := s.Search(context.Background(), SearchRequest{Query: "kettle", Threshold: models.Float(500)})
	require.NoError(t, err)
	assert.False(t, resp.ThresholdMet)
	assert.Empty(t, n.events)
}

func TestSearchDemoMode(t *testing.T) {
	s := newTestSearch(nil)
	resp, err := s.Search(context.Background(), SearchRequest{Query: "headphones", Demo: true})
	require.NoError(t, err)
	assert.Equal(t, 4, resp.TotalFound)
	assert.Contains(t, resp.Results[0].Title, "headphones")
}

func TestSearchCancelled(t *testing.T) {
	s := newTestSearch([]scraper.Source{
		static.New("slow", "https://slow.example", nil, static.WithDelay(time.Second)),
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Search(ctx, SearchRequest{Query: "kettle"})
	assert.ErrorIs(t, err, context.Canceled)
}
