package api

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopeasy/metrics"
	"shopeasy/models"
	"shopeasy/scraper"
	"shopeasy/scraper/static"
	"shopeasy/services"
	"shopeasy/utils"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	logger := utils.Discard()
	sources := []scraper.Source{
		static.New("amazon", "https://www.amazon.in", []models.RawListing{
			{Title: "{query} one", RawPrice: "₹999", URL: "/1", Rating: models.Float(4.4)},
			{Title: "{query} two", RawPrice: "₹1,299", URL: "/2"},
		}),
		static.New("ebay", "https://www.ebay.com", []models.RawListing{
			{Title: "{query} three", RawPrice: "$15.50", URL: "/3"},
		}),
	}
	agg := services.NewAggregator(sources, services.NewNormalizer(logger, 0), services.AggregatorOptions{}, logger)
	search := services.NewSearchService(agg, services.NewScorer(models.DefaultWeights(), 30),
		services.SearchConfig{DefaultLimit: 10, MaxLimit: 20, MaxPerSource: 5}, logger)
	return NewRouter(search, metrics.New(), logger)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
}

func TestSearchGET(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search?q=lamp&max=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "lamp", body["query"])
	assert.Equal(t, 3.0, body["total_found"])
	assert.Equal(t, 2.0, body["count"])

	results := body["top_results"].([]any)
	require.Len(t, results, 2)
	first := results[0].(map[string]any)
	assert.Contains(t, first, "final_score")
	assert.Contains(t, first, "breakdown")
	assert.Contains(t, first, "platform")
}

func TestSearchGETMissingQuery(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search?q=++", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing search query", decode(t, rec)["error"])
}

func TestSearchPOST(t *testing.T) {
	payload := []byte(`{"q": "lamp", "max": 1, "weights": {"price": 1}, "threshold": 20}`)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/search", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	newTestServer(t).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	results := body["top_results"].([]any)
	require.Len(t, results, 1)
	assert.Equal(t, 15.5, results[0].(map[string]any)["price"])
	assert.Equal(t, true, body["threshold_met"])
}

func TestSearchPOSTInvalidJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(t).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/search", bytes.NewReader([]byte("{"))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchDemo(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search?q=phone&demo=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 4.0, decode(t, rec)["total_found"])
}

func TestAbsentRatingEncodesAsNull(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search?q=lamp", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	for _, r := range decode(t, rec)["top_results"].([]any) {
		m := r.(map[string]any)
		if m["platform"] == "ebay" {
			assert.Nil(t, m["rating"])
			assert.Contains(t, m, "rating")
		}
	}
}

func TestSourcesAndMetrics(t *testing.T) {
	h := newTestServer(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sources", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["sources"].([]any), 2)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestNewHandlerLogsAccess(t *testing.T) {
	var access bytes.Buffer
	logger := utils.Discard()
	agg := services.NewAggregator(nil, services.NewNormalizer(logger, 0), services.AggregatorOptions{}, logger)
	search := services.NewSearchService(agg, services.NewScorer(models.DefaultWeights(), 30), services.SearchConfig{}, logger)

	h := NewHandler(search, metrics.New(), logger, &access)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, access.String(), "GET /api/health")
}

func TestSearchPOSTBodyTooLarge(t *testing.T) {
	payload := `{"q": "` + strings.Repeat("a", maxBodyBytes) + `"}`
	rec := httptest.NewRecorder()
	newTestServer(t).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(payload)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestWriteJSONEncodeFailureIs500(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, map[string]float64{"price": math.Inf(1)})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "failed to encode response", decode(t, rec)["error"])
}

func TestSearchHugePricesEncode(t *testing.T) {
	logger := utils.Discard()
	huge := "₹1" + strings.Repeat("0", 307)
	src := static.New("amazon", "https://www.amazon.in", []models.RawListing{
		{Title: "{query} gold", RawPrice: huge, URL: "/g"},
		{Title: "{query} platinum", RawPrice: "₹1" + strings.Repeat("0", 307) + ".50", URL: "/p"},
	})
	agg := services.NewAggregator([]scraper.Source{src}, services.NewNormalizer(logger, 0), services.AggregatorOptions{}, logger)
	search := services.NewSearchService(agg, services.NewScorer(models.DefaultWeights(), 30),
		services.SearchConfig{DefaultLimit: 10, MaxLimit: 20, MaxPerSource: 5}, logger)

	rec := httptest.NewRecorder()
	NewRouter(search, metrics.New(), logger).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search?q=bar", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2.0, decode(t, rec)["total_found"])
}
