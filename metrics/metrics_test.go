package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopeasy/models"
)

func TestObserveSource(t *testing.T) {
	m := New()
	m.ObserveSource(models.SourceDiagnostic{Source: "amazon", Outcome: models.OutcomeOK, Raw: 5, Accepted: 4, Duration: time.Second})
	m.ObserveSource(models.SourceDiagnostic{Source: "croma", Outcome: models.OutcomeTimeout})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.sourceOutcomes.WithLabelValues("amazon", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sourceOutcomes.WithLabelValues("croma", "timeout")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.listings.WithLabelValues("amazon", "accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.listings.WithLabelValues("amazon", "rejected")))
}

func TestNilRecorderIsSafe(t *testing.T) {
	var m *Recorder
	m.ObserveSource(models.SourceDiagnostic{Source: "x"})
	m.ObserveSearch("ok")

	h := m.WrapHandler("/x", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.ObserveSearch("empty")
	wrapped := m.WrapHandler("/api/health", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	wrapped.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/health", nil))

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `shopeasy_searches_total{result="empty"} 1`)
	assert.Contains(t, string(body), `http_requests_total{route="/api/health",status="204"} 1`)
}
