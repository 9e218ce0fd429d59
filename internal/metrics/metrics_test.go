package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestInitIsIdempotent(t *testing.T) {
	Init()
	first := tenderPagesTotal
	Init()
	require.Same(t, first, tenderPagesTotal)
}

func TestObservePageCountsByOutcome(t *testing.T) {
	Init()
	before := testutil.ToFloat64(tenderPagesTotal.WithLabelValues("network"))
	ObservePage("network")
	ObservePage("network")
	require.Equal(t, before+2, testutil.ToFloat64(tenderPagesTotal.WithLabelValues("network")))
}

func TestObserveRecordsIgnoresNonPositive(t *testing.T) {
	Init()
	before := testutil.ToFloat64(tenderRecordsTotal)
	ObserveRecords(0)
	ObserveRecords(-3)
	ObserveRecords(4)
	require.Equal(t, before+4, testutil.ToFloat64(tenderRecordsTotal))
}

func TestObserveCrawlAndBatch(t *testing.T) {
	ObserveCrawl("end_detected")
	ObserveBatch(150 * time.Millisecond)
	ObserveHTTPRequest(http.MethodGet, "/tenders", http.StatusOK, time.Second)
	ObserveCacheLookup("miss")
	ObserveRateLimitDelay(20 * time.Millisecond)

	require.GreaterOrEqual(t, testutil.ToFloat64(tenderCrawlsTotal.WithLabelValues("end_detected")), float64(1))
	require.GreaterOrEqual(t, testutil.ToFloat64(cacheLookupsTotal.WithLabelValues("miss")), float64(1))
}

func TestHandlerServesCollectors(t *testing.T) {
	ObservePage("ok")
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "tender_pages_total")
}
