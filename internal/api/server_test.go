package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/tender-crawler/internal/service"
	"github.com/JakeFAU/tender-crawler/internal/tender"
)

type fakeService struct {
	limits []int
	out    service.Outcome
	err    error
	panics bool
	delay  time.Duration
}

func (f *fakeService) Crawl(ctx context.Context, limit int) (service.Outcome, error) {
	if f.panics {
		panic("boom")
	}
	f.limits = append(f.limits, limit)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return service.Outcome{}, ctx.Err()
		}
	}
	return f.out, f.err
}

func newTestServer(svc TenderService) *Server {
	return NewServer(svc, Config{DefaultLimit: 100}, zap.NewNop())
}

func serve(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestGetTendersReturnsRecords(t *testing.T) {
	t.Parallel()

	desc := "Поставка стальных труб"
	svc := &fakeService{out: service.Outcome{Records: []tender.Record{
		{Title: "Трубы", Company: "ООО Ромашка", URL: "https://www.b2b-center.ru/market/1/", Description: &desc},
		{Title: "Ремонт", Company: tender.UnspecifiedCompany},
	}}}

	rec := serve(t, newTestServer(svc), "/tenders?max_tenders=2")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []int{2}, svc.limits)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var body struct {
		Success bool             `json:"success"`
		Count   int              `json:"count"`
		Tenders []map[string]any `json:"tenders"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body.Success)
	require.Equal(t, 2, body.Count)
	require.Equal(t, "Трубы", body.Tenders[0]["title"])
	require.Equal(t, desc, body.Tenders[0]["description"])
	require.Nil(t, body.Tenders[1]["category"])
	require.Contains(t, rec.Body.String(), "ООО Ромашка")
}

func TestGetTendersDefaultLimit(t *testing.T) {
	t.Parallel()

	svc := &fakeService{}
	rec := serve(t, newTestServer(svc), "/tenders")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []int{100}, svc.limits)
	require.JSONEq(t, `{"success":true,"count":0,"tenders":[]}`, rec.Body.String())
}

func TestGetTendersInvalidLimit(t *testing.T) {
	t.Parallel()

	svc := &fakeService{}
	rec := serve(t, newTestServer(svc), "/tenders?max_tenders=lots")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "detail")
	require.Empty(t, svc.limits)
}

func TestGetTendersServiceError(t *testing.T) {
	t.Parallel()

	svc := &fakeService{err: errors.New("crawl canceled: context deadline exceeded")}
	rec := serve(t, newTestServer(svc), "/tenders?max_tenders=5")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"detail":"crawl canceled: context deadline exceeded"}`, rec.Body.String())
}

func TestRecoverMiddleware(t *testing.T) {
	t.Parallel()

	rec := serve(t, newTestServer(&fakeService{panics: true}), "/tenders")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "internal server error")
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	rec := serve(t, newTestServer(&fakeService{}), "/healthz")

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeService{})
	serve(t, s, "/healthz")
	rec := serve(t, s, "/metrics")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestRequestIDIsPropagated(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	newTestServer(&fakeService{}).Handler().ServeHTTP(rec, req)

	require.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
}

func TestUnknownRoute(t *testing.T) {
	t.Parallel()

	rec := serve(t, newTestServer(&fakeService{}), "/nope")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetTendersRequestTimeout(t *testing.T) {
	t.Parallel()

	s := NewServer(&fakeService{delay: time.Second}, Config{
		DefaultLimit:   100,
		RequestTimeout: 20 * time.Millisecond,
	}, zap.NewNop())

	rec := serve(t, s, "/tenders")

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "request timed out")
}
