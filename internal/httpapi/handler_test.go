package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lotterylab/lotterylab/internal/domain/draw"
	"github.com/lotterylab/lotterylab/internal/services/analysis"
	"github.com/lotterylab/lotterylab/internal/services/draws"
	"github.com/lotterylab/lotterylab/internal/services/export"
	"github.com/lotterylab/lotterylab/internal/services/generator"
	"github.com/lotterylab/lotterylab/internal/storage/memory"
)

func newTestHandler(t *testing.T, drawCount int) *Handler {
	t.Helper()
	store := memory.New()
	// Recent dates keep the draws inside the default trailing-year window.
	date := draw.Today().AddDays(-3 * drawCount)
	for i := 0; i < drawCount; i++ {
		numbers := make([]int, 0, draw.PerDraw)
		for j := 0; j < draw.PerDraw; j++ {
			numbers = append(numbers, (i*draw.PerDraw+j)%49+1)
		}
		_, err := store.InsertDraw(context.Background(), draw.Draw{
			DrawNumber: i + 1,
			DrawDate:   date.AddDays(i * 3),
			GameType:   "lotto",
			Numbers:    numbers,
		})
		require.NoError(t, err)
	}

	analysisSvc := analysis.New(store, nil)
	services := Services{
		Draws:     draws.New(store, store, nil),
		Analysis:  analysisSvc,
		Generator: generator.New(analysisSvc, rand.New(rand.NewSource(1)), nil),
		Export:    export.New(store, analysisSvc, nil),
	}
	return New(services, Options{Version: "test"}, nil)
}

func doRequest(h *Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(""))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t, 0)
	rec := doRequest(h, http.MethodGet, "/api/v1/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, "test", resp["version"])
	assert.Equal(t, "ok", resp["database"])
}

func TestHealthReportsUnreachableDatabase(t *testing.T) {
	store := memory.New()
	analysisSvc := analysis.New(store, nil)
	services := Services{
		Draws:     draws.New(store, store, nil),
		Analysis:  analysisSvc,
		Generator: generator.New(analysisSvc, rand.New(rand.NewSource(1)), nil),
		Export:    export.New(store, analysisSvc, nil),
	}
	h := New(services, Options{
		DBCheck: func(context.Context) error { return errors.New("connection refused") },
	}, nil)

	rec := doRequest(h, http.MethodGet, "/api/v1/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp["status"])
	assert.Equal(t, "unreachable", resp["database"])
}

func TestListDraws(t *testing.T) {
	h := newTestHandler(t, 25)
	rec := doRequest(h, http.MethodGet, "/api/v1/draws?limit=10")
	require.Equal(t, http.StatusOK, rec.Code)

	var page draws.Page
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 25, page.Total)
	assert.Len(t, page.Draws, 10)
	assert.Equal(t, 25, page.Draws[0].DrawNumber)
}

func TestListDrawsBadDate(t *testing.T) {
	h := newTestHandler(t, 5)
	rec := doRequest(h, http.MethodGet, "/api/v1/draws?date_from=garbage")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetDraw(t *testing.T) {
	h := newTestHandler(t, 5)

	rec := doRequest(h, http.MethodGet, "/api/v1/draws/3")
	require.Equal(t, http.StatusOK, rec.Code)
	var d draw.Draw
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.Equal(t, 3, d.DrawNumber)

	rec = doRequest(h, http.MethodGet, "/api/v1/draws/999")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLatestDraws(t *testing.T) {
	h := newTestHandler(t, 15)
	rec := doRequest(h, http.MethodGet, "/api/v1/draws/latest?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Draws []draw.Draw `json:"draws"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Len(t, payload.Draws, 5)
	assert.Equal(t, 15, payload.Draws[0].DrawNumber)
}

func TestFrequency(t *testing.T) {
	h := newTestHandler(t, 30)
	rec := doRequest(h, http.MethodGet, "/api/v1/analysis/frequency?game_type=lotto")
	require.Equal(t, http.StatusOK, rec.Code)

	var result analysis.FrequencyResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 30, result.TotalDraws)
	assert.Len(t, result.Numbers, 49)
}

func TestFrequencyNoData(t *testing.T) {
	h := newTestHandler(t, 0)
	rec := doRequest(h, http.MethodGet, "/api/v1/analysis/frequency")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRandomnessNeedsHistory(t *testing.T) {
	h := newTestHandler(t, 5)
	rec := doRequest(h, http.MethodGet, "/api/v1/analysis/randomness")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	h = newTestHandler(t, 50)
	rec = doRequest(h, http.MethodGet, "/api/v1/analysis/randomness")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTrendsBadPeriod(t *testing.T) {
	h := newTestHandler(t, 30)
	rec := doRequest(h, http.MethodGet, "/api/v1/analysis/trends?period=decade")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTrendsDefaultPeriod(t *testing.T) {
	h := newTestHandler(t, 30)
	rec := doRequest(h, http.MethodGet, "/api/v1/analysis/trends")
	require.Equal(t, http.StatusOK, rec.Code)

	var result analysis.TrendsResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, analysis.PeriodMonth, result.Period)
}

func TestTrendChart(t *testing.T) {
	h := newTestHandler(t, 30)
	rec := doRequest(h, http.MethodGet, "/api/v1/analysis/trends/chart?numbers=7,8")
	require.Equal(t, http.StatusOK, rec.Code)

	var result analysis.TrendChartResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Len(t, result.Series, 2)
	assert.Equal(t, 7, result.Series[0].Number)
}

func TestTrendChartBadNumbers(t *testing.T) {
	h := newTestHandler(t, 30)
	rec := doRequest(h, http.MethodGet, "/api/v1/analysis/trends/chart?numbers=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(h, http.MethodGet, "/api/v1/analysis/trends/chart?numbers=99")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerate(t *testing.T) {
	h := newTestHandler(t, 30)
	rec := doRequest(h, http.MethodGet, "/api/v1/generator?game_type=lotto&count=3")
	require.Equal(t, http.StatusOK, rec.Code)

	var result generator.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Len(t, result.Tickets, 3)
	assert.Len(t, result.Tickets[0].Numbers, draw.PerDraw)
	assert.Len(t, result.Hot, 6)
}

func TestGenerateTooManyTickets(t *testing.T) {
	h := newTestHandler(t, 30)
	rec := doRequest(h, http.MethodGet, "/api/v1/generator?count=100")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportCSV(t *testing.T) {
	h := newTestHandler(t, 30)
	rec := doRequest(h, http.MethodGet, "/api/v1/export/report?format=csv&game_type=lotto")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "lottery_report_lotto_")
	assert.Contains(t, rec.Body.String(), "total_draws,30")
}

func TestExportSectionToggles(t *testing.T) {
	h := newTestHandler(t, 30)
	rec := doRequest(h, http.MethodGet,
		"/api/v1/export/report?format=json&include_randomness=false&include_patterns=false&include_draws=false")
	require.Equal(t, http.StatusOK, rec.Code)

	var report export.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.NotNil(t, report.Frequency)
	assert.Nil(t, report.Randomness)
	assert.Nil(t, report.Patterns)
	assert.Empty(t, report.Latest)
}

func TestExportBadFormat(t *testing.T) {
	h := newTestHandler(t, 30)
	rec := doRequest(h, http.MethodGet, "/api/v1/export/report?format=pdf")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTriggerUpdateWithoutFeed(t *testing.T) {
	h := newTestHandler(t, 0)
	rec := doRequest(h, http.MethodPost, "/api/v1/ingestion/update")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestImportRunsEmpty(t *testing.T) {
	h := newTestHandler(t, 0)
	rec := doRequest(h, http.MethodGet, "/api/v1/ingestion/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"runs":[]}`, rec.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	h := newTestHandler(t, 0)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/health", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	store := memory.New()
	analysisSvc := analysis.New(store, nil)
	services := Services{
		Draws:     draws.New(store, store, nil),
		Analysis:  analysisSvc,
		Generator: generator.New(analysisSvc, rand.New(rand.NewSource(1)), nil),
		Export:    export.New(store, analysisSvc, nil),
	}
	h := New(services, Options{RateLimitPerSecond: 1, RateLimitBurst: 2}, nil)

	assert.Equal(t, http.StatusOK, doRequest(h, http.MethodGet, "/api/v1/health").Code)
	assert.Equal(t, http.StatusOK, doRequest(h, http.MethodGet, "/api/v1/health").Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(h, http.MethodGet, "/api/v1/health").Code)
}
