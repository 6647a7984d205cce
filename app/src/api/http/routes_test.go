package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"obruk-backend/app/src/domain"
	"obruk-backend/app/src/infra"
)

type stubService struct {
	ingestResult domain.IngestResult
	ingestErr    error
	page         domain.Page
	pageErr      error
	latest       domain.Measurement
	latestErr    error
	stats        domain.Stats
	statsErr     error
	forecast     domain.Forecast
	forecastErr  error
	bulkReport   domain.BulkReport
	bulkErr      error
	health       domain.HealthReport

	lastPage  int
	lastLimit int
}

func (s *stubService) Ingest(ctx context.Context, payload map[string]any) (domain.IngestResult, error) {
	return s.ingestResult, s.ingestErr
}

func (s *stubService) List(ctx context.Context, page, limit int) (domain.Page, error) {
	s.lastPage, s.lastLimit = page, limit
	return s.page, s.pageErr
}

func (s *stubService) Latest(ctx context.Context) (domain.Measurement, error) {
	return s.latest, s.latestErr
}

func (s *stubService) Stats(ctx context.Context) (domain.Stats, error) {
	return s.stats, s.statsErr
}

func (s *stubService) Forecast(ctx context.Context) (domain.Forecast, error) {
	return s.forecast, s.forecastErr
}

func (s *stubService) BulkIngest(ctx context.Context, r io.Reader) (domain.BulkReport, error) {
	return s.bulkReport, s.bulkErr
}

func (s *stubService) Health(ctx context.Context) domain.HealthReport {
	return s.health
}

func (s *stubService) StartTraining(ctx context.Context) (json.RawMessage, error) {
	return json.RawMessage(`{"success":true}`), nil
}

func (s *stubService) TrainingStatus(ctx context.Context) (json.RawMessage, error) {
	return json.RawMessage(`{"running":false}`), nil
}

func testConfig() infra.Config {
	return infra.Config{
		CORSOrigins:        []string{"*"},
		RateLimitPerMinute: 100000,
		RateLimitBurst:     100000,
	}
}

func newTestServer(service *stubService) *Server {
	return NewServer(service, testConfig(), nil)
}

func doRequest(t *testing.T, server *Server, method, target string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

func TestPostDataCreated(t *testing.T) {
	service := &stubService{ingestResult: domain.IngestResult{
		Measurement: domain.Measurement{ID: 1, TDS: 450, Temperature: 21.5, Moisture: 300, Timestamp: time.Now().UTC()},
		Prediction: &domain.Forecast{
			Predictions:  []domain.ForecastPoint{{TDS: 460}},
			AnomalyScore: 0.1,
			Mode:         "demo",
		},
	}}
	server := newTestServer(service)

	rec := doRequest(t, server, http.MethodPost, "/data", strings.NewReader(`{"tds":450,"temperature":21.5,"moisture":300}`))

	assert.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.NotNil(t, body["measurement"])
	assert.NotNil(t, body["aiPrediction"])
	_, hasAIError := body["aiError"]
	assert.False(t, hasAIError)
}

func TestPostDataAlias(t *testing.T) {
	service := &stubService{}
	server := newTestServer(service)

	rec := doRequest(t, server, http.MethodPost, "/api/data", strings.NewReader(`{"tds":450,"temperature":21.5,"moisture":300}`))

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestPostDataDegradedPrediction(t *testing.T) {
	service := &stubService{ingestResult: domain.IngestResult{
		Measurement:     domain.Measurement{ID: 1},
		PredictionError: "prediction service unavailable: connection refused",
	}}
	server := newTestServer(service)

	rec := doRequest(t, server, http.MethodPost, "/data", strings.NewReader(`{"tds":1,"temperature":1,"moisture":1}`))

	assert.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Contains(t, body["aiError"], "prediction service unavailable")
	_, hasPrediction := body["aiPrediction"]
	assert.False(t, hasPrediction)
}

func TestPostDataValidationFailure(t *testing.T) {
	verr := &domain.ValidationError{}
	verr.Add("tds", "is required")
	verr.Add("moisture", "must be between 0 and 1000")
	service := &stubService{ingestErr: verr}
	server := newTestServer(service)

	rec := doRequest(t, server, http.MethodPost, "/data", strings.NewReader(`{}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
	errorsField, ok := body["errors"].([]any)
	require.True(t, ok)
	assert.Len(t, errorsField, 2)
}

func TestPostDataMalformedBody(t *testing.T) {
	server := newTestServer(&stubService{})

	rec := doRequest(t, server, http.MethodPost, "/data", strings.NewReader(`not json`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
}

func TestPostDataStorageFailure(t *testing.T) {
	service := &stubService{ingestErr: domain.ErrStorage}
	server := newTestServer(service)

	rec := doRequest(t, server, http.MethodPost, "/data", strings.NewReader(`{"tds":1,"temperature":1,"moisture":1}`))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "internal server error", body["message"])
}

func TestGetDataPassesQueryParams(t *testing.T) {
	service := &stubService{page: domain.Page{
		Page: 2, Limit: 5, Total: 12, TotalPages: 3,
		Items: []domain.Measurement{{ID: 6}},
	}}
	server := newTestServer(service)

	rec := doRequest(t, server, http.MethodGet, "/data?page=2&limit=5", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, service.lastPage)
	assert.Equal(t, 5, service.lastLimit)

	body := decodeBody(t, rec)
	assert.Equal(t, float64(2), body["page"])
	assert.Equal(t, float64(5), body["limit"])
	assert.Equal(t, float64(12), body["total"])
	assert.Equal(t, float64(3), body["totalPages"])
}

func TestGetDataDefaults(t *testing.T) {
	service := &stubService{page: domain.Page{Page: 1, Limit: 20, TotalPages: 1, Items: []domain.Measurement{}}}
	server := newTestServer(service)

	rec := doRequest(t, server, http.MethodGet, "/data", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, service.lastPage)
	assert.Equal(t, 0, service.lastLimit)
}

func TestGetDataIgnoresGarbageParams(t *testing.T) {
	service := &stubService{page: domain.Page{Page: 1, Limit: 20, TotalPages: 1, Items: []domain.Measurement{}}}
	server := newTestServer(service)

	rec := doRequest(t, server, http.MethodGet, "/data?page=abc&limit=xyz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, service.lastPage)
	assert.Equal(t, 0, service.lastLimit)
}

func TestGetLatest(t *testing.T) {
	service := &stubService{latest: domain.Measurement{ID: 7, TDS: 450}}
	server := newTestServer(service)

	rec := doRequest(t, server, http.MethodGet, "/data/latest", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(7), data["id"])
}

func TestGetLatestEmptyStore(t *testing.T) {
	service := &stubService{latestErr: domain.ErrNoData}
	server := newTestServer(service)

	rec := doRequest(t, server, http.MethodGet, "/data/latest", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["message"])
}

func TestGetStats(t *testing.T) {
	min, max, avg := 100.0, 300.0, 200.0
	service := &stubService{stats: domain.Stats{
		Count: 3,
		TDS:   domain.MetricStats{Min: &min, Max: &max, Avg: &avg},
	}}
	server := newTestServer(service)

	rec := doRequest(t, server, http.MethodGet, "/data/stats", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(3), data["count"])
}

func TestPostBulk(t *testing.T) {
	service := &stubService{bulkReport: domain.BulkReport{Rows: 3, Accepted: 2, Dropped: 1}}
	server := newTestServer(service)

	rec := doRequest(t, server, http.MethodPost, "/data/bulk", strings.NewReader("tds,temperature,moisture\n1,2,3\n"))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	report, ok := body["report"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(2), report["accepted"])
}

func TestPostBulkUnsupportedFormat(t *testing.T) {
	service := &stubService{bulkErr: domain.ErrUnsupportedMedia}
	server := newTestServer(service)

	rec := doRequest(t, server, http.MethodPost, "/data/bulk", strings.NewReader("<xml/>"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostPredict(t *testing.T) {
	service := &stubService{forecast: domain.Forecast{
		Predictions:  []domain.ForecastPoint{{TDS: 460}},
		AnomalyScore: 0.2,
		Mode:         "model",
	}}
	server := newTestServer(service)

	rec := doRequest(t, server, http.MethodPost, "/predict", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	prediction, ok := body["prediction"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 0.2, prediction["anomaly_score"])
}

func TestPostPredictEmptyStore(t *testing.T) {
	service := &stubService{forecastErr: domain.ErrNoData}
	server := newTestServer(service)

	rec := doRequest(t, server, http.MethodPost, "/predict", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPostPredictUpstreamDown(t *testing.T) {
	service := &stubService{forecastErr: domain.ErrPredictionUnavailable}
	server := newTestServer(service)

	rec := doRequest(t, server, http.MethodPost, "/predict", nil)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
}

func TestTrainEndpointsPassthrough(t *testing.T) {
	server := newTestServer(&stubService{})

	rec := doRequest(t, server, http.MethodPost, "/train/start", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	rec = doRequest(t, server, http.MethodGet, "/train/status", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"running":false}`, rec.Body.String())
}

func TestGetHealthAlwaysOK(t *testing.T) {
	service := &stubService{health: domain.HealthReport{
		Backend: domain.BackendHealth{Status: "degraded", Storage: "disk gone"},
		AI:      domain.AIHealth{Healthy: false, Error: "connection refused"},
	}}
	server := newTestServer(service)

	rec := doRequest(t, server, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	backend, ok := body["backend"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "degraded", backend["status"])
}

func TestUnknownRoute(t *testing.T) {
	server := newTestServer(&stubService{})

	rec := doRequest(t, server, http.MethodGet, "/nope", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "route not found", body["message"])
}

func TestContentTypeIsJSON(t *testing.T) {
	server := newTestServer(&stubService{})

	rec := doRequest(t, server, http.MethodGet, "/health", nil)

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}
