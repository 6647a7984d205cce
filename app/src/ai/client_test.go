package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"obruk-backend/app/src/domain"
)

func sequence(n int) []domain.Measurement {
	seq := make([]domain.Measurement, n)
	for i := range seq {
		seq[i] = domain.Measurement{TDS: float64(100 + i), Temperature: 20, Moisture: 300}
	}
	return seq
}

func newTestClient(baseURL string) *Client {
	return NewClient(Config{
		BaseURL:         baseURL,
		HealthTimeout:   time.Second,
		PredictTimeout:  time.Second,
		BreakerFailures: 3,
		BreakerOpenFor:  time.Minute,
	}, nil)
}

func TestPredictSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/predict", r.URL.Path)

		var body struct {
			Sequence []map[string]float64 `json:"sequence"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Len(t, body.Sequence, 5)
		assert.Equal(t, 100.0, body.Sequence[0]["tds"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"predictions": []map[string]float64{
				{"tds": 105, "temperature": 20.5, "moisture": 310},
			},
			"anomaly_score": 0.42,
			"mode":          "demo",
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	forecast, err := client.Predict(context.Background(), sequence(5))

	require.NoError(t, err)
	assert.Len(t, forecast.Predictions, 1)
	assert.Equal(t, 105.0, forecast.Predictions[0].TDS)
	assert.Equal(t, 0.42, forecast.AnomalyScore)
	assert.Equal(t, "demo", forecast.Mode)
}

func TestPredictUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"message":"model not loaded"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Predict(context.Background(), sequence(1))

	assert.ErrorIs(t, err, domain.ErrPredictionUnavailable)
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestPredictRejectedSequence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"message":"sequence too short"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Predict(context.Background(), sequence(1))

	assert.ErrorIs(t, err, domain.ErrPredictionUnavailable)
	assert.Contains(t, err.Error(), "sequence too short")
}

func TestPredictEmptySequence(t *testing.T) {
	client := newTestClient("http://localhost:0")

	_, err := client.Predict(context.Background(), nil)

	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrPredictionUnavailable)
}

func TestPredictUnreachableHost(t *testing.T) {
	client := newTestClient("http://127.0.0.1:1")

	_, err := client.Predict(context.Background(), sequence(1))

	assert.ErrorIs(t, err, domain.ErrPredictionUnavailable)
}

func TestPredictBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	for i := 0; i < 5; i++ {
		_, err := client.Predict(context.Background(), sequence(1))
		assert.ErrorIs(t, err, domain.ErrPredictionUnavailable)
	}

	// The breaker trips after three consecutive failures and stops calling out.
	assert.Equal(t, 3, calls)
}

func TestHealthHealthy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"service":         "obruk-ai",
			"status":          "healthy",
			"mode":            "model",
			"sequence_length": 10,
			"forecast_steps":  3,
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	health := client.Health(context.Background())

	assert.True(t, health.Healthy)
	assert.Equal(t, "obruk-ai", health.Service)
	assert.Equal(t, "model", health.Mode)
	assert.Equal(t, 10, health.SequenceLength)
	assert.Equal(t, 3, health.ForecastSteps)
	assert.Empty(t, health.Error)
}

func TestHealthUnreachable(t *testing.T) {
	client := newTestClient("http://127.0.0.1:1")

	health := client.Health(context.Background())

	assert.False(t, health.Healthy)
	assert.NotEmpty(t, health.Error)
}

func TestHealthUnhealthyStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"service":"obruk-ai","status":"starting"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	health := client.Health(context.Background())

	assert.False(t, health.Healthy)
	assert.Equal(t, "starting", health.Status)
}

func TestStartTrainingPassthrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/train/start", r.URL.Path)
		_, _ = w.Write([]byte(`{"success":true,"message":"training started"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	raw, err := client.StartTraining(context.Background())

	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"message":"training started"}`, string(raw))
}

func TestTrainingStatusUnavailable(t *testing.T) {
	client := newTestClient("http://127.0.0.1:1")

	_, err := client.TrainingStatus(context.Background())

	assert.ErrorIs(t, err, domain.ErrPredictionUnavailable)
}

func TestPredictTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient(Config{
		BaseURL:        server.URL,
		PredictTimeout: 50 * time.Millisecond,
	}, nil)

	_, err := client.Predict(context.Background(), sequence(1))

	assert.ErrorIs(t, err, domain.ErrPredictionUnavailable)
}
