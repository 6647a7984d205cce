package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"obruk-backend/app/src/domain"
	"obruk-backend/app/src/infra"
)

// Config tunes the gateway to the external forecasting service.
type Config struct {
	BaseURL         string
	HealthTimeout   time.Duration
	PredictTimeout  time.Duration
	BreakerFailures int
	BreakerOpenFor  time.Duration
}

// Client is the typed HTTP client of the forecasting service. Calls carry a
// bounded timeout and prediction traffic runs behind a circuit breaker, so a
// hung upstream can neither stall callers nor be hammered while down.
type Client struct {
	base    string
	health  *http.Client
	predict *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *infra.Logger
}

func NewClient(cfg Config, logger *infra.Logger) *Client {
	if cfg.HealthTimeout <= 0 {
		cfg.HealthTimeout = 3 * time.Second
	}
	if cfg.PredictTimeout <= 0 {
		cfg.PredictTimeout = 10 * time.Second
	}
	if cfg.BreakerFailures < 1 {
		cfg.BreakerFailures = 3
	}
	if cfg.BreakerOpenFor <= 0 {
		cfg.BreakerOpenFor = 15 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "obruk-ai",
		Timeout: cfg.BreakerOpenFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= uint32(cfg.BreakerFailures)
		},
	})

	return &Client{
		base:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		health:  &http.Client{Timeout: cfg.HealthTimeout},
		predict: &http.Client{Timeout: cfg.PredictTimeout},
		breaker: breaker,
		logger:  logger,
	}
}

type healthResponse struct {
	Service        string `json:"service"`
	Status         string `json:"status"`
	Mode           string `json:"mode"`
	SequenceLength int    `json:"sequence_length"`
	ForecastSteps  int    `json:"forecast_steps"`
}

// Health probes the service. Transport failures are folded into the result,
// never returned as errors.
func (c *Client) Health(ctx context.Context) domain.AIHealth {
	body, err := c.do(ctx, c.health, http.MethodGet, "/health", nil)
	if err != nil {
		return domain.AIHealth{Healthy: false, Error: err.Error()}
	}

	var resp healthResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.AIHealth{Healthy: false, Error: fmt.Sprintf("decode health response: %v", err)}
	}

	return domain.AIHealth{
		Healthy:        strings.EqualFold(resp.Status, "healthy") || strings.EqualFold(resp.Status, "ok"),
		Service:        resp.Service,
		Status:         resp.Status,
		Mode:           resp.Mode,
		SequenceLength: resp.SequenceLength,
		ForecastSteps:  resp.ForecastSteps,
	}
}

type predictRequest struct {
	Sequence []sequencePoint `json:"sequence"`
}

type sequencePoint struct {
	TDS         float64 `json:"tds"`
	Temperature float64 `json:"temperature"`
	Moisture    float64 `json:"moisture"`
}

type predictResponse struct {
	Success      bool                   `json:"success"`
	Predictions  []domain.ForecastPoint `json:"predictions"`
	AnomalyScore float64                `json:"anomaly_score"`
	Mode         string                 `json:"mode"`
	Message      string                 `json:"message"`
}

// Predict forwards the ordered sequence and returns the forecast. Failures
// wrap ErrPredictionUnavailable; the caller decides whether that is fatal.
func (c *Client) Predict(ctx context.Context, sequence []domain.Measurement) (domain.Forecast, error) {
	if len(sequence) == 0 {
		return domain.Forecast{}, errors.New("predict: sequence must not be empty")
	}

	start := time.Now()
	result, err := c.breaker.Execute(func() (any, error) {
		return c.doPredict(ctx, sequence)
	})
	infra.ObservePrediction(time.Since(start), err != nil)

	if err != nil {
		if c.logger != nil {
			c.logger.Errorf(ctx, "predict call failed: %v", err)
		}
		return domain.Forecast{}, fmt.Errorf("%w: %v", domain.ErrPredictionUnavailable, err)
	}
	return result.(domain.Forecast), nil
}

func (c *Client) doPredict(ctx context.Context, sequence []domain.Measurement) (domain.Forecast, error) {
	req := predictRequest{Sequence: make([]sequencePoint, len(sequence))}
	for i, m := range sequence {
		req.Sequence[i] = sequencePoint{TDS: m.TDS, Temperature: m.Temperature, Moisture: m.Moisture}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return domain.Forecast{}, fmt.Errorf("encode request: %w", err)
	}

	body, err := c.do(ctx, c.predict, http.MethodPost, "/predict", bytes.NewReader(payload))
	if err != nil {
		return domain.Forecast{}, err
	}

	var resp predictResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.Forecast{}, fmt.Errorf("decode response: %w", err)
	}
	if !resp.Success {
		return domain.Forecast{}, fmt.Errorf("upstream rejected sequence: %s", resp.Message)
	}
	if len(resp.Predictions) == 0 {
		return domain.Forecast{}, errors.New("upstream returned an empty forecast")
	}

	return domain.Forecast{
		Predictions:  resp.Predictions,
		AnomalyScore: resp.AnomalyScore,
		Mode:         resp.Mode,
	}, nil
}

// StartTraining triggers a model training run. The response is opaque.
func (c *Client) StartTraining(ctx context.Context) (json.RawMessage, error) {
	body, err := c.do(ctx, c.predict, http.MethodPost, "/train/start", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPredictionUnavailable, err)
	}
	return json.RawMessage(body), nil
}

// TrainingStatus reports the state of the current training run. Opaque.
func (c *Client) TrainingStatus(ctx context.Context) (json.RawMessage, error) {
	body, err := c.do(ctx, c.health, http.MethodGet, "/train/status", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPredictionUnavailable, err)
	}
	return json.RawMessage(body), nil
}

func (c *Client) do(ctx context.Context, client *http.Client, method, path string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("upstream status %d: %s", resp.StatusCode, excerpt(data))
	}
	return data, nil
}

func excerpt(data []byte) string {
	s := strings.TrimSpace(string(data))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

var _ domain.Predictor = (*Client)(nil)
