package core

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"obruk-backend/app/src/domain"
	"obruk-backend/app/src/infra"
)

const bulkErrorSamples = 10

// TelemetryConfig tunes the ingestion service.
type TelemetryConfig struct {
	// PredictionWindow is how many recent readings are forwarded to the AI
	// service after a write. Matches the model sequence length.
	PredictionWindow int
	// DefaultPageLimit and MaxPageLimit bound the list endpoint.
	DefaultPageLimit int
	MaxPageLimit     int
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Telemetry composes the store, the validator and the prediction gateway
// into the behaviour exposed to transports.
type Telemetry struct {
	store  domain.MeasurementStore
	ai     domain.Predictor
	cfg    TelemetryConfig
	logger Logger
	now    func() time.Time
}

func NewTelemetry(store domain.MeasurementStore, ai domain.Predictor, cfg TelemetryConfig, logger Logger) *Telemetry {
	if cfg.PredictionWindow <= 0 {
		cfg.PredictionWindow = 10
	}
	if cfg.DefaultPageLimit <= 0 {
		cfg.DefaultPageLimit = 20
	}
	if cfg.MaxPageLimit <= 0 {
		cfg.MaxPageLimit = 200
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Telemetry{store: store, ai: ai, cfg: cfg, logger: logger, now: now}
}

// Ingest validates and stores one reading, then requests a forecast over the
// recent window. The write stands even when the forecast fails; the failure
// is carried in the result instead of an error.
func (t *Telemetry) Ingest(ctx context.Context, payload map[string]any) (domain.IngestResult, error) {
	m, verr := ParseMeasurement(payload, t.now())
	if verr != nil {
		infra.IncIngestError()
		return domain.IngestResult{}, verr
	}

	stored, err := t.store.Append(ctx, m)
	if err != nil {
		infra.IncIngestError()
		return domain.IngestResult{}, err
	}
	infra.IncIngest()

	result := domain.IngestResult{Measurement: stored}

	sequence, err := t.store.LatestN(ctx, t.cfg.PredictionWindow)
	if err != nil {
		t.log(ctx, "ingest: window read failed, predicting on the stored reading only: %v", err)
		sequence = []domain.Measurement{stored}
	}
	if len(sequence) == 0 {
		sequence = []domain.Measurement{stored}
	}

	forecast, err := t.ai.Predict(ctx, sequence)
	if err != nil {
		t.logError(ctx, "ingest: forecast unavailable: %v", err)
		result.PredictionError = err.Error()
		return result, nil
	}

	result.Prediction = &forecast
	return result, nil
}

// List returns one page of the collection, clamping the requested bounds.
func (t *Telemetry) List(ctx context.Context, page, limit int) (domain.Page, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = t.cfg.DefaultPageLimit
	}
	if limit > t.cfg.MaxPageLimit {
		limit = t.cfg.MaxPageLimit
	}
	return t.store.Page(ctx, page, limit)
}

func (t *Telemetry) Latest(ctx context.Context) (domain.Measurement, error) {
	return t.store.Latest(ctx)
}

func (t *Telemetry) Stats(ctx context.Context) (domain.Stats, error) {
	return NewStatsCalculator(t.store).Stats(ctx)
}

// Forecast runs a prediction over the recent window without a write. Gateway
// failures propagate here; the dedicated endpoint surfaces them.
func (t *Telemetry) Forecast(ctx context.Context) (domain.Forecast, error) {
	sequence, err := t.store.LatestN(ctx, t.cfg.PredictionWindow)
	if err != nil {
		return domain.Forecast{}, err
	}
	if len(sequence) == 0 {
		return domain.Forecast{}, domain.ErrNoData
	}
	return t.ai.Predict(ctx, sequence)
}

// BulkIngest stores every valid row of an uploaded document. Invalid rows
// are dropped and counted; storage failures abort the batch.
func (t *Telemetry) BulkIngest(ctx context.Context, r io.Reader) (domain.BulkReport, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return domain.BulkReport{}, fmt.Errorf("read bulk payload: %w", err)
	}

	rows, err := decodeBulkRows(data)
	if err != nil {
		return domain.BulkReport{}, err
	}

	report := domain.BulkReport{Rows: len(rows)}
	now := t.now()
	for i, row := range rows {
		m, verr := ParseMeasurement(row, now)
		if verr != nil {
			report.Dropped++
			if len(report.Errors) < bulkErrorSamples {
				report.Errors = append(report.Errors, fmt.Sprintf("row %d: %v", i+1, verr))
			}
			continue
		}

		if _, err := t.store.Append(ctx, m); err != nil {
			infra.AddBulkRows(report.Accepted, report.Dropped)
			return report, err
		}
		report.Accepted++
	}

	infra.AddBulkRows(report.Accepted, report.Dropped)
	t.log(ctx, "bulk upload: rows=%d accepted=%d dropped=%d", report.Rows, report.Accepted, report.Dropped)
	return report, nil
}

// Health merges the local storage probe with the AI service probe. A down
// dependency degrades the report, it never fails it.
func (t *Telemetry) Health(ctx context.Context) domain.HealthReport {
	backend := domain.BackendHealth{Status: "healthy", Storage: "ok"}
	if err := t.store.Ping(ctx); err != nil {
		backend.Status = "degraded"
		backend.Storage = err.Error()
	}
	return domain.HealthReport{Backend: backend, AI: t.ai.Health(ctx)}
}

func (t *Telemetry) StartTraining(ctx context.Context) (json.RawMessage, error) {
	return t.ai.StartTraining(ctx)
}

func (t *Telemetry) TrainingStatus(ctx context.Context) (json.RawMessage, error) {
	return t.ai.TrainingStatus(ctx)
}

func (t *Telemetry) log(ctx context.Context, format string, v ...any) {
	if t.logger != nil {
		t.logger.Printf(ctx, format, v...)
	}
}

func (t *Telemetry) logError(ctx context.Context, format string, v ...any) {
	if t.logger != nil {
		t.logger.Errorf(ctx, format, v...)
	}
}

var _ domain.TelemetryService = (*Telemetry)(nil)
