package domain

import (
	"context"
	"encoding/json"
	"io"
)

// MeasurementWriter persists readings produced by the ingestion path.
type MeasurementWriter interface {
	// Append durably stores one measurement and returns it with the
	// storage-assigned identifier. Appends are serialized by the store.
	Append(ctx context.Context, m Measurement) (Measurement, error)
}

// MeasurementReader exposes the queries used by the application. All readers
// return measurements oldest first; an empty store yields empty results, not
// errors, except Latest which returns ErrNoData.
type MeasurementReader interface {
	All(ctx context.Context) ([]Measurement, error)
	Page(ctx context.Context, page, limit int) (Page, error)
	Latest(ctx context.Context) (Measurement, error)
	LatestN(ctx context.Context, n int) ([]Measurement, error)
}

// MeasurementStore aggregates the capabilities required by the service.
type MeasurementStore interface {
	MeasurementWriter
	MeasurementReader
	Ping(ctx context.Context) error
	Close() error
}

// Predictor is the typed client of the external forecasting service.
type Predictor interface {
	Health(ctx context.Context) AIHealth
	Predict(ctx context.Context, sequence []Measurement) (Forecast, error)
	StartTraining(ctx context.Context) (json.RawMessage, error)
	TrainingStatus(ctx context.Context) (json.RawMessage, error)
}

// TelemetryService describes the behaviour exposed to transport layers.
type TelemetryService interface {
	Ingest(ctx context.Context, payload map[string]any) (IngestResult, error)
	List(ctx context.Context, page, limit int) (Page, error)
	Latest(ctx context.Context) (Measurement, error)
	Stats(ctx context.Context) (Stats, error)
	Forecast(ctx context.Context) (Forecast, error)
	BulkIngest(ctx context.Context, r io.Reader) (BulkReport, error)
	Health(ctx context.Context) HealthReport
	StartTraining(ctx context.Context) (json.RawMessage, error)
	TrainingStatus(ctx context.Context) (json.RawMessage, error)
}
