package main

import (
	"context"
	"io"
	"time"

	"obruk-backend/app/src/ai"
	"obruk-backend/app/src/core"
	"obruk-backend/app/src/database"
	"obruk-backend/app/src/domain"
	"obruk-backend/app/src/infra"
)

func provideConfig() infra.Config {
	return infra.LoadConfig()
}

func provideServiceName() string {
	return "obruk-backend"
}

func provideLogger(out io.Writer, serviceName string) *infra.Logger {
	return infra.NewLogger(out, serviceName)
}

func provideStore(ctx context.Context, cfg infra.Config, logger *infra.Logger) (domain.MeasurementStore, func(), error) {
	return database.NewStore(ctx, cfg, logger)
}

func providePredictorConfig(cfg infra.Config) ai.Config {
	return ai.Config{
		BaseURL:         cfg.AIBaseURL,
		HealthTimeout:   time.Duration(cfg.AIHealthTimeoutMS) * time.Millisecond,
		PredictTimeout:  time.Duration(cfg.AIPredictTimeoutMS) * time.Millisecond,
		BreakerFailures: cfg.AIBreakerFailures,
		BreakerOpenFor:  time.Duration(cfg.AIBreakerOpenMS) * time.Millisecond,
	}
}

func providePredictor(cfg ai.Config, logger *infra.Logger) domain.Predictor {
	return ai.NewClient(cfg, logger)
}

func provideTelemetryConfig(cfg infra.Config) core.TelemetryConfig {
	return core.TelemetryConfig{
		PredictionWindow: cfg.AISequenceLength,
		DefaultPageLimit: cfg.PageDefaultLimit,
		MaxPageLimit:     cfg.PageMaxLimit,
	}
}

func provideTelemetryService(store domain.MeasurementStore, predictor domain.Predictor, cfg core.TelemetryConfig, logger *infra.Logger) domain.TelemetryService {
	return core.NewTelemetry(store, predictor, cfg, logger)
}
