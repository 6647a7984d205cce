package main

import (
	"context"
	"io"

	"obruk-backend/app/src/domain"
	"obruk-backend/app/src/infra"
)

func initApplication(ctx context.Context, out io.Writer) (*application, func(), error) {
	cfg, logger := setupBase(out)
	store, cleanup, err := setupStore(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	predictor := setupPredictor(cfg, logger)
	svc := provideTelemetryService(store, predictor, provideTelemetryConfig(cfg), logger)

	app := newApplication(cfg, logger, svc, store)
	return assembleApplication(app, cleanup)
}

func setupBase(out io.Writer) (infra.Config, *infra.Logger) {
	cfg := provideConfig()
	svcName := provideServiceName()
	log := provideLogger(out, svcName)
	return cfg, log
}

func setupStore(ctx context.Context, cfg infra.Config, logger *infra.Logger) (domain.MeasurementStore, func(), error) {
	return provideStore(ctx, cfg, logger)
}

func setupPredictor(cfg infra.Config, logger *infra.Logger) domain.Predictor {
	return providePredictor(providePredictorConfig(cfg), logger)
}
