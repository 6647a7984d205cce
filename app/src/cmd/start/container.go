package main

import (
	"obruk-backend/app/src/domain"
	"obruk-backend/app/src/infra"
)

type application struct {
	Config  infra.Config
	Logger  *infra.Logger
	Service domain.TelemetryService
	Store   domain.MeasurementStore
}

func newApplication(cfg infra.Config, logger *infra.Logger, service domain.TelemetryService, store domain.MeasurementStore) *application {
	return &application{
		Config:  cfg,
		Logger:  logger,
		Service: service,
		Store:   store,
	}
}

func assembleApplication(app *application, cleanup func()) (*application, func(), error) {
	if cleanup == nil {
		cleanup = func() {}
	}
	return app, cleanup, nil
}
