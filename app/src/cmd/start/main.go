package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"google.golang.org/grpc"

	grpcapi "obruk-backend/app/src/api/grpc"
	httpapi "obruk-backend/app/src/api/http"
	"obruk-backend/app/src/domain"
	"obruk-backend/app/src/infra"
	_ "obruk-backend/app/src/infra/utils/autoload"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := initApplication(ctx, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise application: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	cfg := app.Config
	logger := app.Logger

	infra.LogConfig(ctx, logger, cfg)
	infra.StartMetricsServer(cfg.MetricsPort, logger)

	httpServer := newHTTPServer(cfg, app.Service, logger)

	httpListener, err := net.Listen("tcp", httpServer.Addr)
	if err != nil {
		stop()
		logger.Fatalf(ctx, "failed to listen on HTTP port %s: %v", cfg.HTTPPort, err)
	}

	grpcServer := grpcapi.NewServer(app.Store, logger)
	grpcListener, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.GRPCPort))
	if err != nil {
		stop()
		logger.Fatalf(ctx, "failed to listen on gRPC port %s: %v", cfg.GRPCPort, err)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf(ctx, "HTTP server shutdown error: %v", err)
		}

		grpcServer.GracefulStop()
	}()

	serverErrs := make(chan error, 2)
	var serverGroup sync.WaitGroup

	serverGroup.Add(1)
	go func() {
		defer serverGroup.Done()
		logger.Printf(ctx, "HTTP server listening on %s", httpListener.Addr())
		if err := httpServer.Serve(httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrs <- fmt.Errorf("http server: %w", err)
		}
	}()

	serverGroup.Add(1)
	go func() {
		defer serverGroup.Done()
		logger.Printf(ctx, "gRPC server listening on %s", grpcListener.Addr())
		if err := grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			serverErrs <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	var serveErr error

	select {
	case <-ctx.Done():
	case err := <-serverErrs:
		if err != nil {
			serveErr = err
		}
		stop()
	}

	stop()
	serverGroup.Wait()

	if serveErr != nil {
		logger.Printf(ctx, "server error: %v", serveErr)
	}

	logger.Println(ctx, "server stopped")
}

func newHTTPServer(cfg infra.Config, service domain.TelemetryService, logger *infra.Logger) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:           httpapi.NewServer(service, cfg, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
