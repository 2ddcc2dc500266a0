package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/wire"

	httpapi "measurement-simulator/internal/api/http"
	grpcapi "measurement-simulator/internal/api/grpc"
	"measurement-simulator/internal/application/streaming"
	"measurement-simulator/internal/infra"
)

var providerSet = wire.NewSet(
	provideConfig,
	provideLogger,
	provideFactory,
	provideHTTPServer,
	provideGRPCServer,
	provideMetricsServer,
	NewApp,
)

// httpServer and metricsServer keep the two *http.Server values apart for the injector.
type httpServer struct{ *http.Server }

type metricsServer struct{ *http.Server }

func bootstrapLogger() *infra.Logger {
	return infra.NewLogger(os.Stdout, "measurement-simulator")
}

func provideConfig() (infra.Config, error) {
	return infra.LoadConfig()
}

func provideLogger(cfg infra.Config) *infra.Logger {
	return infra.NewLogger(os.Stdout, cfg.ServiceName)
}

func provideFactory(cfg infra.Config) *streaming.Factory {
	return streaming.NewFactory(cfg.Defaults)
}

func provideHTTPServer(cfg infra.Config, factory *streaming.Factory, logger *infra.Logger) httpServer {
	return httpServer{&http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:           httpapi.NewServer(factory, logger, cfg.StreamMaxDuration()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}}
}

// provideGRPCServer returns nil when GRPC_PORT is empty.
func provideGRPCServer(cfg infra.Config, factory *streaming.Factory, logger *infra.Logger) (*grpcapi.Server, error) {
	if cfg.GRPCPort == "" {
		return nil, nil
	}
	service := grpcapi.NewMeasurementService(factory, logger, cfg.StreamMaxDuration())
	return grpcapi.NewServer(logger, service, grpcapi.Options{
		Address:         fmt.Sprintf(":%s", cfg.GRPCPort),
		ShutdownTimeout: cfg.ShutdownTimeout(),
	})
}

// provideMetricsServer returns an empty value when METRICS_PORT is empty.
func provideMetricsServer(cfg infra.Config) metricsServer {
	if cfg.MetricsPort == "" {
		return metricsServer{}
	}
	return metricsServer{infra.NewMetricsServer(cfg.MetricsPort)}
}
