package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"golang.org/x/sync/errgroup"

	grpcapi "measurement-simulator/internal/api/grpc"
	"measurement-simulator/internal/infra"
)

// App bundles the servers that make up the simulator process.
type App struct {
	cfg     infra.Config
	logger  *infra.Logger
	http    httpServer
	grpc    *grpcapi.Server
	metrics metricsServer
}

func NewApp(cfg infra.Config, logger *infra.Logger, httpSrv httpServer, grpcSrv *grpcapi.Server, metricsSrv metricsServer) *App {
	return &App{cfg: cfg, logger: logger, http: httpSrv, grpc: grpcSrv, metrics: metricsSrv}
}

// Run serves until ctx is cancelled or one of the servers fails.
func (a *App) Run(ctx context.Context) error {
	infra.LogConfig(ctx, a.logger, a.cfg)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.serveHTTP(gctx, "HTTP", a.http.Server)
	})
	if a.metrics.Server != nil {
		g.Go(func() error {
			return a.serveHTTP(gctx, "metrics", a.metrics.Server)
		})
	}
	if a.grpc != nil {
		g.Go(func() error {
			return a.grpc.Serve(gctx)
		})
	}
	return g.Wait()
}

func (a *App) serveHTTP(ctx context.Context, name string, srv *http.Server) error {
	// request contexts end with ctx so open SSE streams let Shutdown finish
	srv.BaseContext = func(net.Listener) context.Context { return ctx }

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	a.logger.Printf(ctx, "%s server listening on %s", name, srv.Addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("%s server: %w", name, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("%s server shutdown: %w", name, err)
	}
	return nil
}
