package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/signalsfoundry/astrometric-simulator/internal/logging"
	"github.com/signalsfoundry/astrometric-simulator/internal/observability"
)

func serveMetrics(ctx context.Context, addr string, collector *observability.SimulationCollector, log logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn(ctx, "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(ctx, "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}

func shutdownServer(ctx context.Context, srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
