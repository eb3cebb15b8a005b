// Package app initializes and holds long-lived application services, acting
// as a dependency injection container for the serve and demo commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/statusinfo/internal/api"
	"github.com/JakeFAU/statusinfo/internal/config"
	"github.com/JakeFAU/statusinfo/internal/dispatcher"
	"github.com/JakeFAU/statusinfo/internal/id/uuid"
	"github.com/JakeFAU/statusinfo/internal/logging"
	"github.com/JakeFAU/statusinfo/internal/metrics"
	"github.com/JakeFAU/statusinfo/internal/policy/ratelimit"
	"github.com/JakeFAU/statusinfo/internal/progress"
	"github.com/JakeFAU/statusinfo/internal/progress/sinks"
	"github.com/JakeFAU/statusinfo/internal/queue/memory"
	"github.com/JakeFAU/statusinfo/internal/telemetry"
	"github.com/JakeFAU/statusinfo/internal/worker"
	"github.com/JakeFAU/statusinfo/internal/workload"
	"github.com/JakeFAU/statusinfo/pkg/statusinfo"
)

const shutdownTimeout = 10 * time.Second

// Option customizes App construction.
type Option func(*options)

type options struct {
	sinks     []progress.Sink
	traceOpts []sdktrace.TracerProviderOption
	gatherer  *prometheus.Registry
}

// WithSinks attaches extra progress sinks next to the configured ones.
func WithSinks(s ...progress.Sink) Option {
	return func(o *options) {
		o.sinks = append(o.sinks, s...)
	}
}

// WithTracerOptions forwards span processors or exporters to the tracer
// provider. Ignored unless sinks.tracing is enabled.
func WithTracerOptions(opts ...sdktrace.TracerProviderOption) Option {
	return func(o *options) {
		o.traceOpts = append(o.traceOpts, opts...)
	}
}

// WithMetricsRegistry registers every collector on reg instead of a fresh
// registry.
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(o *options) {
		o.gatherer = reg
	}
}

// App holds the shared, long-lived services for the process.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	registry *statusinfo.Registry
	gatherer *prometheus.Registry
	hub      *progress.Hub
	tracer   *sdktrace.TracerProvider
	pacing   *metrics.Pacing
	server   *api.Server
}

// New builds the registry, progress pipeline, tracing and HTTP surface
// described by cfg. It fails fast if any piece cannot be initialized.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{
		cfg:    cfg,
		logger: logger,
		registry: statusinfo.New(
			statusinfo.WithIDGenerator(uuid.NewUUIDGenerator()),
			statusinfo.WithLogger(logging.Component(logger, "registry")),
		),
		gatherer: o.gatherer,
	}
	if a.gatherer == nil {
		a.gatherer = prometheus.NewRegistry()
	}

	// Every fallible step precedes InstallGlobal and NewHub.
	if err := registerRuntime(a.gatherer); err != nil {
		return nil, err
	}
	httpMetrics, err := metrics.NewHTTP(a.gatherer)
	if err != nil {
		return nil, fmt.Errorf("init http metrics: %w", err)
	}
	a.pacing, err = metrics.NewPacing(a.gatherer)
	if err != nil {
		return nil, fmt.Errorf("init pacing metrics: %w", err)
	}
	var sinkList []progress.Sink
	if cfg.Sinks.Prometheus {
		ps, err := sinks.NewPrometheusSink(a.gatherer)
		if err != nil {
			return nil, fmt.Errorf("init prometheus sink: %w", err)
		}
		sinkList = append(sinkList, ps)
	}
	if cfg.Sinks.Tracing {
		tp, err := telemetry.NewTracerProvider(ctx, telemetry.ServiceName, o.traceOpts...)
		if err != nil {
			return nil, fmt.Errorf("init tracing: %w", err)
		}
		telemetry.InstallGlobal(tp)
		a.tracer = tp
		sinkList = append(sinkList, sinks.NewTraceSink(tp))
	}
	if cfg.Sinks.Log {
		sinkList = append(sinkList, sinks.NewLogSink(logging.Component(logger, "progress")))
	}
	sinkList = append(sinkList, o.sinks...)

	a.hub = progress.NewHub(progress.Config{
		BufferSize:     cfg.Hub.BufferSize,
		MaxBatchEvents: cfg.Hub.MaxBatchEvents,
		MaxBatchWait:   cfg.Hub.MaxBatchWait,
		SinkTimeout:    cfg.Hub.SinkTimeout,
		Logger:         logging.Component(logger, "hub"),
	}, sinkList...)
	a.registry.AddListener(a.hub)
	a.server = api.NewServer(a.registry, a.gatherer, logging.Component(logger, "api"), api.WithHTTPMetrics(httpMetrics))

	logger.Info("application services initialized",
		zap.Int("sinks", len(sinkList)),
		zap.Bool("tracing", a.tracer != nil),
	)
	return a, nil
}

// registerRuntime adds the Go and process collectors, tolerating a registry
// that already carries them.
func registerRuntime(reg *prometheus.Registry) error {
	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := reg.Register(c); err != nil {
			var dup prometheus.AlreadyRegisteredError
			if !errors.As(err, &dup) {
				return fmt.Errorf("register runtime collectors: %w", err)
			}
		}
	}
	return nil
}

// Registry exposes the shared operation registry.
func (a *App) Registry() *statusinfo.Registry {
	return a.registry
}

// Handler returns the HTTP inspection surface.
func (a *App) Handler() http.Handler {
	return a.server.Handler()
}

// Serve runs the HTTP server until ctx finishes, then shuts it down.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Server.Addr(),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutdown initiated")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// RunWorkload feeds jobs synthetic jobs (unbounded when negative) through a
// pool of demo workers and blocks until they are all processed or ctx ends.
func (a *App) RunWorkload(ctx context.Context, jobs int) (processed, failed int64, err error) {
	demo := a.cfg.Demo
	q := memory.NewQueue(demo.QueueDepth)
	var workerOpts []worker.Option
	if demo.JobsPerSecond > 0 {
		workerOpts = append(workerOpts, worker.WithPacer(ratelimit.New(ratelimit.Config{
			PerSecond: demo.JobsPerSecond,
			Burst:     demo.Burst,
			Observe:   a.pacing.Observe,
		})))
	}
	workers := make([]*worker.Worker, 0, demo.Workers)
	for i := 0; i < demo.Workers; i++ {
		workers = append(workers, worker.New(
			q,
			a.registry,
			fmt.Sprintf("worker-%d", i+1),
			logging.Component(a.logger, "worker").With(zap.Int("index", i)),
			workerOpts...,
		))
	}
	dispatch := dispatcher.New(q, workers)

	feedErr := make(chan error, 1)
	go func() {
		feedErr <- workload.Feed(ctx, q, jobs, workload.Shape{
			Steps:     demo.Steps,
			Fanout:    demo.Fanout,
			StepDelay: demo.StepDelay,
		})
	}()

	a.logger.Info("dispatcher started", zap.Int("workers", len(workers)), zap.Int("jobs", jobs))
	dispatch.Run(ctx)
	processed, failed = dispatch.Totals()
	a.logger.Info("dispatcher stopped", zap.Int64("processed", processed), zap.Int64("failed", failed))
	return processed, failed, <-feedErr
}

// Close detaches the progress hub, flushes its sinks and shuts down tracing.
func (a *App) Close(ctx context.Context) error {
	a.registry.RemoveListener(a.hub)
	var errs []error
	if err := a.hub.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close hub: %w", err))
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracer: %w", err))
		}
	}
	a.logger.Info("application services stopped")
	return errors.Join(errs...)
}
