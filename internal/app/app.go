package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"dbxmcp/internal/domain"
	"dbxmcp/internal/infra/catalog"
	"dbxmcp/internal/infra/httpserver"
	"dbxmcp/internal/infra/telemetry"
	"dbxmcp/internal/infra/tools"
)

// App wires the configured backend, dispatcher, and HTTP surface
// together and runs them.
type App struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{logger: logger.Named("app")}
}

// NewLogger builds the process logger for the configured level.
func NewLogger(cfg LoggingConfig) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.Set(cfg.Level); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}

// Serve runs the gateway until ctx is cancelled.
func (a *App) Serve(ctx context.Context, cfg Config) error {
	backend, configured, err := NewBackend(ctx, cfg.Backend, a.logger)
	if err != nil {
		return err
	}
	if !configured {
		a.logger.Warn("no backend credentials configured, tool calls will fail until credentials are provided")
	}

	var metrics domain.Metrics
	handlerOpts := httpserver.HandlerOptions{
		Logger:            a.logger,
		BackendConfigured: configured,
	}
	if cfg.Metrics.Enabled {
		registry := prometheus.NewRegistry()
		metrics = telemetry.NewPrometheusMetrics(registry)
		handlerOpts.Metrics = metrics
		handlerOpts.MetricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	}

	dispatcher := tools.NewDispatcher(backend, tools.DispatcherOptions{
		Logger:  a.logger,
		Metrics: metrics,
	})

	handler := httpserver.NewHandler(dispatcher, catalog.Descriptors(), handlerOpts)

	a.logger.Info("starting gateway",
		zap.String("backend", cfg.Backend.Provider),
		zap.String("addr", cfg.Server.ListenAddress),
		zap.Int("tools", len(catalog.Descriptors())),
	)

	return httpserver.Run(ctx, handler, httpserver.ServerOptions{
		Addr:   cfg.Server.ListenAddress,
		Logger: a.logger,
	})
}
