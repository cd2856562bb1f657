package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/promptwright/internal/config"
	"github.com/fyrsmithlabs/promptwright/internal/llm"
	"github.com/fyrsmithlabs/promptwright/internal/logging"
	"github.com/fyrsmithlabs/promptwright/internal/telemetry"
)

// app holds the process-wide services of one command invocation.
type app struct {
	cfg    *config.Config
	logger *logging.Logger
	tel    *telemetry.Telemetry
	client *llm.Router
	runID  string

	metricsSrv *http.Server
}

// newApp loads configuration and starts logging and telemetry. path may
// be empty, in which case the built-in defaults are used.
func newApp(ctx context.Context, path string) (*app, context.Context, error) {
	var (
		cfg *config.Config
		err error
	)
	if path == "" {
		cfg = config.Default()
	} else if cfg, err = config.Load(path); err != nil {
		return nil, ctx, fmt.Errorf("loading config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	logger, err := logging.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, ctx, fmt.Errorf("creating logger: %w", err)
	}

	tel, err := telemetry.New(ctx, &cfg.Telemetry)
	if err != nil {
		return nil, ctx, fmt.Errorf("starting telemetry: %w", err)
	}
	if derr := tel.Degraded(); derr != nil {
		logger.Warn(ctx, "telemetry degraded", zap.Error(derr))
	}

	a := &app{
		cfg:    cfg,
		logger: logger,
		tel:    tel,
		runID:  uuid.NewString(),
	}
	a.client = llm.NewRouter(cfg,
		llm.WithLogger(logger.Named("llm")),
		llm.WithTelemetry(tel.Tracer("llm"), tel.Metrics()),
	)

	ctx = logging.WithRunID(ctx, a.runID)
	ctx = logging.WithLogger(ctx, logger)
	if metricsAddr != "" {
		if err := a.serveMetrics(ctx, metricsAddr); err != nil {
			a.close()
			return nil, ctx, err
		}
	}
	logger.Debug(ctx, "run started", zap.String("config", path), zap.String("version", version))
	return a, ctx, nil
}

// serveMetrics exposes the run metrics until close is called.
func (a *app) serveMetrics(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.tel.Metrics().Handler())
	a.metricsSrv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := a.metricsSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error(ctx, "metrics server", zap.Error(err))
		}
	}()
	a.logger.Info(ctx, "serving metrics", zap.String("addr", ln.Addr().String()))
	return nil
}

// close flushes telemetry and logs. It uses a fresh context so an
// interrupted run still gets its spans and metrics out.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Telemetry.ShutdownTimeout+time.Second)
	defer cancel()
	if a.metricsSrv != nil {
		_ = a.metricsSrv.Shutdown(ctx)
	}
	if err := a.tel.Shutdown(ctx); err != nil {
		a.logger.Warn(ctx, "telemetry shutdown", zap.Error(err))
	}
	_ = a.logger.Sync()
}
