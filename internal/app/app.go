// Package app wires the model loader, the computation engine, logging, and
// the optional ops server into a runnable application.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vk/metricgrid/internal/config"
	"github.com/vk/metricgrid/internal/ctxlog"
	"github.com/vk/metricgrid/internal/engine"
	"github.com/vk/metricgrid/internal/telemetry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	model    *engine.Model
	defs     *config.Model
	registry *prometheus.Registry
}

// NewApp loads the model definition, builds an engine instance from it, and
// returns the fully initialized application. A failure to load or replay the
// definition is a fatal startup error.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader) (*App, error) {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	defs, err := loader.Load(ctx, appConfig.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load model definition: %w", err)
	}

	promRegistry := prometheus.NewRegistry()
	model := engine.New(
		engine.WithWorkers(appConfig.WorkerCount),
		engine.WithTelemetry(telemetry.New(promRegistry)),
	)
	if err := replay(ctx, model, defs); err != nil {
		return nil, fmt.Errorf("failed to build model: %w", err)
	}
	logger.Debug("Model definition replayed into engine.",
		"dimensions", len(defs.Dimensions), "metrics", len(defs.Metrics), "formulas", len(defs.Formulas))

	return &App{
		outW:     outW,
		logger:   logger,
		model:    model,
		defs:     defs,
		registry: promRegistry,
	}, nil
}

// Model returns the application's engine instance. This is primarily for testing.
func (a *App) Model() *engine.Model {
	return a.model
}

// replay drives the engine's construction API from a loaded definition.
// Formulas are assigned with validation suspended so declaration order does
// not matter, then one full validation pass runs before the horizon is set.
func replay(ctx context.Context, model *engine.Model, defs *config.Model) error {
	for _, d := range defs.Dimensions {
		if err := model.DefineDimension(ctx, d.Name, d.Members); err != nil {
			return err
		}
	}
	for _, m := range defs.Metrics {
		if err := model.AddMetric(ctx, m.ID, m.Name, m.Category, m.Dims); err != nil {
			return err
		}
	}
	if err := model.SetValidation(false); err != nil {
		return err
	}
	for _, f := range defs.Formulas {
		if err := model.SetFormula(ctx, f.Target, f.Expr); err != nil {
			return err
		}
	}
	if err := model.SetValidation(true); err != nil {
		return err
	}

	if defs.Horizon > 0 {
		if err := model.InitializeHorizon(ctx, defs.Horizon); err != nil {
			return err
		}
		for _, in := range defs.Inputs {
			values := []engine.InputValue{{Month: in.Month, Coords: in.Coords, Value: in.Value}}
			if _, err := model.UpdateInput(ctx, in.Metric, values, "loader"); err != nil {
				return err
			}
		}
	}
	return nil
}
