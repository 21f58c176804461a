package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vk/metricgrid/internal/ctxlog"
)

// Run executes the main application logic: a full recompute of the loaded
// model followed by a sparse JSON dump of the results.
func (a *App) Run(ctx context.Context, appConfig *Config) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if appConfig.OpsPort > 0 {
		a.startOpsServer(appConfig.OpsPort)
	}

	a.logger.Info("🚀 Starting full recompute...", "horizon", a.model.Horizon())
	if err := a.model.FullRecompute(ctx); err != nil {
		return fmt.Errorf("recompute failed: %w", err)
	}
	a.logger.Info("🏁 Recompute finished.")

	results, err := a.model.Results(nil)
	if err != nil {
		return fmt.Errorf("reading results: %w", err)
	}
	enc := json.NewEncoder(a.outW)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}
