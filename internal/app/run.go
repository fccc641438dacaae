package app

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/vk/forgeplan/internal/ctxlog"
	"github.com/vk/forgeplan/internal/engine"
	"github.com/vk/forgeplan/internal/fetch"
	"github.com/vk/forgeplan/internal/synth"
)

// Run executes the main application logic based on the provided configuration:
// it synthesizes the rule graph from the loaded model, validates it, runs the
// pending pre-build corrections, and prints the resulting plan. With fetch
// execution enabled it also acquires every declared third-party package.
func (a *App) Run(ctx context.Context, appConfig *Config) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	eng := engine.New()
	s := synth.New(a.tc, eng)
	if err := s.Model(ctx, a.model); err != nil {
		return fmt.Errorf("failed to synthesize rule graph: %w", err)
	}
	if err := eng.Validate(); err != nil {
		return fmt.Errorf("rule graph validation failed: %w", err)
	}
	a.logger.Debug("Rule graph synthesized and validated.", "rule_count", len(eng.Rules()))

	// Pre-build corrections mutate command sets, so they run before the plan
	// is rendered.
	for _, r := range eng.Rules() {
		if err := eng.Prepare(ctx, r.Name); err != nil {
			return fmt.Errorf("preparing %s: %w", r.Name, err)
		}
	}

	a.renderPlan(eng)

	if appConfig.DoFetch && len(a.model.Fetches) > 0 {
		a.logger.Info("Executing fetch plans.", "count", len(a.model.Fetches))
		f := fetch.NewFetcher(appConfig.CacheDir)
		for _, decl := range a.model.Fetches {
			plan, err := fetch.PlanFor(ctx, decl)
			if err != nil {
				return err
			}
			dest := filepath.Join(appConfig.FetchDir, plan.Name)
			if err := f.Fetch(ctx, plan, dest); err != nil {
				return fmt.Errorf("fetching %s: %w", plan.Path, err)
			}
		}
		a.logger.Info("All fetches complete.")
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}
