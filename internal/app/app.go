package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/forgeplan/internal/config"
	"github.com/vk/forgeplan/internal/ctxlog"
	"github.com/vk/forgeplan/internal/toolchain"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	tc     *toolchain.Toolchain
	model  *config.Model
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger and the build model
// already loaded.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, err := loader.Load(ctx, appConfig.BuildPath)
	if err != nil {
		// A failure to load build files is a fatal startup error.
		panic(fmt.Errorf("failed to load build files: %w", err))
	}
	logger.Debug("Build files loaded and translated into unified model.",
		"targets", len(model.Targets), "fetches", len(model.Fetches))

	return &App{
		outW:   outW,
		logger: logger,
		tc:     toolchain.Default(),
		model:  model,
	}
}

// Model returns the loaded build model. This is primarily for testing.
func (a *App) Model() *config.Model {
	return a.model
}
