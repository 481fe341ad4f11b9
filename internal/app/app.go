// Package app wires the mdflow application together: settings, logging,
// the runner registry, and the workflow loader.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/mdflow/mdflow/internal/config"
	"github.com/mdflow/mdflow/internal/ctxlog"
	"github.com/mdflow/mdflow/internal/hcl"
	"github.com/mdflow/mdflow/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	registry *registry.Registry
	settings *config.Settings
	workflow *hcl.Workflow
}

// NewApp constructs a fully initialized App: settings are loaded and
// merged with CLI overrides, the logger is built, modules are registered,
// and the workflow is loaded and translated. A failure to load
// configuration is a fatal startup error and panics.
func NewApp(outW io.Writer, appConfig *Config, modules ...registry.Module) *App {
	settings, err := config.Load(appConfig.SettingsPath)
	if err != nil {
		panic(fmt.Errorf("failed to load settings: %w", err))
	}
	if appConfig.LogLevel != "" {
		settings.LogLevel = appConfig.LogLevel
	}
	if appConfig.LogFormat != "" {
		settings.LogFormat = appConfig.LogFormat
	}
	if appConfig.WorkerCount > 0 {
		settings.Workers = appConfig.WorkerCount
	}
	if err := settings.Validate(); err != nil {
		panic(fmt.Errorf("invalid settings: %w", err))
	}

	logger := newLogger(settings.LogLevel, settings.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All runner modules registered.", "count", len(modules), "types", reg.Types())

	workflow, err := hcl.NewLoader().Load(ctx, appConfig.WorkflowPath)
	if err != nil {
		panic(fmt.Errorf("failed to load workflow: %w", err))
	}
	logger.Debug("Workflow loaded and translated.")

	return &App{
		outW:     outW,
		logger:   logger,
		registry: reg,
		settings: settings,
		workflow: workflow,
	}
}

// Registry returns the application's registry. This is primarily for
// testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Workflow returns the loaded workflow. This is primarily for testing.
func (a *App) Workflow() *hcl.Workflow {
	return a.workflow
}
