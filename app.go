package main

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"textdeck/agent"
	"textdeck/config"
	"textdeck/export"
	"textdeck/logger"
	"textdeck/workspace"
)

// App wires configuration, logging and the generation pipeline.
type App struct {
	ctx        context.Context
	cfg        *config.Config
	logger     *logger.Logger
	registry   *ServiceRegistry
	workspaces *workspace.Manager
	deriver    *agent.SlideDeriver
	renderer   *export.Renderer
	limiter    *semaphore.Weighted // nil when generations are unbounded
}

// NewApp builds the app with the default LLM providers.
func NewApp(cfg *config.Config, l *logger.Logger) *App {
	zl := l.Zap()
	providers := agent.NewProviderSet(agent.NewDefaultProviders(cfg.LLM, zl)...)
	return newApp(cfg, l, agent.NewSlideDeriver(providers, zl))
}

func newApp(cfg *config.Config, l *logger.Logger, deriver *agent.SlideDeriver) *App {
	zl := l.Zap()
	a := &App{
		ctx:        context.Background(),
		cfg:        cfg,
		logger:     l,
		workspaces: workspace.NewManager(cfg.Workspace.TempDir, zl),
		deriver:    deriver,
		renderer:   export.NewRenderer(zl),
	}
	if cfg.Server.MaxConcurrent > 0 {
		a.limiter = semaphore.NewWeighted(cfg.Server.MaxConcurrent)
	}
	return a
}

// startup registers the long-lived services and initializes them.
func (a *App) startup(ctx context.Context, extra ...Service) error {
	a.ctx = ctx
	a.registry = NewServiceRegistry(ctx, a.logger.Zap())

	if err := a.registry.RegisterCritical(a.workspaces); err != nil {
		return err
	}
	for _, svc := range extra {
		if err := a.registry.RegisterCritical(svc); err != nil {
			return err
		}
	}
	if err := a.registry.InitializeAll(); err != nil {
		return err
	}
	a.Log("[STARTUP] services initialized")
	return nil
}

// shutdown stops services in reverse order. The logger is closed by the caller.
func (a *App) shutdown() {
	if a.registry != nil {
		a.registry.ShutdownAll()
	}
	a.Log("[SHUTDOWN] services stopped")
}

// Log writes an info entry.
func (a *App) Log(message string) {
	a.logger.Log(message)
}

func (a *App) zlog() *zap.Logger {
	return a.logger.Zap()
}
