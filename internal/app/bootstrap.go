package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/sync/errgroup"

	"remedy/internal/config"
	"remedy/pkg/logging"
)

// Application bootstraps and runs the remediation server.
//
// It follows a two-phase initialization pattern:
//  1. Bootstrap phase: configure logging, load configuration, wire services
//  2. Execution phase: run the HTTP server and the optional MCP endpoint
type Application struct {
	config   *Config
	services *Services
	version  string
}

// NewApplication creates and initializes a new application instance.
// Configuration is loaded from cfg.ConfigPath when set, otherwise from
// the default user config directory. Environment overrides apply last.
func NewApplication(cfg *Config, version string) (*Application, error) {
	appLogLevel := logging.LevelInfo
	if cfg.Debug {
		appLogLevel = logging.LevelDebug
	}

	var logOutput io.Writer = os.Stdout
	if cfg.Silent {
		logOutput = io.Discard
	}
	logging.Init(appLogLevel, logOutput)

	remedyCfg, err := config.LoadConfig(cfg.ConfigPath)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to load configuration")
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg.RemedyConfig = &remedyCfg

	services, err := InitializeServices(cfg, version)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{
		config:   cfg,
		services: services,
		version:  version,
	}, nil
}

// Run serves until the context is cancelled, then waits for in-flight
// remediations to finish before returning.
func (a *Application) Run(ctx context.Context) error {
	remedyCfg := a.config.RemedyConfig

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		addr := fmt.Sprintf("%s:%d", remedyCfg.Server.Host, remedyCfg.Server.Port)
		return a.services.HTTPServer.Start(gctx, addr)
	})

	if a.services.MCPServer != nil {
		g.Go(func() error {
			addr := fmt.Sprintf("%s:%d", remedyCfg.MCP.Host, remedyCfg.MCP.Port)
			return a.services.MCPServer.Start(gctx, addr)
		})
	}

	err := g.Wait()

	logging.Info("Bootstrap", "Waiting for in-flight remediations to complete")
	a.services.Orchestrator.Wait()

	return err
}
