package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"remedy/internal/app"
)

// serveDebug enables verbose logging across the application.
var serveDebug bool

// serveSilent suppresses all log output. Useful when remedy runs under a
// supervisor that captures stdout separately.
var serveSilent bool

// serveConfigPath specifies a custom configuration directory path.
// When set, config.yaml is loaded from this directory instead of the
// default user config directory.
var serveConfigPath string

// serveCmd starts the remediation server: the HTTP API, the dashboard,
// and (when enabled in configuration) the MCP tool endpoint.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the remediation server with HTTP API and dashboard",
	Long: `Starts the remediation server. It receives health reports from agents,
serves the status API and dashboard, and remediates unhealthy services
in the connected Kubernetes cluster.

Endpoints:
  POST /api/report              health report ingestion
  GET  /api/status              full status and remediation history
  POST /api/remediate/{service} trigger remediation
  GET  /dashboard               HTML status dashboard

When mcp.enabled is set in config.yaml, an MCP server with the
get_status and remediate_service tools is served on a second port for
AI assistant access.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := app.NewConfig(serveDebug, serveSilent, serveConfigPath)

	application, err := app.NewApplication(cfg, GetVersion())
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug logging")
	serveCmd.Flags().BoolVar(&serveSilent, "silent", false, "Suppress all log output")
	serveCmd.Flags().StringVar(&serveConfigPath, "config-path", "", "Custom configuration directory path")
}
