package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"remedy/internal/config"
	"remedy/internal/probe"
	"remedy/pkg/logging"
)

// agentDebug enables verbose logging for the agent.
var agentDebug bool

// agentOnce runs a single probe cycle and exits instead of looping.
// Useful for cron-driven setups and smoke tests.
var agentOnce bool

// agentConfigPath specifies a custom configuration directory path.
var agentConfigPath string

// agentCmd runs the health agent: it probes Vault, Consul, and
// Elasticsearch and reports every result to the remediation server.
var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run the health agent that probes backing services",
	Long: `Runs the health agent. Each cycle probes Vault, Consul, and
Elasticsearch concurrently and reports the results to the remediation
server configured under agent.serverURL.

The probe interval and endpoints come from config.yaml and can be
overridden with CHECK_INTERVAL, CLUSTER_NAME, and REMEDY_SERVER_URL.
Edits to config.yaml are picked up live without restarting the agent.`,
	Args: cobra.NoArgs,
	RunE: runAgent,
}

func runAgent(cmd *cobra.Command, args []string) error {
	logLevel := logging.LevelInfo
	if agentDebug {
		logLevel = logging.LevelDebug
	}
	logging.Init(logLevel, os.Stdout)

	cfg, err := config.LoadConfig(agentConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	checkers := []probe.Checker{
		probe.NewVaultChecker(cfg.Agent.Endpoints.Vault),
		probe.NewConsulChecker(cfg.Agent.Endpoints.Consul),
		probe.NewElasticsearchChecker(cfg.Agent.Endpoints.Elasticsearch),
	}
	reporter := probe.NewReporter(cfg.Agent.ServerURL, cfg.Cluster)
	runner := probe.NewRunner(checkers, reporter, cfg.Agent.Interval.Std())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if agentOnce {
		runner.RunOnce(ctx)
		return nil
	}

	configPath := agentConfigPath
	if configPath == "" {
		configPath = config.DefaultConfigPath()
	}
	watcher := config.NewWatcher(configPath, func(updated config.Config) {
		runner.SetInterval(updated.Agent.Interval.Std())
	})
	if err := watcher.Start(); err != nil {
		// A missing config directory just means no live reload.
		logging.Warn("Agent", "Config watcher disabled: %v", err)
	} else {
		defer watcher.Stop()
	}

	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func init() {
	rootCmd.AddCommand(agentCmd)

	agentCmd.Flags().BoolVar(&agentDebug, "debug", false, "Enable debug logging")
	agentCmd.Flags().BoolVar(&agentOnce, "once", false, "Run a single probe cycle and exit")
	agentCmd.Flags().StringVar(&agentConfigPath, "config-path", "", "Custom configuration directory path")
}
