package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the remedy application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "remedy",
	Short: "Monitor and auto-remediate Kubernetes backing services",
	Long: `remedy watches the health of backing services (Vault, Consul,
Elasticsearch) and repairs them automatically: unhealthy StatefulSets are
scaled back up, rolling-restarted, and their local port-forward tunnels
restored.

Run 'remedy serve' on a machine with cluster access, and 'remedy agent'
wherever the services should be probed from.`,
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// This is called from the main package to inject the build-time version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// It is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "remedy version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
}
