package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

// remediateServerURL is the remediation server base URL to call.
var remediateServerURL string

// remediateCmd triggers remediation for a single service through the
// server API. The server performs the actual Kubernetes operations.
var remediateCmd = &cobra.Command{
	Use:   "remediate <service>",
	Short: "Trigger remediation for a service (vault, consul, elasticsearch)",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemediate,
}

func runRemediate(cmd *cobra.Command, args []string) error {
	service := args[0]

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Post(fmt.Sprintf("%s/api/remediate/%s", remediateServerURL, service), "application/json", nil)
	if err != nil {
		return fmt.Errorf("failed to reach remediation server at %s: %w", remediateServerURL, err)
	}
	defer resp.Body.Close()

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("failed to parse server response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		fmt.Fprintln(cmd.OutOrStdout(), payload.Message)
		return nil
	case http.StatusConflict:
		return fmt.Errorf("%s", payload.Error)
	default:
		return fmt.Errorf("remediation request failed (status %d): %s", resp.StatusCode, payload.Error)
	}
}

func init() {
	rootCmd.AddCommand(remediateCmd)

	remediateCmd.Flags().StringVar(&remediateServerURL, "server", "http://localhost:7070", "Remediation server base URL")
}
