package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"
)

// statusServerURL is the remediation server base URL to query.
var statusServerURL string

// statusOutputFormat selects the output format (table, json, yaml).
var statusOutputFormat string

// statusResponse mirrors the /api/status payload.
type statusResponse struct {
	Cluster string `json:"cluster"`
	Status  map[string]struct {
		Healthy    bool      `json:"healthy"`
		Details    string    `json:"details"`
		ProbeHost  string    `json:"probe_host"`
		ReportedAt time.Time `json:"reported_at"`
	} `json:"status"`
	RemediationLog []struct {
		Service     string    `json:"service"`
		Status      string    `json:"status"`
		Message     string    `json:"message"`
		CompletedAt time.Time `json:"completed_at"`
	} `json:"remediation_log"`
	TotalServices   int `json:"total_services"`
	HealthyServices int `json:"healthy_services"`
}

// statusCmd queries the remediation server and renders the current
// health state and remediation history.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the health status of all monitored services",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	body, err := fetchStatus(statusServerURL)
	if err != nil {
		return err
	}

	switch statusOutputFormat {
	case "json":
		var pretty json.RawMessage = body
		indented, err := json.MarshalIndent(pretty, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(indented))
		return nil
	case "yaml":
		yamlData, err := yaml.JSONToYAML(body)
		if err != nil {
			return fmt.Errorf("failed to convert status to YAML: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), string(yamlData))
		return nil
	case "table":
		var status statusResponse
		if err := json.Unmarshal(body, &status); err != nil {
			return fmt.Errorf("failed to parse status response: %w", err)
		}
		renderStatusTables(cmd.OutOrStdout(), status)
		return nil
	default:
		return fmt.Errorf("unknown output format %q (expected table, json, or yaml)", statusOutputFormat)
	}
}

func fetchStatus(serverURL string) ([]byte, error) {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(serverURL + "/api/status")
	if err != nil {
		return nil, fmt.Errorf("failed to reach remediation server at %s: %w", serverURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remediation server returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func renderStatusTables(out io.Writer, status statusResponse) {
	fmt.Fprintf(out, "Cluster: %s (%d/%d services healthy)\n\n",
		status.Cluster, status.HealthyServices, status.TotalServices)

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"SERVICE", "STATE", "DETAILS", "PROBE HOST", "REPORTED"})

	keys := make([]string, 0, len(status.Status))
	for key := range status.Status {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		record := status.Status[key]
		state := text.FgGreen.Sprint("healthy")
		if !record.Healthy {
			state = text.FgRed.Sprint("unhealthy")
		}
		t.AppendRow(table.Row{key, state, record.Details, record.ProbeHost, record.ReportedAt.Format(time.RFC3339)})
	}
	t.Render()

	if len(status.RemediationLog) == 0 {
		return
	}

	fmt.Fprintln(out, "\nRemediation history:")
	h := table.NewWriter()
	h.SetOutputMirror(out)
	h.SetStyle(table.StyleRounded)
	h.AppendHeader(table.Row{"SERVICE", "STATUS", "MESSAGE", "COMPLETED"})
	for _, outcome := range status.RemediationLog {
		result := text.FgGreen.Sprint(outcome.Status)
		if outcome.Status != "success" {
			result = text.FgRed.Sprint(outcome.Status)
		}
		h.AppendRow(table.Row{outcome.Service, result, outcome.Message, outcome.CompletedAt.Format(time.RFC3339)})
	}
	h.Render()
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVar(&statusServerURL, "server", "http://localhost:7070", "Remediation server base URL")
	statusCmd.Flags().StringVarP(&statusOutputFormat, "output", "o", "table", "Output format (table, json, yaml)")
}
