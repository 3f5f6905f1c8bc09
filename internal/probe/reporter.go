package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"remedy/pkg/logging"
)

// Report is the payload posted to the server's report-ingestion endpoint.
type Report struct {
	Cluster   string `json:"cluster"`
	Service   string `json:"service"`
	Healthy   bool   `json:"healthy"`
	Details   string `json:"details"`
	ProbeHost string `json:"probe_host"`
}

// Reporter delivers probe results to the remediation server.
type Reporter struct {
	ServerURL string
	Cluster   string
	client    *http.Client
}

// NewReporter creates a reporter targeting the given server base URL.
func NewReporter(serverURL, cluster string) *Reporter {
	return &Reporter{
		ServerURL: serverURL,
		Cluster:   cluster,
		client:    &http.Client{Timeout: 3 * time.Second},
	}
}

// Send posts one health report. Delivery failures are logged and returned
// so the caller can count them, but the probe loop never stops on them.
func (r *Reporter) Send(ctx context.Context, service string, result Result, probeHost string) error {
	report := Report{
		Cluster:   r.Cluster,
		Service:   service,
		Healthy:   result.Healthy,
		Details:   result.Details,
		ProbeHost: probeHost,
	}
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report for %s: %w", service, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.ServerURL+"/api/report", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build report request for %s: %w", service, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		logging.Warn("Reporter", "Failed to send report for %s: %v", service, err)
		return fmt.Errorf("failed to send report for %s: %w", service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logging.Warn("Reporter", "Report for %s rejected with status %d", service, resp.StatusCode)
		return fmt.Errorf("report for %s rejected with status %d", service, resp.StatusCode)
	}

	logging.Info("Reporter", "Sent report for %s: %s", service, healthWord(result.Healthy))
	return nil
}

func healthWord(healthy bool) string {
	if healthy {
		return "healthy"
	}
	return "unhealthy"
}

// hostOf extracts host:port from a probe base URL for the probe_host
// field; the raw URL is reported when parsing fails.
func hostOf(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return baseURL
	}
	return u.Host
}
