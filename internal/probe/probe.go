package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Result is the outcome of a single probe. Probe failures of any kind
// (refused connection, timeout, unexpected status) fold into an unhealthy
// result with a diagnostic; a probe never returns an error.
type Result struct {
	Healthy bool
	Details string
}

// Checker probes one backing service.
type Checker interface {
	// Name returns the logical service name the check reports for.
	Name() string
	// Check probes the service once.
	Check(ctx context.Context) Result
}

// DefaultProbeTimeout bounds each individual probe request.
const DefaultProbeTimeout = 5 * time.Second

func newProbeClient() *http.Client {
	return &http.Client{Timeout: DefaultProbeTimeout}
}

// failure turns a transport error into a readable unhealthy result.
func failure(service string, err error) Result {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return Result{Details: fmt.Sprintf("Connection refused - %s may be down", service)}
	case strings.Contains(msg, "context deadline exceeded"), strings.Contains(msg, "Client.Timeout"):
		return Result{Details: fmt.Sprintf("Request timeout - %s may be slow", service)}
	default:
		return Result{Details: fmt.Sprintf("%s check error: %v", service, err)}
	}
}

// VaultChecker probes Vault's health endpoint.
type VaultChecker struct {
	BaseURL string
	client  *http.Client
}

func NewVaultChecker(baseURL string) *VaultChecker {
	return &VaultChecker{BaseURL: baseURL, client: newProbeClient()}
}

func (c *VaultChecker) Name() string { return "vault" }

// Host returns the probed host for reporting.
func (c *VaultChecker) Host() string { return hostOf(c.BaseURL) }

func (c *VaultChecker) Check(ctx context.Context) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/v1/sys/health", nil)
	if err != nil {
		return failure("Vault", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return failure("Vault", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{Details: fmt.Sprintf("Vault returned status code %d", resp.StatusCode)}
	}
	return Result{Healthy: true, Details: "Vault is responding normally"}
}

// ConsulChecker probes Consul's leader endpoint. A cluster without a
// leader is unhealthy even when the HTTP endpoint answers.
type ConsulChecker struct {
	BaseURL string
	client  *http.Client
}

func NewConsulChecker(baseURL string) *ConsulChecker {
	return &ConsulChecker{BaseURL: baseURL, client: newProbeClient()}
}

func (c *ConsulChecker) Name() string { return "consul" }

// Host returns the probed host for reporting.
func (c *ConsulChecker) Host() string { return hostOf(c.BaseURL) }

func (c *ConsulChecker) Check(ctx context.Context) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/v1/status/leader", nil)
	if err != nil {
		return failure("Consul", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return failure("Consul", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return failure("Consul", err)
	}

	leader := strings.Trim(strings.TrimSpace(string(body)), `"`)
	if resp.StatusCode != http.StatusOK || leader == "" {
		return Result{Details: "No Consul leader found"}
	}
	return Result{Healthy: true, Details: fmt.Sprintf("Consul leader: %s", leader)}
}

// ElasticsearchChecker probes the cluster health endpoint. Only a green
// cluster counts as healthy; yellow is degraded and worth remediating.
type ElasticsearchChecker struct {
	BaseURL string
	client  *http.Client
}

func NewElasticsearchChecker(baseURL string) *ElasticsearchChecker {
	return &ElasticsearchChecker{BaseURL: baseURL, client: newProbeClient()}
}

func (c *ElasticsearchChecker) Name() string { return "elasticsearch" }

// Host returns the probed host for reporting.
func (c *ElasticsearchChecker) Host() string { return hostOf(c.BaseURL) }

func (c *ElasticsearchChecker) Check(ctx context.Context) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/_cluster/health", nil)
	if err != nil {
		return failure("Elasticsearch", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return failure("Elasticsearch", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{Details: fmt.Sprintf("Elasticsearch returned status code %d", resp.StatusCode)}
	}

	var health struct {
		Status      string `json:"status"`
		ClusterName string `json:"cluster_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return failure("Elasticsearch", err)
	}
	if health.ClusterName == "" {
		health.ClusterName = "unknown"
	}

	switch health.Status {
	case "green":
		return Result{Healthy: true, Details: fmt.Sprintf("Elasticsearch cluster '%s' is green", health.ClusterName)}
	case "yellow":
		return Result{Details: fmt.Sprintf("Elasticsearch cluster '%s' is yellow (degraded)", health.ClusterName)}
	case "":
		return Result{Details: fmt.Sprintf("Elasticsearch cluster '%s' is unknown", health.ClusterName)}
	default:
		return Result{Details: fmt.Sprintf("Elasticsearch cluster '%s' is %s", health.ClusterName, health.Status)}
	}
}
