package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML as either a
// duration string ("30s") or a bare number of seconds.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var secs int
	if err := value.Decode(&secs); err == nil {
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Config is the top-level configuration for remedy.
type Config struct {
	// Cluster is the identity attached to every report and outcome.
	Cluster string `yaml:"cluster,omitempty"`

	Server ServerConfig `yaml:"server,omitempty"`
	MCP    MCPConfig    `yaml:"mcp,omitempty"`
	Agent  AgentConfig  `yaml:"agent,omitempty"`

	// Kubeconfig overrides the kubeconfig path used outside the cluster.
	Kubeconfig string `yaml:"kubeconfig,omitempty"`
}

// ServerConfig configures the HTTP API and dashboard.
type ServerConfig struct {
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`
}

// MCPConfig configures the MCP tool endpoint.
type MCPConfig struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	Host    string `yaml:"host,omitempty"`
	Port    int    `yaml:"port,omitempty"`
}

// AgentConfig configures the health agent.
type AgentConfig struct {
	// ServerURL is the remediation server base URL reports go to.
	ServerURL string `yaml:"serverURL,omitempty"`

	// Interval is the probe cycle interval.
	Interval Duration `yaml:"interval,omitempty"`

	// Endpoints are the probe base URLs per service. The defaults point
	// at the local tunnels the server maintains.
	Endpoints EndpointsConfig `yaml:"endpoints,omitempty"`
}

// EndpointsConfig holds the probe base URLs.
type EndpointsConfig struct {
	Vault         string `yaml:"vault,omitempty"`
	Consul        string `yaml:"consul,omitempty"`
	Elasticsearch string `yaml:"elasticsearch,omitempty"`
}

// GetDefaultConfig returns the built-in defaults: a local server, probes
// against the local tunnels, and the MCP endpoint disabled.
func GetDefaultConfig() Config {
	return Config{
		Cluster: "local",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 7070,
		},
		MCP: MCPConfig{
			Enabled: false,
			Host:    "localhost",
			Port:    7071,
		},
		Agent: AgentConfig{
			ServerURL: "http://localhost:7070",
			Interval:  Duration(30 * time.Second),
			Endpoints: EndpointsConfig{
				Vault:         "http://localhost:8200",
				Consul:        "http://localhost:8500",
				Elasticsearch: "http://localhost:9200",
			},
		},
	}
}
