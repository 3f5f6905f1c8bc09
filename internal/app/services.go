package app

import (
	"remedy/internal/kube"
	"remedy/internal/mcpserver"
	"remedy/internal/registry"
	"remedy/internal/remediation"
	"remedy/internal/server"
	"remedy/internal/tunnel"
	"remedy/pkg/logging"
)

// Services holds the wired components of the remediation server.
type Services struct {
	StatusRegistry *registry.StatusRegistry
	History        *registry.History
	Kube           kube.Interface
	Tunnels        tunnel.Manager
	Orchestrator   *remediation.Orchestrator
	HTTPServer     *server.Server
	MCPServer      *mcpserver.Server
}

// InitializeServices wires the registries, the Kubernetes client, the
// tunnel manager, the orchestrator, and the servers together.
//
// A cluster without reachable Kubernetes credentials still serves status
// and reports; only remediation is degraded. That keeps the dashboard
// alive on operator laptops where no kubeconfig is mounted.
func InitializeServices(cfg *Config, version string) (*Services, error) {
	remedyCfg := cfg.RemedyConfig

	statusReg := registry.NewStatusRegistry()
	history := registry.NewHistory()

	var k kube.Interface
	client, err := kube.NewClient(remedyCfg.Kubeconfig)
	if err != nil {
		logging.Warn("Bootstrap", "Kubernetes client unavailable, remediation disabled: %v", err)
		k = kube.NewUnavailable(err)
	} else {
		k = client
	}

	tunnels := tunnel.NewKubectlManager()
	orchestrator := remediation.New(remedyCfg.Cluster, k, tunnels, history)

	httpServer := server.New(remedyCfg.Cluster, statusReg, history, orchestrator)

	var mcpServer *mcpserver.Server
	if remedyCfg.MCP.Enabled {
		mcpServer = mcpserver.New(version, remedyCfg.Cluster, statusReg, history, orchestrator)
	}

	return &Services{
		StatusRegistry: statusReg,
		History:        history,
		Kube:           k,
		Tunnels:        tunnels,
		Orchestrator:   orchestrator,
		HTTPServer:     httpServer,
		MCPServer:      mcpServer,
	}, nil
}
