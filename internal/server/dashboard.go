package server

import (
	"html/template"
	"net/http"

	"github.com/Masterminds/sprig/v3"

	"remedy/internal/registry"
	"remedy/pkg/logging"
)

// dashboardTemplate renders the status registry and remediation history
// for operators. It intentionally has no logic of its own beyond display.
var dashboardTemplate = template.Must(
	template.New("dashboard").Funcs(sprig.HtmlFuncMap()).Parse(`<!DOCTYPE html>
<html>
<head>
  <title>remedy - {{ .Cluster }}</title>
  <meta http-equiv="refresh" content="30">
  <style>
    body { font-family: sans-serif; margin: 2em; background: #f7f7f7; }
    h1 { font-size: 1.4em; }
    table { border-collapse: collapse; background: #fff; margin-bottom: 2em; }
    th, td { border: 1px solid #ddd; padding: 0.5em 1em; text-align: left; }
    th { background: #eee; }
    .healthy { color: #1a7f37; font-weight: bold; }
    .unhealthy { color: #cf222e; font-weight: bold; }
    .failed { color: #cf222e; }
    .success { color: #1a7f37; }
  </style>
</head>
<body>
  <h1>Infrastructure status - {{ .Cluster }}</h1>
  <p>{{ .Snapshot.Healthy }}/{{ .Snapshot.Total }} services healthy</p>

  <table>
    <tr><th>Service</th><th>State</th><th>Details</th><th>Probe host</th><th>Reported</th></tr>
    {{- range $key, $record := .Snapshot.Records }}
    <tr>
      <td>{{ $key }}</td>
      {{- if $record.Healthy }}
      <td class="healthy">healthy</td>
      {{- else }}
      <td class="unhealthy">unhealthy</td>
      {{- end }}
      <td>{{ $record.Details }}</td>
      <td>{{ $record.ProbeHost | default "N/A" }}</td>
      <td>{{ $record.ReportedAt.Format "15:04:05 MST" }}</td>
    </tr>
    {{- end }}
  </table>

  <h1>Remediation history</h1>
  {{- if .History }}
  <table>
    <tr><th>Service</th><th>Status</th><th>Message</th><th>Completed</th></tr>
    {{- range .History }}
    <tr>
      <td>{{ .Service }}</td>
      <td class="{{ .Status }}">{{ .Status }}</td>
      <td>{{ .Message | trunc 240 }}</td>
      <td>{{ .CompletedAt.Format "15:04:05 MST" }}</td>
    </tr>
    {{- end }}
  </table>
  {{- else }}
  <p>No remediation attempts yet.</p>
  {{- end }}
</body>
</html>
`))

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Cluster  string
		Snapshot registry.Snapshot
		History  []registry.Outcome
	}{
		Cluster:  s.cluster,
		Snapshot: s.statusReg.Snapshot(),
		History:  s.history.Entries(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dashboardTemplate.Execute(w, data); err != nil {
		logging.Error(serverSubsystem, err, "Failed to render dashboard")
	}
}
