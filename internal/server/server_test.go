package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remedy/internal/registry"
	"remedy/internal/remediation"
)

// fakeRemediator records triggers and optionally rejects them.
type fakeRemediator struct {
	err      error
	services []string
}

func (f *fakeRemediator) Trigger(ctx context.Context, service string) error {
	if f.err != nil {
		return f.err
	}
	f.services = append(f.services, service)
	return nil
}

func newTestServer() (*Server, *registry.StatusRegistry, *registry.History, *fakeRemediator) {
	statusReg := registry.NewStatusRegistry()
	history := registry.NewHistory()
	remediator := &fakeRemediator{}
	return New("test-cluster", statusReg, history, remediator), statusReg, history, remediator
}

func postJSON(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func getPath(handler http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestReportThenStatus(t *testing.T) {
	srv, _, _, _ := newTestServer()
	handler := srv.Handler()

	rec := postJSON(t, handler, "/api/report",
		`{"cluster":"c1","service":"vault","healthy":false,"details":"status 500","probe_host":"localhost:8200"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var ack map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ack))
	assert.Equal(t, "Report received", ack["message"])
	assert.Equal(t, "c1-vault", ack["key"])

	rec = getPath(handler, "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var status struct {
		Cluster string `json:"cluster"`
		Status  map[string]struct {
			Healthy bool   `json:"healthy"`
			Details string `json:"details"`
		} `json:"status"`
		TotalServices   int `json:"total_services"`
		HealthyServices int `json:"healthy_services"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "test-cluster", status.Cluster)
	assert.Equal(t, 1, status.TotalServices)
	assert.Equal(t, 0, status.HealthyServices)

	record, ok := status.Status["c1-vault"]
	require.True(t, ok, "expected registry entry for c1-vault")
	assert.False(t, record.Healthy)
	assert.Equal(t, "status 500", record.Details)
}

func TestReportRejectsMissingIdentity(t *testing.T) {
	srv, _, _, _ := newTestServer()
	handler := srv.Handler()

	rec := postJSON(t, handler, "/api/report", `{"healthy":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, handler, "/api/report", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusIncludesHistory(t *testing.T) {
	srv, _, history, _ := newTestServer()
	history.Append(registry.Outcome{
		Service: "vault",
		Status:  registry.OutcomeSuccess,
		Message: "Remediation completed for vault.",
	})

	rec := getPath(srv.Handler(), "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var status struct {
		RemediationLog []registry.Outcome `json:"remediation_log"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.Len(t, status.RemediationLog, 1)
	assert.Equal(t, registry.OutcomeSuccess, status.RemediationLog[0].Status)
}

func TestRemediateAck(t *testing.T) {
	srv, _, _, remediator := newTestServer()

	rec := postJSON(t, srv.Handler(), "/api/remediate/vault", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var ack map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ack))
	assert.Equal(t, "Remediation started for vault", ack["message"])
	assert.Equal(t, "vault", ack["service"])
	assert.Equal(t, []string{"vault"}, remediator.services)
}

func TestRemediateConflictWhenInFlight(t *testing.T) {
	srv, _, _, remediator := newTestServer()
	remediator.err = remediation.ErrAlreadyInFlight

	rec := postJSON(t, srv.Handler(), "/api/remediate/vault", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	srv, statusReg, _, _ := newTestServer()
	statusReg.Report(registry.ServiceKey{Cluster: "c1", Service: "vault"}, true, "ok", "")

	rec := getPath(srv.Handler(), "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var health map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, float64(1), health["services_monitored"])
}

func TestDashboardRenders(t *testing.T) {
	srv, statusReg, history, _ := newTestServer()
	statusReg.Report(registry.ServiceKey{Cluster: "c1", Service: "consul"}, false, "No Consul leader found", "localhost:8500")
	history.Append(registry.Outcome{
		Service: "consul",
		Status:  registry.OutcomeFailed,
		Message: "rollout restart failed",
	})

	rec := getPath(srv.Handler(), "/dashboard")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "test-cluster")
	assert.Contains(t, body, "c1-consul")
	assert.Contains(t, body, "No Consul leader found")
	assert.Contains(t, body, "rollout restart failed")
}
