package registry

import (
	"fmt"
	"sync"
	"testing"
)

func TestReportLastWriteWins(t *testing.T) {
	reg := NewStatusRegistry()
	key := ServiceKey{Cluster: "c1", Service: "vault"}

	reg.Report(key, true, "Vault is responding normally", "localhost:8200")
	reg.Report(key, false, "status 500", "localhost:8200")

	record, ok := reg.Get(key)
	if !ok {
		t.Fatal("expected record for c1-vault")
	}
	if record.Healthy {
		t.Error("expected healthy=false after second report")
	}
	if record.Details != "status 500" {
		t.Errorf("expected details from most recent report, got %q", record.Details)
	}
}

func TestSnapshotCounts(t *testing.T) {
	reg := NewStatusRegistry()
	reg.Report(ServiceKey{Cluster: "c1", Service: "vault"}, true, "ok", "localhost:8200")
	reg.Report(ServiceKey{Cluster: "c1", Service: "consul"}, false, "no leader", "localhost:8500")
	reg.Report(ServiceKey{Cluster: "c1", Service: "elasticsearch"}, true, "green", "localhost:9200")

	snap := reg.Snapshot()
	if snap.Total != 3 {
		t.Errorf("expected total=3, got %d", snap.Total)
	}
	if snap.Healthy != 2 {
		t.Errorf("expected healthy=2, got %d", snap.Healthy)
	}

	record, ok := snap.Records["c1-vault"]
	if !ok {
		t.Fatal("expected snapshot entry for c1-vault")
	}
	if !record.Healthy {
		t.Error("expected c1-vault to be healthy in snapshot")
	}
}

func TestSnapshotIsIsolated(t *testing.T) {
	reg := NewStatusRegistry()
	key := ServiceKey{Cluster: "c1", Service: "vault"}
	reg.Report(key, true, "ok", "localhost:8200")

	snap := reg.Snapshot()
	snap.Records["c1-vault"] = HealthRecord{Healthy: false, Details: "mutated"}

	record, _ := reg.Get(key)
	if !record.Healthy || record.Details != "ok" {
		t.Error("mutating a snapshot must not affect the registry")
	}
}

func TestConcurrentReports(t *testing.T) {
	reg := NewStatusRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := ServiceKey{Cluster: "c1", Service: fmt.Sprintf("svc-%d", n%5)}
			reg.Report(key, n%2 == 0, "details", "host")
			_ = reg.Snapshot()
		}(i)
	}
	wg.Wait()

	if snap := reg.Snapshot(); snap.Total != 5 {
		t.Errorf("expected 5 distinct keys, got %d", snap.Total)
	}
}

func TestServiceKeyString(t *testing.T) {
	key := ServiceKey{Cluster: "prod-us-central1", Service: "elasticsearch"}
	if got := key.String(); got != "prod-us-central1-elasticsearch" {
		t.Errorf("unexpected key form: %s", got)
	}
}
