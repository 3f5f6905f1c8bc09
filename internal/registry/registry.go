package registry

import (
	"sync"
	"time"
)

// ServiceKey identifies a monitored target by cluster and service name.
type ServiceKey struct {
	Cluster string
	Service string
}

// String returns the wire form of the key, as used by the report API.
func (k ServiceKey) String() string {
	return k.Cluster + "-" + k.Service
}

// HealthRecord is the last-known health state for a ServiceKey.
// Records are overwritten wholesale on each new report (last-write-wins).
type HealthRecord struct {
	Healthy    bool      `json:"healthy"`
	Details    string    `json:"details"`
	ProbeHost  string    `json:"probe_host"`
	ReportedAt time.Time `json:"reported_at"`
}

// Snapshot is an immutable copy of the registry contents plus aggregate
// counts, safe to hand to reporting callers.
type Snapshot struct {
	Records map[string]HealthRecord `json:"records"`
	Total   int                     `json:"total"`
	Healthy int                     `json:"healthy"`
}

// StatusRegistry is the process-wide mapping from ServiceKey to the most
// recent HealthRecord. It is safe for concurrent use by report-ingestion
// writers and status-query readers.
type StatusRegistry struct {
	mu      sync.RWMutex
	records map[ServiceKey]HealthRecord
}

// NewStatusRegistry creates an empty status registry.
func NewStatusRegistry() *StatusRegistry {
	return &StatusRegistry{
		records: make(map[ServiceKey]HealthRecord),
	}
}

// Report upserts the health record for key. The prior record, if any, is
// discarded. Report never fails.
func (r *StatusRegistry) Report(key ServiceKey, healthy bool, details, probeHost string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[key] = HealthRecord{
		Healthy:    healthy,
		Details:    details,
		ProbeHost:  probeHost,
		ReportedAt: time.Now(),
	}
}

// Get returns the record for key and whether one exists.
func (r *StatusRegistry) Get(key ServiceKey) (HealthRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[key]
	return record, ok
}

// Snapshot returns a defensive copy of the full mapping keyed by the wire
// form of each ServiceKey, along with total and healthy counts.
func (r *StatusRegistry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := Snapshot{
		Records: make(map[string]HealthRecord, len(r.records)),
		Total:   len(r.records),
	}
	for key, record := range r.records {
		snap.Records[key.String()] = record
		if record.Healthy {
			snap.Healthy++
		}
	}
	return snap
}
