package registry

import (
	"sync"
	"time"
)

// OutcomeStatus is the terminal status of a remediation attempt.
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeFailed  OutcomeStatus = "failed"
)

// Outcome records the result of one remediation attempt. Outcomes are
// immutable once appended.
type Outcome struct {
	ID          string        `json:"id"`
	Cluster     string        `json:"cluster"`
	Service     string        `json:"service"`
	Status      OutcomeStatus `json:"status"`
	Message     string        `json:"message"`
	CompletedAt time.Time     `json:"completed_at"`
}

// History is the append-only, insertion-ordered log of remediation
// outcomes. It is memory-resident and resets on process restart.
type History struct {
	mu      sync.RWMutex
	entries []Outcome
}

// NewHistory creates an empty remediation history.
func NewHistory() *History {
	return &History{}
}

// Append adds an outcome to the history. Appends are atomic per entry.
func (h *History) Append(outcome Outcome) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, outcome)
}

// Entries returns a copy of all outcomes in insertion order.
func (h *History) Entries() []Outcome {
	h.mu.RLock()
	defer h.mu.RUnlock()

	entries := make([]Outcome, len(h.entries))
	copy(entries, h.entries)
	return entries
}

// Len returns the number of recorded outcomes.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.entries)
}
