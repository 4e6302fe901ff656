package alert

import (
	"time"

	"github.com/tvo/signaldesk/internal/model"
)

// progress records, for one signal, the deadline its reminders were
// computed against and which minute thresholds have already fired.
type progress struct {
	deadline time.Time
	fired    map[int]bool
}

// ProgressTracker holds per-signal reminder progress. A record is
// authoritative only for the deadline it was created under: when the
// live deadline differs, the record is stale and is replaced wholesale,
// which is how an edited signal earns fresh reminders.
//
// Progress is deliberately in-memory: only the one-shot new/updated
// dedup keys are durable. After a restart thresholds already in the
// past simply never match again, so no duplicate reminders result.
type ProgressTracker struct {
	records map[string]*progress
}

// NewProgressTracker returns an empty tracker.
func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{records: make(map[string]*progress)}
}

// HasFired reports whether the threshold already fired for the signal's
// current deadline. A stale record (deadline changed) is discarded
// before the check.
func (t *ProgressTracker) HasFired(sig model.Signal, threshold int) bool {
	rec, ok := t.records[sig.ID]
	if !ok {
		return false
	}
	if !rec.deadline.Equal(sig.Deadline) {
		delete(t.records, sig.ID)
		return false
	}
	return rec.fired[threshold]
}

// MarkFired records a threshold as fired under the signal's current
// deadline, creating or replacing the record as needed.
func (t *ProgressTracker) MarkFired(sig model.Signal, threshold int) {
	rec, ok := t.records[sig.ID]
	if !ok || !rec.deadline.Equal(sig.Deadline) {
		rec = &progress{deadline: sig.Deadline, fired: make(map[int]bool)}
		t.records[sig.ID] = rec
	}
	rec.fired[threshold] = true
}

// Discard drops the record for a signal (answered, expired, or edited).
func (t *ProgressTracker) Discard(signalID string) {
	delete(t.records, signalID)
}

// Retain drops every record whose signal id is not in keep, releasing
// progress for signals that left the outstanding set.
func (t *ProgressTracker) Retain(keep map[string]bool) {
	for id := range t.records {
		if !keep[id] {
			delete(t.records, id)
		}
	}
}
