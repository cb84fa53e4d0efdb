// Package job defines the scan job model and its status state machine.
//
// A Job is mutated only by its own pipeline task through the orchestrator
// (single-writer discipline). Everything handed to readers is a deep copy,
// so pollers can never observe a half-updated record.
package job

import (
	"time"

	"github.com/snlscan/snlscan/pkg/finding"
)

// Mode selects the scan profile. It only tunes adapter parameters
// (crawl depth, detection timeout); the orchestrator treats it as opaque.
type Mode string

const (
	ModeQuick Mode = "quick"
	ModeDeep  Mode = "deep"
)

// IsValid reports whether m is a recognized scan mode.
func (m Mode) IsValid() bool {
	return m == ModeQuick || m == ModeDeep
}

// Status is the lifecycle state of a scan job.
type Status string

const (
	// StatusPending is the initial state, set at creation before any work.
	StatusPending Status = "pending"

	// StatusRunning is set synchronously with pipeline launch, before the
	// first adapter call.
	StatusRunning Status = "running"

	// StatusCompleted means interpretation was attempted for every
	// prioritized finding and the result is attached.
	StatusCompleted Status = "completed"

	// StatusFailed means discovery or detection failed; the cause is in
	// the job's Error field.
	StatusFailed Status = "failed"

	// StatusCancelled means a cancellation request was observed at a
	// pipeline checkpoint.
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition can leave s.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether the state machine permits s -> next.
// pending may only start running; running may reach any terminal state;
// terminal states are absorbing.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusRunning || next == StatusCancelled
	case StatusRunning:
		return next.Terminal()
	}
	return false
}

// Job is one unit of scan work: identity, target, lifecycle state, and
// the accumulated outcome. Result and Error are mutually exclusive and
// both nil/empty until a terminal state is reached.
type Job struct {
	ID          string              `json:"scan_id"`
	Target      string              `json:"target"`
	Mode        Mode                `json:"mode"`
	Status      Status              `json:"status"`
	SubmittedAt time.Time           `json:"submitted_at"`
	StartedAt   *time.Time          `json:"started_at,omitempty"`
	FinishedAt  *time.Time          `json:"finished_at,omitempty"`
	Result      *finding.ScanResult `json:"result,omitempty"`
	Error       string              `json:"error,omitempty"`
}

// Clone returns a deep copy of j. Stored jobs are cloned on every read
// and every write so that snapshots held by pollers stay frozen.
func (j *Job) Clone() *Job {
	c := *j
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		c.FinishedAt = &t
	}
	if j.Result != nil {
		r := *j.Result
		r.Findings = make([]finding.Finding, len(j.Result.Findings))
		copy(r.Findings, j.Result.Findings)
		for i := range r.Findings {
			if tags := r.Findings[i].Tags; tags != nil {
				r.Findings[i].Tags = append([]string(nil), tags...)
			}
		}
		c.Result = &r
	}
	return &c
}
