package sandbox

import (
	"context"
	"sync"
	"time"
)

// ShellStatus is the lifecycle state of a background shell job.
type ShellStatus string

const (
	ShellRunning   ShellStatus = "running"
	ShellSucceeded ShellStatus = "succeeded"
	ShellFailed    ShellStatus = "failed"
	ShellKilled    ShellStatus = "killed"
)

// ShellJob records one background bash invocation: which process it is,
// which logical shell session it belongs to, and where its output lives.
type ShellJob struct {
	PID        int         `json:"pid"`
	ShellID    string      `json:"shell_id"`
	Script     string      `json:"script"`
	Mode       BashMode    `json:"mode"`
	OutputPath string      `json:"output_path"`
	Status     ShellStatus `json:"status"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at,omitempty"`

	cancel context.CancelFunc `json:"-"`
}

// ScriptPreview returns a truncated, single-line preview of the job's
// script, suitable for a list tool's summary output.
func (j *ShellJob) ScriptPreview(maxLen int) string {
	preview := j.Script
	for i, r := range preview {
		if r == '\n' {
			preview = preview[:i]
			break
		}
	}
	if maxLen > 0 && len(preview) > maxLen {
		preview = preview[:maxLen] + "..."
	}
	return preview
}

// JobRegistry is a concurrent map from pid to ShellJob, with insertion
// order tracked separately for enumeration. A single writer registers and
// updates jobs; reads clone to avoid aliasing the stored record.
type JobRegistry struct {
	mu   sync.Mutex
	jobs map[int]*ShellJob
	pids []int
}

// NewJobRegistry returns an empty JobRegistry.
func NewJobRegistry() *JobRegistry {
	return &JobRegistry{jobs: make(map[int]*ShellJob)}
}

// Register adds a new shell job, keyed by its pid.
func (r *JobRegistry) Register(job *ShellJob) {
	if job == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[job.PID]; !exists {
		r.pids = append(r.pids, job.PID)
	}
	r.jobs[job.PID] = cloneShellJob(job)
}

// SetCancelFunc attaches a cancellation func to a registered job, used by
// close_shell to kill outstanding jobs for a given shell id.
func (r *JobRegistry) SetCancelFunc(pid int, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job, ok := r.jobs[pid]; ok {
		job.cancel = cancel
	}
}

// UpdateStatus transitions a job's status, stamping FinishedAt for terminal
// statuses.
func (r *JobRegistry) UpdateStatus(pid int, status ShellStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[pid]
	if !ok {
		return
	}
	job.Status = status
	if status != ShellRunning {
		job.FinishedAt = time.Now()
	}
}

// Get returns a copy of the job for pid.
func (r *JobRegistry) Get(pid int) (*ShellJob, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[pid]
	if !ok {
		return nil, false
	}
	return cloneShellJob(job), true
}

// List returns every job in registration order.
func (r *JobRegistry) List() []*ShellJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*ShellJob, 0, len(r.pids))
	for _, pid := range r.pids {
		if job, ok := r.jobs[pid]; ok {
			result = append(result, cloneShellJob(job))
		}
	}
	return result
}

// ListByShell returns every job registered under shellID, in registration order.
func (r *JobRegistry) ListByShell(shellID string) []*ShellJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*ShellJob
	for _, pid := range r.pids {
		job, ok := r.jobs[pid]
		if ok && job.ShellID == shellID {
			result = append(result, cloneShellJob(job))
		}
	}
	return result
}

// CloseShell kills every still-running job registered under shellID via its
// stored cancel func, and marks them ShellKilled.
func (r *JobRegistry) CloseShell(shellID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	var killed int
	for _, pid := range r.pids {
		job, ok := r.jobs[pid]
		if !ok || job.ShellID != shellID || job.Status != ShellRunning {
			continue
		}
		if job.cancel != nil {
			job.cancel()
		}
		job.Status = ShellKilled
		job.FinishedAt = time.Now()
		killed++
	}
	return killed
}

func cloneShellJob(job *ShellJob) *ShellJob {
	if job == nil {
		return nil
	}
	clone := *job
	return &clone
}
