package jobstore

import (
	"context"
	"errors"
	"time"

	"github.com/BaSui01/anythingworld/types"
)

// Common errors
var (
	ErrNotFound     = errors.New("job not found")
	ErrStoreClosed  = errors.New("store is closed")
	ErrInvalidInput = errors.New("invalid input")
)

// Backend names accepted in config.StoreConfig.Backend.
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQL    = "sql"
)

// State is the local lifecycle of a job record.
type State string

const (
	StatePending State = "pending"
	StateRunning State = "running"
	StateDone    State = "done"
	StateFailed  State = "failed"
)

// IsTerminal returns true if no further poll will change the state.
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

// Job is one submitted job as seen by this client.
type Job struct {
	ID     types.JobID       `json:"id" yaml:"id"`
	Kind   types.JobKind     `json:"kind" yaml:"kind"`
	Detail types.DetailLevel `json:"detail,omitempty" yaml:"detail,omitempty"`
	Name   string            `json:"name,omitempty" yaml:"name,omitempty"`
	State  State             `json:"state" yaml:"state"`
	// Stage is the last stage reported by the service.
	Stage string `json:"stage,omitempty" yaml:"stage,omitempty"`
	// Attempts counts status fetches made for this job.
	Attempts    int        `json:"attempts" yaml:"attempts"`
	Error       string     `json:"error,omitempty" yaml:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" yaml:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
}

// Clone returns a copy that shares nothing with j.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	out := *j
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}

// Filter narrows List results. Zero fields match everything.
type Filter struct {
	State State
	Kind  types.JobKind
	// Limit caps the number of returned jobs, 0 means no limit.
	Limit int
}

// Match reports whether j passes the filter.
func (f Filter) Match(j *Job) bool {
	if f.State != "" && j.State != f.State {
		return false
	}
	if f.Kind != "" && j.Kind != f.Kind {
		return false
	}
	return true
}

// Store persists job records. Implementations are safe for concurrent use.
type Store interface {
	// Save inserts or replaces a job record.
	Save(ctx context.Context, job *Job) error
	// Get returns ErrNotFound for unknown ids.
	Get(ctx context.Context, id types.JobID) (*Job, error)
	// List returns matching jobs, oldest first.
	List(ctx context.Context, filter Filter) ([]*Job, error)
	// RecordStage stores the stage seen on the given poll attempt.
	RecordStage(ctx context.Context, id types.JobID, stage string, attempt int) error
	// MarkDone moves a job to StateDone with its final stage.
	MarkDone(ctx context.Context, id types.JobID, stage string) error
	// MarkFailed moves a job to StateFailed with the error text.
	MarkFailed(ctx context.Context, id types.JobID, cause error) error
	Delete(ctx context.Context, id types.JobID) error
	Close() error
	Ping(ctx context.Context) error
}

// prepare validates job and fills its defaults before a save.
func prepare(job *Job, now time.Time) error {
	if job == nil || job.ID == "" {
		return ErrInvalidInput
	}
	if job.State == "" {
		job.State = StatePending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	return nil
}

func applyStage(job *Job, stage string, attempt int, now time.Time) {
	job.Stage = stage
	if attempt > job.Attempts {
		job.Attempts = attempt
	}
	if job.State == StatePending {
		job.State = StateRunning
	}
	job.UpdatedAt = now
}

func applyDone(job *Job, stage string, now time.Time) {
	if stage != "" {
		job.Stage = stage
	}
	job.State = StateDone
	job.Error = ""
	job.UpdatedAt = now
	job.CompletedAt = &now
}

func applyFailed(job *Job, cause error, now time.Time) {
	job.State = StateFailed
	if cause != nil {
		job.Error = cause.Error()
	}
	job.UpdatedAt = now
	job.CompletedAt = &now
}

func limit(jobs []*Job, n int) []*Job {
	if n > 0 && len(jobs) > n {
		return jobs[:n]
	}
	return jobs
}
