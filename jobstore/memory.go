package jobstore

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/BaSui01/anythingworld/types"
)

// MemoryStore is an in-memory implementation of Store.
// Data is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	jobs   map[types.JobID]*Job
	closed bool
	now    func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs: make(map[types.JobID]*Job),
		now:  time.Now,
	}
}

// Close closes the store
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Ping checks if the store is healthy
func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

func (s *MemoryStore) Save(ctx context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	if err := prepare(job, s.now()); err != nil {
		return err
	}
	s.jobs[job.ID] = job.Clone()
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id types.JobID) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return job.Clone(), nil
}

func (s *MemoryStore) List(ctx context.Context, filter Filter) ([]*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	out := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		if filter.Match(job) {
			out = append(out, job.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *Job) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return limit(out, filter.Limit), nil
}

func (s *MemoryStore) RecordStage(ctx context.Context, id types.JobID, stage string, attempt int) error {
	return s.update(id, func(job *Job, now time.Time) { applyStage(job, stage, attempt, now) })
}

func (s *MemoryStore) MarkDone(ctx context.Context, id types.JobID, stage string) error {
	return s.update(id, func(job *Job, now time.Time) { applyDone(job, stage, now) })
}

func (s *MemoryStore) MarkFailed(ctx context.Context, id types.JobID, cause error) error {
	return s.update(id, func(job *Job, now time.Time) { applyFailed(job, cause, now) })
}

func (s *MemoryStore) Delete(ctx context.Context, id types.JobID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	if _, ok := s.jobs[id]; !ok {
		return ErrNotFound
	}
	delete(s.jobs, id)
	return nil
}

func (s *MemoryStore) update(id types.JobID, fn func(*Job, time.Time)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	job, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	fn(job, s.now())
	return nil
}
