package jobstore

import (
	"context"
	"time"

	"github.com/BaSui01/anythingworld/types"
)

// OpRecorder receives one observation per store call.
// *metrics.Collector satisfies it.
type OpRecorder interface {
	RecordStoreOp(backend, operation string, duration time.Duration, err error)
}

// Instrument wraps store so every call is reported to rec under backend.
func Instrument(store Store, backend string, rec OpRecorder) Store {
	if store == nil || rec == nil {
		return store
	}
	return &instrumented{next: store, backend: backend, rec: rec}
}

type instrumented struct {
	next    Store
	backend string
	rec     OpRecorder
}

func (s *instrumented) observe(op string, start time.Time, err error) {
	s.rec.RecordStoreOp(s.backend, op, time.Since(start), err)
}

func (s *instrumented) Save(ctx context.Context, job *Job) error {
	start := time.Now()
	err := s.next.Save(ctx, job)
	s.observe("save", start, err)
	return err
}

func (s *instrumented) Get(ctx context.Context, id types.JobID) (*Job, error) {
	start := time.Now()
	job, err := s.next.Get(ctx, id)
	s.observe("get", start, err)
	return job, err
}

func (s *instrumented) List(ctx context.Context, filter Filter) ([]*Job, error) {
	start := time.Now()
	jobs, err := s.next.List(ctx, filter)
	s.observe("list", start, err)
	return jobs, err
}

func (s *instrumented) RecordStage(ctx context.Context, id types.JobID, stage string, attempt int) error {
	start := time.Now()
	err := s.next.RecordStage(ctx, id, stage, attempt)
	s.observe("record_stage", start, err)
	return err
}

func (s *instrumented) MarkDone(ctx context.Context, id types.JobID, stage string) error {
	start := time.Now()
	err := s.next.MarkDone(ctx, id, stage)
	s.observe("mark_done", start, err)
	return err
}

func (s *instrumented) MarkFailed(ctx context.Context, id types.JobID, cause error) error {
	start := time.Now()
	err := s.next.MarkFailed(ctx, id, cause)
	s.observe("mark_failed", start, err)
	return err
}

func (s *instrumented) Delete(ctx context.Context, id types.JobID) error {
	start := time.Now()
	err := s.next.Delete(ctx, id)
	s.observe("delete", start, err)
	return err
}

func (s *instrumented) Close() error { return s.next.Close() }

func (s *instrumented) Ping(ctx context.Context) error {
	start := time.Now()
	err := s.next.Ping(ctx)
	s.observe("ping", start, err)
	return err
}
