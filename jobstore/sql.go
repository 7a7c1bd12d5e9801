package jobstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/BaSui01/anythingworld/internal/database"
	"github.com/BaSui01/anythingworld/types"
)

// txAttempts bounds retries of a transaction hitting a lock or deadlock.
const txAttempts = 3

// jobRecord 任务记录表
type jobRecord struct {
	ID          string    `gorm:"primaryKey;size:64"`
	Kind        string    `gorm:"size:32;not null;index:idx_aw_jobs_kind"`
	Detail      string    `gorm:"size:32"`
	Name        string    `gorm:"size:255"`
	State       string    `gorm:"size:16;not null;index:idx_aw_jobs_state"`
	Stage       string    `gorm:"size:128"`
	Attempts    int       `gorm:"default:0"`
	Error       string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"index:idx_aw_jobs_created"`
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

func (jobRecord) TableName() string {
	return "aw_jobs"
}

func toRecord(j *Job) *jobRecord {
	return &jobRecord{
		ID:          string(j.ID),
		Kind:        string(j.Kind),
		Detail:      string(j.Detail),
		Name:        j.Name,
		State:       string(j.State),
		Stage:       j.Stage,
		Attempts:    j.Attempts,
		Error:       j.Error,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
		CompletedAt: j.CompletedAt,
	}
}

func (r *jobRecord) toJob() *Job {
	return &Job{
		ID:          types.JobID(r.ID),
		Kind:        types.JobKind(r.Kind),
		Detail:      types.DetailLevel(r.Detail),
		Name:        r.Name,
		State:       State(r.State),
		Stage:       r.Stage,
		Attempts:    r.Attempts,
		Error:       r.Error,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		CompletedAt: r.CompletedAt,
	}
}

// SQLStore is a gorm implementation of Store over a managed connection pool.
type SQLStore struct {
	pool *database.PoolManager
	now  func() time.Time
}

// NewSQLStore migrates the jobs table and returns a store that owns pool.
func NewSQLStore(ctx context.Context, pool *database.PoolManager) (*SQLStore, error) {
	if err := pool.DB().WithContext(ctx).AutoMigrate(&jobRecord{}); err != nil {
		return nil, fmt.Errorf("migrate jobs table: %w", err)
	}
	return &SQLStore{pool: pool, now: time.Now}, nil
}

// Close closes the connection pool
func (s *SQLStore) Close() error {
	return s.pool.Close()
}

// Ping checks if the store is healthy
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *SQLStore) Save(ctx context.Context, job *Job) error {
	if err := prepare(job, s.now()); err != nil {
		return err
	}
	rec := toRecord(job)
	return s.pool.WithTransactionRetry(ctx, txAttempts, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(rec).Error
	})
}

func (s *SQLStore) Get(ctx context.Context, id types.JobID) (*Job, error) {
	var rec jobRecord
	err := s.pool.DB().WithContext(ctx).Where("id = ?", string(id)).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return rec.toJob(), nil
}

func (s *SQLStore) List(ctx context.Context, filter Filter) ([]*Job, error) {
	q := s.pool.DB().WithContext(ctx).Model(&jobRecord{})
	if filter.State != "" {
		q = q.Where("state = ?", string(filter.State))
	}
	if filter.Kind != "" {
		q = q.Where("kind = ?", string(filter.Kind))
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var recs []jobRecord
	if err := q.Order("created_at ASC").Order("id ASC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	jobs := make([]*Job, len(recs))
	for i := range recs {
		jobs[i] = recs[i].toJob()
	}
	return jobs, nil
}

func (s *SQLStore) RecordStage(ctx context.Context, id types.JobID, stage string, attempt int) error {
	return s.update(ctx, id, func(job *Job, now time.Time) { applyStage(job, stage, attempt, now) })
}

func (s *SQLStore) MarkDone(ctx context.Context, id types.JobID, stage string) error {
	return s.update(ctx, id, func(job *Job, now time.Time) { applyDone(job, stage, now) })
}

func (s *SQLStore) MarkFailed(ctx context.Context, id types.JobID, cause error) error {
	return s.update(ctx, id, func(job *Job, now time.Time) { applyFailed(job, cause, now) })
}

func (s *SQLStore) Delete(ctx context.Context, id types.JobID) error {
	res := s.pool.DB().WithContext(ctx).Where("id = ?", string(id)).Delete(&jobRecord{})
	if res.Error != nil {
		return fmt.Errorf("delete job %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) update(ctx context.Context, id types.JobID, fn func(*Job, time.Time)) error {
	return s.pool.WithTransactionRetry(ctx, txAttempts, func(tx *gorm.DB) error {
		q := tx
		if tx.Dialector.Name() != "sqlite" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var rec jobRecord
		err := q.Where("id = ?", string(id)).Take(&rec).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		job := rec.toJob()
		fn(job, s.now())
		return tx.Save(toRecord(job)).Error
	})
}
