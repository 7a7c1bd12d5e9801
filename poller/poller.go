package poller

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/anythingworld/stages"
	"github.com/BaSui01/anythingworld/types"
)

const instrumentationName = "github.com/BaSui01/anythingworld/poller"

// Outcome labels reported to the Recorder.
const (
	OutcomeDone      = "done"
	OutcomeNotReady  = "not_ready"
	OutcomeError     = "error"
	OutcomeCancelled = "cancelled"
	OutcomeLimit     = "limit"
)

var errDeadline = errors.New("poll deadline exceeded")

// Fetcher performs exactly one status query for a job.
type Fetcher interface {
	FetchStatus(ctx context.Context, id types.JobID) (types.StatusDocument, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, id types.JobID) (types.StatusDocument, error)

// FetchStatus implements Fetcher.
func (f FetcherFunc) FetchStatus(ctx context.Context, id types.JobID) (types.StatusDocument, error) {
	return f(ctx, id)
}

// Recorder receives polling metrics. internal/metrics.Collector implements it.
type Recorder interface {
	RecordPollAttempt(outcome string)
	RecordPollResult(outcome string, attempts int, duration time.Duration)
}

// Sleeper suspends for d, returning early with an error when ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Poller drives repeated status fetches until a terminal stage is observed.
// It holds no per-sequence state, so one Poller serves any number of
// concurrent sequences.
type Poller struct {
	fetcher  Fetcher
	logger   *zap.Logger
	recorder Recorder
	tracer   trace.Tracer
	sleep    Sleeper
}

// Option configures a Poller.
type Option func(*Poller)

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(p *Poller) { p.recorder = r }
}

// WithTracer overrides the global otel tracer.
func WithTracer(t trace.Tracer) Option {
	return func(p *Poller) { p.tracer = t }
}

// WithSleeper replaces the timer-based sleep, mainly for tests.
func WithSleeper(s Sleeper) Option {
	return func(p *Poller) { p.sleep = s }
}

// New creates a Poller around a status fetcher.
func New(fetcher Fetcher, logger *zap.Logger, opts ...Option) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Poller{
		fetcher: fetcher,
		logger:  logger.With(zap.String("component", "poller")),
		tracer:  otel.Tracer(instrumentationName),
		sleep:   SleepContext,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SleepContext waits for d or until ctx is done. A non-positive d only
// checks the context.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// PollUntilDone fetches the status of id until its stage is a member of
// terminal and returns that fetch's document unchanged. A failed fetch ends
// the sequence immediately; it is never retried here.
func (p *Poller) PollUntilDone(ctx context.Context, id types.JobID, terminal stages.StageSet, o Options) (types.StatusDocument, error) {
	return p.poll(ctx, p.fetcher, id, terminal, o)
}

func (p *Poller) poll(ctx context.Context, fetcher Fetcher, id types.JobID, terminal stages.StageSet, o Options) (types.StatusDocument, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	if fetcher == nil {
		return nil, types.NewError(types.ErrConfiguration, "poller has no status fetcher")
	}
	if terminal.Len() == 0 && o.MissingStage != MissingStageDone {
		return nil, types.NewError(types.ErrConfiguration, "empty terminal stage set")
	}

	start := time.Now()
	ctx = types.WithJobID(ctx, id)
	ctx, span := p.tracer.Start(ctx, "poller.PollUntilDone",
		trace.WithAttributes(
			attribute.String("aw.job_id", string(id)),
			attribute.StringSlice("aw.terminal_stages", terminal.Names()),
			attribute.Int64("aw.interval_ms", o.Interval.Milliseconds()),
		))
	defer span.End()

	if o.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, o.Deadline, errDeadline)
		defer cancel()
	}

	logger := p.logger.With(zap.String("job_id", string(id)))
	attempt := 0

	finish := func(outcome string, doc types.StatusDocument, err error) (types.StatusDocument, error) {
		span.SetAttributes(
			attribute.Int("aw.attempts", attempt),
			attribute.String("aw.outcome", outcome),
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		if p.recorder != nil {
			p.recorder.RecordPollResult(outcome, attempt, time.Since(start))
		}
		return doc, err
	}

	if o.Warmup > 0 {
		diag(logger, o.Verbose, "warming up before first attempt", zap.Duration("warmup", o.Warmup))
		if err := p.sleep(ctx, o.Warmup); err != nil {
			outcome, stopErr := stopped(ctx, id, attempt)
			return finish(outcome, nil, stopErr)
		}
	}

	for {
		if ctx.Err() != nil {
			outcome, stopErr := stopped(ctx, id, attempt)
			return finish(outcome, nil, stopErr)
		}
		attempt++
		doc, err := fetcher.FetchStatus(ctx, id)
		if o.OnAttempt != nil {
			o.OnAttempt(attempt, doc, err)
		}

		if err != nil {
			p.recordAttempt(OutcomeError)
			if ctx.Err() != nil {
				outcome, stopErr := stopped(ctx, id, attempt)
				return finish(outcome, nil, stopErr)
			}
			diag(logger, o.Verbose, "polling attempt failed",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return finish(OutcomeError, nil, attemptError(err, attempt, id))
		}

		stage, hasStage := doc.Stage()
		if done := isTerminal(stage, hasStage, terminal, o.MissingStage); done {
			p.recordAttempt(OutcomeDone)
			diag(logger, o.Verbose, "polling attempt done",
				zap.Int("attempt", attempt),
				zap.String("stage", stage),
			)
			return finish(OutcomeDone, doc, nil)
		}

		p.recordAttempt(OutcomeNotReady)
		diag(logger, o.Verbose, "job is not ready yet",
			zap.Int("attempt", attempt),
			zap.String("stage", stage),
			zap.Bool("has_stage", hasStage),
		)

		if o.MaxAttempts > 0 && attempt >= o.MaxAttempts {
			return finish(OutcomeLimit, nil, types.Errorf(types.ErrPollLimit,
				"job not done after %d attempts", attempt).WithAttempt(attempt).WithJobID(id))
		}

		if err := p.sleep(ctx, o.Interval); err != nil {
			outcome, stopErr := stopped(ctx, id, attempt)
			return finish(outcome, nil, stopErr)
		}
	}
}

// IsDone performs a single fetch and reports whether the job's stage is
// terminal. An absent stage is reported as not done.
func (p *Poller) IsDone(ctx context.Context, id types.JobID, terminal stages.StageSet) (bool, error) {
	_, done, err := p.Check(ctx, id, terminal, MissingStageNotReady)
	return done, err
}

// Check performs a single fetch and returns the document together with the
// terminal decision under the given missing-stage policy.
func (p *Poller) Check(ctx context.Context, id types.JobID, terminal stages.StageSet, policy MissingStagePolicy) (types.StatusDocument, bool, error) {
	if p.fetcher == nil {
		return nil, false, types.NewError(types.ErrConfiguration, "poller has no status fetcher")
	}
	doc, err := p.fetcher.FetchStatus(ctx, id)
	if err != nil {
		return nil, false, err
	}
	stage, hasStage := doc.Stage()
	return doc, isTerminal(stage, hasStage, terminal, policy), nil
}

func isTerminal(stage string, hasStage bool, terminal stages.StageSet, policy MissingStagePolicy) bool {
	if !hasStage {
		return policy == MissingStageDone
	}
	return terminal.Contains(stage)
}

func (p *Poller) recordAttempt(outcome string) {
	if p.recorder != nil {
		p.recorder.RecordPollAttempt(outcome)
	}
}

// stopped maps a finished context to CANCELLED, or POLL_LIMIT when the
// sequence's own deadline fired.
func stopped(ctx context.Context, id types.JobID, attempt int) (string, error) {
	if errors.Is(context.Cause(ctx), errDeadline) {
		return OutcomeLimit, types.NewError(types.ErrPollLimit, "poll deadline exceeded").
			WithAttempt(attempt).WithJobID(id).WithCause(ctx.Err())
	}
	return OutcomeCancelled, types.NewError(types.ErrCancelled, "polling cancelled").
		WithAttempt(attempt).WithJobID(id).WithCause(ctx.Err())
}

// attemptError tags a fetch failure with the attempt that produced it. Errors
// without a code are classified as transport failures.
func attemptError(err error, attempt int, id types.JobID) error {
	if e, ok := types.AsError(err); ok {
		tagged := *e
		tagged.Attempt = attempt
		if tagged.JobID == "" {
			tagged.JobID = string(id)
		}
		return &tagged
	}
	return types.NewError(types.ErrTransport, "status fetch failed").
		WithAttempt(attempt).WithJobID(id).WithCause(err)
}

func diag(logger *zap.Logger, verbose bool, msg string, fields ...zap.Field) {
	if verbose {
		logger.Info(msg, fields...)
		return
	}
	logger.Debug(msg, fields...)
}
