package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/BaSui01/anythingworld/stages"
	"github.com/BaSui01/anythingworld/types"
)

// scriptedFetcher replays responses in order; the last one repeats.
type scriptedFetcher struct {
	mu    sync.Mutex
	steps []step
	calls int
}

type step struct {
	doc types.StatusDocument
	err error
}

func (f *scriptedFetcher) FetchStatus(_ context.Context, _ types.JobID) (types.StatusDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	if i >= len(f.steps) {
		i = len(f.steps) - 1
	}
	f.calls++
	return f.steps[i].doc, f.steps[i].err
}

func (f *scriptedFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// sleepRecorder records requested durations without waiting.
type sleepRecorder struct {
	mu    sync.Mutex
	slept []time.Duration
}

func (s *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.slept = append(s.slept, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) Durations() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.slept...)
}

type recorderStub struct {
	mu       sync.Mutex
	attempts []string
	results  []string
}

func (r *recorderStub) RecordPollAttempt(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, outcome)
}

func (r *recorderStub) RecordPollResult(outcome string, _ int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, outcome)
}

func doc(stage string) types.StatusDocument {
	return types.StatusDocument{"stage": stage, "model_id": "job-1"}
}

func animateDefault(t *testing.T) stages.StageSet {
	t.Helper()
	set, err := stages.TerminalStages(types.JobKindAnimate, types.DetailDefault)
	require.NoError(t, err)
	return set
}

func newTestPoller(f Fetcher, s *sleepRecorder, opts ...Option) *Poller {
	return New(f, zap.NewNop(), append([]Option{WithSleeper(s.Sleep)}, opts...)...)
}

func TestPollUntilDone_WarmupThenImmediateSuccess(t *testing.T) {
	f := &scriptedFetcher{steps: []step{{doc: doc(stages.FormatsConversionFinished)}}}
	s := &sleepRecorder{}
	p := newTestPoller(f, s)

	got, err := p.PollUntilDone(context.Background(), "job-1", animateDefault(t),
		Options{Interval: time.Second, Warmup: 2 * time.Second})

	require.NoError(t, err)
	assert.Equal(t, stages.FormatsConversionFinished, got["stage"])
	assert.Equal(t, 1, f.Calls())
	assert.Equal(t, []time.Duration{2 * time.Second}, s.Durations())
}

func TestPollUntilDone_IntervalBetweenAttemptsOnly(t *testing.T) {
	final := types.StatusDocument{"stage": stages.ThumbnailsGenerationFinished, "model": map[string]any{"mesh": "x"}}
	f := &scriptedFetcher{steps: []step{
		{doc: doc("rigging")},
		{doc: doc("animation")},
		{doc: final},
	}}
	s := &sleepRecorder{}
	p := newTestPoller(f, s)

	got, err := p.PollUntilDone(context.Background(), "job-1", animateDefault(t),
		Options{Interval: 5 * time.Second})

	require.NoError(t, err)
	assert.Equal(t, final, got, "the terminal fetch's document is returned unchanged")
	assert.Equal(t, 3, f.Calls())
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, s.Durations())
}

func TestPollUntilDone_ZeroInterval(t *testing.T) {
	f := &scriptedFetcher{steps: []step{{doc: doc("a")}, {doc: doc(stages.FormatsConversionFinished)}}}
	s := &sleepRecorder{}
	p := newTestPoller(f, s)

	_, err := p.PollUntilDone(context.Background(), "job-1", animateDefault(t), Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, f.Calls())
	assert.Equal(t, []time.Duration{0}, s.Durations())
}

func TestPollUntilDone_FetchErrorAbortsWithoutRetry(t *testing.T) {
	transportErr := types.NewError(types.ErrTransport, "connection reset").WithHTTPStatus(502)
	f := &scriptedFetcher{steps: []step{
		{doc: doc("rigging")},
		{err: transportErr},
		{doc: doc(stages.FormatsConversionFinished)},
	}}
	s := &sleepRecorder{}
	p := newTestPoller(f, s)

	_, err := p.PollUntilDone(context.Background(), "job-1", animateDefault(t), Options{Interval: time.Second})

	require.Error(t, err)
	assert.Equal(t, 2, f.Calls())
	assert.True(t, types.IsTransportError(err))
	e, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, 2, e.Attempt)
	assert.Equal(t, "job-1", e.JobID)
	assert.Equal(t, 502, e.HTTPStatus)
	assert.Zero(t, transportErr.Attempt, "the fetcher's error is not mutated")
}

func TestPollUntilDone_UncodedFetchErrorBecomesTransport(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	f := &scriptedFetcher{steps: []step{{err: cause}}}
	p := newTestPoller(f, &sleepRecorder{})

	_, err := p.PollUntilDone(context.Background(), "job-1", animateDefault(t), DefaultOptions())

	assert.True(t, types.IsTransportError(err))
	assert.ErrorIs(t, err, cause)
}

func TestPollUntilDone_MissingStagePolicy(t *testing.T) {
	queued := types.StatusDocument{"model_id": "job-1"}

	t.Run("not ready by default", func(t *testing.T) {
		f := &scriptedFetcher{steps: []step{{doc: queued}, {doc: doc(stages.FormatsConversionFinished)}}}
		p := newTestPoller(f, &sleepRecorder{})
		got, err := p.PollUntilDone(context.Background(), "job-1", animateDefault(t), Options{})
		require.NoError(t, err)
		assert.Equal(t, 2, f.Calls())
		assert.Equal(t, stages.FormatsConversionFinished, got["stage"])
	})

	t.Run("done when opted in", func(t *testing.T) {
		f := &scriptedFetcher{steps: []step{{doc: queued}}}
		p := newTestPoller(f, &sleepRecorder{})
		got, err := p.PollUntilDone(context.Background(), "job-1", animateDefault(t),
			Options{MissingStage: MissingStageDone})
		require.NoError(t, err)
		assert.Equal(t, 1, f.Calls())
		assert.Equal(t, queued, got)
	})
}

func TestPollUntilDone_CancelledWhileNeverTerminal(t *testing.T) {
	const n = 4
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := &scriptedFetcher{steps: []step{{doc: doc("rigging")}}}
	s := &sleepRecorder{}
	p := newTestPoller(f, s)

	opts := Options{Interval: time.Second, OnAttempt: func(attempt int, _ types.StatusDocument, _ error) {
		if attempt == n {
			cancel()
		}
	}}
	_, err := p.PollUntilDone(ctx, "job-1", animateDefault(t), opts)

	require.Error(t, err)
	assert.True(t, types.IsCancelled(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, n, f.Calls())
}

func TestPollUntilDone_MaxAttempts(t *testing.T) {
	f := &scriptedFetcher{steps: []step{{doc: doc("rigging")}}}
	s := &sleepRecorder{}
	p := newTestPoller(f, s)

	_, err := p.PollUntilDone(context.Background(), "job-1", animateDefault(t),
		Options{Interval: time.Second, MaxAttempts: 3})

	assert.True(t, types.IsErrorCode(err, types.ErrPollLimit))
	assert.Equal(t, 3, f.Calls())
	assert.Len(t, s.Durations(), 2, "no sleep after the last allowed attempt")
}

func TestPollUntilDone_Deadline(t *testing.T) {
	f := &scriptedFetcher{steps: []step{{doc: doc("rigging")}}}
	p := New(f, zap.NewNop())

	_, err := p.PollUntilDone(context.Background(), "job-1", animateDefault(t),
		Options{Interval: 10 * time.Millisecond, Deadline: 35 * time.Millisecond})

	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrPollLimit))
	assert.GreaterOrEqual(t, f.Calls(), 1)
}

func TestPollUntilDone_CallerDeadlineIsCancellation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	f := &scriptedFetcher{steps: []step{{doc: doc("rigging")}}}
	p := New(f, zap.NewNop())

	_, err := p.PollUntilDone(ctx, "job-1", animateDefault(t), Options{Interval: 5 * time.Millisecond})

	assert.True(t, types.IsCancelled(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPollUntilDone_InvalidOptions(t *testing.T) {
	f := &scriptedFetcher{steps: []step{{doc: doc("rigging")}}}
	p := newTestPoller(f, &sleepRecorder{})

	_, err := p.PollUntilDone(context.Background(), "job-1", animateDefault(t), Options{Interval: -time.Second})
	assert.True(t, types.IsConfigurationError(err))

	_, err = p.PollUntilDone(context.Background(), "job-1", stages.StageSet{}, Options{})
	assert.True(t, types.IsConfigurationError(err))
	assert.Zero(t, f.Calls())
}

func TestPollUntilDone_VerboseDiagnostics(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	f := &scriptedFetcher{steps: []step{{doc: doc("rigging")}, {doc: doc(stages.FormatsConversionFinished)}}}
	p := New(f, zap.New(core), WithSleeper((&sleepRecorder{}).Sleep))

	_, err := p.PollUntilDone(context.Background(), "job-1", animateDefault(t), Options{Verbose: true})
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("job is not ready yet").Len())
	assert.Equal(t, 1, logs.FilterMessage("polling attempt done").Len())

	core, logs = observer.New(zap.InfoLevel)
	f = &scriptedFetcher{steps: []step{{doc: doc("rigging")}, {doc: doc(stages.FormatsConversionFinished)}}}
	p = New(f, zap.New(core), WithSleeper((&sleepRecorder{}).Sleep))
	_, err = p.PollUntilDone(context.Background(), "job-1", animateDefault(t), Options{})
	require.NoError(t, err)
	assert.Zero(t, logs.Len(), "quiet polling only logs at debug")
}

func TestPollUntilDone_Recorder(t *testing.T) {
	rec := &recorderStub{}
	f := &scriptedFetcher{steps: []step{{doc: doc("rigging")}, {doc: doc(stages.FormatsConversionFinished)}}}
	p := newTestPoller(f, &sleepRecorder{}, WithRecorder(rec))

	_, err := p.PollUntilDone(context.Background(), "job-1", animateDefault(t), Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{OutcomeNotReady, OutcomeDone}, rec.attempts)
	assert.Equal(t, []string{OutcomeDone}, rec.results)
}

func TestIsDone(t *testing.T) {
	cases := []struct {
		name string
		doc  types.StatusDocument
		want bool
	}{
		{"terminal", doc(stages.MigrateAnimationFinished), true},
		{"intermediate", doc("rigging"), false},
		{"absent stage", types.StatusDocument{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := &scriptedFetcher{steps: []step{{doc: tc.doc}}}
			p := newTestPoller(f, &sleepRecorder{})
			got, err := p.IsDone(context.Background(), "job-1", animateDefault(t))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, 1, f.Calls())
		})
	}

	t.Run("error", func(t *testing.T) {
		f := &scriptedFetcher{steps: []step{{err: types.NewError(types.ErrForbidden, "forbidden")}}}
		p := newTestPoller(f, &sleepRecorder{})
		_, err := p.IsDone(context.Background(), "job-1", animateDefault(t))
		assert.True(t, types.IsForbidden(err))
	})
}

func TestCheck_MissingStageDone(t *testing.T) {
	f := &scriptedFetcher{steps: []step{{doc: types.StatusDocument{"name": "cat"}}}}
	p := newTestPoller(f, &sleepRecorder{})
	got, done, err := p.Check(context.Background(), "job-1", animateDefault(t), MissingStageDone)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, "cat", got.Name())
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, SleepContext(context.Background(), 0))
	assert.NoError(t, SleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	assert.ErrorIs(t, SleepContext(ctx, time.Hour), context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestParseMissingStagePolicy(t *testing.T) {
	p, err := ParseMissingStagePolicy("")
	require.NoError(t, err)
	assert.Equal(t, MissingStageNotReady, p)

	p, err = ParseMissingStagePolicy("done")
	require.NoError(t, err)
	assert.Equal(t, "done", p.String())

	_, err = ParseMissingStagePolicy("maybe")
	assert.True(t, types.IsConfigurationError(err))
}
