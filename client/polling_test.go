package client

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/anythingworld/jobstore"
	"github.com/BaSui01/anythingworld/poller"
	"github.com/BaSui01/anythingworld/types"
)

func TestFetchStatus_Query(t *testing.T) {
	f := newFakeAPI(t)
	f.script("/status", "job-1", stage("rigging_finished"))
	c := newTestClient(t, f)

	doc, err := c.GetModel(context.Background(), "job-1")
	require.NoError(t, err)
	s, ok := doc.Stage()
	require.True(t, ok)
	assert.Equal(t, "rigging_finished", s)

	calls := f.calls("/status")
	require.Len(t, calls, 1)
	q := calls[0].URL.Query()
	assert.Equal(t, "test-key", q.Get("key"))
	assert.Equal(t, "job-1", q.Get("id"))
	assert.Equal(t, "done", q.Get("stage"))
	assert.False(t, q.Has("staging"))

	_, err = c.GetModel(context.Background(), "")
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidRequest))
}

func TestFetchStatus_Forbidden(t *testing.T) {
	f := newFakeAPI(t)
	f.script("/status", "with-stage", reply{http.StatusForbidden, map[string]any{"stage": "queued"}})
	f.script("/status", "denied", reply{http.StatusForbidden, map[string]any{"code": "FORBIDDEN", "message": "bad key"}})
	c := newTestClient(t, f)

	doc, err := c.FetchStatus(context.Background(), f.srv.URL+"/status", "with-stage")
	require.NoError(t, err)
	assert.True(t, doc.HasStage())

	_, err = c.FetchStatus(context.Background(), f.srv.URL+"/status", "denied")
	assert.True(t, types.IsForbidden(err))
}

func TestFetchStatus_EnvelopeOnSuccessStatus(t *testing.T) {
	f := newFakeAPI(t)
	notFound := reply{http.StatusOK, map[string]any{"code": "Model not found", "message": "no model with this id"}}
	f.script("/status", "gone", notFound)
	f.script("/generated-status", "gone", notFound)
	c := newTestClient(t, f)

	_, err := c.GetModel(context.Background(), "gone")
	require.Error(t, err)
	assert.True(t, types.IsAPIError(err))
	e, _ := types.AsError(err)
	assert.Equal(t, "Model not found", e.APICode)

	// the poll stops on the first attempt instead of waiting for a stage
	_, err = c.GetAnimatedModel(context.Background(), "gone", types.DetailDefault, c.PollOptions())
	assert.True(t, types.IsAPIError(err))
	assert.Len(t, f.calls("/status"), 2)

	// an envelope is never mistaken for a finished job
	cfg := f.config()
	cfg.Polling.MissingStage = "done"
	c = newTestClientWith(t, cfg, f)
	doc, err := c.GetGeneratedModel(context.Background(), "gone", c.PollOptions())
	assert.True(t, types.IsAPIError(err))
	assert.Nil(t, doc)
}

func TestPollUntilDone_ReturnsTerminalDocument(t *testing.T) {
	f := newFakeAPI(t)
	terminal := reply{http.StatusOK, []any{map[string]any{"stage": "formats_conversion_finished", "model": map[string]any{"rig": "ok"}}}}
	f.script("/generated-status", "gen-1",
		reply{http.StatusOK, map[string]any{}},
		stage("queued"),
		terminal,
	)
	store := jobstore.NewMemoryStore()
	c := newTestClient(t, f, WithStore(store))

	var attempts []int
	opts := c.PollOptions()
	opts.OnAttempt = func(attempt int, _ types.StatusDocument, _ error) { attempts = append(attempts, attempt) }

	doc, err := c.GetGeneratedModel(context.Background(), "gen-1", opts)
	require.NoError(t, err)
	assert.Equal(t, types.StatusDocument{"stage": "formats_conversion_finished", "model": map[string]any{"rig": "ok"}}, doc)
	assert.Len(t, f.calls("/generated-status"), 3)
	assert.Empty(t, f.calls("/status"))
	assert.Equal(t, []int{1, 2, 3}, attempts)

	job, err := store.Get(context.Background(), "gen-1")
	require.NoError(t, err)
	assert.Equal(t, jobstore.StateDone, job.State)
	assert.Equal(t, types.JobKindGenerate, job.Kind)
	assert.Equal(t, "formats_conversion_finished", job.Stage)
	assert.Equal(t, 3, job.Attempts)
}

func TestPollUntilDone_AnimateDetailLevels(t *testing.T) {
	f := newFakeAPI(t)
	f.script("/status", "anim-1", stage("migrate_animation_finished"), stage("formats_conversion_finished"))
	c := newTestClient(t, f)

	done, err := c.IsAnimationDone(context.Background(), "anim-1", types.DetailDefault)
	require.NoError(t, err)
	assert.True(t, done)

	doc, err := c.GetAnimatedModel(context.Background(), "anim-1", types.DetailExtraFormats, c.PollOptions())
	require.NoError(t, err)
	s, _ := doc.Stage()
	assert.Equal(t, "formats_conversion_finished", s)
}

func TestPollUntilDone_UndefinedCatalogEntry(t *testing.T) {
	f := newFakeAPI(t)
	c := newTestClient(t, f)

	_, err := c.PollUntilDone(context.Background(), "gen-1", types.JobKindGenerate, types.DetailExtraFormats, c.PollOptions())
	assert.True(t, types.IsConfigurationError(err))

	_, err = c.IsDone(context.Background(), "x", types.JobKind("rig"), types.DetailDefault)
	assert.True(t, types.IsConfigurationError(err))

	assert.Empty(t, f.calls("/status"))
	assert.Empty(t, f.calls("/generated-status"))
}

func TestPollUntilDone_FetchErrorMarksFailed(t *testing.T) {
	f := newFakeAPI(t)
	f.script("/status", "anim-1",
		stage("rigging_finished"),
		reply{http.StatusInternalServerError, map[string]any{"code": "INTERNAL", "message": "db down"}},
	)
	store := jobstore.NewMemoryStore()
	c := newTestClient(t, f, WithStore(store))

	_, err := c.GetAnimatedModel(context.Background(), "anim-1", types.DetailDefault, c.PollOptions())
	require.Error(t, err)
	assert.True(t, types.IsAPIError(err))
	e, _ := types.AsError(err)
	assert.Equal(t, 2, e.Attempt)

	job, err := store.Get(context.Background(), "anim-1")
	require.NoError(t, err)
	assert.Equal(t, jobstore.StateFailed, job.State)
	assert.Equal(t, "rigging_finished", job.Stage)
	assert.Contains(t, job.Error, "db down")
}

func TestPollUntilDone_CancelLeavesJobRunning(t *testing.T) {
	f := newFakeAPI(t)
	f.script("/status", "anim-1", stage("rigging_finished"))
	store := jobstore.NewMemoryStore()
	c := newTestClient(t, f, WithStore(store))

	ctx, cancel := context.WithCancel(context.Background())
	opts := c.PollOptions()
	opts.OnAttempt = func(attempt int, _ types.StatusDocument, _ error) {
		if attempt == 3 {
			cancel()
		}
	}
	_, err := c.GetAnimatedModel(ctx, "anim-1", types.DetailDefault, opts)
	assert.True(t, types.IsCancelled(err))

	job, err := store.Get(context.Background(), "anim-1")
	require.NoError(t, err)
	assert.Equal(t, jobstore.StateRunning, job.State)
	assert.Equal(t, 3, job.Attempts)
}

func TestPollUntilDone_MaxAttemptsFromConfig(t *testing.T) {
	f := newFakeAPI(t)
	f.script("/status", "anim-1", stage("queued"))
	cfg := f.config()
	cfg.Polling.MaxAttempts = 4
	c := newTestClientWith(t, cfg, f)

	_, err := c.GetAnimatedModel(context.Background(), "anim-1", types.DetailDefault, c.PollOptions())
	assert.True(t, types.IsErrorCode(err, types.ErrPollLimit))
	assert.Len(t, f.calls("/status"), 4)
}

func TestIsDone_MissingStage(t *testing.T) {
	f := newFakeAPI(t)
	f.script("/generated-status", "gen-1", reply{http.StatusOK, []any{map[string]any{"name": "fox"}}})

	c := newTestClient(t, f)
	done, err := c.IsGenerationDone(context.Background(), "gen-1")
	require.NoError(t, err)
	assert.False(t, done)

	cfg := f.config()
	cfg.Polling.MissingStage = "done"
	c = newTestClientWith(t, cfg, f)
	done, err = c.IsGenerationDone(context.Background(), "gen-1")
	require.NoError(t, err)
	assert.True(t, done)
}

func TestWaitAll(t *testing.T) {
	f := newFakeAPI(t)
	f.script("/status", "anim-1", stage("queued"), stage("thumbnails_generation_finished"))
	f.script("/generated-status", "gen-1", stage("formats_conversion_finished"))
	f.script("/status", "anim-2", reply{http.StatusInternalServerError, map[string]any{"code": "E", "message": "boom"}})
	store := jobstore.NewMemoryStore()
	c := newTestClient(t, f, WithStore(store))

	results, err := c.WaitAll(context.Background(), []WaitTarget{
		{JobID: "anim-1", Kind: types.JobKindAnimate, Detail: types.DetailDefault},
		{JobID: "gen-1", Kind: types.JobKindGenerate, Detail: types.DetailDefault},
		{JobID: "anim-2", Kind: types.JobKindAnimate, Detail: types.DetailDefault},
	}, c.PollOptions(), poller.GroupOptions{Concurrency: 2})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.NoError(t, results[0].Err)
	assert.NoError(t, results[1].Err)
	assert.True(t, types.IsAPIError(results[2].Err))
	assert.Equal(t, results[2].Err, poller.FirstError(results))

	done, err := store.List(context.Background(), jobstore.Filter{State: jobstore.StateDone})
	require.NoError(t, err)
	assert.Len(t, done, 2)
}

func TestWaitAll_InvalidTarget(t *testing.T) {
	f := newFakeAPI(t)
	c := newTestClient(t, f)

	_, err := c.WaitAll(context.Background(), []WaitTarget{
		{JobID: "gen-1", Kind: types.JobKindGenerate, Detail: types.DetailExtraFormats},
	}, c.PollOptions(), poller.GroupOptions{})
	assert.True(t, types.IsConfigurationError(err))
}

func TestPollUntilDone_RealSleepHonoursInterval(t *testing.T) {
	f := newFakeAPI(t)
	f.script("/status", "anim-1", stage("queued"), stage("formats_conversion_finished"))
	c, err := New(f.config(), nil, WithHTTPClient(f.srv.Client()))
	require.NoError(t, err)

	opts := c.PollOptions()
	opts.Interval = 20 * time.Millisecond
	start := time.Now()
	_, err = c.GetAnimatedModel(context.Background(), "anim-1", types.DetailDefault, opts)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestPollUntilDone_ZeroIntervalUsesConfig(t *testing.T) {
	f := newFakeAPI(t)
	f.script("/status", "anim-1", stage("queued"), stage("formats_conversion_finished"))
	f.script("/status", "anim-2", stage("queued"), stage("formats_conversion_finished"))
	cfg := f.config()
	cfg.Polling.Interval = 3 * time.Second

	var mu sync.Mutex
	var slept []time.Duration
	record := func(ctx context.Context, d time.Duration) error {
		mu.Lock()
		defer mu.Unlock()
		slept = append(slept, d)
		return ctx.Err()
	}
	c := newTestClientWith(t, cfg, f, WithSleeper(record))

	_, err := c.GetAnimatedModel(context.Background(), "anim-1", types.DetailDefault, poller.Options{})
	require.NoError(t, err)
	_, err = c.WaitAll(context.Background(), []WaitTarget{{JobID: "anim-2", Kind: types.JobKindAnimate, Detail: types.DetailDefault}},
		poller.Options{}, poller.GroupOptions{})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []time.Duration{3 * time.Second, 3 * time.Second}, slept)
}
