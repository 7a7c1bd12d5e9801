package client

import (
	"context"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/anythingworld/config"
	"github.com/BaSui01/anythingworld/internal/metrics"
	"github.com/BaSui01/anythingworld/jobstore"
	"github.com/BaSui01/anythingworld/types"
)

func TestAnimate_UploadsDirectory(t *testing.T) {
	f := newFakeAPI(t)
	store := jobstore.NewMemoryStore()
	c := newTestClient(t, f, WithStore(store))
	dir := writeFiles(t, "fox.obj", "fox.png", ".DS_Store")

	sub, err := c.Animate(context.Background(), AnimateRequest{FilesDir: dir, ModelName: "fox"})
	require.NoError(t, err)
	assert.Equal(t, types.JobID("animate-job"), sub.JobID)
	assert.Equal(t, "fox", sub.Document.Name())

	form := f.form(endpointAnimate)
	assert.Equal(t, "test-key", form.Get(fieldKey))
	assert.Equal(t, config.DefaultPlatform, form.Get(fieldPlatform))
	assert.Equal(t, "fox", form.Get(fieldModelName))
	assert.Equal(t, "true", form.Get(fieldAutoClassify))
	assert.Equal(t, []string{"fox.obj", "fox.png"}, f.uploaded(endpointAnimate))

	calls := f.calls("/animate")
	require.Len(t, calls, 1)
	assert.False(t, calls[0].URL.Query().Has("staging"))

	job, err := store.Get(context.Background(), sub.JobID)
	require.NoError(t, err)
	assert.Equal(t, types.JobKindAnimate, job.Kind)
	assert.Equal(t, jobstore.StatePending, job.State)
	assert.Equal(t, "fox", job.Name)
}

func TestAnimate_InvalidRequestSendsNothing(t *testing.T) {
	f := newFakeAPI(t)
	c := newTestClient(t, f)

	_, err := c.Animate(context.Background(), AnimateRequest{FilesDir: t.TempDir(), ModelName: "fox"})
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidRequest), "empty directory: %v", err)

	_, err = c.Animate(context.Background(), AnimateRequest{ModelName: "fox"})
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidRequest))

	assert.Empty(t, f.calls("/animate"))
}

func TestSubmit_StagingQuery(t *testing.T) {
	f := newFakeAPI(t)
	cfg := f.config()
	cfg.Mode = config.ModeStaging
	c := newTestClientWith(t, cfg, f)

	_, err := c.GenerateFromText(context.Background(), TextTo3DRequest{Prompt: "a fox"})
	require.NoError(t, err)

	calls := f.calls("/text-to-3d")
	require.Len(t, calls, 1)
	assert.Equal(t, "true", calls[0].URL.Query().Get("staging"))
}

func TestGenerateFromText_Form(t *testing.T) {
	f := newFakeAPI(t)
	c := newTestClient(t, f)

	sub, err := c.GenerateFromText(context.Background(), TextTo3DRequest{Prompt: "a fox", CanBePublic: true})
	require.NoError(t, err)
	assert.Equal(t, types.JobID("text-to-3d-job"), sub.JobID)

	form := f.form(endpointTextTo3D)
	assert.Equal(t, "a fox", form.Get(fieldTextPrompt))
	assert.Equal(t, "true", form.Get(fieldRefinePrompt))
	assert.Equal(t, "true", form.Get(fieldCanBePublic))
	assert.Equal(t, "test-key", form.Get(fieldKey))
	assert.Empty(t, f.uploaded(endpointTextTo3D))
}

func TestGenerateFromImage(t *testing.T) {
	f := newFakeAPI(t)
	c := newTestClient(t, f)
	dir := writeFiles(t, "fox.png", "other.png")

	sub, err := c.GenerateFromImage(context.Background(), ImageTo3DRequest{FilePath: dir + "/fox.png", ModelName: "fox"})
	require.NoError(t, err)
	assert.Equal(t, types.JobID("image-to-3d-job"), sub.JobID)
	assert.Equal(t, []string{"fox.png"}, f.uploaded(endpointImageTo3D))
	assert.Equal(t, "fox", f.form(endpointImageTo3D).Get(fieldModelName))

	_, err = c.GenerateFromImage(context.Background(), ImageTo3DRequest{FilePath: dir, ModelName: "fox"})
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidRequest))
}

func TestSubmit_ResponseErrors(t *testing.T) {
	tests := []struct {
		name    string
		reply   reply
		code    types.ErrorCode
		apiCode string
	}{
		{"no model id", reply{http.StatusOK, []any{map[string]any{"name": "fox"}}}, types.ErrAPI, ""},
		{"empty list", reply{http.StatusOK, []any{}}, types.ErrAPI, ""},
		{"error envelope", reply{http.StatusBadRequest, map[string]any{"code": "BAD_PROMPT", "message": "nope"}}, types.ErrAPI, "BAD_PROMPT"},
		{"bare failure", reply{http.StatusBadGateway, map[string]any{"oops": true}}, types.ErrTransport, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeAPI(t)
			f.submits[endpointTextTo3D] = tt.reply
			store := jobstore.NewMemoryStore()
			c := newTestClient(t, f, WithStore(store))

			_, err := c.GenerateFromText(context.Background(), TextTo3DRequest{Prompt: "fox"})
			require.Error(t, err)
			assert.Equal(t, tt.code, types.GetErrorCode(err))
			if tt.apiCode != "" {
				e, ok := types.AsError(err)
				require.True(t, ok)
				assert.Equal(t, tt.apiCode, e.APICode)
			}

			jobs, err := store.List(context.Background(), jobstore.Filter{})
			require.NoError(t, err)
			assert.Empty(t, jobs)
		})
	}
}

func TestSubmit_Metrics(t *testing.T) {
	f := newFakeAPI(t)
	collector := metrics.NewCollector("client_submit_test", zap.NewNop())
	c := newTestClient(t, f, WithMetrics(collector))

	_, err := c.GenerateFromText(context.Background(), TextTo3DRequest{Prompt: "fox"})
	require.NoError(t, err)

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	found := map[string]bool{}
	for _, mf := range families {
		found[mf.GetName()] = true
	}
	assert.True(t, found["client_submit_test_submissions_total"])
	assert.True(t, found["client_submit_test_api_requests_total"])
}
