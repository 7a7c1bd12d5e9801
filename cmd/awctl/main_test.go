package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/anythingworld/stages"
	"github.com/BaSui01/anythingworld/types"
)

// fakeService answers status queries with a fixed stage per job id.
func fakeService(t *testing.T, stageByID map[string]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	status := func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		stage, ok := stageByID[id]
		w.Header().Set("Content-Type", "application/json")
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"code":"Model not found","message":"no such model"}`))
			return
		}
		_ = json.NewEncoder(w).Encode([]map[string]any{{"model_id": id, "stage": stage}})
	}
	mux.HandleFunc("GET /status", status)
	mux.HandleFunc("GET /generated-status", status)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	t.Setenv("AW_API_KEY", "test-key")
	t.Setenv("AW_API_URL", srv.URL)
	t.Setenv("AW_POLLING_URL", srv.URL+"/status")
	t.Setenv("AW_POLLING_GENERATED_URL", srv.URL+"/generated-status")
	t.Setenv("AW_LOG_LEVEL", "error")
	return srv
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"usage", usagef("bad flag"), exitUsage},
		{"configuration", types.NewError(types.ErrConfiguration, "no key"), exitUsage},
		{"invalid request", types.NewError(types.ErrInvalidRequest, "no name"), exitUsage},
		{"poll limit", fmt.Errorf("wrapped: %w", types.NewError(types.ErrPollLimit, "gave up")), exitPollLimit},
		{"cancelled", types.NewError(types.ErrCancelled, "interrupted"), exitCancelled},
		{"api", types.NewError(types.ErrAPI, "boom"), exitError},
		{"plain", errors.New("boom"), exitError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestPrintResult(t *testing.T) {
	v := map[string]any{"job_id": "abc", "done": true}

	var js bytes.Buffer
	require.NoError(t, printResult(&js, outputJSON, v))
	assert.JSONEq(t, `{"job_id":"abc","done":true}`, js.String())

	var ym bytes.Buffer
	require.NoError(t, printResult(&ym, outputYAML, v))
	assert.Equal(t, "done: true\njob_id: abc\n", ym.String())
}

func TestInvalidOutputFormat(t *testing.T) {
	_, err := run(t, "stages", "-o", "xml")
	require.Error(t, err)
	assert.Equal(t, exitUsage, exitCode(err))
}

func TestStagesCommand(t *testing.T) {
	out, err := run(t, "stages")
	require.NoError(t, err)

	var rows []stageRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, len(stages.Entries()))
	for _, row := range rows {
		assert.NotEmpty(t, row.Stages, "%s/%s", row.Kind, row.Detail)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "awctl "+Version)
	assert.Contains(t, out, "Go Version:")
}

func TestStatusCommand(t *testing.T) {
	fakeService(t, map[string]string{
		"done-job":    stages.MigrateAnimationFinished,
		"running-job": "rigging",
	})

	out, err := run(t, "status", "done-job")
	require.NoError(t, err)
	var res statusResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, types.JobID("done-job"), res.JobID)
	assert.True(t, res.Done)
	assert.Equal(t, stages.MigrateAnimationFinished, res.Document["stage"])

	out, err = run(t, "status", "running-job", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "done: false")
	assert.Contains(t, out, "stage: rigging")
}

func TestStatusCommandErrors(t *testing.T) {
	fakeService(t, map[string]string{})

	_, err := run(t, "status", "missing")
	require.Error(t, err)
	assert.True(t, types.IsAPIError(err))
	assert.Equal(t, exitError, exitCode(err))

	_, err = run(t, "status", "x", "--kind", "sculpt")
	require.Error(t, err)
	assert.Equal(t, exitUsage, exitCode(err))
}

func TestMissingAPIKey(t *testing.T) {
	t.Setenv("AW_API_KEY", "")
	_, err := run(t, "status", "job")
	require.Error(t, err)
	assert.True(t, types.IsConfigurationError(err))
	assert.Equal(t, exitUsage, exitCode(err))
}

func TestWaitCommand(t *testing.T) {
	fakeService(t, map[string]string{
		"a": stages.MigrateAnimationFinished,
		"b": stages.FormatsConversionFinished,
	})

	out, err := run(t, "wait", "a", "b", "--interval", "1ms")
	require.NoError(t, err)
	var res []waitResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res, 2)
	assert.Equal(t, types.JobID("a"), res[0].JobID)
	assert.Equal(t, types.JobID("b"), res[1].JobID)
	assert.Empty(t, res[0].Error)
	assert.Empty(t, res[1].Error)
}

func TestWaitCommandReportsFailures(t *testing.T) {
	fakeService(t, map[string]string{"a": stages.MigrateAnimationFinished})

	out, err := run(t, "wait", "a", "gone", "--interval", "1ms")
	require.Error(t, err)
	assert.True(t, types.IsAPIError(err))

	var res []waitResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res, 2)
	assert.Empty(t, res[0].Error)
	assert.NotEmpty(t, res[1].Error)
}

func TestWaitCommandPollLimit(t *testing.T) {
	fakeService(t, map[string]string{"slow": "rigging"})

	_, err := run(t, "wait", "slow", "--interval", "1ms", "--max-attempts", "2")
	require.Error(t, err)
	assert.Equal(t, exitPollLimit, exitCode(err))
}

func TestJobsCommand(t *testing.T) {
	fakeService(t, map[string]string{})

	_, err := run(t, "jobs", "list")
	require.Error(t, err)
	assert.True(t, types.IsConfigurationError(err))

	t.Setenv("AW_STORE_BACKEND", "memory")
	out, err := run(t, "jobs", "list", "--state", "done")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, out)

	_, err = run(t, "jobs", "list", "--kind", "sculpt")
	require.Error(t, err)
	assert.Equal(t, exitUsage, exitCode(err))
}
