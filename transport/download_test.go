package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/anythingworld/types"
)

func TestDownload_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "glTF-binary")
	}))
	defer srv.Close()

	obs := &observerStub{}
	c := New(zap.NewNop(), WithHTTPClient(srv.Client()), WithObserver(obs))
	path := filepath.Join(t.TempDir(), "nested", "model.glb")

	n, err := c.Download(context.Background(), srv.URL+"/model.glb", path)
	require.NoError(t, err)
	assert.Equal(t, int64(len("glTF-binary")), n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "glTF-binary", string(data))

	entries, _ := os.ReadDir(filepath.Dir(path))
	assert.Len(t, entries, 1, "no temporary files are left behind")
	assert.Equal(t, []error{nil}, obs.downloads)
}

func TestDownload_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, "ok")
	}))
	defer srv.Close()

	c := New(zap.NewNop(), WithHTTPClient(srv.Client()), WithDownloadRetry(3, time.Millisecond))
	_, err := c.Download(context.Background(), srv.URL, filepath.Join(t.TempDir(), "m.glb"))
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDownload_ClientErrorIsFinal(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(zap.NewNop(), WithHTTPClient(srv.Client()), WithDownloadRetry(5, time.Millisecond))
	path := filepath.Join(t.TempDir(), "m.glb")
	_, err := c.Download(context.Background(), srv.URL, path)

	require.Error(t, err)
	assert.True(t, types.IsTransportError(err))
	e, _ := types.AsError(err)
	assert.Equal(t, http.StatusNotFound, e.HTTPStatus)
	assert.Equal(t, int32(1), calls.Load())
	assert.NoFileExists(t, path)
}

func TestDownload_EmptyURL(t *testing.T) {
	c := New(zap.NewNop())
	_, err := c.Download(context.Background(), "", filepath.Join(t.TempDir(), "m.glb"))
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidRequest))
}
