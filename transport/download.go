package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"

	"github.com/BaSui01/anythingworld/types"
)

type statusError struct {
	status int
}

func (e *statusError) Error() string { return fmt.Sprintf("unexpected download status %d", e.status) }

// isRetryableDownload reports failures worth another attempt: network errors,
// 429 and 5xx. Other statuses and local file errors are final.
func isRetryableDownload(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.status == http.StatusTooManyRequests || se.status >= 500
	}
	var pe *os.PathError
	if errors.As(err, &pe) {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// Download streams rawURL into path. The file is written to a temporary
// sibling and renamed, so path never holds a partial download.
func (c *Client) Download(ctx context.Context, rawURL, path string) (int64, error) {
	if rawURL == "" {
		return 0, types.NewError(types.ErrInvalidRequest, "download URL is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, types.NewError(types.ErrInvalidRequest, "create download directory").WithCause(err)
	}

	var written int64
	err := retry.Do(
		func() error {
			n, err := c.downloadOnce(ctx, rawURL, path)
			written = n
			return err
		},
		retry.Context(ctx),
		retry.Attempts(c.downloadAttempts),
		retry.Delay(c.downloadDelay),
		retry.MaxDelay(30*time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryableDownload),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("download failed, retrying",
				zap.Uint("attempt", n+1),
				zap.String("path", path),
				zap.Error(err),
			)
		}),
	)
	if c.observer != nil {
		c.observer.RecordDownload(written, err)
	}
	if err != nil {
		var se *statusError
		if errors.As(err, &se) {
			return 0, types.Errorf(types.ErrTransport, "download %s", filepath.Base(path)).
				WithHTTPStatus(se.status).WithCause(err)
		}
		return 0, types.Errorf(types.ErrTransport, "download %s", filepath.Base(path)).WithCause(err)
	}

	c.logger.Debug("download completed", zap.String("path", path), zap.Int64("bytes", written))
	return written, nil
}

func (c *Client) downloadOnce(ctx context.Context, rawURL, path string) (int64, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(Request{Endpoint: "download", Method: http.MethodGet}, 0, time.Since(start))
		return 0, err
	}
	defer resp.Body.Close()
	c.observe(Request{Endpoint: "download", Method: http.MethodGet}, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, snippetBytes))
		return 0, &statusError{status: resp.StatusCode}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return 0, err
	}
	n, copyErr := io.Copy(tmp, resp.Body)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(tmp.Name())
		if copyErr != nil {
			return 0, copyErr
		}
		return 0, closeErr
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return 0, err
	}
	return n, nil
}
