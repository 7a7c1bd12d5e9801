package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/anythingworld/internal/tlsutil"
	"github.com/BaSui01/anythingworld/types"
)

const (
	// DefaultTimeout bounds one request when no http.Client is supplied.
	DefaultTimeout = 2 * time.Minute
	// maxBodyBytes caps decoded JSON bodies.
	maxBodyBytes = 32 << 20
	// snippetBytes is how much of an unexpected body is kept in errors.
	snippetBytes = 256

	headerRequestID = "X-Request-ID"
)

// Observer receives per-request and per-download measurements.
// internal/metrics.Collector implements it.
type Observer interface {
	RecordRequest(endpoint, method string, status int, duration time.Duration)
	RecordDownload(bytes int64, err error)
}

// Client performs single request/response cycles against the service.
// It is safe for concurrent use.
type Client struct {
	http      *http.Client
	limiter   *rate.Limiter
	observer  Observer
	logger    *zap.Logger
	userAgent string

	downloadAttempts uint
	downloadDelay    time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default hardened client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithRateLimit caps outgoing requests per second. rps <= 0 disables it.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithObserver attaches a metrics observer.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithDownloadRetry sets the attempts and initial backoff used by Download.
func WithDownloadRetry(attempts uint, delay time.Duration) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.downloadAttempts = attempts
		}
		if delay > 0 {
			c.downloadDelay = delay
		}
	}
}

// New creates a Client.
func New(logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		http:             tlsutil.NewHTTPClient(tlsutil.ClientOptions{Timeout: DefaultTimeout}),
		logger:           logger.With(zap.String("component", "transport")),
		userAgent:        "anythingworld-go",
		downloadAttempts: 3,
		downloadDelay:    time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// File is one multipart file part.
type File struct {
	// Field defaults to "files".
	Field       string
	Name        string
	ContentType string
	Body        io.Reader
}

// Request describes one call.
type Request struct {
	Method string
	URL    string
	// Endpoint labels metrics and logs, e.g. "animate".
	Endpoint string
	Query    url.Values
	// Form is sent urlencoded, or as multipart fields when Files is set.
	Form  url.Values
	Files []File
}

// Response is a decoded JSON response.
type Response struct {
	StatusCode int
	// Body is the decoded JSON value: map[string]any, []any or a scalar.
	Body      any
	RequestID string
}

// Do sends req and decodes the response. Do never retries.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, types.NewError(types.ErrTransport, "rate limiter wait failed").WithCause(err)
		}
	}

	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	requestID := httpReq.Header.Get(headerRequestID)

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	duration := time.Since(start)
	if err != nil {
		c.observe(req, 0, duration)
		c.logger.Debug("request failed",
			zap.String("endpoint", req.Endpoint),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		return nil, types.Errorf(types.ErrTransport, "%s %s failed", req.Method, req.Endpoint).WithCause(err)
	}
	defer resp.Body.Close()
	c.observe(req, resp.StatusCode, duration)

	c.logger.Debug("request completed",
		zap.String("endpoint", req.Endpoint),
		zap.String("method", req.Method),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", duration),
		zap.String("request_id", requestID),
	)

	body, err := decodeResponse(resp)
	if err != nil {
		return nil, err
	}
	return &Response{StatusCode: resp.StatusCode, Body: body, RequestID: requestID}, nil
}

func (c *Client) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	target, err := url.Parse(req.URL)
	if err != nil {
		return nil, types.Errorf(types.ErrConfiguration, "invalid URL %q", req.URL).WithCause(err)
	}
	if len(req.Query) > 0 {
		q := target.Query()
		for k, vs := range req.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		target.RawQuery = q.Encode()
	}

	var (
		body        io.Reader
		contentType string
	)
	switch {
	case len(req.Files) > 0:
		buf, ct, err := encodeMultipart(req.Form, req.Files)
		if err != nil {
			return nil, types.NewError(types.ErrInvalidRequest, "build multipart body").WithCause(err)
		}
		body, contentType = buf, ct
	case req.Form != nil && req.Method != http.MethodGet:
		body, contentType = strings.NewReader(req.Form.Encode()), "application/x-www-form-urlencoded"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target.String(), body)
	if err != nil {
		return nil, types.NewError(types.ErrInvalidRequest, "build request").WithCause(err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	requestID, ok := types.RequestID(ctx)
	if !ok {
		requestID = uuid.NewString()
	}
	httpReq.Header.Set(headerRequestID, requestID)
	return httpReq, nil
}

func (c *Client) observe(req Request, status int, d time.Duration) {
	if c.observer != nil {
		c.observer.RecordRequest(req.Endpoint, req.Method, status, d)
	}
}

// decodeResponse applies the content-type and status rules described in the
// package documentation.
func decodeResponse(resp *http.Response) (any, error) {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, types.NewError(types.ErrTransport, "read response body").
			WithHTTPStatus(resp.StatusCode).WithCause(err)
	}

	contentType := resp.Header.Get("Content-Type")
	if !isJSON(contentType) {
		return nil, types.Errorf(types.ErrTransport, "unexpected response content type %q: %s",
			contentType, snippet(raw)).WithHTTPStatus(resp.StatusCode)
	}

	var body any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, types.NewError(types.ErrTransport, "decode JSON response").
			WithHTTPStatus(resp.StatusCode).WithCause(err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if hasStage(body) {
			return body, nil
		}
		// some endpoints report failures with a 2xx and an envelope
		if code, msg, ok := envelope(body); ok {
			return nil, types.NewError(types.ErrAPI, msg).WithAPICode(code).WithHTTPStatus(resp.StatusCode)
		}
		return body, nil
	case resp.StatusCode == http.StatusForbidden:
		if hasStage(body) {
			return body, nil
		}
		e := types.NewError(types.ErrForbidden, "forbidden").WithHTTPStatus(resp.StatusCode)
		if code, msg, ok := envelope(body); ok {
			e.WithAPICode(code).Message = msg
		}
		return nil, e
	default:
		if code, msg, ok := envelope(body); ok {
			return nil, types.NewError(types.ErrAPI, msg).WithAPICode(code).WithHTTPStatus(resp.StatusCode)
		}
		return nil, types.Errorf(types.ErrTransport, "unexpected response: %s", snippet(raw)).
			WithHTTPStatus(resp.StatusCode)
	}
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(contentType, "application/json")
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// hasStage reports whether body is a status document carrying a stage.
func hasStage(body any) bool {
	doc, ok := UnwrapSingle(body).(map[string]any)
	if !ok {
		return false
	}
	_, found := doc["stage"]
	return found
}

// envelope extracts a {code, message} error payload.
func envelope(body any) (code, message string, ok bool) {
	m, isMap := UnwrapSingle(body).(map[string]any)
	if !isMap {
		return "", "", false
	}
	rawCode, hasCode := m["code"]
	rawMsg, hasMsg := m["message"]
	if !hasCode || !hasMsg {
		return "", "", false
	}
	return fmt.Sprint(rawCode), fmt.Sprint(rawMsg), true
}

// UnwrapSingle returns the only element of a one-element list and any other
// value unchanged.
func UnwrapSingle(v any) any {
	if list, ok := v.([]any); ok && len(list) == 1 {
		return list[0]
	}
	return v
}

// AsDocument converts a decoded body into a status document.
func AsDocument(v any) (types.StatusDocument, error) {
	switch doc := v.(type) {
	case map[string]any:
		return types.StatusDocument(doc), nil
	case nil:
		return nil, types.NewError(types.ErrTransport, "empty response body")
	default:
		return nil, types.Errorf(types.ErrTransport, "expected a JSON object, got %T", v)
	}
}

func snippet(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > snippetBytes {
		s = s[:snippetBytes] + "..."
	}
	return s
}
