package client

import (
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/anythingworld/config"
	"github.com/BaSui01/anythingworld/internal/metrics"
	"github.com/BaSui01/anythingworld/internal/tlsutil"
	"github.com/BaSui01/anythingworld/jobstore"
	"github.com/BaSui01/anythingworld/poller"
	"github.com/BaSui01/anythingworld/transport"
	"github.com/BaSui01/anythingworld/types"
)

// Endpoint labels used in metrics and logs.
const (
	endpointAnimate         = "animate"
	endpointTextTo3D        = "text-to-3d"
	endpointImageTo3D       = "image-to-3d"
	endpointStatus          = "status"
	endpointGeneratedStatus = "generated-status"
	endpointAnything        = "anything"
)

// Client talks to the Anything World API.
type Client struct {
	apiKey       string
	apiURL       string
	pollingURL   string
	generatedURL string
	platform     string
	staging      bool
	defaults     poller.Options

	http      *http.Client
	transport *transport.Client
	store     jobstore.Store
	metrics   *metrics.Collector
	tracer    trace.Tracer
	sleeper   poller.Sleeper
	tempDir   string
	logger    *zap.Logger

	animate  *poller.Poller
	generate *poller.Poller
}

// Option configures a Client.
type Option func(*Client)

// WithTransport replaces the transport built from config.HTTP.
func WithTransport(t *transport.Client) Option {
	return func(c *Client) { c.transport = t }
}

// WithHTTPClient keeps the configured transport behaviour but sends through hc.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithStore records submissions and poll progress in store.
func WithStore(store jobstore.Store) Option {
	return func(c *Client) { c.store = store }
}

// WithMetrics reports requests, submissions, downloads and polls to m.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Client) { c.metrics = m }
}

// WithTracer overrides the global otel tracer used for poll spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) { c.tracer = t }
}

// WithSleeper replaces the poller's sleep, mainly for tests.
func WithSleeper(s poller.Sleeper) Option {
	return func(c *Client) { c.sleeper = s }
}

// WithTempDir sets the parent directory for the generate-then-animate flows.
func WithTempDir(dir string) Option {
	return func(c *Client) { c.tempDir = dir }
}

// New creates a Client from cfg. The API key is required.
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, types.NewError(types.ErrConfiguration, "config is nil")
	}
	if strings.TrimSpace(cfg.API.Key) == "" {
		return nil, types.NewError(types.ErrConfiguration, "API key is required (set AW_API_KEY)")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults, err := OptionsFromConfig(cfg.Polling)
	if err != nil {
		return nil, err
	}

	c := &Client{
		apiKey:       cfg.API.Key,
		apiURL:       strings.TrimRight(cfg.API.URL, "/"),
		pollingURL:   cfg.Polling.URL,
		generatedURL: cfg.Polling.GeneratedURL,
		platform:     cfg.API.Platform,
		staging:      cfg.IsStaging(),
		defaults:     defaults,
		logger:       logger.With(zap.String("component", "client")),
	}
	if c.platform == "" {
		c.platform = config.DefaultPlatform
	}
	for _, opt := range opts {
		opt(c)
	}
	for name, raw := range map[string]string{"api.url": c.apiURL, "polling.url": c.pollingURL, "polling.generated_url": c.generatedURL} {
		if _, err := url.ParseRequestURI(raw); err != nil {
			return nil, types.Errorf(types.ErrConfiguration, "invalid %s %q", name, raw).WithCause(err)
		}
	}

	if c.transport == nil {
		c.transport = newTransport(cfg.HTTP, c.http, c.metrics, logger)
	}

	var pollerOpts []poller.Option
	if c.metrics != nil {
		pollerOpts = append(pollerOpts, poller.WithRecorder(c.metrics))
	}
	if c.tracer != nil {
		pollerOpts = append(pollerOpts, poller.WithTracer(c.tracer))
	}
	if c.sleeper != nil {
		pollerOpts = append(pollerOpts, poller.WithSleeper(c.sleeper))
	}
	c.animate = poller.New(c.fetcher(c.pollingURL, endpointStatus), logger, pollerOpts...)
	c.generate = poller.New(c.fetcher(c.generatedURL, endpointGeneratedStatus), logger, pollerOpts...)

	c.logger.Debug("client initialized",
		zap.String("api_url", c.apiURL),
		zap.Bool("staging", c.staging),
		zap.Bool("store", c.store != nil),
	)
	return c, nil
}

func newTransport(cfg config.HTTPConfig, hc *http.Client, m *metrics.Collector, logger *zap.Logger) *transport.Client {
	if hc == nil {
		hc = tlsutil.NewHTTPClient(tlsutil.ClientOptions{Timeout: cfg.Timeout})
	}
	opts := []transport.Option{
		transport.WithHTTPClient(hc),
		transport.WithDownloadRetry(cfg.DownloadAttempts, cfg.DownloadDelay),
	}
	if cfg.UserAgent != "" {
		opts = append(opts, transport.WithUserAgent(cfg.UserAgent))
	}
	if cfg.RateLimit > 0 {
		opts = append(opts, transport.WithRateLimit(cfg.RateLimit, cfg.Burst))
	}
	if m != nil {
		opts = append(opts, transport.WithObserver(m))
	}
	return transport.New(logger, opts...)
}

// OptionsFromConfig maps the polling section of the config to poller options.
func OptionsFromConfig(p config.PollingConfig) (poller.Options, error) {
	policy, err := poller.ParseMissingStagePolicy(p.MissingStage)
	if err != nil {
		return poller.Options{}, err
	}
	o := poller.Options{
		Interval:     p.Interval,
		Warmup:       p.Warmup,
		Verbose:      p.Verbose,
		MaxAttempts:  p.MaxAttempts,
		Deadline:     p.Timeout,
		MissingStage: policy,
	}
	return o, o.Validate()
}

// PollOptions returns a copy of the configured polling defaults.
func (c *Client) PollOptions() poller.Options {
	return c.defaults
}

// Staging reports whether requests carry staging=true.
func (c *Client) Staging() bool {
	return c.staging
}

// Store returns the attached job store, or nil.
func (c *Client) Store() jobstore.Store {
	return c.store
}

// stagingQuery returns the query every submission and search carries.
func (c *Client) stagingQuery() url.Values {
	q := url.Values{}
	if c.staging {
		q.Set("staging", "true")
	}
	return q
}

func (c *Client) endpointURL(path string) string {
	return c.apiURL + "/" + path
}
