// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器。实现 poller.Recorder 与 transport.Observer。
type Collector struct {
	// API 请求指标
	apiRequestsTotal   *prometheus.CounterVec
	apiRequestDuration *prometheus.HistogramVec

	// 轮询指标
	pollAttemptsTotal    *prometheus.CounterVec
	pollSequencesTotal   *prometheus.CounterVec
	pollSequenceDuration *prometheus.HistogramVec
	pollSequenceAttempts *prometheus.HistogramVec

	// 提交与下载指标
	submissionsTotal *prometheus.CounterVec
	downloadsTotal   *prometheus.CounterVec
	downloadBytes    prometheus.Counter

	// 任务存储指标
	storeOpsTotal     *prometheus.CounterVec
	storeOpDuration   *prometheus.HistogramVec
	dbConnectionsOpen *prometheus.GaugeVec
	dbConnectionsIdle *prometheus.GaugeVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.apiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Total number of Anything World API requests",
		},
		[]string{"endpoint", "method", "status"},
	)

	c.apiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "API request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"endpoint", "method"},
	)

	c.pollAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_attempts_total",
			Help:      "Total number of status fetches made while polling",
		},
		[]string{"outcome"}, // done, not_ready, error
	)

	c.pollSequencesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_sequences_total",
			Help:      "Total number of finished polling sequences",
		},
		[]string{"outcome"}, // done, error, cancelled, limit
	)

	c.pollSequenceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_sequence_duration_seconds",
			Help:      "Wall time of a polling sequence, warmup included",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 3600},
		},
		[]string{"outcome"},
	)

	c.pollSequenceAttempts = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_sequence_attempts",
			Help:      "Number of fetches per polling sequence",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		},
		[]string{"outcome"},
	)

	c.submissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Total number of submitted jobs",
		},
		[]string{"endpoint", "status"}, // status: ok, error
	)

	c.downloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_total",
			Help:      "Total number of asset downloads",
		},
		[]string{"status"},
	)

	c.downloadBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "download_bytes_total",
			Help:      "Bytes written by asset downloads",
		},
	)

	c.storeOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobstore_operations_total",
			Help:      "Total number of job store operations",
		},
		[]string{"backend", "operation", "status"},
	)

	c.storeOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "jobstore_operation_duration_seconds",
			Help:      "Job store operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	c.dbConnectionsOpen = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_open",
			Help:      "Number of open database connections",
		},
		[]string{"database"},
	)

	c.dbConnectionsIdle = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_idle",
			Help:      "Number of idle database connections",
		},
		[]string{"database"},
	)

	c.logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🎯 API 请求
// =============================================================================

// RecordRequest 记录一次 API 请求；status 为 0 表示未收到响应
func (c *Collector) RecordRequest(endpoint, method string, status int, duration time.Duration) {
	c.apiRequestsTotal.WithLabelValues(endpoint, method, statusClass(status)).Inc()
	c.apiRequestDuration.WithLabelValues(endpoint, method).Observe(duration.Seconds())
}

// RecordSubmission 记录一次任务提交
func (c *Collector) RecordSubmission(endpoint string, err error) {
	c.submissionsTotal.WithLabelValues(endpoint, okOrError(err)).Inc()
}

// RecordDownload 记录一次资源下载
func (c *Collector) RecordDownload(bytes int64, err error) {
	c.downloadsTotal.WithLabelValues(okOrError(err)).Inc()
	if err == nil && bytes > 0 {
		c.downloadBytes.Add(float64(bytes))
	}
}

// =============================================================================
// 🔁 轮询
// =============================================================================

// RecordPollAttempt 记录一次状态查询
func (c *Collector) RecordPollAttempt(outcome string) {
	c.pollAttemptsTotal.WithLabelValues(outcome).Inc()
}

// RecordPollResult 记录一次轮询序列的结束
func (c *Collector) RecordPollResult(outcome string, attempts int, duration time.Duration) {
	c.pollSequencesTotal.WithLabelValues(outcome).Inc()
	c.pollSequenceDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	c.pollSequenceAttempts.WithLabelValues(outcome).Observe(float64(attempts))
}

// =============================================================================
// 🗄️ 任务存储
// =============================================================================

// RecordStoreOp 记录任务存储操作
func (c *Collector) RecordStoreOp(backend, operation string, duration time.Duration, err error) {
	c.storeOpsTotal.WithLabelValues(backend, operation, okOrError(err)).Inc()
	c.storeOpDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
}

// RecordDBConnections 记录数据库连接数
func (c *Collector) RecordDBConnections(database string, open, idle int) {
	c.dbConnectionsOpen.WithLabelValues(database).Set(float64(open))
	c.dbConnectionsIdle.WithLabelValues(database).Set(float64(idle))
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// statusClass 将 HTTP 状态码归类；403 单独保留，因为它可能携带任务状态
func statusClass(code int) string {
	switch {
	case code == 403:
		return strconv.Itoa(code)
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "none"
	}
}

func okOrError(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
