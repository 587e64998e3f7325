// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 模型调用指标收集器
type Collector struct {
	invocationsTotal   *prometheus.CounterVec
	invocationDuration *prometheus.HistogramVec
	invocationErrors   *prometheus.CounterVec
	streamChunksTotal  *prometheus.CounterVec
	socketOutcomes     *prometheus.CounterVec
	modelsConfigured   prometheus.Gauge

	logger *zap.Logger
}

// NewCollector 创建指标收集器，指标注册到 Prometheus 默认注册表
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.invocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invocations_total",
			Help:      "Total number of model invocations",
		},
		[]string{"provider", "model_key", "transport", "status"},
	)

	c.invocationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "invocation_duration_seconds",
			Help:      "Model invocation duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"provider", "transport"},
	)

	c.invocationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invocation_errors_total",
			Help:      "Total number of failed invocations by error code",
		},
		[]string{"provider", "code"},
	)

	c.streamChunksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_chunks_total",
			Help:      "Total number of streamed text increments",
		},
		[]string{"provider", "model_key"},
	)

	c.socketOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "socket_outcomes_total",
			Help:      "WebSocket invocation outcomes",
		},
		[]string{"provider", "outcome"},
	)

	c.modelsConfigured = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "models_configured",
			Help:      "Number of configured models",
		},
	)

	c.logger.Debug("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🎯 记录方法
// =============================================================================

// RecordInvocation 记录一次调用。code 为空表示成功。
func (c *Collector) RecordInvocation(provider, modelKey, transport, code string, duration time.Duration) {
	status := "success"
	if code != "" {
		status = "error"
		c.invocationErrors.WithLabelValues(provider, code).Inc()
	}
	c.invocationsTotal.WithLabelValues(provider, modelKey, transport, status).Inc()
	c.invocationDuration.WithLabelValues(provider, transport).Observe(duration.Seconds())
}

// RecordStreamChunk 记录一个流式增量
func (c *Collector) RecordStreamChunk(provider, modelKey string) {
	c.streamChunksTotal.WithLabelValues(provider, modelKey).Inc()
}

// RecordSocketOutcome 记录 WebSocket 会话的结束方式: completed, closed, errored, timed_out
func (c *Collector) RecordSocketOutcome(provider, outcome string) {
	c.socketOutcomes.WithLabelValues(provider, outcome).Inc()
}

// SetModelsConfigured 记录已配置的模型数
func (c *Collector) SetModelsConfigured(n int) {
	c.modelsConfigured.Set(float64(n))
}

// Handler 返回 /metrics 处理器
func Handler() http.Handler {
	return promhttp.Handler()
}
