package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/BaSui01/modelgate/llm"

// 调用状态
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Metrics 模型调用的 OpenTelemetry 追踪与指标
type Metrics struct {
	tracer trace.Tracer
	meter  metric.Meter
	// 计数器
	requestTotal     metric.Int64Counter
	errorTotal       metric.Int64Counter
	streamChunkTotal metric.Int64Counter
	// 直方图
	requestDuration metric.Float64Histogram
	responseSize    metric.Int64Histogram
	// 在途
	activeRequests metric.Int64UpDownCounter
}

// NewMetrics 使用全局 TracerProvider 与 MeterProvider 创建指标收集器
func NewMetrics() (*Metrics, error) {
	return NewMetricsWithProviders(otel.GetTracerProvider(), otel.GetMeterProvider())
}

// NewMetricsWithProviders 使用指定的 Provider 创建指标收集器
func NewMetricsWithProviders(tp trace.TracerProvider, mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(instrumentationName)
	m := &Metrics{
		tracer: tp.Tracer(instrumentationName),
		meter:  meter,
	}

	var err error

	m.requestTotal, err = meter.Int64Counter("modelgate.request.total",
		metric.WithDescription("Total number of model invocations"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}

	m.errorTotal, err = meter.Int64Counter("modelgate.error.total",
		metric.WithDescription("Total number of failed invocations"),
		metric.WithUnit("{error}"))
	if err != nil {
		return nil, err
	}

	m.streamChunkTotal, err = meter.Int64Counter("modelgate.stream.chunk.total",
		metric.WithDescription("Total number of streamed text increments"),
		metric.WithUnit("{chunk}"))
	if err != nil {
		return nil, err
	}

	m.requestDuration, err = meter.Float64Histogram("modelgate.request.duration",
		metric.WithDescription("Invocation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120))
	if err != nil {
		return nil, err
	}

	m.responseSize, err = meter.Int64Histogram("modelgate.response.size",
		metric.WithDescription("Size of the returned text in bytes"),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(64, 256, 1024, 4096, 16384, 65536))
	if err != nil {
		return nil, err
	}

	m.activeRequests, err = meter.Int64UpDownCounter("modelgate.request.active",
		metric.WithDescription("Number of in-flight invocations"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RequestAttrs 请求属性
type RequestAttrs struct {
	Provider  string
	ModelKey  string
	Model     string
	Transport string
	Stream    bool

	// RequestID 只写入 Span，不作为指标维度
	RequestID string
}

// ResponseAttrs 响应属性
type ResponseAttrs struct {
	Status    string
	ErrorCode string
	Err       error
	Chunks    int
	Bytes     int
	Duration  time.Duration
}

func (a RequestAttrs) metricAttrs() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("provider", a.Provider),
		attribute.String("model_key", a.ModelKey),
		attribute.String("transport", a.Transport),
	}
}

// StartRequest 开始请求追踪
func (m *Metrics) StartRequest(ctx context.Context, attrs RequestAttrs) (context.Context, trace.Span) {
	ctx, span := m.tracer.Start(ctx, "modelgate.invoke",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("llm.provider", attrs.Provider),
			attribute.String("llm.model", attrs.Model),
			attribute.String("modelgate.model_key", attrs.ModelKey),
			attribute.String("modelgate.transport", attrs.Transport),
			attribute.Bool("modelgate.stream", attrs.Stream),
			attribute.String("modelgate.request_id", attrs.RequestID),
		))

	m.activeRequests.Add(ctx, 1, metric.WithAttributes(attrs.metricAttrs()...))

	return ctx, span
}

// EndRequest 结束请求追踪
func (m *Metrics) EndRequest(ctx context.Context, span trace.Span, req RequestAttrs, resp ResponseAttrs) {
	defer span.End()

	common := append(req.metricAttrs(), attribute.String("status", resp.Status))

	m.activeRequests.Add(ctx, -1, metric.WithAttributes(req.metricAttrs()...))
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(common...))
	m.requestDuration.Record(ctx, resp.Duration.Seconds(), metric.WithAttributes(common...))

	if resp.Chunks > 0 {
		m.streamChunkTotal.Add(ctx, int64(resp.Chunks), metric.WithAttributes(req.metricAttrs()...))
	}
	if resp.Status == StatusSuccess {
		m.responseSize.Record(ctx, int64(resp.Bytes), metric.WithAttributes(req.metricAttrs()...))
	}

	if resp.ErrorCode != "" {
		m.errorTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("provider", req.Provider),
			attribute.String("model_key", req.ModelKey),
			attribute.String("error_code", resp.ErrorCode)))

		span.SetAttributes(attribute.String("error.code", resp.ErrorCode))
		if resp.Err != nil {
			span.RecordError(resp.Err)
			span.SetStatus(codes.Error, resp.Err.Error())
		} else {
			span.SetStatus(codes.Error, resp.ErrorCode)
		}
	}

	span.SetAttributes(
		attribute.String("modelgate.status", resp.Status),
		attribute.Int("modelgate.chunks", resp.Chunks),
		attribute.Int("modelgate.bytes", resp.Bytes),
		attribute.Float64("modelgate.duration_ms", float64(resp.Duration.Milliseconds())))
}

// Tracer 获取 Tracer
func (m *Metrics) Tracer() trace.Tracer {
	return m.tracer
}
