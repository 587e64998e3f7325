package invoker

import (
	"context"
	"iter"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/modelgate/config"
	"github.com/BaSui01/modelgate/internal/ctxkeys"
	"github.com/BaSui01/modelgate/llm/observability"
	"github.com/BaSui01/modelgate/types"
)

// Result 同步调用结果
type Result struct {
	Text      string
	Provider  string
	ModelKey  string
	Transport config.TransportKind
	RequestID string
}

// StreamResult 流式调用结果。Chunks 只能遍历一次。
type StreamResult struct {
	Provider  string
	ModelKey  string
	Transport config.TransportKind
	Chunks    iter.Seq2[string, error]
}

// Text 读完整个序列并拼接文本，遇到错误时返回已读取部分与该错误
func (r *StreamResult) Text() (string, error) {
	var out []byte
	for chunk, err := range r.Chunks {
		if err != nil {
			return string(out), err
		}
		out = append(out, chunk...)
	}
	return string(out), nil
}

// Gateway 调用入口：解析模型、选择调用方式、记录指标与追踪
type Gateway struct {
	resolver ModelResolver
	selector *Selector
	metrics  *observability.Metrics
	recorder Recorder
	logger   *zap.Logger
}

// GatewayOption 配置 Gateway
type GatewayOption func(*Gateway)

// WithMetrics 启用 OpenTelemetry 追踪与指标
func WithMetrics(m *observability.Metrics) GatewayOption {
	return func(g *Gateway) { g.metrics = m }
}

// WithGatewayRecorder 设置 Prometheus 指标接收方
func WithGatewayRecorder(r Recorder) GatewayOption {
	return func(g *Gateway) {
		if r != nil {
			g.recorder = r
		}
	}
}

// NewGateway 创建调用入口
func NewGateway(resolver ModelResolver, selector *Selector, logger *zap.Logger, opts ...GatewayOption) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Gateway{
		resolver: resolver,
		selector: selector,
		recorder: nopRecorder{},
		logger:   logger.With(zap.String("component", "gateway")),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// withRequestID 沿用 ctx 中已有的 RequestID，否则生成一个
func withRequestID(ctx context.Context) (context.Context, string) {
	if id, ok := ctxkeys.RequestID(ctx); ok {
		return ctx, id
	}
	id := uuid.NewString()
	return ctxkeys.WithRequestID(ctx, id), id
}

// route 解析模型并选择 Invoker
func (g *Gateway) route(modelKey string) (*config.ModelInfo, Invoker, config.TransportKind, error) {
	info, err := g.resolver.GetModelInfo(modelKey)
	if err != nil {
		return nil, nil, "", types.Tag(err, types.ErrConfig, "", modelKey)
	}
	inv, kind, err := g.selector.Select(info)
	if err != nil {
		return info, nil, kind, types.Tag(err, types.ErrConfig, info.Provider, modelKey)
	}
	return info, inv, kind, nil
}

// Invoke 同步调用模型
func (g *Gateway) Invoke(ctx context.Context, modelKey, prompt string) (*Result, error) {
	info, inv, kind, err := g.route(modelKey)
	if err != nil {
		return nil, err
	}

	ctx, requestID := withRequestID(ctx)
	attrs := observability.RequestAttrs{
		Provider:  info.Provider,
		ModelKey:  modelKey,
		Model:     info.ModelName(),
		Transport: string(kind),
		RequestID: requestID,
	}
	ctx, end := g.start(ctx, attrs)

	text, err := inv.Invoke(ctx, modelKey, prompt)
	if err != nil {
		tagged := types.Tag(err, types.ErrNetwork, info.Provider, modelKey)
		end(tagged, 0, 0)
		return nil, tagged
	}
	end(nil, 0, len(text))

	return &Result{
		Text:      text,
		Provider:  info.Provider,
		ModelKey:  modelKey,
		Transport: kind,
		RequestID: requestID,
	}, nil
}

// InvokeStream 流式调用模型。解析失败同样以序列中的错误元素返回。
func (g *Gateway) InvokeStream(ctx context.Context, modelKey, prompt string) *StreamResult {
	info, inv, kind, err := g.route(modelKey)
	if err != nil {
		res := &StreamResult{ModelKey: modelKey, Transport: kind}
		if info != nil {
			res.Provider = info.Provider
		}
		res.Chunks = singleUse(res.Provider, modelKey, func(yield func(string, error) bool) { yield("", err) })
		return res
	}

	attrs := observability.RequestAttrs{
		Provider:  info.Provider,
		ModelKey:  modelKey,
		Model:     info.ModelName(),
		Transport: string(kind),
		Stream:    true,
	}

	return &StreamResult{
		Provider:  info.Provider,
		ModelKey:  modelKey,
		Transport: kind,
		Chunks: singleUse(info.Provider, modelKey, func(yield func(string, error) bool) {
			ctx, requestID := withRequestID(ctx)
			attrs := attrs
			attrs.RequestID = requestID
			ctx, end := g.start(ctx, attrs)
			chunks, size := 0, 0
			for chunk, err := range inv.InvokeStream(ctx, modelKey, prompt) {
				if err != nil {
					tagged := types.Tag(err, types.ErrNetwork, info.Provider, modelKey)
					end(tagged, chunks, size)
					yield("", tagged)
					return
				}
				chunks++
				size += len(chunk)
				g.recorder.RecordStreamChunk(info.Provider, modelKey)
				if !yield(chunk, nil) {
					end(nil, chunks, size)
					return
				}
			}
			end(nil, chunks, size)
		}),
	}
}

// singleUse 保证序列只被消费一次，之后的遍历只得到 UNSUPPORTED_OPERATION
func singleUse(provider, modelKey string, seq iter.Seq2[string, error]) iter.Seq2[string, error] {
	var used atomic.Bool
	return func(yield func(string, error) bool) {
		if !used.CompareAndSwap(false, true) {
			yield("", types.NewError(types.ErrUnsupported, "restarting a consumed stream is not supported").
				WithProvider(provider).WithModelKey(modelKey))
			return
		}
		seq(yield)
	}
}

// start 开启追踪，返回的 end 记录结果并结束 Span
func (g *Gateway) start(ctx context.Context, attrs observability.RequestAttrs) (context.Context, func(err *types.Error, chunks, size int)) {
	began := time.Now()
	var endSpan func(observability.ResponseAttrs)
	if g.metrics != nil {
		spanCtx, s := g.metrics.StartRequest(ctx, attrs)
		ctx = spanCtx
		endSpan = func(resp observability.ResponseAttrs) { g.metrics.EndRequest(spanCtx, s, attrs, resp) }
	}

	return ctx, func(err *types.Error, chunks, size int) {
		d := time.Since(began)
		resp := observability.ResponseAttrs{
			Status:   observability.StatusSuccess,
			Chunks:   chunks,
			Bytes:    size,
			Duration: d,
		}
		code := ""
		if err != nil {
			code = string(err.Code)
			resp.Status = observability.StatusError
			resp.ErrorCode = code
			resp.Err = err
			g.logger.Warn("model invocation failed",
				zap.String("request_id", attrs.RequestID),
				zap.String("model_key", attrs.ModelKey),
				zap.String("provider", attrs.Provider),
				zap.String("code", code),
				zap.Error(err),
			)
		}
		g.recorder.RecordInvocation(attrs.Provider, attrs.ModelKey, attrs.Transport, code, d)
		if endSpan != nil {
			endSpan(resp)
		}
	}
}
