package invoker

import (
	"context"
	"io"
	"iter"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/modelgate/config"
	"github.com/BaSui01/modelgate/internal/tlsutil"
	"github.com/BaSui01/modelgate/llm/providers"
	"github.com/BaSui01/modelgate/llm/strategy"
	"github.com/BaSui01/modelgate/types"
)

// HTTPInvoker 请求/响应式调用：POST JSON，解析完整响应体。不做重试。
type HTTPInvoker struct {
	base
	client *http.Client
}

// NewHTTPInvoker 创建 HTTP 调用器
func NewHTTPInvoker(resolver ModelResolver, registry *strategy.Registry, logger *zap.Logger, opts ...Option) *HTTPInvoker {
	o := buildOptions(opts)
	client := o.httpClient
	if client == nil {
		client = tlsutil.SecureHTTPClient(o.timeouts)
	}
	return &HTTPInvoker{
		base:   newBase(resolver, registry, logger, "http_invoker"),
		client: client,
	}
}

// Supports 实现 Invoker
func (h *HTTPInvoker) Supports(kind config.TransportKind) bool {
	return kind == config.TransportHTTP
}

// Invoke 实现 Invoker
func (h *HTTPInvoker) Invoke(ctx context.Context, modelKey, prompt string) (string, error) {
	p, err := h.prepare(ctx, modelKey, prompt)
	if err != nil {
		return "", err
	}

	ctx, cancel := withModelTimeout(ctx, p.params)
	defer cancel()

	h.logger.Info("invoking model",
		zap.String("model_key", modelKey),
		zap.String("provider", p.info.Provider),
		zap.String("transport", string(config.TransportHTTP)),
	)
	start := time.Now()

	req, err := newJSONRequest(ctx, p)
	if err != nil {
		return "", err
	}

	resp, err := h.client.Do(req)
	if err != nil {
		h.logger.Warn("request failed", zap.String("model_key", modelKey), zap.Error(err))
		return "", p.tag(transportError(ctx, err), types.ErrNetwork)
	}
	defer providers.SafeCloseBody(resp.Body)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", p.tag(transportError(ctx, err), types.ErrNetwork)
	}

	if !isSuccess(resp.StatusCode) {
		h.logger.Warn("upstream returned error status",
			zap.String("model_key", modelKey),
			zap.Int("status", resp.StatusCode),
		)
		return "", p.tag(providers.MapHTTPError(resp.StatusCode, data, p.info.Provider), types.ErrNetwork)
	}

	text, err := p.parser.ParseSync(data, p.info)
	if err != nil {
		return "", p.tag(err, types.ErrParse)
	}

	h.logger.Debug("model invocation completed",
		zap.String("model_key", modelKey),
		zap.Duration("duration", time.Since(start)),
		zap.Int("text_bytes", len(text)),
	)
	return text, nil
}

// InvokeStream 实现 Invoker；HTTP 调用方式不支持流式
func (h *HTTPInvoker) InvokeStream(_ context.Context, modelKey, _ string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		yield("", h.unsupported(modelKey, "InvokeStream"))
	}
}
