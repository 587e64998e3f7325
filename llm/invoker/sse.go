package invoker

import (
	"bufio"
	"context"
	"io"
	"iter"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/modelgate/config"
	"github.com/BaSui01/modelgate/internal/tlsutil"
	"github.com/BaSui01/modelgate/llm/providers"
	"github.com/BaSui01/modelgate/llm/strategy"
	"github.com/BaSui01/modelgate/types"
)

const (
	// maxSSELineSize 单行 SSE 数据的上限
	maxSSELineSize = 1 << 20
	// maxErrorBodySize 非 2xx 流式响应读取的响应体上限
	maxErrorBodySize = 64 << 10
)

// SSEInvoker Server-Sent-Events 流式调用
type SSEInvoker struct {
	base
	client *http.Client
}

// NewSSEInvoker 创建 SSE 调用器
func NewSSEInvoker(resolver ModelResolver, registry *strategy.Registry, logger *zap.Logger, opts ...Option) *SSEInvoker {
	o := buildOptions(opts)
	client := o.httpClient
	if client == nil {
		client = tlsutil.StreamingHTTPClient(o.timeouts)
	}
	return &SSEInvoker{
		base:   newBase(resolver, registry, logger, "sse_invoker"),
		client: client,
	}
}

// Supports 实现 Invoker
func (s *SSEInvoker) Supports(kind config.TransportKind) bool {
	return kind == config.TransportSSE
}

// Invoke 实现 Invoker；SSE 只提供流式接口
func (s *SSEInvoker) Invoke(_ context.Context, modelKey, _ string) (string, error) {
	return "", s.unsupported(modelKey, "Invoke")
}

// InvokeStream 返回惰性的文本增量序列。
//
// 请求在首次遍历时才发出。无内容的行被过滤；上游关闭连接时序列结束。
// 提前退出 range 循环或取消 ctx 会立即关闭连接。传输错误以序列的最后一个错误元素返回。
// 序列只能遍历一次，再次遍历得到 UNSUPPORTED_OPERATION。
func (s *SSEInvoker) InvokeStream(ctx context.Context, modelKey, prompt string) iter.Seq2[string, error] {
	var used atomic.Bool
	return func(yield func(string, error) bool) {
		if !used.CompareAndSwap(false, true) {
			yield("", s.unsupported(modelKey, "restarting a consumed stream"))
			return
		}
		s.stream(ctx, modelKey, prompt, yield)
	}
}

func (s *SSEInvoker) stream(ctx context.Context, modelKey, prompt string, yield func(string, error) bool) {
	p, err := s.prepare(ctx, modelKey, prompt)
	if err != nil {
		yield("", err)
		return
	}

	ctx, cancel := withModelTimeout(ctx, p.params)
	defer cancel()

	s.logger.Info("opening model stream",
		zap.String("model_key", modelKey),
		zap.String("provider", p.info.Provider),
		zap.String("transport", string(config.TransportSSE)),
	)
	start := time.Now()

	req, err := newJSONRequest(ctx, p)
	if err != nil {
		yield("", err)
		return
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("stream request failed", zap.String("model_key", modelKey), zap.Error(err))
		yield("", p.tag(transportError(ctx, err), types.ErrNetwork))
		return
	}
	defer providers.SafeCloseBody(resp.Body)

	if !isSuccess(resp.StatusCode) {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		s.logger.Warn("upstream returned error status",
			zap.String("model_key", modelKey),
			zap.Int("status", resp.StatusCode),
		)
		yield("", p.tag(providers.MapHTTPError(resp.StatusCode, data, p.info.Provider), types.ErrNetwork))
		return
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELineSize)

	chunks := 0
	for scanner.Scan() {
		text, ok := p.parser.ParseStreamLine(scanner.Text(), p.info)
		if !ok {
			continue
		}
		chunks++
		if !yield(text, nil) {
			s.logger.Debug("stream abandoned by consumer",
				zap.String("model_key", modelKey),
				zap.Int("chunks", chunks),
			)
			return
		}
	}
	if err := scanner.Err(); err != nil {
		s.logger.Warn("stream interrupted", zap.String("model_key", modelKey), zap.Error(err))
		yield("", p.tag(transportError(ctx, err), types.ErrNetwork))
		return
	}

	s.logger.Debug("model stream completed",
		zap.String("model_key", modelKey),
		zap.Int("chunks", chunks),
		zap.Duration("duration", time.Since(start)),
	)
}
