package invoker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"iter"
	"net"
	"net/http"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/modelgate/config"
	"github.com/BaSui01/modelgate/internal/ctxkeys"
	"github.com/BaSui01/modelgate/internal/tlsutil"
	"github.com/BaSui01/modelgate/llm/strategy"
	"github.com/BaSui01/modelgate/types"
)

// Invoker 执行某一种调用方式的协议。
//
// Invoke 为同步调用，InvokeStream 返回惰性、只能遍历一次的增量序列；
// 不支持的一侧返回 UNSUPPORTED_OPERATION。
type Invoker interface {
	Supports(kind config.TransportKind) bool
	Invoke(ctx context.Context, modelKey, prompt string) (string, error)
	InvokeStream(ctx context.Context, modelKey, prompt string) iter.Seq2[string, error]
}

// ModelResolver 按 modelKey 解析模型配置，config.Store 实现了该接口
type ModelResolver interface {
	GetModelInfo(modelKey string) (*config.ModelInfo, error)
}

// Recorder 接收调用指标，internal/metrics.Collector 实现了该接口。
// code 为空表示成功。
type Recorder interface {
	RecordInvocation(provider, modelKey, transport, code string, duration time.Duration)
	RecordStreamChunk(provider, modelKey string)
	RecordSocketOutcome(provider, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) RecordInvocation(string, string, string, string, time.Duration) {}
func (nopRecorder) RecordStreamChunk(string, string) {}
func (nopRecorder) RecordSocketOutcome(string, string) {}

// =============================================================================
// ⚙️ 选项
// =============================================================================

type options struct {
	httpClient     *http.Client
	timeouts       tlsutil.Timeouts
	connectTimeout time.Duration
	recorder       Recorder
}

// Option 配置调用器
type Option func(*options)

// WithHTTPClient 使用指定的 HTTP 客户端（测试或自定义代理）
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithTimeouts 覆盖默认的连接/读取超时 (30s/120s)
func WithTimeouts(t tlsutil.Timeouts) Option {
	return func(o *options) { o.timeouts = t }
}

// WithConnectTimeout 覆盖 WebSocket 建连超时
func WithConnectTimeout(d time.Duration) Option {
	return func(o *options) { o.connectTimeout = d }
}

// WithRecorder 设置指标接收方
func WithRecorder(r Recorder) Option {
	return func(o *options) { o.recorder = r }
}

func buildOptions(opts []Option) options {
	o := options{
		timeouts:       tlsutil.DefaultTimeouts(),
		connectTimeout: tlsutil.DefaultConnectTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.recorder == nil {
		o.recorder = nopRecorder{}
	}
	return o
}

// =============================================================================
// 🧩 公共准备流程
// =============================================================================

type base struct {
	resolver ModelResolver
	registry *strategy.Registry
	logger   *zap.Logger
}

func newBase(resolver ModelResolver, registry *strategy.Registry, logger *zap.Logger, component string) base {
	if logger == nil {
		logger = zap.NewNop()
	}
	return base{
		resolver: resolver,
		registry: registry,
		logger:   logger.With(zap.String("component", component)),
	}
}

// prepared 是一次调用的临时状态
type prepared struct {
	modelKey string
	info     *config.ModelInfo
	params   *config.ModelParams
	headers  map[string]string
	body     []byte
	parser   strategy.ResponseParser
}

func (p *prepared) tag(err error, fallback types.ErrorCode) *types.Error {
	return types.Tag(err, fallback, p.info.Provider, p.modelKey)
}

// prepare 解析模型与策略，构造请求头与请求体
func (b *base) prepare(ctx context.Context, modelKey, prompt string) (*prepared, error) {
	info, err := b.resolver.GetModelInfo(modelKey)
	if err != nil {
		return nil, types.Tag(err, types.ErrConfig, "", modelKey)
	}
	p := &prepared{modelKey: modelKey, info: info}

	if p.params, err = info.Params(); err != nil {
		return nil, p.tag(err, types.ErrConfig)
	}

	hb, err := b.registry.HeaderBuilder(info.Provider)
	if err != nil {
		return nil, p.tag(err, types.ErrConfig)
	}
	bb, err := b.registry.BodyBuilder(info.Provider)
	if err != nil {
		return nil, p.tag(err, types.ErrConfig)
	}
	if p.parser, err = b.registry.ResponseParser(info.Provider); err != nil {
		return nil, p.tag(err, types.ErrConfig)
	}

	if p.headers, err = hb.Build(info); err != nil {
		return nil, p.tag(err, types.ErrSigning)
	}
	body, err := bb.Build(info, prompt)
	if err != nil {
		return nil, p.tag(err, types.ErrConfig)
	}
	if p.body, err = json.Marshal(body); err != nil {
		return nil, p.tag(types.NewError(types.ErrConfig, "failed to encode request body").WithCause(err), types.ErrConfig)
	}

	requestID, _ := ctxkeys.RequestID(ctx)
	b.logger.Debug("request prepared",
		zap.String("request_id", requestID),
		zap.String("model_key", modelKey),
		zap.String("provider", info.Provider),
		zap.String("endpoint", p.params.Endpoint),
		zap.Strings("header_keys", headerKeys(p.headers)),
		zap.Int("body_bytes", len(p.body)),
	)
	return p, nil
}

// unsupported 返回带 provider 与 modelKey 的 UNSUPPORTED_OPERATION 错误
func (b *base) unsupported(modelKey, op string) *types.Error {
	provider := ""
	if info, err := b.resolver.GetModelInfo(modelKey); err == nil {
		provider = info.Provider
	}
	return types.Errorf(types.ErrUnsupported, "%s is not supported by this transport", op).
		WithProvider(provider).
		WithModelKey(modelKey)
}

// headerKeys 返回排序后的请求头名，日志中不记录值
func headerKeys(h map[string]string) []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// newJSONRequest 构造 POST 请求，Content-Type 固定为 JSON。
// 签名用的 host 可能来自 requestUrl；只有与 endpoint 的主机一致时才写入 Request.Host，
// 否则保持 endpoint 的主机。
func newJSONRequest(ctx context.Context, p *prepared) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.params.Endpoint, bytes.NewReader(p.body))
	if err != nil {
		return nil, p.tag(types.Errorf(types.ErrURLParse, "invalid endpoint %q", p.params.Endpoint).WithCause(err), types.ErrURLParse)
	}
	for k, v := range p.headers {
		if strings.EqualFold(k, "host") {
			if strings.EqualFold(v, req.URL.Host) || strings.EqualFold(v, req.URL.Hostname()) {
				req.Host = v
			}
			continue
		}
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// withModelTimeout 在配置中显式给出 timeout 时为 ctx 加上截止时间
func withModelTimeout(ctx context.Context, p *config.ModelParams) (context.Context, context.CancelFunc) {
	if p.ExplicitTimeout {
		return context.WithTimeout(ctx, p.Timeout)
	}
	return context.WithCancel(ctx)
}

// transportError 将传输层错误映射为 TIMEOUT 或 NETWORK
func transportError(ctx context.Context, err error) *types.Error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return types.NewError(types.ErrTimeout, "request timed out").WithCause(err).WithRetryable(true)
	}
	return types.NewError(types.ErrNetwork, "transport failure").WithCause(err).WithRetryable(true)
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
