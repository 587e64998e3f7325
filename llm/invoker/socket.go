package invoker

import (
	"context"
	"errors"
	"io"
	"iter"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/BaSui01/modelgate/config"
	"github.com/BaSui01/modelgate/llm/strategy"
	"github.com/BaSui01/modelgate/types"
)

// maxSocketMessageSize 单条 WebSocket 消息的上限
const maxSocketMessageSize = 4 << 20

// SocketState 一次 WebSocket 调用的状态
type SocketState string

const (
	SocketConnecting         SocketState = "connecting"
	SocketOpen               SocketState = "open"
	SocketAwaitingCompletion SocketState = "awaiting_completion"
	SocketCompleted          SocketState = "completed"
	SocketClosed             SocketState = "closed"
	SocketErrored            SocketState = "errored"
	SocketTimedOut           SocketState = "timed_out"
)

// socketQueryKeys 会被移到 URL 查询参数中的请求头，大小写不敏感
var socketQueryKeys = []string{"api-key", "apikey", "token", "authorization"}

// SocketURL 构造 WebSocket 连接地址。
// 认证类请求头按键名排序后追加为查询参数；其余请求头不会通过该通道发送。
func SocketURL(endpoint string, headers map[string]string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		e := types.Errorf(types.ErrURLParse, "invalid websocket endpoint %q", endpoint)
		if err != nil {
			e = e.WithCause(err)
		}
		return "", e
	}

	keys := make([]string, 0, len(headers))
	for k := range headers {
		if slices.Contains(socketQueryKeys, strings.ToLower(k)) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return endpoint, nil
	}
	slices.Sort(keys)

	var sb strings.Builder
	sb.WriteString(u.RawQuery)
	for _, k := range keys {
		if sb.Len() > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(k))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(headers[k]))
	}
	u.RawQuery = sb.String()
	u.ForceQuery = false
	return u.String(), nil
}

// SocketInvoker WebSocket 调用：每次调用独占一条连接，发送一条请求，累积增量直到结束。
type SocketInvoker struct {
	base
	connectTimeout time.Duration
	dialOptions    *websocket.DialOptions
	recorder       Recorder
}

// NewSocketInvoker 创建 WebSocket 调用器
func NewSocketInvoker(resolver ModelResolver, registry *strategy.Registry, logger *zap.Logger, opts ...Option) *SocketInvoker {
	o := buildOptions(opts)
	s := &SocketInvoker{
		base:           newBase(resolver, registry, logger, "socket_invoker"),
		connectTimeout: o.connectTimeout,
		recorder:       o.recorder,
	}
	if o.httpClient != nil {
		s.dialOptions = &websocket.DialOptions{HTTPClient: o.httpClient}
	}
	return s
}

// Supports 实现 Invoker
func (s *SocketInvoker) Supports(kind config.TransportKind) bool {
	return kind == config.TransportWebSocket
}

// InvokeStream 实现 Invoker；WebSocket 调用方式只提供同步接口
func (s *SocketInvoker) InvokeStream(_ context.Context, modelKey, _ string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		yield("", s.unsupported(modelKey, "InvokeStream"))
	}
}

// Invoke 实现 Invoker。
//
// 完成、对端关闭、读取错误、超时四者中先发生者决定结果：
// 完成或关闭返回已累积文本，读取错误返回 NETWORK，超时返回 TIMEOUT。
// 任一路径返回前连接都会关闭，读取协程都会退出。
func (s *SocketInvoker) Invoke(ctx context.Context, modelKey, prompt string) (string, error) {
	p, err := s.prepare(ctx, modelKey, prompt)
	if err != nil {
		return "", err
	}

	target, err := SocketURL(p.params.Endpoint, p.headers)
	if err != nil {
		return "", p.tag(err, types.ErrURLParse)
	}

	s.logger.Info("invoking model",
		zap.String("model_key", modelKey),
		zap.String("provider", p.info.Provider),
		zap.String("transport", string(config.TransportWebSocket)),
	)

	call := &socketCall{
		p:        p,
		logger:   s.logger.With(zap.String("model_key", modelKey)),
		state:    SocketConnecting,
		done:     make(chan struct{}),
		recorder: s.recorder,
	}

	dialCtx, cancelDial := context.WithTimeout(ctx, s.connectTimeout)
	conn, _, err := websocket.Dial(dialCtx, target, s.dialOptions)
	cancelDial()
	if err != nil {
		s.logger.Warn("websocket connect failed", zap.String("model_key", modelKey), zap.Error(err))
		call.finish(SocketErrored)
		return "", p.tag(types.NewError(types.ErrConnect, "websocket connect failed").
			WithCause(err).
			WithRetryable(true), types.ErrConnect)
	}
	conn.SetReadLimit(maxSocketMessageSize)
	call.conn = conn
	call.setState(SocketOpen)

	return call.run(ctx)
}

// socketCall 一次 WebSocket 调用的全部临时状态
type socketCall struct {
	p        *prepared
	conn     *websocket.Conn
	logger   *zap.Logger
	recorder Recorder

	mu    sync.Mutex
	state SocketState

	once    sync.Once
	done    chan struct{}
	outcome SocketState
	text    string
	err     error
}

func (c *socketCall) setState(s SocketState) {
	c.mu.Lock()
	prev := c.state
	c.state = s
	c.mu.Unlock()
	c.logger.Debug("socket state changed", zap.String("from", string(prev)), zap.String("to", string(s)))
}

// resolve 单次赋值：只有第一个信号生效
func (c *socketCall) resolve(outcome SocketState, text string, err error) bool {
	won := false
	c.once.Do(func() {
		c.outcome = outcome
		c.text = text
		c.err = err
		won = true
		close(c.done)
	})
	return won
}

func (c *socketCall) finish(outcome SocketState) {
	c.setState(outcome)
	c.recorder.RecordSocketOutcome(c.p.info.Provider, string(outcome))
}

func (c *socketCall) run(ctx context.Context) (string, error) {
	if err := c.conn.Write(ctx, websocket.MessageText, c.p.body); err != nil {
		c.conn.CloseNow()
		c.finish(SocketErrored)
		return "", c.p.tag(transportError(ctx, err), types.ErrNetwork)
	}
	c.setState(SocketAwaitingCompletion)

	readCtx, cancelRead := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.readLoop(readCtx)
	}()

	timer := time.NewTimer(c.p.params.Timeout)
	defer timer.Stop()

	select {
	case <-c.done:
	case <-timer.C:
		c.resolve(SocketTimedOut, "", types.Errorf(types.ErrTimeout,
			"no completion within %s", c.p.params.Timeout))
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			c.resolve(SocketTimedOut, "", types.NewError(types.ErrTimeout, "context deadline exceeded").WithCause(ctx.Err()))
		} else {
			c.resolve(SocketErrored, "", types.NewError(types.ErrNetwork, "invocation cancelled").WithCause(ctx.Err()))
		}
	}

	// 不做关闭握手：对端不回应 close 帧时 Close 会阻塞数秒，超出模型超时。
	// CloseNow 同时唤醒仍阻塞在读取上的协程。
	if err := c.conn.CloseNow(); err != nil {
		c.logger.Debug("websocket close failed", zap.Error(err))
	}
	cancelRead()
	wg.Wait()

	c.finish(c.outcome)
	if c.err != nil {
		c.logger.Warn("websocket invocation failed",
			zap.String("outcome", string(c.outcome)),
			zap.Error(c.err),
		)
		return "", c.p.tag(c.err, types.ErrNetwork)
	}
	return c.text, nil
}

// readLoop 持有累积缓冲区，直到完成、关闭或出错
func (c *socketCall) readLoop(ctx context.Context) {
	var acc strings.Builder
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, io.EOF) {
				c.resolve(SocketClosed, acc.String(), nil)
				return
			}
			c.resolve(SocketErrored, "", types.NewError(types.ErrNetwork, "websocket read failed").
				WithCause(err).
				WithRetryable(true))
			return
		}

		if text, ok := c.p.parser.ParseSocketMessage(data, c.p.info); ok {
			acc.WriteString(text)
		}
		if c.p.parser.IsComplete(data, c.p.info) {
			c.resolve(SocketCompleted, acc.String(), nil)
			return
		}
	}
}
