package invoker

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/BaSui01/modelgate/config"
	"github.com/BaSui01/modelgate/llm/providers/cnooc"
	"github.com/BaSui01/modelgate/llm/providers/deepseek"
	"github.com/BaSui01/modelgate/llm/signing"
	"github.com/BaSui01/modelgate/llm/strategy"
)

const testModelKey = "ds"

func testSource() signing.Source {
	return signing.Source{
		Now:     func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) },
		NewUUID: func() (string, error) { return "123e4567-e89b-12d3-a456-426614174000", nil },
	}
}

func testRegistry(t *testing.T) *strategy.Registry {
	t.Helper()
	src := testSource()
	reg, err := strategy.NewRegistry(
		strategy.Registration{Provider: deepseek.Provider, Kind: strategy.KindHeaderBuilder, Impl: deepseek.NewHeaderBuilder(src)},
		strategy.Registration{Provider: deepseek.Provider, Kind: strategy.KindBodyBuilder, Impl: deepseek.NewBodyBuilder()},
		strategy.Registration{Provider: deepseek.Provider, Kind: strategy.KindResponseParser, Impl: deepseek.NewParser()},
		strategy.Registration{Provider: cnooc.ProviderHaineng, Kind: strategy.KindHeaderBuilder, Impl: cnooc.NewHeaderBuilder(src, cnooc.ProviderHaineng)},
		strategy.Registration{Provider: cnooc.ProviderHaineng, Kind: strategy.KindBodyBuilder, Impl: cnooc.NewHainengBodyBuilder()},
		strategy.Registration{Provider: cnooc.ProviderHaineng, Kind: strategy.KindResponseParser, Impl: cnooc.NewHainengParser()},
	)
	require.NoError(t, err)
	return reg
}

// deepSeekParams 返回 DeepSeek 模型参数，overrides 覆盖默认值
func deepSeekParams(endpoint string, overrides map[string]any) map[string]any {
	p := map[string]any{
		"api-key":  "sk-test",
		"endpoint": endpoint,
		"appKey":   "key42",
		"appid":    "app123",
	}
	for k, v := range overrides {
		p[k] = v
	}
	return p
}

// hainengParams 返回中海油模型参数
func hainengParams(endpoint string, overrides map[string]any) map[string]any {
	p := map[string]any{
		"api-key":    "k1",
		"endpoint":   endpoint,
		"requestUrl": "https://h/x/y",
		"apiSecret":  "s1",
		"appid":      "app-hn",
		"transport":  "websocket",
	}
	for k, v := range overrides {
		p[k] = v
	}
	return p
}

func newTestStore(t *testing.T, key, name, provider string, params map[string]any) *config.Store {
	t.Helper()
	store, err := config.NewStore(map[string]*config.ModelInfo{
		key: config.NewModelInfo(name, provider, "", params),
	}, nil)
	require.NoError(t, err)
	return store
}

// wsURL 将 httptest 地址转换为 ws 地址
func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http")
}

// recordingRecorder 记录收到的指标调用
type recordingRecorder struct {
	mu          sync.Mutex
	invocations []string
	chunks      int
	outcomes    []string
}

func (r *recordingRecorder) RecordInvocation(provider, modelKey, transport, code string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invocations = append(r.invocations, provider+"|"+modelKey+"|"+transport+"|"+code)
}

func (r *recordingRecorder) RecordStreamChunk(string, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunks++
}

func (r *recordingRecorder) RecordSocketOutcome(_ string, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *recordingRecorder) snapshot() ([]string, int, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.invocations...), r.chunks, append([]string(nil), r.outcomes...)
}
