package config

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/modelgate/types"
)

func TestParseModelParams_Defaults(t *testing.T) {
	p, err := ParseModelParams(map[string]any{
		"api-key":  "k",
		"endpoint": "https://h/x",
	})
	require.NoError(t, err)

	assert.Equal(t, "k", p.APIKey)
	assert.Equal(t, "https://h/x", p.Endpoint)
	assert.Equal(t, 30*time.Second, p.Timeout)
	assert.False(t, p.ExplicitTimeout)
	assert.Equal(t, 2048, p.MaxTokens)
	assert.False(t, p.Stream)
	assert.Equal(t, 0.7, p.Temperature)
	assert.Equal(t, TransportHTTP, p.Transport)
	assert.Empty(t, p.Extra)
}

func TestParseModelParams_CoercesAndCollectsExtras(t *testing.T) {
	p, err := ParseModelParams(map[string]any{
		"api-key":     "k",
		"endpoint":    "https://h/x",
		"timeout":     "1500",
		"max-tokens":  "512",
		"stream":      "true",
		"temperature": 1,
		"model-name":  "deepseek-chat",
		"transport":   "WebSocket",
		"appid":       "a1",
		"top_k":       5,
		"ignored":     nil,
	})
	require.NoError(t, err)

	assert.Equal(t, 1500*time.Millisecond, p.Timeout)
	assert.True(t, p.ExplicitTimeout)
	assert.Equal(t, 512, p.MaxTokens)
	assert.True(t, p.Stream)
	assert.Equal(t, 1.0, p.Temperature)
	assert.Equal(t, "deepseek-chat", p.ModelName)
	assert.Equal(t, TransportWebSocket, p.Transport)
	assert.Equal(t, []string{"appid", "top_k"}, p.Extra.Keys())
}

func TestParseModelParams_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
	}{
		{"bad timeout", map[string]any{"timeout": "soon"}},
		{"negative timeout", map[string]any{"timeout": -1}},
		{"bad transport", map[string]any{"transport": "grpc"}},
		{"bad stream", map[string]any{"stream": "maybe"}},
		{"list extra", map[string]any{"tags": []any{"a", "b"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseModelParams(tt.raw)
			require.Error(t, err)
			assert.True(t, types.IsCode(err, types.ErrConfig), "got %v", err)
		})
	}
}

func TestModelInfo_ParamsCached(t *testing.T) {
	info := NewModelInfo("m", "DeepSeek", "", map[string]any{"api-key": "k1"})

	first, err := info.Params()
	require.NoError(t, err)
	second, err := info.Params()
	require.NoError(t, err)
	assert.Same(t, first, second)

	info.SetParams(map[string]any{"api-key": "k2"})
	third, err := info.Params()
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, "k2", third.APIKey)
}

func TestModelInfo_ParamsConcurrent(t *testing.T) {
	info := NewModelInfo("m", "DeepSeek", "", map[string]any{"api-key": "k"})

	var wg sync.WaitGroup
	results := make([]*ModelParams, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = info.Params()
		}(i)
	}
	wg.Wait()

	for _, p := range results {
		assert.Same(t, results[0], p)
	}
}

func TestModelInfo_ModelName(t *testing.T) {
	assert.Equal(t, "fallback", NewModelInfo("fallback", "p", "", nil).ModelName())
	assert.Equal(t, "explicit",
		NewModelInfo("fallback", "p", "", map[string]any{"model-name": "explicit"}).ModelName())
}

func TestParseTransportKind(t *testing.T) {
	for in, want := range map[string]TransportKind{
		"":          TransportHTTP,
		"HTTP":      TransportHTTP,
		" sse ":     TransportSSE,
		"websocket": TransportWebSocket,
		"ws":        TransportWebSocket,
	} {
		got, err := ParseTransportKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}
