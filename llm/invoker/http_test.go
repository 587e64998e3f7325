package invoker

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/modelgate/config"
	"github.com/BaSui01/modelgate/llm/providers/deepseek"
	"github.com/BaSui01/modelgate/llm/signing"
	"github.com/BaSui01/modelgate/types"
)

func newHTTPInvokerFor(t *testing.T, srv *httptest.Server, overrides map[string]any) *HTTPInvoker {
	t.Helper()
	store := newTestStore(t, testModelKey, "deepseek-chat", deepseek.Provider,
		deepSeekParams(srv.URL+"/v1/chatsvc/completions", overrides))
	return NewHTTPInvoker(store, testRegistry(t), zaptest.NewLogger(t), WithHTTPClient(srv.Client()))
}

func TestHTTPInvoker_Supports(t *testing.T) {
	inv := NewHTTPInvoker(nil, nil, nil)
	assert.True(t, inv.Supports(config.TransportHTTP))
	assert.False(t, inv.Supports(config.TransportSSE))
	assert.False(t, inv.Supports(config.TransportWebSocket))
}

func TestHTTPInvoker_Invoke_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "key42", r.Header.Get(signing.HeaderAppKey))
		assert.NotEmpty(t, r.Header.Get(signing.HeaderCheckSum))

		raw, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		var body map[string]any
		assert.NoError(t, json.Unmarshal(raw, &body))
		assert.Equal(t, "deepseek-chat", body["model"])
		assert.Equal(t, false, body["stream"])
		assert.NotContains(t, body, "stream_options")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","choices":[{"index":0,"message":{"role":"assistant","content":"hello"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	text, err := newHTTPInvokerFor(t, srv, nil).Invoke(context.Background(), testModelKey, "hi")
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
}

func TestNewJSONRequest_HostHeader(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		host     string
		want     string
	}{
		{name: "same host", endpoint: "https://api.example.com/v1/chat", host: "api.example.com", want: "api.example.com"},
		{name: "same host with port", endpoint: "http://127.0.0.1:8080/v1", host: "127.0.0.1", want: "127.0.0.1"},
		{name: "signing host elsewhere", endpoint: "https://api.example.com/v1/chat", host: "sign.example.com", want: "api.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &prepared{
				modelKey: testModelKey,
				info:     config.NewModelInfo("m", "中海油-DS", "", nil),
				params:   &config.ModelParams{Endpoint: tt.endpoint},
				headers:  map[string]string{"host": tt.host, "date": "d"},
				body:     []byte(`{}`),
			}
			req, err := newJSONRequest(context.Background(), p)
			require.NoError(t, err)
			assert.Equal(t, tt.want, req.Host)
			assert.Empty(t, req.Header.Get("host"))
			assert.Equal(t, "d", req.Header.Get("date"))
			assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
		})
	}
}

func TestHTTPInvoker_Invoke_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom"}}`))
	}))
	defer srv.Close()

	text, err := newHTTPInvokerFor(t, srv, nil).Invoke(context.Background(), testModelKey, "hi")
	require.Error(t, err)
	assert.Empty(t, text)

	e, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrNetwork, e.Code)
	assert.Equal(t, http.StatusInternalServerError, e.HTTPStatus)
	assert.Equal(t, `{"error":{"message":"boom"}}`, e.Body)
	assert.Equal(t, deepseek.Provider, e.Provider)
	assert.Equal(t, testModelKey, e.ModelKey)
	assert.True(t, e.Retryable)
}

func TestHTTPInvoker_Invoke_UnparseableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := newHTTPInvokerFor(t, srv, nil).Invoke(context.Background(), testModelKey, "hi")
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrParse))
	e, _ := types.AsError(err)
	assert.Equal(t, testModelKey, e.ModelKey)
}

func TestHTTPInvoker_Invoke_ModelTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	inv := newHTTPInvokerFor(t, srv, map[string]any{"timeout": 50})
	start := time.Now()
	_, err := inv.Invoke(context.Background(), testModelKey, "hi")
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrTimeout), "got %v", err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestHTTPInvoker_Invoke_UnknownModel(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := newHTTPInvokerFor(t, srv, nil).Invoke(context.Background(), "missing", "hi")
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrConfig))
	e, _ := types.AsError(err)
	assert.Equal(t, "missing", e.ModelKey)
}

func TestHTTPInvoker_Invoke_MissingExtra(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	params := deepSeekParams(srv.URL+"/v1/chatsvc/completions", nil)
	delete(params, "appid")
	store := newTestStore(t, testModelKey, "deepseek-chat", deepseek.Provider, params)
	inv := NewHTTPInvoker(store, testRegistry(t), zaptest.NewLogger(t), WithHTTPClient(srv.Client()))

	_, err := inv.Invoke(context.Background(), testModelKey, "hi")
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrMissingParam))
	e, _ := types.AsError(err)
	assert.Equal(t, deepseek.Provider, e.Provider)
	assert.Equal(t, testModelKey, e.ModelKey)
}

func TestHTTPInvoker_InvokeStream_Unsupported(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	var errs []error
	for _, err := range newHTTPInvokerFor(t, srv, nil).InvokeStream(context.Background(), testModelKey, "hi") {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.True(t, types.IsCode(errs[0], types.ErrUnsupported))
	e, _ := types.AsError(errs[0])
	assert.Equal(t, deepseek.Provider, e.Provider)
}
