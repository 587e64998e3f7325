package providers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/BaSui01/modelgate/config"
	"github.com/BaSui01/modelgate/types"
)

// MapHTTPError 将非 2xx 响应映射为 NETWORK 错误，保留状态码与原始响应体。
// 429、5xx 与 529 标记为可重试，由调用方决定是否重试。
func MapHTTPError(status int, body []byte, provider string) *types.Error {
	msg := ErrorMessage(body)
	if msg == "" {
		msg = http.StatusText(status)
	}
	retryable := status == http.StatusTooManyRequests || status >= 500
	return types.Errorf(types.ErrNetwork, "upstream returned %d: %s", status, msg).
		WithHTTPStatus(status).
		WithBody(string(body)).
		WithRetryable(retryable).
		WithProvider(provider)
}

// ErrorMessage 从响应体中提取错误消息。
// 依次尝试 OpenAI 风格 {"error":{"message"}}、平台风格 {"header":{"message"}}，失败则回退到原始文本。
func ErrorMessage(data []byte) string {
	var resp struct {
		Error *struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
		Header *struct {
			Message string `json:"message"`
		} `json:"header"`
	}
	if err := json.Unmarshal(data, &resp); err == nil {
		if resp.Error != nil && resp.Error.Message != "" {
			if resp.Error.Type != "" {
				return fmt.Sprintf("%s (type: %s)", resp.Error.Message, resp.Error.Type)
			}
			return resp.Error.Message
		}
		if resp.Header != nil && resp.Header.Message != "" {
			return resp.Header.Message
		}
	}
	return strings.TrimSpace(string(data))
}

// OpenAI 兼容 API 通用类型
// DeepSeek 同步、SSE 与 WebSocket 响应共用这一组结构.

// OpenAICompatMessage 表示 OpenAI 兼容的消息格式.
type OpenAICompatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OpenAICompatChoice 表示 OpenAI 兼容响应中的单个选项.
type OpenAICompatChoice struct {
	Index        int                  `json:"index"`
	FinishReason *string              `json:"finish_reason"`
	Message      *OpenAICompatMessage `json:"message,omitempty"`
	Delta        *OpenAICompatMessage `json:"delta,omitempty"`
}

// OpenAICompatUsage 表示 OpenAI 兼容响应中的 token 用量.
type OpenAICompatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// OpenAICompatResponse 表示 OpenAI 兼容的聊天完成响应.
type OpenAICompatResponse struct {
	ID      string               `json:"id"`
	Model   string               `json:"model"`
	Choices []OpenAICompatChoice `json:"choices"`
	Usage   *OpenAICompatUsage   `json:"usage,omitempty"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// UserMessages 返回仅含一条 user 消息的消息列表
func UserMessages(prompt string) []OpenAICompatMessage {
	return []OpenAICompatMessage{{Role: "user", Content: prompt}}
}

// ModelParams 派生模型参数，失败时补充 provider 信息
func ModelParams(info *config.ModelInfo) (*config.ModelParams, error) {
	p, err := info.Params()
	if err != nil {
		return nil, types.Tag(err, types.ErrConfig, info.Provider, "")
	}
	return p, nil
}

// RequireExtra 读取必需的字符串 extra 参数，缺失时返回 MISSING_PARAM
func RequireExtra(info *config.ModelInfo, p *config.ModelParams, key string) (string, error) {
	v, err := p.Extra.String(key)
	if err != nil {
		return "", types.Tag(err, types.ErrMissingParam, info.Provider, "")
	}
	return v, nil
}

// StreamEnabled 判断请求体中的 stream 标记。SSE 调用方式总是开启流式。
func StreamEnabled(p *config.ModelParams) bool {
	return p.Stream || p.Transport == config.TransportSSE
}

// SafeCloseBody 安全关闭 HTTP 响应体并忽略错误
func SafeCloseBody(body io.ReadCloser) {
	if body != nil {
		_ = body.Close()
	}
}
