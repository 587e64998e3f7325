package deepseek

import (
	"github.com/BaSui01/modelgate/config"
	"github.com/BaSui01/modelgate/llm/providers"
	"github.com/BaSui01/modelgate/llm/strategy"
)

// BodyBuilder 构造 OpenAI 兼容的 chat completions 请求体
type BodyBuilder struct{}

// NewBodyBuilder 创建请求体构造器
func NewBodyBuilder() *BodyBuilder {
	return &BodyBuilder{}
}

// Supports 实现 strategy.BodyBuilder
func (b *BodyBuilder) Supports(info *config.ModelInfo) bool {
	return info.Provider == Provider
}

// Build 实现 strategy.BodyBuilder。stream_options 仅在流式请求中发送。
func (b *BodyBuilder) Build(info *config.ModelInfo, prompt string) (*strategy.Body, error) {
	p, err := providers.ModelParams(info)
	if err != nil {
		return nil, err
	}
	stream := providers.StreamEnabled(p)

	body := strategy.NewBody().
		Set("model", info.ModelName()).
		Set("messages", providers.UserMessages(prompt)).
		Set("stream", stream).
		Set("temperature", p.Temperature).
		Set("max_tokens", p.MaxTokens).
		SetOptional("stream_options", map[string]bool{"include_usage": true}, stream)
	return body, nil
}
