package cnooc

import (
	"slices"

	"github.com/BaSui01/modelgate/config"
	"github.com/BaSui01/modelgate/llm/providers"
	"github.com/BaSui01/modelgate/llm/strategy"
)

// DeepSeekBodyBuilder 构造 "中海油-DS" 的补全请求体。
// repetition_penalty、top_p、top_k 来自 extra 参数，缺省时不发送。
type DeepSeekBodyBuilder struct{}

// NewDeepSeekBodyBuilder 创建请求体构造器
func NewDeepSeekBodyBuilder() *DeepSeekBodyBuilder {
	return &DeepSeekBodyBuilder{}
}

// Supports 实现 strategy.BodyBuilder
func (b *DeepSeekBodyBuilder) Supports(info *config.ModelInfo) bool {
	return info.Provider == ProviderDeepSeek
}

// Build 实现 strategy.BodyBuilder
func (b *DeepSeekBodyBuilder) Build(info *config.ModelInfo, prompt string) (*strategy.Body, error) {
	p, err := providers.ModelParams(info)
	if err != nil {
		return nil, err
	}

	body := strategy.NewBody().
		Set("prompt", prompt).
		Set("max_tokens", p.MaxTokens).
		Set("stream", providers.StreamEnabled(p)).
		Set("do_sample", true)
	setExtra(body, p, "repetition_penalty")
	body.Set("temperature", p.Temperature)
	setExtra(body, p, "top_p")
	setExtra(body, p, "top_k")
	body.Set("model", info.ModelName())
	return body, nil
}

func setExtra(body *strategy.Body, p *config.ModelParams, key string) {
	v, ok := p.Extra.Lookup(key)
	body.SetOptional(key, v, ok)
}

// HainengBodyBuilder 构造 "中海油" 海能模型的请求体：
//
//	{"header":{"app_id"},"parameter":{"chat":{"domain","temperature","max_tokens"}},
//	 "payload":{"message":{"text":[{"role":"user","content"}]}}}
//
// 需要 extra 参数 appid；domain 缺省为模型名。
type HainengBodyBuilder struct{}

// NewHainengBodyBuilder 创建请求体构造器
func NewHainengBodyBuilder() *HainengBodyBuilder {
	return &HainengBodyBuilder{}
}

// Supports 实现 strategy.BodyBuilder
func (b *HainengBodyBuilder) Supports(info *config.ModelInfo) bool {
	return slices.Contains([]string{ProviderHaineng, ProviderHainengAlias}, info.Provider)
}

// Build 实现 strategy.BodyBuilder
func (b *HainengBodyBuilder) Build(info *config.ModelInfo, prompt string) (*strategy.Body, error) {
	p, err := providers.ModelParams(info)
	if err != nil {
		return nil, err
	}
	appID, err := providers.RequireExtra(info, p, "appid")
	if err != nil {
		return nil, err
	}
	domain := info.ModelName()
	if d, err := p.Extra.String("domain"); err == nil && d != "" {
		domain = d
	}

	chat := strategy.NewBody().
		Set("domain", domain).
		Set("temperature", p.Temperature).
		Set("max_tokens", p.MaxTokens)

	body := strategy.NewBody().
		Set("header", strategy.NewBody().Set("app_id", appID)).
		Set("parameter", strategy.NewBody().Set("chat", chat)).
		Set("payload", strategy.NewBody().Set("message", strategy.NewBody().
			Set("text", providers.UserMessages(prompt))))
	return body, nil
}
