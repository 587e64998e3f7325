package strategy

import (
	"github.com/BaSui01/modelgate/config"
)

// Kind 策略类型
type Kind string

const (
	KindHeaderBuilder  Kind = "header_builder"
	KindBodyBuilder    Kind = "body_builder"
	KindResponseParser Kind = "response_parser"
)

// Kinds 返回全部策略类型
func Kinds() []Kind {
	return []Kind{KindHeaderBuilder, KindBodyBuilder, KindResponseParser}
}

// HeaderBuilder 为某个提供商构造请求头（含签名）。
//
// Build 可能返回 SIGNING、MISSING_PARAM 或 URL_PARSE 错误。
type HeaderBuilder interface {
	Supports(info *config.ModelInfo) bool
	Build(info *config.ModelInfo) (map[string]string, error)
}

// BodyBuilder 为某个提供商构造 JSON 请求体。
type BodyBuilder interface {
	Supports(info *config.ModelInfo) bool
	Build(info *config.ModelInfo, prompt string) (*Body, error)
}

// ResponseParser 从提供商的原始响应中提取文本。
//
// ParseSync 失败时返回 PARSE 错误。ParseStreamLine 与 ParseSocketMessage 从不失败：
// 格式错误、无内容或空文本都返回 ("", false)。
type ResponseParser interface {
	ParseSync(body []byte, info *config.ModelInfo) (string, error)
	ParseStreamLine(line string, info *config.ModelInfo) (string, bool)
	ParseSocketMessage(msg []byte, info *config.ModelInfo) (string, bool)
	IsComplete(msg []byte, info *config.ModelInfo) bool
}

// HeaderBuilderFunc 将普通函数适配为不限提供商的 HeaderBuilder
type HeaderBuilderFunc func(info *config.ModelInfo) (map[string]string, error)

// Supports 实现 HeaderBuilder
func (f HeaderBuilderFunc) Supports(*config.ModelInfo) bool { return true }

// Build 实现 HeaderBuilder
func (f HeaderBuilderFunc) Build(info *config.ModelInfo) (map[string]string, error) {
	return f(info)
}
