package strategy

import (
	"bytes"
	"strings"
)

// CompletionByProvider 判断一条 WebSocket 消息是否表示本轮回答已结束。
//
//	中海油 / zhy-haineng: 含 "status":2 或 "status": 2
//	DeepSeek:            含 "finish_reason": 且不含 "finish_reason":null
//	其他:                 含 "done":true 或 "finish":true
func CompletionByProvider(provider string, msg []byte) bool {
	switch provider {
	case "中海油", "zhy-haineng":
		return bytes.Contains(msg, []byte(`"status":2`)) || bytes.Contains(msg, []byte(`"status": 2`))
	case "DeepSeek":
		return bytes.Contains(msg, []byte(`"finish_reason":`)) && !bytes.Contains(msg, []byte(`"finish_reason":null`))
	default:
		return bytes.Contains(msg, []byte(`"done":true`)) || bytes.Contains(msg, []byte(`"finish":true`))
	}
}

// TrimSSEData 去掉 SSE 行的 "data:" 前缀与首尾空白。
// 非 data 字段（event:、id:、注释行）返回 ("", false)。
func TrimSSEData(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, ":") {
		return "", false
	}
	if rest, ok := strings.CutPrefix(line, "data:"); ok {
		return strings.TrimSpace(rest), true
	}
	if strings.HasPrefix(line, "event:") || strings.HasPrefix(line, "id:") || strings.HasPrefix(line, "retry:") {
		return "", false
	}
	return line, true
}

// IsSSEDone 判断是否为 OpenAI 风格的流结束标记
func IsSSEDone(payload string) bool {
	return payload == "[DONE]"
}
