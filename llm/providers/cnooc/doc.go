// Copyright (c) ModelGate Authors.
// Licensed under the MIT License.

/*
Package cnooc 实现中海油模型平台上的提供商策略。

"中海油-DS"（DeepSeek 部署）：

  - HeaderBuilder：HMAC-SHA256 签名，返回 authorization、host、date
  - DeepSeekBodyBuilder：prompt、max_tokens、stream、do_sample 等补全参数
  - NewDeepSeekParser：要求 header.code == 0

"中海油" 与别名 "zhy-haineng"（海能模型）：

  - HeaderBuilder：同一 HMAC 方案
  - HainengBodyBuilder：header / parameter.chat / payload.message 三段式请求体
  - NewHainengParser：header 可选，text 为空的帧视为无内容

三者都从 payload.choices.text[0].content 取文本。
*/
package cnooc
