// Copyright (c) ModelGate Authors.
// Licensed under the MIT License.

/*
Package deepseek 实现 "DeepSeek" 提供商的三种策略。

  - HeaderBuilder：校验和签名（appKey、X-Server-Param、X-CurTime、X-CheckSum）
  - BodyBuilder：model、messages、stream、temperature、max_tokens，流式时附带 stream_options
  - Parser：choices[0].message.content（同步）与 choices[0].delta.content（SSE）
*/
package deepseek
