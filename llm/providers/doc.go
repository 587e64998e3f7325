// Copyright (c) ModelGate Authors.
// Licensed under the MIT License.

/*
# 概述

包 providers 提供各模型平台策略实现共享的辅助能力。具体平台位于子包：

  - deepseek：DeepSeek（校验和签名，OpenAI 兼容响应）
  - cnooc：中海油平台："中海油-DS" 与 "中海油"/"zhy-haineng"（HMAC 签名）

# 核心函数

  - MapHTTPError：将非 2xx 响应映射为 NETWORK 错误（保留状态码与响应体，含 Retryable 标记）
  - ErrorMessage：从上游错误响应中提取可读消息
  - ModelParams / RequireExtra：读取模型参数，缺失时返回带 provider 的错误
  - StreamEnabled：SSE 调用方式强制开启 stream
  - OpenAICompat* 系列：OpenAI 兼容响应结构体
*/
package providers
