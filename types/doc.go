// Copyright (c) ModelGate Authors.
// Licensed under the MIT License.

/*
Package types 提供 ModelGate 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包。调用链上所有对外暴露的错误
都归一为 [Error]，携带错误码、HTTP 状态、上游响应体以及 provider 与
modelKey 诊断信息。

# 错误码

  - ErrConfig：模型/提供商未知、策略缺失、重复注册
  - ErrMissingParam：必需的 extra 参数缺失
  - ErrSigning：签名计算失败
  - ErrURLParse：endpoint / requestUrl 无法解析
  - ErrNetwork：连接/读取失败或非 2xx 状态
  - ErrParse：响应体格式错误或带错误码
  - ErrTimeout：等待完成超时
  - ErrConnect：WebSocket 连接建立失败
  - ErrUnsupported：当前调用器不支持该操作

# 工具函数

  - AsError / IsCode / GetErrorCode / IsRetryable：基于 errors.As 的链式判断
  - Tag：为任意错误补全 provider 与 modelKey
*/
package types
