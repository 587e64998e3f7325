// Copyright (c) ModelGate Authors.
// Licensed under the MIT License.

/*
包 observability 提供模型调用的 OpenTelemetry 追踪与指标。

# 概述

Metrics 为每次调用创建一个 modelgate.invoke Span，并记录：

  - modelgate.request.total：调用总数，按 provider、model_key、transport、status 分组。
  - modelgate.error.total：失败次数，按 error_code 分组。
  - modelgate.request.duration：调用耗时直方图。
  - modelgate.response.size：成功调用返回文本的字节数。
  - modelgate.stream.chunk.total：流式增量个数。
  - modelgate.request.active：在途调用数。

NewMetrics 使用全局 Provider，由 internal/telemetry 在启动时安装；
未启用遥测时全局 Provider 为 noop。
*/
package observability
