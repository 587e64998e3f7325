// Copyright (c) ModelGate Authors.
// Licensed under the MIT License.

/*
包 metrics 提供基于 Prometheus 的模型调用指标采集。

# 概述

Collector 使用 promauto 注册到默认注册表，所有指标按 namespace 隔离：

  - invocations_total{provider, model_key, transport, status}
  - invocation_duration_seconds{provider, transport}
  - invocation_errors_total{provider, code}
  - stream_chunks_total{provider, model_key}
  - socket_outcomes_total{provider, outcome}
  - models_configured

Handler 返回用于 /metrics 的 promhttp 处理器。
*/
package metrics
