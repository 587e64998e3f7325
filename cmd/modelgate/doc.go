// Copyright (c) ModelGate Authors.
// Licensed under the MIT License.

/*
Package main 提供 ModelGate 命令行入口。

# 概述

cmd/modelgate 加载 YAML 配置（或从数据库读取模型定义），组装策略注册表、
三种调用器与 Gateway，然后执行子命令：

  - invoke：同步调用一个或多个模型，多个 -model 通过 errgroup 并发执行，
    -retries 对可重试错误做指数退避重试
  - stream：流式调用并逐段打印
  - models：列出已配置模型
  - import：将配置文件中的模型写入 model_configs 表
  - migrate：升级、回滚或查看 model_configs 表结构版本
  - version：打印构建注入的版本信息

日志使用 zap，指标使用 Prometheus（-metrics-addr 暴露 /metrics），
遥测开启时通过 OTLP 导出调用 Span。
*/
package main
