// Copyright (c) ModelGate Authors.
// Licensed under the MIT License.

/*
Package config 提供 ModelGate 的配置管理功能。

# 概述

配置按 默认值 → YAML 文件 → 环境变量（前缀 MODELGATE）的顺序加载。
模型定义位于 YAML 的 ai_models 段，或来自数据库的 model_configs 表。
YAML 模型参数中的 ${VAR} 在加载时由环境变量替换，变量缺失即报错。

# 核心类型

  - Config / Loader：全局配置与构建器风格的加载器
  - ModelInfo：单个模型的名称、提供商与原始参数，Params() 首次调用时派生并缓存
  - ModelParams：api-key、endpoint、timeout、max-tokens、stream、temperature、
    model-name、transport 以及其余 extra 参数
  - ExtraParams：{string, number, bool, map} 四选一的附加参数，缺失时返回 MISSING_PARAM
  - Store：按 modelKey 查询的只读模型表
  - DBSource：基于 gorm 的模型定义持久化
*/
package config
