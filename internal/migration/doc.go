// Copyright (c) ModelGate Authors.
// Licensed under the MIT License.

/*
包 migration 管理 model_configs 表的版本化 Schema 迁移。

迁移 SQL 通过 embed.FS 内嵌，按 postgres 与 mysql 两种方言分别维护，
由 golang-migrate 执行并记录在 schema_migrations 表中。sqlite 没有
版本化迁移，NewMigrator 返回 ErrUnsupportedDriver，调用方应改用
config.DBSource.AutoMigrate。

CLI 把 up、down、version、status 的结果格式化输出到终端，供
modelgate migrate 子命令使用。
*/
package migration
