// Copyright (c) ModelGate Authors.
// Licensed under the MIT License.

/*
包 database 根据 config.DatabaseConfig 打开 GORM 连接。

支持 postgres、mysql 与 sqlite（glebarez 纯 Go 驱动）三种方言。
Open 会应用连接池参数并做一次带超时的探活；模型定义的读写由
config.DBSource 完成。
*/
package database
