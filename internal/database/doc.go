// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 database 为 SQL 任务存储提供基于 GORM 的连接管理。

# 概述

Open 按配置选择方言（postgres、mysql、纯 Go 的 sqlite）并返回
PoolManager。PoolManager 统一管理连接池参数、后台健康检查与事务。

# 主要能力

  - 方言选择：Dialector 根据 driver 字段构造 gorm.Dialector。
  - 健康检查：可选的后台 Ping，结果通过 StatsRecorder 上报连接数，Close 时停止。
  - 事务管理：WithTransaction 单次执行，WithTransactionRetry 基于
    retry-go 对死锁、序列化失败等错误做指数退避重试。
*/
package database
