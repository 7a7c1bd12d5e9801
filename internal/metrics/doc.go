// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的客户端指标采集能力，覆盖
API 请求、轮询、提交下载与任务存储四个维度。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标，使用 promauto
自动注册机制。所有指标按 namespace 隔离。Collector 同时满足
poller.Recorder 与 transport.Observer 接口，可直接注入。

# 主要能力

  - API 请求：按 endpoint/method/status 计数与耗时，403 单独归类。
  - 轮询：单次查询按 outcome 计数；每个轮询序列记录结果、耗时与查询次数。
  - 提交与下载：提交成功/失败计数，下载次数与字节数。
  - 任务存储：按 backend/operation 记录操作次数与耗时，数据库连接数 Gauge。
*/
package metrics
