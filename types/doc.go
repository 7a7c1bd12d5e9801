// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 Anything World 客户端的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 stages、poller、transport、
client 等上层模块提供统一的类型契约，以避免循环依赖。

# 核心类型

  - JobKind / DetailLevel: 任务类型（animate、generate）与结果详细级别
  - JobID                : 提交任务后由服务端返回的不可变标识
  - StatusDocument       : 轮询端点返回的任务状态文档（含可选 stage 字段）
  - Error / ErrorCode    : 结构化错误体系：CONFIGURATION、TRANSPORT、API_ERROR、
    FORBIDDEN、CANCELLED、POLL_LIMIT、INVALID_REQUEST

# 主要能力

  - 错误工具链：AsError / GetErrorCode / IsErrorCode 以及 Is* 便捷判断
  - Context 传播：WithRequestID / WithJobID
  - 文档访问：Stage / ModelID / Lookup / LookupString
*/
package types
