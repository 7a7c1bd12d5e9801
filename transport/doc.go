/*
Package transport 负责与 Anything World 服务的一次请求/响应往返。

# 概述

Client 在加固的 http.Client 之上提供 JSON 请求（Do）与资源下载
（Download）。它不做轮询，也不对状态查询重试；轮询由 poller 包负责。

# 响应解码规则

  - Content-Type 不是 JSON：TRANSPORT 错误。
  - 2xx：返回解码后的 JSON；若是不带 stage 的 code/message 错误信封，则为 API_ERROR。
  - 403：若解码结果（单元素列表先展开）是带 stage 字段的对象，视为有效载荷；
    否则为 FORBIDDEN 错误。
  - 其他状态：带 code 与 message 的错误信封为 API_ERROR，否则为 TRANSPORT。

# 其他能力

  - 可选的客户端限流（golang.org/x/time/rate）。
  - 每个请求携带 X-Request-ID（来自 context 或新生成的 UUID）。
  - multipart 请求体组装，文件字段统一命名为 files。
  - Download 基于 retry-go 对网络错误、5xx 与 429 做退避重试，先写临时文件再原子重命名。
*/
package transport
